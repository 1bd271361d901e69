package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/peerpods/internal/application"
)

type peerDiscoverer interface {
	Execute(ctx context.Context, input application.DiscoverPeersInput) (*application.DiscoverPeersOutput, error)
}

type partnershipEnder interface {
	Execute(ctx context.Context, externalID, partnershipID string) (*application.EndPartnershipOutput, error)
}

// MatchHandler serves peer discovery and partnership endpoints.
type MatchHandler struct {
	discover peerDiscoverer
	end      partnershipEnder
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(discover peerDiscoverer, end partnershipEnder) *MatchHandler {
	return &MatchHandler{discover: discover, end: end}
}

// RegisterRoutes registers match routes on the given group.
func (h *MatchHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/matches", h.Discover)
	g.DELETE("/partnerships/:id", h.EndPartnership)
}

// Discover handles GET /api/v1/matches?community_id=&limit=
// without community_id every pod the caller belongs to is searched.
func (h *MatchHandler) Discover(c echo.Context) error {
	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	out, err := h.discover.Execute(c.Request().Context(), application.DiscoverPeersInput{
		ExternalID:  GetUserExternalID(c),
		CommunityID: c.QueryParam("community_id"),
		Limit:       limit,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, out)
}

// EndPartnership handles DELETE /api/v1/partnerships/:id
func (h *MatchHandler) EndPartnership(c echo.Context) error {
	out, err := h.end.Execute(c.Request().Context(), GetUserExternalID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
