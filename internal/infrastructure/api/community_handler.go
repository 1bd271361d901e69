package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/peerpods/internal/application"
)

type communityLister interface {
	Execute(ctx context.Context, limit, offset int) ([]application.CommunityView, error)
}

type communityCreator interface {
	Execute(ctx context.Context, input application.CreateCommunityInput) (*application.CommunityView, error)
}

type communityJoiner interface {
	Execute(ctx context.Context, externalID, communityID string) (*application.JoinCommunityOutput, error)
}

type partnerFinder interface {
	Execute(ctx context.Context, externalID, communityID string) (*application.FindPartnerOutput, error)
}

// CommunityHandler handles pod endpoints.
type CommunityHandler struct {
	list    communityLister
	create  communityCreator
	join    communityJoiner
	partner partnerFinder
}

// NewCommunityHandler creates a new CommunityHandler.
func NewCommunityHandler(list communityLister, create communityCreator, join communityJoiner, partner partnerFinder) *CommunityHandler {
	return &CommunityHandler{
		list:    list,
		create:  create,
		join:    join,
		partner: partner,
	}
}

// RegisterRoutes registers community routes on the given group.
func (h *CommunityHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/communities", h.List)
	g.POST("/communities", h.Create)
	g.POST("/communities/:id/join", h.Join)
	g.POST("/communities/:id/partner", h.FindPartner)
}

// listCommunitiesResponse is the API response for listing communities.
type listCommunitiesResponse struct {
	Communities []application.CommunityView `json:"communities"`
	Limit       int                         `json:"limit"`
	Offset      int                         `json:"offset"`
}

// List returns active pods, largest first.
// GET /api/v1/communities?limit=20&offset=0
func (h *CommunityHandler) List(c echo.Context) error {
	limit := application.DefaultPageSize
	offset := 0

	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= application.MaxPageSize {
			limit = parsed
		}
	}

	if o := c.QueryParam("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	communities, err := h.list.Execute(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, listCommunitiesResponse{
		Communities: communities,
		Limit:       limit,
		Offset:      offset,
	})
}

// CreateCommunityRequest is the request body for POST /communities.
type CreateCommunityRequest struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /api/v1/communities
func (h *CommunityHandler) Create(c echo.Context) error {
	var req CreateCommunityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	view, err := h.create.Execute(c.Request().Context(), application.CreateCommunityInput{
		Slug:              req.Slug,
		Name:              req.Name,
		Description:       req.Description,
		CreatorExternalID: GetUserExternalID(c),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, view)
}

// Join handles POST /api/v1/communities/:id/join
// joining twice is not an error, the response says whether anything changed.
func (h *CommunityHandler) Join(c echo.Context) error {
	out, err := h.join.Execute(c.Request().Context(), GetUserExternalID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// FindPartner handles POST /api/v1/communities/:id/partner
// returns 201 when a partnership was formed, 200 for an existing one.
func (h *CommunityHandler) FindPartner(c echo.Context) error {
	out, err := h.partner.Execute(c.Request().Context(), GetUserExternalID(c), c.Param("id"))
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if out.Existing {
		status = http.StatusOK
	}
	return c.JSON(status, out)
}
