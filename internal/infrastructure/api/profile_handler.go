package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/peerpods/internal/application"
)

type profileUpserter interface {
	Execute(ctx context.Context, input application.UpsertProfileInput) (*application.UpsertProfileOutput, error)
}

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	upsert profileUpserter
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(upsert profileUpserter) *ProfileHandler {
	return &ProfileHandler{upsert: upsert}
}

// RegisterRoutes registers profile routes on the given group.
func (h *ProfileHandler) RegisterRoutes(g *echo.Group) {
	g.PUT("/me/profile", h.Upsert)
}

// UpsertProfileRequest is the request body for PUT /me/profile.
type UpsertProfileRequest struct {
	Username           string   `json:"username"`
	DisplayName        string   `json:"display_name"`
	AvatarURL          string   `json:"avatar_url"`
	Bio                string   `json:"bio"`
	Goals              []string `json:"goals"`
	HiddenFromMatching *bool    `json:"hidden_from_matching,omitempty"`
}

// Upsert handles PUT /api/v1/me/profile
// creates the profile on first call (201) and updates it afterwards (200).
func (h *ProfileHandler) Upsert(c echo.Context) error {
	var req UpsertProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	claims := GetClaims(c)
	username := req.Username
	if username == "" && claims != nil {
		username = claims.PreferredUsername()
	}

	out, err := h.upsert.Execute(c.Request().Context(), application.UpsertProfileInput{
		ExternalID:  GetUserExternalID(c),
		Username:    username,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		Bio:         req.Bio,
		Goals:       req.Goals,
		Hidden:      req.HiddenFromMatching,
	})
	if err != nil {
		return err
	}

	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, out.Profile)
}
