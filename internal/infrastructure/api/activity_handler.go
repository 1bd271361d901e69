package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/peerpods/internal/application"
)

type activityRecorder interface {
	Execute(ctx context.Context, input application.RecordActivityInput) (*application.RecordActivityOutput, error)
}

// ActivityHandler handles activity related HTTP requests.
type ActivityHandler struct {
	record activityRecorder
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(record activityRecorder) *ActivityHandler {
	return &ActivityHandler{record: record}
}

// RegisterRoutes registers the activity routes on the given group.
func (h *ActivityHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/activities", h.Record)
}

// RecordActivityRequest is the request body for recording an activity.
type RecordActivityRequest struct {
	CommunityID string         `json:"community_id"`
	EventType   string         `json:"event_type"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Record handles POST /api/v1/activities
// answers 202 when the event was queued for ingestion and 201 when it was stored inline.
func (h *ActivityHandler) Record(c echo.Context) error {
	var req RecordActivityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.CommunityID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "community_id is required")
	}
	if req.EventType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "event_type is required")
	}

	out, err := h.record.Execute(c.Request().Context(), application.RecordActivityInput{
		ExternalID:  GetUserExternalID(c),
		CommunityID: req.CommunityID,
		EventType:   req.EventType,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if out.Queued {
		status = http.StatusAccepted
	}
	return c.JSON(status, out)
}
