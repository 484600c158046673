package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/chargewatch-go/internal/alert"
	"github.com/tphakala/chargewatch-go/internal/datastore/repository"
	"github.com/tphakala/chargewatch-go/internal/logger"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

// initAlertRoutes registers the alert endpoints.
func (c *Controller) initAlertRoutes() {
	group := c.Group.Group("/alerts")
	group.GET("", c.ListAlerts)
	group.GET("/stats", c.AlertStats)
	group.GET("/ws", c.AlertSocket)
	group.GET("/:id", c.GetAlert)
	group.PUT("/:id", c.UpdateAlert)
}

// ListAlerts returns alerts with filters and pagination.
func (c *Controller) ListAlerts(ctx echo.Context) error {
	filter := repository.AlertFilter{
		AlertType: alertTypeParam(ctx),
		Source:    ctx.QueryParam("source"),
		SourceID:  ctx.QueryParam("source_id"),
		Limit:     queryInt(ctx, "limit", defaultAlertLimit),
		Offset:    queryInt(ctx, "offset", 0),
	}
	if filter.Limit > maxAlertLimit {
		filter.Limit = maxAlertLimit
	}
	if status := ctx.QueryParam("status"); status != "" {
		filter.Status = alert.NormalizeStatus(status)
	}
	if ctx.QueryParam("active") == "true" {
		filter.Status = ""
		filter.Statuses = alert.ActiveStatuses()
	}

	start, err := parseTimeParam(ctx, "start")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid start time"})
	}
	end, err := parseTimeParam(ctx, "end")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid end time"})
	}
	filter.Start = start
	filter.End = end

	alerts, total, err := c.alerts.List(ctx.Request().Context(), filter)
	if err != nil {
		c.log.Error("failed to list alerts", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list alerts"})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
		"total":  total,
	})
}

// AlertStats returns aggregated alert counts over the trailing days.
func (c *Controller) AlertStats(ctx echo.Context) error {
	stats, err := c.alerts.Stats(ctx.Request().Context(), queryInt(ctx, "days", 7))
	if err != nil {
		c.log.Error("failed to aggregate alert stats", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to aggregate alert stats"})
	}
	return ctx.JSON(http.StatusOK, stats)
}

// GetAlert returns one alert by ID.
func (c *Controller) GetAlert(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid alert ID"})
	}

	found, err := c.alerts.Get(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "alert not found"})
		}
		c.log.Error("failed to get alert", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get alert"})
	}
	return ctx.JSON(http.StatusOK, found)
}

// alertUpdateRequest is the PUT /alerts/:id body.
type alertUpdateRequest struct {
	Status       string `json:"status"`
	HandledBy    string `json:"handled_by"`
	HandlerNotes string `json:"handler_notes"`
}

// UpdateAlert transitions an alert's status.
func (c *Controller) UpdateAlert(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid alert ID"})
	}

	var req alertUpdateRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Status == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "status is required"})
	}

	updated, err := c.alerts.UpdateStatus(ctx.Request().Context(), id, alert.StatusUpdate{
		Status:       req.Status,
		HandledBy:    req.HandledBy,
		HandlerNotes: req.HandlerNotes,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "alert not found"})
		}
		c.log.Error("failed to update alert", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update alert"})
	}
	return ctx.JSON(http.StatusOK, updated)
}

// AlertSocket upgrades to a websocket fed by the live alert hub.
func (c *Controller) AlertSocket(ctx echo.Context) error {
	if c.hub == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": "live alerts not enabled"})
	}
	return c.hub.Serve(ctx.Response(), ctx.Request())
}

func alertTypeParam(ctx echo.Context) string {
	raw := ctx.QueryParam("type")
	if raw == "" {
		return ""
	}
	return alert.NormalizeType(raw)
}
