package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
	"github.com/tphakala/chargewatch-go/internal/datastore/repository"
	"github.com/tphakala/chargewatch-go/internal/logger"
)

const (
	defaultReadingLimit  = 100
	maxReadingLimit      = 1000
	defaultReadingWindow = 24 * time.Hour
)

// initSensorRoutes registers the sensor data and threshold endpoints.
func (c *Controller) initSensorRoutes() {
	group := c.Group.Group("/sensors")
	group.GET("/data", c.ListReadings)
	group.GET("/latest", c.LatestReadings)
	group.POST("/readings", c.CreateReading)
	group.GET("/thresholds", c.GetThresholds)
	group.PUT("/thresholds", c.UpdateThresholds)
}

// ListReadings returns readings filtered by type and time range. Without
// an explicit range the trailing 24 hours are returned.
func (c *Controller) ListReadings(ctx echo.Context) error {
	filter := repository.ReadingFilter{
		SensorType: ctx.QueryParam("type"),
		DeviceID:   ctx.QueryParam("device_id"),
		Limit:      queryInt(ctx, "limit", defaultReadingLimit),
	}
	if filter.Limit > maxReadingLimit {
		filter.Limit = maxReadingLimit
	}

	start, err := parseTimeParam(ctx, "start")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid start time"})
	}
	end, err := parseTimeParam(ctx, "end")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid end time"})
	}
	if start == nil && end == nil {
		from := time.Now().UTC().Add(-defaultReadingWindow)
		start = &from
	}
	filter.Start = start
	filter.End = end

	readings, err := c.readings.List(ctx.Request().Context(), filter)
	if err != nil {
		c.log.Error("failed to list readings", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list readings"})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"readings": readings,
		"count":    len(readings),
	})
}

// LatestReadings returns the newest reading per sensor type.
func (c *Controller) LatestReadings(ctx echo.Context) error {
	latest := make(map[string]*entities.SensorReading)
	for _, sensorType := range entities.AllSensorTypes() {
		reading, err := c.readings.LatestByType(ctx.Request().Context(), sensorType)
		if err != nil {
			c.log.Error("failed to get latest reading",
				logger.String("sensor_type", sensorType),
				logger.Error(err),
			)
			return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get latest readings"})
		}
		if reading != nil {
			latest[sensorType] = reading
		}
	}
	return ctx.JSON(http.StatusOK, latest)
}

// manualReadingRequest is the POST /sensors/readings body.
type manualReadingRequest struct {
	SensorType string `json:"sensor_type"`
	DeviceID   string `json:"device_id"`
	Location   string `json:"location"`
}

// CreateReading samples one sensor on demand and runs the usual alert
// check. Unknown sensor types are a 400.
func (c *Controller) CreateReading(ctx echo.Context) error {
	var req manualReadingRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	req.SensorType = strings.ToLower(strings.TrimSpace(req.SensorType))
	if !entities.IsKnownSensorType(req.SensorType) {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "unknown sensor type"})
	}

	reading, err := c.sampler.ManualRead(ctx.Request().Context(), req.SensorType, req.DeviceID, req.Location)
	if err != nil {
		c.log.Error("manual reading failed",
			logger.String("sensor_type", req.SensorType),
			logger.Error(err),
		)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to read sensor"})
	}
	return ctx.JSON(http.StatusCreated, reading)
}

// GetThresholds returns the active threshold set.
func (c *Controller) GetThresholds(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.engine.Snapshot())
}

// UpdateThresholds applies partial threshold updates and returns the
// resulting set.
func (c *Controller) UpdateThresholds(ctx echo.Context) error {
	var body map[string]map[string]float64
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(body) == 0 {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "no thresholds given"})
	}

	return ctx.JSON(http.StatusOK, c.engine.Update(conf.DecodeThresholdPatch(body)))
}

// parseTimeParam parses an RFC3339 query parameter; absent means nil.
func parseTimeParam(ctx echo.Context, name string) (*time.Time, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
