// Package api implements the v2 HTTP API: sensors, thresholds, alerts,
// cameras, live alert websocket and operational endpoints.
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/chargewatch-go/internal/alert"
	"github.com/tphakala/chargewatch-go/internal/camera"
	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/datastore/repository"
	"github.com/tphakala/chargewatch-go/internal/diagnostics"
	"github.com/tphakala/chargewatch-go/internal/logger"
	"github.com/tphakala/chargewatch-go/internal/observability"
	"github.com/tphakala/chargewatch-go/internal/sensors"
	"github.com/tphakala/chargewatch-go/internal/thresholds"
)

// Controller wires the HTTP routes to the domain services.
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	alerts     *alert.Service
	readings   repository.SensorReadingRepository
	detections repository.DetectionEventRepository
	cameraRepo repository.CameraRepository
	sampler    *sensors.Manager
	engine     *thresholds.Engine
	cameras    *camera.Manager
	hub        *Hub
	diag       *diagnostics.Monitor
	metrics    *observability.Metrics
	settings   *conf.Settings
	log        logger.Logger
}

// ControllerDeps carries everything the controller needs.
type ControllerDeps struct {
	Alerts     *alert.Service
	Readings   repository.SensorReadingRepository
	Detections repository.DetectionEventRepository
	CameraRepo repository.CameraRepository
	Sampler    *sensors.Manager
	Engine     *thresholds.Engine
	Cameras    *camera.Manager
	Hub        *Hub
	Diag       *diagnostics.Monitor
	Metrics    *observability.Metrics
	Settings   *conf.Settings
	Log        logger.Logger
}

// New creates the controller and registers every route under /api/v2.
func New(e *echo.Echo, deps ControllerDeps) *Controller {
	c := &Controller{
		Echo:       e,
		Group:      e.Group("/api/v2"),
		alerts:     deps.Alerts,
		readings:   deps.Readings,
		detections: deps.Detections,
		cameraRepo: deps.CameraRepo,
		sampler:    deps.Sampler,
		engine:     deps.Engine,
		cameras:    deps.Cameras,
		hub:        deps.Hub,
		diag:       deps.Diag,
		metrics:    deps.Metrics,
		settings:   deps.Settings,
		log:        deps.Log,
	}

	e.Use(middleware.Recover())

	c.initSensorRoutes()
	c.initAlertRoutes()
	c.initCameraRoutes()
	c.initOpsRoutes()
	return c
}

func (c *Controller) initOpsRoutes() {
	c.Echo.GET("/healthz", c.Healthz)
	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(
			promhttp.HandlerFor(c.metrics.Registry(), promhttp.HandlerOpts{}),
		))
	}
}

// Healthz reports process liveness plus the latest resource snapshot.
func (c *Controller) Healthz(ctx echo.Context) error {
	body := map[string]any{"status": "ok"}
	if c.diag != nil {
		body["resources"] = c.diag.Last()
	}
	return ctx.JSON(http.StatusOK, body)
}

// parseUintParam parses a numeric path parameter.
func parseUintParam(ctx echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// queryInt parses an integer query parameter with a default.
func queryInt(ctx echo.Context, name string, def int) int {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
