// Package monitor is the composition root: it wires the datastore,
// domain services and HTTP API together and owns their lifecycle.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/chargewatch-go/internal/alert"
	api "github.com/tphakala/chargewatch-go/internal/api/v2"
	"github.com/tphakala/chargewatch-go/internal/camera"
	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/datastore"
	"github.com/tphakala/chargewatch-go/internal/datastore/repository"
	"github.com/tphakala/chargewatch-go/internal/diagnostics"
	"github.com/tphakala/chargewatch-go/internal/logger"
	"github.com/tphakala/chargewatch-go/internal/mqtt"
	"github.com/tphakala/chargewatch-go/internal/notify"
	"github.com/tphakala/chargewatch-go/internal/observability"
	"github.com/tphakala/chargewatch-go/internal/sensors"
	"github.com/tphakala/chargewatch-go/internal/throttle"
	"github.com/tphakala/chargewatch-go/internal/thresholds"
)

// Option overrides a default collaborator before wiring.
type Option func(*options)

type options struct {
	reader   sensors.Reader
	source   camera.FrameSource
	detector camera.Detector
}

// WithReader substitutes the sensor reader (default: simulated).
func WithReader(r sensors.Reader) Option {
	return func(o *options) { o.reader = r }
}

// WithFrameSource substitutes the camera source (default: HTTP MJPEG).
func WithFrameSource(s camera.FrameSource) Option {
	return func(o *options) { o.source = s }
}

// WithDetector attaches a frame detector (default: none).
func WithDetector(d camera.Detector) Option {
	return func(o *options) { o.detector = d }
}

// Monitor owns every running component of the service.
type Monitor struct {
	settings *conf.Settings
	log      logger.Logger

	echo    *echo.Echo
	sampler *sensors.Manager
	cameras *camera.Manager
	diag    *diagnostics.Monitor
	hub     *api.Hub
	mqtt    *mqtt.Client
	metrics *observability.Metrics
}

// New wires the full service from configuration.
func New(settings *conf.Settings, log logger.Logger, opts ...Option) (*Monitor, error) {
	o := &options{
		reader: sensors.NewSimulatedReader(time.Now().UnixNano()),
		source: camera.NewMJPEGSource(nil),
	}
	for _, opt := range opts {
		opt(o)
	}

	db, err := datastore.Open(settings.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize datastore: %w", err)
	}

	alertRepo := repository.NewAlertRepository(db)
	readingRepo := repository.NewSensorReadingRepository(db)
	cameraRepo := repository.NewCameraRepository(db)
	detectionRepo := repository.NewDetectionEventRepository(db)

	metrics := observability.NewMetrics()
	hub := api.NewHub(log)
	mqttClient := mqtt.NewClient(settings.MQTT, log)

	dispatcher := notify.NewDispatcher(
		notify.BuildChannels(settings.Notification, &http.Client{Timeout: 10 * time.Second}, log),
		metrics,
		log,
	)

	alertOpts := []alert.Option{
		alert.WithNotifier(dispatcher),
		alert.WithBroadcaster(hub),
		alert.WithRecorder(metrics),
	}
	if mqttClient.Enabled() {
		alertOpts = append(alertOpts, alert.WithPublisher(mqttClient))
	}
	alertService := alert.NewService(alertRepo, log, alertOpts...)

	engine := thresholds.NewEngine(settings.Sensors.Thresholds, settings, log)
	samplerOpts := []sensors.Option{}
	if mqttClient.Enabled() {
		samplerOpts = append(samplerOpts, sensors.WithPublisher(mqttClient))
	}
	sampler := sensors.NewManager(o.reader, readingRepo, engine, alertService, metrics, settings.Sensors, log, samplerOpts...)

	cooldown := throttle.New(settings.Detection.Cooldown.Std())
	cameraManager := camera.NewManager(
		cameraRepo, detectionRepo, alertService, o.source, o.detector,
		cooldown, metrics, settings.Cameras, settings.Detection, log,
	)
	diag := diagnostics.NewMonitor(alertService, cooldown, settings.Diagnostics, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.New(e, api.ControllerDeps{
		Alerts:     alertService,
		Readings:   readingRepo,
		Detections: detectionRepo,
		CameraRepo: cameraRepo,
		Sampler:    sampler,
		Engine:     engine,
		Cameras:    cameraManager,
		Hub:        hub,
		Diag:       diag,
		Metrics:    metrics,
		Settings:   settings,
		Log:        log,
	})

	return &Monitor{
		settings: settings,
		log:      log,
		echo:     e,
		sampler:  sampler,
		cameras:  cameraManager,
		diag:     diag,
		hub:      hub,
		mqtt:     mqttClient,
		metrics:  metrics,
	}, nil
}

// Run starts every component and blocks until the context is cancelled,
// then shuts them down in reverse order.
func (m *Monitor) Run(ctx context.Context) error {
	m.hub.Start(ctx)
	m.sampler.Start(ctx)
	m.diag.Start(ctx)
	if err := m.cameras.Start(ctx); err != nil {
		m.log.Error("camera startup incomplete", logger.Error(err))
	}
	if m.mqtt.Enabled() {
		if err := m.mqtt.Connect(ctx); err != nil {
			m.log.Warn("mqtt broker unavailable, will retry on publish", logger.Error(err))
		}
	}

	addr := fmt.Sprintf("%s:%d", m.settings.HTTP.Host, m.settings.HTTP.Port)
	m.log.Info("http server listening", logger.String("addr", addr))

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := m.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to run http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-runCtx.Done()
		m.shutdown()
		return nil
	})
	return g.Wait()
}

func (m *Monitor) shutdown() {
	m.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.echo.Shutdown(shutdownCtx); err != nil {
		m.log.Warn("http shutdown incomplete", logger.Error(err))
	}

	m.cameras.Stop()
	m.diag.Stop()
	m.sampler.Stop()
	m.hub.Stop()
	m.mqtt.Disconnect()
	m.log.Info("shutdown complete")
}
