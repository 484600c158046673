package sensors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tphakala/chargewatch-go/internal/alert"
	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
	"github.com/tphakala/chargewatch-go/internal/datastore/repository"
	"github.com/tphakala/chargewatch-go/internal/logger"
	"github.com/tphakala/chargewatch-go/internal/thresholds"
)

// AlertCreator raises alerts for threshold breaches.
type AlertCreator interface {
	Create(ctx context.Context, req alert.CreateRequest) (*entities.Alert, error)
}

// Recorder counts sampling outcomes for metrics.
type Recorder interface {
	SensorReading(sensorType string, value float64)
	SensorReadError(sensorType string)
}

// Publisher forwards persisted readings to an external broker.
type Publisher interface {
	PublishReading(ctx context.Context, reading *entities.SensorReading) error
}

// Option wires an optional collaborator into the manager.
type Option func(*Manager)

// WithPublisher forwards every persisted reading to a broker. Publish
// failures are logged, never surfaced to the sampling loop.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// Manager runs one sampling loop per sensor type. Each loop reads,
// persists, evaluates and sleeps on its own cadence; one sensor failing
// never affects another.
type Manager struct {
	reader    Reader
	readings  repository.SensorReadingRepository
	engine    *thresholds.Engine
	alerts    AlertCreator
	recorder  Recorder
	publisher Publisher
	log       logger.Logger

	intervals map[string]time.Duration
	backoff   time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewManager creates a sampling manager. Recorder may be nil.
func NewManager(
	reader Reader,
	readings repository.SensorReadingRepository,
	engine *thresholds.Engine,
	alerts AlertCreator,
	recorder Recorder,
	settings conf.SensorSettings,
	log logger.Logger,
	opts ...Option,
) *Manager {
	intervals := make(map[string]time.Duration, len(entities.AllSensorTypes()))
	defaults := conf.DefaultIntervals()
	for _, sensorType := range entities.AllSensorTypes() {
		if d, ok := settings.Intervals[sensorType]; ok && d.Std() > 0 {
			intervals[sensorType] = d.Std()
		} else {
			intervals[sensorType] = defaults[sensorType].Std()
		}
	}
	backoff := settings.ReadBackoff.Std()
	if backoff <= 0 {
		backoff = 5 * time.Second
	}
	m := &Manager{
		reader:    reader,
		readings:  readings,
		engine:    engine,
		alerts:    alerts,
		recorder:  recorder,
		log:       log,
		intervals: intervals,
		backoff:   backoff,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches one sampling goroutine per sensor type. Calling Start on
// a running manager is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	for _, sensorType := range entities.AllSensorTypes() {
		m.wg.Add(1)
		go m.sampleLoop(loopCtx, sensorType)
	}
	m.log.Info("sensor sampling started",
		logger.Int("sensors", len(m.intervals)),
	)
}

// Stop cancels the sampling loops and waits for them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.cancel()
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	m.log.Info("sensor sampling stopped")
}

func (m *Manager) sampleLoop(ctx context.Context, sensorType string) {
	defer m.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		wait := m.intervals[sensorType]
		if err := m.sampleOnce(ctx, sensorType, m.reader.DeviceID(sensorType), ""); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.log.Error("sensor sample failed",
				logger.String("sensor_type", sensorType),
				logger.Error(err),
			)
			if m.recorder != nil {
				m.recorder.SensorReadError(sensorType)
			}
			wait = m.backoff
		}
		timer.Reset(wait)
	}
}

// ManualRead samples one sensor on demand, persisting the reading and
// running the same alert check as the background loops.
func (m *Manager) ManualRead(ctx context.Context, sensorType, deviceID, location string) (*entities.SensorReading, error) {
	if !entities.IsKnownSensorType(sensorType) {
		return nil, fmt.Errorf("failed to read sensor: unknown type %q", sensorType)
	}
	if deviceID == "" {
		deviceID = fmt.Sprintf("manual_%s_001", sensorType)
	}
	return m.record(ctx, sensorType, deviceID, location)
}

func (m *Manager) sampleOnce(ctx context.Context, sensorType, deviceID, location string) error {
	_, err := m.record(ctx, sensorType, deviceID, location)
	return err
}

func (m *Manager) record(ctx context.Context, sensorType, deviceID, location string) (*entities.SensorReading, error) {
	value, err := m.reader.Read(ctx, sensorType)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sensor: %w", sensorType, err)
	}

	reading := &entities.SensorReading{
		SensorType: sensorType,
		Value:      value,
		DeviceID:   deviceID,
		Location:   location,
		Unit:       entities.UnitForSensorType(sensorType),
		Timestamp:  time.Now().UTC(),
	}
	if err := m.readings.Create(ctx, reading); err != nil {
		return nil, err
	}
	if m.recorder != nil {
		m.recorder.SensorReading(sensorType, value)
	}
	if m.publisher != nil {
		if err := m.publisher.PublishReading(ctx, reading); err != nil {
			m.log.Warn("failed to publish reading",
				logger.String("sensor_type", sensorType),
				logger.Error(err),
			)
		}
	}

	m.checkThreshold(ctx, reading)
	return reading, nil
}

// sensorAlert describes how one sensor type escalates into an alert.
type sensorAlert struct {
	alertType        string
	severity         int
	criticalSeverity int
	format           string
}

// Breaches on types missing from this map are recorded and logged but do
// not raise alerts.
var sensorAlerts = map[string]sensorAlert{
	entities.SensorTypeCurrent: {
		alertType: alert.TypeOvercurrent, severity: 3, criticalSeverity: 4,
		format: "abnormal current: %.2fA",
	},
	entities.SensorTypeVoltage: {
		alertType: alert.TypeSystemError, severity: 3, criticalSeverity: 4,
		format: "abnormal voltage: %.1fV",
	},
	entities.SensorTypeTemperature: {
		alertType: alert.TypeOverheat, severity: 4, criticalSeverity: 5,
		format: "high temperature: %.1f°C",
	},
	entities.SensorTypeSmoke: {
		alertType: alert.TypeSmoke, severity: 4, criticalSeverity: 5,
		format: "smoke detected: %.0fppm",
	},
}

func (m *Manager) checkThreshold(ctx context.Context, reading *entities.SensorReading) {
	triggered, level := m.engine.Evaluate(reading.SensorType, reading.Value)
	if !triggered {
		return
	}

	mapping, ok := sensorAlerts[reading.SensorType]
	if !ok {
		m.log.Warn("threshold breach on unmapped sensor type",
			logger.String("sensor_type", reading.SensorType),
			logger.Float64("value", reading.Value),
			logger.String("level", string(level)),
		)
		return
	}

	severity := mapping.severity
	if level == thresholds.LevelCritical {
		severity = mapping.criticalSeverity
	}

	threshold, _ := m.engine.Get(reading.SensorType)
	_, err := m.alerts.Create(ctx, alert.CreateRequest{
		AlertType:  mapping.alertType,
		Message:    fmt.Sprintf(mapping.format, reading.Value),
		SourceType: "sensor",
		SourceID:   reading.SensorType,
		Location:   reading.Location,
		Severity:   severity,
		Details: map[string]any{
			"sensor_type": reading.SensorType,
			"value":       reading.Value,
			"level":       string(level),
			"threshold":   threshold,
			"reading_id":  reading.ID,
		},
	})
	if err != nil {
		m.log.Error("failed to raise sensor alert",
			logger.String("sensor_type", reading.SensorType),
			logger.Error(err),
		)
		return
	}

	m.log.Warn("sensor threshold breached",
		logger.String("sensor_type", reading.SensorType),
		logger.Float64("value", reading.Value),
		logger.String("level", string(level)),
	)
}
