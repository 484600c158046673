// Package observability exposes Prometheus metrics for the monitoring
// pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the pipeline updates. All methods are
// safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	sensorReadings    *prometheus.CounterVec
	sensorReadErrors  *prometheus.CounterVec
	sensorValues      *prometheus.GaugeVec
	alertsCreated     *prometheus.CounterVec
	notificationsSent *prometheus.CounterVec
	framesProcessed   *prometheus.CounterVec
	streamReconnects  *prometheus.CounterVec
	detectionEvents   *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sensorReadings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chargewatch_sensor_readings_total",
			Help: "Number of sensor samples recorded, by sensor type.",
		}, []string{"sensor_type"}),
		sensorReadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chargewatch_sensor_read_errors_total",
			Help: "Number of failed sensor reads, by sensor type.",
		}, []string{"sensor_type"}),
		sensorValues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chargewatch_sensor_value",
			Help: "Most recent sampled value, by sensor type.",
		}, []string{"sensor_type"}),
		alertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chargewatch_alerts_created_total",
			Help: "Number of alerts raised, by type and severity.",
		}, []string{"alert_type", "severity"}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chargewatch_notifications_total",
			Help: "Number of notification deliveries, by channel and result.",
		}, []string{"channel", "result"}),
		framesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chargewatch_camera_frames_total",
			Help: "Number of frames pulled from camera streams, by camera.",
		}, []string{"camera_id"}),
		streamReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chargewatch_camera_reconnects_total",
			Help: "Number of camera stream reconnect attempts, by camera.",
		}, []string{"camera_id"}),
		detectionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chargewatch_detection_events_total",
			Help: "Number of detection events recorded, by camera and class.",
		}, []string{"camera_id", "event_type"}),
	}

	m.registry.MustRegister(
		m.sensorReadings,
		m.sensorReadErrors,
		m.sensorValues,
		m.alertsCreated,
		m.notificationsSent,
		m.framesProcessed,
		m.streamReconnects,
		m.detectionEvents,
	)
	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SensorReading records one successful sample.
func (m *Metrics) SensorReading(sensorType string, value float64) {
	m.sensorReadings.WithLabelValues(sensorType).Inc()
	m.sensorValues.WithLabelValues(sensorType).Set(value)
}

// SensorReadError records one failed sample.
func (m *Metrics) SensorReadError(sensorType string) {
	m.sensorReadErrors.WithLabelValues(sensorType).Inc()
}

// AlertCreated records one raised alert.
func (m *Metrics) AlertCreated(alertType string, severity int) {
	m.alertsCreated.WithLabelValues(alertType, severityLabel(severity)).Inc()
}

// NotificationSent records one delivery attempt outcome.
func (m *Metrics) NotificationSent(channel, result string) {
	m.notificationsSent.WithLabelValues(channel, result).Inc()
}

// FrameProcessed records one pulled camera frame.
func (m *Metrics) FrameProcessed(cameraID string) {
	m.framesProcessed.WithLabelValues(cameraID).Inc()
}

// StreamReconnect records one reconnect attempt.
func (m *Metrics) StreamReconnect(cameraID string) {
	m.streamReconnects.WithLabelValues(cameraID).Inc()
}

// DetectionEvent records one detection.
func (m *Metrics) DetectionEvent(cameraID, eventType string) {
	m.detectionEvents.WithLabelValues(cameraID, eventType).Inc()
}

func severityLabel(severity int) string {
	switch severity {
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	case 4:
		return "4"
	case 5:
		return "5"
	default:
		return "other"
	}
}
