// Package repository provides the data-access layer over GORM. Every method
// takes a context and returns wrapped errors; missing rows map to the
// package sentinel errors so callers can branch without string matching.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
)

// Sentinel errors returned when a referenced row does not exist.
var (
	ErrAlertNotFound  = errors.New("alert not found")
	ErrCameraNotFound = errors.New("camera not found")
)

// AlertFilter selects alerts for List. Zero-value fields are ignored.
type AlertFilter struct {
	Status    string
	Statuses  []string
	AlertType string
	Source    string
	SourceID  string
	Start     *time.Time
	End       *time.Time
	Limit     int
	Offset    int
}

// AlertStats aggregates alert counts for the stats endpoint.
type AlertStats struct {
	ByType   map[string]int64 `json:"by_type"`
	ByStatus map[string]int64 `json:"by_status"`
	ByDate   map[string]int64 `json:"by_date"`
}

// AlertRepository persists and queries alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *entities.Alert) error
	Get(ctx context.Context, id uint) (*entities.Alert, error)
	Save(ctx context.Context, alert *entities.Alert) error
	List(ctx context.Context, filter AlertFilter) ([]entities.Alert, int64, error)
	Stats(ctx context.Context, days int) (*AlertStats, error)
}

// ReadingFilter selects sensor readings for List.
type ReadingFilter struct {
	SensorType string
	DeviceID   string
	Start      *time.Time
	End        *time.Time
	Limit      int
}

// SensorReadingRepository persists and queries sensor samples.
type SensorReadingRepository interface {
	Create(ctx context.Context, reading *entities.SensorReading) error
	List(ctx context.Context, filter ReadingFilter) ([]entities.SensorReading, error)
	// LatestByType returns the newest reading for a sensor type, or nil when
	// none has been recorded yet.
	LatestByType(ctx context.Context, sensorType string) (*entities.SensorReading, error)
	// AverageByType returns the mean value over the trailing window, or 0
	// when no readings fall inside it.
	AverageByType(ctx context.Context, sensorType string, window time.Duration) (float64, error)
}

// CameraRepository persists camera configuration.
type CameraRepository interface {
	Create(ctx context.Context, camera *entities.Camera) error
	Get(ctx context.Context, id uint) (*entities.Camera, error)
	Save(ctx context.Context, camera *entities.Camera) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]entities.Camera, error)
	ListActive(ctx context.Context) ([]entities.Camera, error)
}

// DetectionEventRepository persists per-frame detection records.
type DetectionEventRepository interface {
	Create(ctx context.Context, event *entities.DetectionEvent) error
	ListByCamera(ctx context.Context, cameraID uint, limit int) ([]entities.DetectionEvent, error)
}
