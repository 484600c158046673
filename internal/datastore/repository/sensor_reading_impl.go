package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
)

// sensorReadingRepository implements SensorReadingRepository.
type sensorReadingRepository struct {
	db *gorm.DB
}

// NewSensorReadingRepository creates a new SensorReadingRepository.
func NewSensorReadingRepository(db *gorm.DB) SensorReadingRepository {
	return &sensorReadingRepository{db: db}
}

// Create inserts a new sensor reading.
func (r *sensorReadingRepository) Create(ctx context.Context, reading *entities.SensorReading) error {
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(reading).Error; err != nil {
		return fmt.Errorf("failed to create sensor reading: %w", err)
	}
	return nil
}

// List returns readings matching the filter, newest first.
func (r *sensorReadingRepository) List(ctx context.Context, filter ReadingFilter) ([]entities.SensorReading, error) {
	query := r.db.WithContext(ctx)
	if filter.SensorType != "" {
		query = query.Where("sensor_type = ?", filter.SensorType)
	}
	if filter.DeviceID != "" {
		query = query.Where("device_id = ?", filter.DeviceID)
	}
	if filter.Start != nil {
		query = query.Where("timestamp >= ?", *filter.Start)
	}
	if filter.End != nil {
		query = query.Where("timestamp <= ?", *filter.End)
	}
	query = query.Order("timestamp DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var readings []entities.SensorReading
	if err := query.Find(&readings).Error; err != nil {
		return nil, fmt.Errorf("failed to list sensor readings: %w", err)
	}
	return readings, nil
}

// LatestByType returns the newest reading of a type, or nil when none exists.
func (r *sensorReadingRepository) LatestByType(ctx context.Context, sensorType string) (*entities.SensorReading, error) {
	var reading entities.SensorReading
	err := r.db.WithContext(ctx).
		Where("sensor_type = ?", sensorType).
		Order("timestamp DESC").
		First(&reading).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest %s reading: %w", sensorType, err)
	}
	return &reading, nil
}

// AverageByType returns the mean value over the trailing window.
func (r *sensorReadingRepository) AverageByType(ctx context.Context, sensorType string, window time.Duration) (float64, error) {
	cutoff := time.Now().UTC().Add(-window)
	var avg *float64
	err := r.db.WithContext(ctx).Model(&entities.SensorReading{}).
		Select("AVG(value)").
		Where("sensor_type = ? AND timestamp >= ?", sensorType, cutoff).
		Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("failed to average %s readings: %w", sensorType, err)
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}
