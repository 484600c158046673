package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
)

// alertRepository implements AlertRepository.
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new AlertRepository.
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

// Create inserts a new alert.
func (r *alertRepository) Create(ctx context.Context, alert *entities.Alert) error {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// Get returns a single alert by ID. Returns ErrAlertNotFound if missing.
func (r *alertRepository) Get(ctx context.Context, id uint) (*entities.Alert, error) {
	var alert entities.Alert
	if err := r.db.WithContext(ctx).First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert %d: %w", id, err)
	}
	return &alert, nil
}

// Save persists all fields of an existing alert.
func (r *alertRepository) Save(ctx context.Context, alert *entities.Alert) error {
	if alert.ID == 0 {
		return fmt.Errorf("failed to save alert: missing alert ID")
	}
	if err := r.db.WithContext(ctx).Save(alert).Error; err != nil {
		return fmt.Errorf("failed to save alert %d: %w", alert.ID, err)
	}
	return nil
}

// List returns alerts matching the filter, newest first, plus the unpaged
// total. An empty result is a valid zero-length slice, never an error.
func (r *alertRepository) List(ctx context.Context, filter AlertFilter) ([]entities.Alert, int64, error) {
	base := r.db.WithContext(ctx).Model(&entities.Alert{})
	base = applyAlertFilter(base, filter)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	query := applyAlertFilter(r.db.WithContext(ctx), filter).Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var alerts []entities.Alert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, total, nil
}

func applyAlertFilter(query *gorm.DB, filter AlertFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.AlertType != "" {
		query = query.Where("alert_type = ?", filter.AlertType)
	}
	if filter.Source != "" {
		query = query.Where("source_type = ?", filter.Source)
	}
	if filter.SourceID != "" {
		query = query.Where("source_id = ?", filter.SourceID)
	}
	if filter.Start != nil {
		query = query.Where("created_at >= ?", *filter.Start)
	}
	if filter.End != nil {
		query = query.Where("created_at <= ?", *filter.End)
	}
	return query
}

// Stats aggregates alert counts by type, status, and day over the trailing
// number of days.
func (r *alertRepository) Stats(ctx context.Context, days int) (*AlertStats, error) {
	stats := &AlertStats{
		ByType:   make(map[string]int64),
		ByStatus: make(map[string]int64),
		ByDate:   make(map[string]int64),
	}

	type kv struct {
		Key   string
		Count int64
	}

	var byType []kv
	if err := r.db.WithContext(ctx).Model(&entities.Alert{}).
		Select("alert_type AS key, COUNT(id) AS count").
		Group("alert_type").Scan(&byType).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate alerts by type: %w", err)
	}
	for _, row := range byType {
		stats.ByType[row.Key] = row.Count
	}

	var byStatus []kv
	if err := r.db.WithContext(ctx).Model(&entities.Alert{}).
		Select("status AS key, COUNT(id) AS count").
		Group("status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate alerts by status: %w", err)
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Key] = row.Count
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	var byDate []kv
	if err := r.db.WithContext(ctx).Model(&entities.Alert{}).
		Select("DATE(created_at) AS key, COUNT(id) AS count").
		Where("created_at >= ?", cutoff).
		Group("DATE(created_at)").Scan(&byDate).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate alerts by date: %w", err)
	}
	for _, row := range byDate {
		stats.ByDate[row.Key] = row.Count
	}

	return stats, nil
}
