package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
)

// detectionEventRepository implements DetectionEventRepository.
type detectionEventRepository struct {
	db *gorm.DB
}

// NewDetectionEventRepository creates a new DetectionEventRepository.
func NewDetectionEventRepository(db *gorm.DB) DetectionEventRepository {
	return &detectionEventRepository{db: db}
}

// Create inserts a detection event.
func (r *detectionEventRepository) Create(ctx context.Context, event *entities.DetectionEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create detection event: %w", err)
	}
	return nil
}

// ListByCamera returns the newest detection events for one camera.
func (r *detectionEventRepository) ListByCamera(ctx context.Context, cameraID uint, limit int) ([]entities.DetectionEvent, error) {
	query := r.db.WithContext(ctx).
		Where("camera_id = ?", cameraID).
		Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var events []entities.DetectionEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list detection events for camera %d: %w", cameraID, err)
	}
	return events, nil
}
