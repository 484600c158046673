package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
)

// cameraRepository implements CameraRepository.
type cameraRepository struct {
	db *gorm.DB
}

// NewCameraRepository creates a new CameraRepository.
func NewCameraRepository(db *gorm.DB) CameraRepository {
	return &cameraRepository{db: db}
}

// Create inserts a new camera.
func (r *cameraRepository) Create(ctx context.Context, camera *entities.Camera) error {
	if err := r.db.WithContext(ctx).Create(camera).Error; err != nil {
		return fmt.Errorf("failed to create camera: %w", err)
	}
	return nil
}

// Get returns a camera by ID. Returns ErrCameraNotFound if missing.
func (r *cameraRepository) Get(ctx context.Context, id uint) (*entities.Camera, error) {
	var camera entities.Camera
	if err := r.db.WithContext(ctx).First(&camera, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCameraNotFound
		}
		return nil, fmt.Errorf("failed to get camera %d: %w", id, err)
	}
	return &camera, nil
}

// Save persists all fields of an existing camera.
func (r *cameraRepository) Save(ctx context.Context, camera *entities.Camera) error {
	if camera.ID == 0 {
		return fmt.Errorf("failed to save camera: missing camera ID")
	}
	if err := r.db.WithContext(ctx).Save(camera).Error; err != nil {
		return fmt.Errorf("failed to save camera %d: %w", camera.ID, err)
	}
	return nil
}

// Delete removes a camera. Returns ErrCameraNotFound if missing.
func (r *cameraRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.Camera{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete camera %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCameraNotFound
	}
	return nil
}

// List returns all configured cameras.
func (r *cameraRepository) List(ctx context.Context) ([]entities.Camera, error) {
	var cameras []entities.Camera
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&cameras).Error; err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", err)
	}
	return cameras, nil
}

// ListActive returns cameras whose status is active.
func (r *cameraRepository) ListActive(ctx context.Context) ([]entities.Camera, error) {
	var cameras []entities.Camera
	err := r.db.WithContext(ctx).
		Where("status = ?", entities.CameraStatusActive).
		Order("id ASC").
		Find(&cameras).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active cameras: %w", err)
	}
	return cameras, nil
}
