package entities

import "time"

// Camera statuses.
const (
	CameraStatusActive   = "active"
	CameraStatusInactive = "inactive"
)

// Camera is a configured video source.
type Camera struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:100;not null" json:"name"`
	URL      string `gorm:"size:255;not null" json:"url"`
	Location string `gorm:"size:100" json:"location,omitempty"`
	Status   string `gorm:"size:20;not null;default:'active'" json:"status"`

	Resolution       string  `gorm:"size:20;default:'640x480'" json:"resolution"`
	FPS              int     `gorm:"default:20" json:"fps"`
	DetectionEnabled bool    `gorm:"default:true" json:"detection_enabled"`
	DetectionConfig  JSONMap `json:"detection_config,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Camera) TableName() string {
	return "cameras"
}
