package entities

import "time"

// DetectionEvent records one abnormal condition found in a camera frame.
// Ephemeral from the pipeline's point of view; persisted for later review
// and linked to the alert it triggered, if any.
type DetectionEvent struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	CameraID   uint       `gorm:"not null;index" json:"camera_id"`
	EventType  string     `gorm:"size:50;not null" json:"event_type"`
	Confidence float64    `gorm:"not null" json:"confidence"`
	BBox       JSONFloats `json:"bbox,omitempty"`
	ImagePath  string     `gorm:"size:255" json:"image_path,omitempty"`
	AlertID    *uint      `gorm:"index" json:"alert_id,omitempty"`
	Metadata   JSONMap    `json:"metadata,omitempty"`
	Timestamp  time.Time  `gorm:"index" json:"timestamp"`
}

// TableName returns the table name for GORM.
func (DetectionEvent) TableName() string {
	return "detection_events"
}
