package entities

import "time"

// Alert is a persisted alarm raised by the monitoring pipeline.
// Created only through the alert service; status transitions are free-form
// except that resolving sets ResolvedAt.
type Alert struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	AlertType string `gorm:"size:50;not null;index" json:"alert_type"`
	Status    string `gorm:"size:20;not null;default:'new';index" json:"status"`
	Message   string `gorm:"size:255;not null" json:"message"`

	// Origin of the alert (sensor, camera, system).
	SourceType string `gorm:"size:20;not null;index" json:"source_type"`
	SourceID   string `gorm:"size:50;not null" json:"source_id"`
	Location   string `gorm:"size:100" json:"location,omitempty"`

	Details  JSONMap `json:"details,omitempty"`
	Severity int     `gorm:"not null;default:3" json:"severity"`
	ImageURL string  `gorm:"size:255" json:"image_url,omitempty"`

	// Handling workflow fields.
	HandledBy    string     `gorm:"size:50" json:"handled_by,omitempty"`
	HandlerNotes string     `gorm:"type:text" json:"handler_notes,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Alert) TableName() string {
	return "alerts"
}
