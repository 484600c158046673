package entities

import "time"

// Sensor types monitored at a charging site.
const (
	SensorTypeCurrent     = "current"
	SensorTypeVoltage     = "voltage"
	SensorTypeTemperature = "temperature"
	SensorTypeSmoke       = "smoke"
	SensorTypeHumidity    = "humidity"
	SensorTypeInfrared    = "infrared"
	SensorTypePower       = "power"
)

// AllSensorTypes lists every monitored sensor type.
func AllSensorTypes() []string {
	return []string{
		SensorTypeCurrent,
		SensorTypeVoltage,
		SensorTypeTemperature,
		SensorTypeSmoke,
		SensorTypeHumidity,
		SensorTypeInfrared,
		SensorTypePower,
	}
}

// IsKnownSensorType reports whether s is one of the monitored types.
func IsKnownSensorType(s string) bool {
	for _, t := range AllSensorTypes() {
		if t == s {
			return true
		}
	}
	return false
}

// UnitForSensorType returns the measurement unit for a sensor type, or ""
// for unknown types.
func UnitForSensorType(sensorType string) string {
	switch sensorType {
	case SensorTypeCurrent:
		return "A"
	case SensorTypeVoltage:
		return "V"
	case SensorTypeTemperature:
		return "°C"
	case SensorTypeSmoke:
		return "ppm"
	case SensorTypeHumidity:
		return "%"
	case SensorTypeInfrared:
		return "IR"
	case SensorTypePower:
		return "W"
	default:
		return ""
	}
}

// SensorReading is one sampled value from a physical or simulated sensor.
// Immutable once created.
type SensorReading struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SensorType string    `gorm:"size:20;not null;index" json:"sensor_type"`
	Value      float64   `gorm:"not null" json:"value"`
	DeviceID   string    `gorm:"size:50;not null" json:"device_id"`
	Location   string    `gorm:"size:100" json:"location,omitempty"`
	Unit       string    `gorm:"size:10" json:"unit,omitempty"`
	Metadata   JSONMap   `json:"metadata,omitempty"`
	Timestamp  time.Time `gorm:"index" json:"timestamp"`
}

// TableName returns the table name for GORM.
func (SensorReading) TableName() string {
	return "sensor_readings"
}
