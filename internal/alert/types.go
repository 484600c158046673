// Package alert implements alert lifecycle management and fan-out to
// notification channels, websocket clients and the MQTT broker.
package alert

import "strings"

// Canonical alert types. The set is open: unrecognized values pass
// through unchanged so new producers do not break consumers.
const (
	TypeFire         = "fire"
	TypeOverheat     = "overheat"
	TypeOvercurrent  = "overcurrent"
	TypeSmoke        = "smoke"
	TypeUnauthorized = "unauthorized"
	TypeAbnormal     = "abnormal"
	TypeConnection   = "connection"
	TypeSystemError  = "system_error"
)

// Canonical alert statuses. Also an open set.
const (
	StatusNew          = "new"
	StatusAcknowledged = "acknowledged"
	StatusInProgress   = "in_progress"
	StatusResolved     = "resolved"
	StatusFalseAlarm   = "false_alarm"
)

// ActiveStatuses are the statuses counted as unhandled.
func ActiveStatuses() []string {
	return []string{StatusNew, StatusAcknowledged, StatusInProgress}
}

// NormalizeType maps common spellings onto the canonical alert types.
// Unrecognized values are returned lowercased and trimmed, not rejected.
func NormalizeType(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "overtemp", "over_temperature", "high_temperature":
		return TypeOverheat
	case "over_current", "high_current":
		return TypeOvercurrent
	case "intrusion", "unauthorized_access":
		return TypeUnauthorized
	case "system", "error":
		return TypeSystemError
	case "disconnect", "connection_lost":
		return TypeConnection
	default:
		return s
	}
}

// NormalizeStatus maps common spellings onto the canonical statuses.
// Unrecognized values are returned lowercased and trimmed, not rejected.
func NormalizeStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "ack", "acked":
		return StatusAcknowledged
	case "progress", "handling":
		return StatusInProgress
	case "done", "closed":
		return StatusResolved
	case "false", "false_positive":
		return StatusFalseAlarm
	default:
		return s
	}
}

// SeverityForLevel maps a sensor alert type and breach level onto a
// severity. Critical breaches raise the base severity by one, capped at 5.
func SeverityForLevel(base int, critical bool) int {
	if critical && base < 5 {
		return base + 1
	}
	return base
}
