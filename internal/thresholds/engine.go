// Package thresholds evaluates sensor values against configurable limits.
package thresholds

import (
	"sync"

	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/logger"
)

// Level classifies a threshold breach.
type Level string

// Breach levels, ordered by urgency.
const (
	LevelNone     Level = "none"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
	LevelBelowMin Level = "below_min"
)

// ConfigWriter persists threshold updates. Satisfied by *conf.Settings.
type ConfigWriter interface {
	SaveThresholds(thresholds map[string]conf.Threshold) error
}

// Engine holds the active per-type thresholds and evaluates readings
// against them. Safe for concurrent use.
type Engine struct {
	mu         sync.RWMutex
	thresholds map[string]conf.Threshold
	writer     ConfigWriter
	log        logger.Logger
}

// NewEngine builds an engine from the configured thresholds. Types absent
// from the map are backfilled with the built-in defaults.
func NewEngine(thresholds map[string]conf.Threshold, writer ConfigWriter, log logger.Logger) *Engine {
	merged := conf.DefaultThresholds()
	for sensorType, t := range thresholds {
		merged[sensorType] = t
	}
	return &Engine{
		thresholds: merged,
		writer:     writer,
		log:        log,
	}
}

// Evaluate checks a value against the limits for its sensor type.
// Critical wins over warning, warning over below-min. Unknown sensor
// types never trigger.
func (e *Engine) Evaluate(sensorType string, value float64) (bool, Level) {
	e.mu.RLock()
	t, ok := e.thresholds[sensorType]
	e.mu.RUnlock()
	if !ok {
		return false, LevelNone
	}

	switch {
	case value >= t.Critical:
		return true, LevelCritical
	case value >= t.Warning:
		return true, LevelWarning
	case value < t.Min:
		return true, LevelBelowMin
	default:
		return false, LevelNone
	}
}

// Snapshot returns a copy of the active thresholds.
func (e *Engine) Snapshot() map[string]conf.Threshold {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]conf.Threshold, len(e.thresholds))
	for k, v := range e.thresholds {
		out[k] = v
	}
	return out
}

// Get returns the threshold for one sensor type.
func (e *Engine) Get(sensorType string) (conf.Threshold, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.thresholds[sensorType]
	return t, ok
}

// Update applies partial threshold changes and returns the resulting
// set. Known types are merged field by field; unknown types are added
// with any absent limits left open so they never trigger until set.
// The merged set takes effect immediately; persistence failure is logged
// but does not roll back the in-memory update.
func (e *Engine) Update(patches map[string]conf.ThresholdPatch) map[string]conf.Threshold {
	e.mu.Lock()
	for sensorType, patch := range patches {
		base, exists := e.thresholds[sensorType]
		if !exists {
			base = conf.OpenThreshold()
		}
		e.thresholds[sensorType] = patch.ApplyTo(base)
	}
	snapshot := make(map[string]conf.Threshold, len(e.thresholds))
	for k, v := range e.thresholds {
		snapshot[k] = v
	}
	e.mu.Unlock()

	if e.writer != nil {
		if err := e.writer.SaveThresholds(snapshot); err != nil {
			e.log.Warn("failed to persist thresholds, in-memory values remain active",
				logger.Error(err),
			)
		}
	}
	return snapshot
}
