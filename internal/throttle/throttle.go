// Package throttle rate-limits repeated alert triggers.
package throttle

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCooldown is the trigger suppression window used when no
// cooldown is configured.
const DefaultCooldown = 30 * time.Second

// Throttle suppresses repeated triggers of the same (source, event class)
// pair inside a cooldown window. Safe for concurrent use.
type Throttle struct {
	cooldown time.Duration
	cache    *gocache.Cache
}

// New creates a throttle with the given cooldown. Non-positive cooldowns
// fall back to DefaultCooldown.
func New(cooldown time.Duration) *Throttle {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	// No janitor goroutine: Add treats expired entries as absent, which
	// is all ShouldTrigger needs.
	return &Throttle{
		cooldown: cooldown,
		cache:    gocache.New(cooldown, 0),
	}
}

// ShouldTrigger reports whether an event for the (source, eventClass) pair
// is allowed now, and if so starts its cooldown window.
func (t *Throttle) ShouldTrigger(source, eventClass string) bool {
	key := fmt.Sprintf("%s|%s", source, eventClass)
	// Add fails when the key is already present, which is exactly the
	// suppression condition.
	if err := t.cache.Add(key, struct{}{}, t.cooldown); err != nil {
		return false
	}
	return true
}

// Reset clears the cooldown for a (source, eventClass) pair.
func (t *Throttle) Reset(source, eventClass string) {
	t.cache.Delete(fmt.Sprintf("%s|%s", source, eventClass))
}

// Cooldown returns the configured suppression window.
func (t *Throttle) Cooldown() time.Duration {
	return t.cooldown
}
