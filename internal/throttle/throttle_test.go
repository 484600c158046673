package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldTriggerSuppressesRepeats(t *testing.T) {
	th := New(time.Hour)

	assert.True(t, th.ShouldTrigger("1", "fire"), "first trigger passes")
	assert.False(t, th.ShouldTrigger("1", "fire"), "repeat inside cooldown is suppressed")
}

func TestShouldTriggerKeysAreIndependent(t *testing.T) {
	th := New(time.Hour)

	assert.True(t, th.ShouldTrigger("1", "fire"))
	assert.True(t, th.ShouldTrigger("1", "smoke"), "different event class is a different key")
	assert.True(t, th.ShouldTrigger("2", "fire"), "different source is a different key")
}

func TestShouldTriggerAfterCooldownExpires(t *testing.T) {
	th := New(20 * time.Millisecond)

	assert.True(t, th.ShouldTrigger("1", "fire"))
	assert.False(t, th.ShouldTrigger("1", "fire"))

	time.Sleep(40 * time.Millisecond)
	assert.True(t, th.ShouldTrigger("1", "fire"), "cooldown expired")
}

func TestResetClearsCooldown(t *testing.T) {
	th := New(time.Hour)

	assert.True(t, th.ShouldTrigger("1", "fire"))
	th.Reset("1", "fire")
	assert.True(t, th.ShouldTrigger("1", "fire"))
}

func TestNewFallsBackToDefaultCooldown(t *testing.T) {
	th := New(0)
	assert.Equal(t, DefaultCooldown, th.Cooldown())
}
