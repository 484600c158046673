package conf

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/chargewatch-go/internal/logger"
)

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chargewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "missing.yaml"), testLogger())

	assert.Equal(t, "chargewatch", s.Main.Name)
	assert.Equal(t, "sqlite", s.Database.Type)
	assert.Equal(t, 8090, s.HTTP.Port)
	assert.Equal(t, 20, s.Cameras.StreamFPS)
	assert.Equal(t, Duration(30*time.Second), s.Detection.Cooldown)
	assert.Equal(t, DefaultThresholds(), s.Sensors.Thresholds)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
main:
  loglevel: debug
http:
  port: 9000
sensors:
  readbackoff: 10s
`)

	s := Load(path, testLogger())

	assert.Equal(t, "debug", s.Main.LogLevel)
	assert.Equal(t, 9000, s.HTTP.Port)
	assert.Equal(t, Duration(10*time.Second), s.Sensors.ReadBackoff)
	assert.Equal(t, "0.0.0.0", s.HTTP.Host, "unset fields keep defaults")
	assert.Equal(t, Duration(2*time.Second), s.Cameras.ReconnectDelay)
}

func TestLoadSkipsMalformedSection(t *testing.T) {
	path := writeConfig(t, `
http:
  port: "not a number"
cameras:
  streamfps: 30
`)

	s := Load(path, testLogger())

	assert.Equal(t, 8090, s.HTTP.Port, "malformed section falls back to defaults")
	assert.Equal(t, 30, s.Cameras.StreamFPS, "other sections still decode")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected logger.LogLevel
	}{
		{"debug", logger.LogLevelDebug},
		{"warn", logger.LogLevelWarn},
		{"error", logger.LogLevelError},
		{"info", logger.LogLevelInfo},
		{"bogus", logger.LogLevelInfo},
	}
	for _, tt := range tests {
		s := Settings{Main: MainSettings{LogLevel: tt.level}}
		assert.Equal(t, tt.expected, s.ParseLogLevel(), tt.level)
	}
}

func TestSaveThresholdsPersistsAndUpdatesMemory(t *testing.T) {
	path := writeConfig(t, "main:\n  name: chargewatch\n")
	s := Load(path, testLogger())

	updated := DefaultThresholds()
	current := updated["current"]
	current.Critical = 19
	updated["current"] = current

	require.NoError(t, s.SaveThresholds(updated))
	assert.Equal(t, 19.0, s.Sensors.Thresholds["current"].Critical)

	reloaded := Load(path, testLogger())
	assert.Equal(t, 19.0, reloaded.Sensors.Thresholds["current"].Critical)
}

func TestDecodeThresholdPatch(t *testing.T) {
	patches := DecodeThresholdPatch(map[string]map[string]float64{
		"current": {"warning": 12, "bogus": 1},
	})

	p := patches["current"]
	require.NotNil(t, p.Warning)
	assert.Equal(t, 12.0, *p.Warning)
	assert.Nil(t, p.Min, "unknown fields are ignored, known ones stay nil")
}

func TestThresholdPatchApplyTo(t *testing.T) {
	v := func(f float64) *float64 { return &f }
	base := Threshold{Min: 0, Max: 20, Warning: 15, Critical: 18}

	merged := ThresholdPatch{Warning: v(12), Critical: v(16)}.ApplyTo(base)
	assert.Equal(t, Threshold{Min: 0, Max: 20, Warning: 12, Critical: 16}, merged)

	assert.Equal(t, base, ThresholdPatch{}.ApplyTo(base), "empty patch changes nothing")
}

func TestOpenThresholdNeverTriggersAndEncodes(t *testing.T) {
	open := OpenThreshold()
	assert.Less(t, open.Min, -1e300)
	assert.Greater(t, open.Critical, 1e300)

	b, err := json.Marshal(open)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}
