// Package sensors runs the per-type sampling loops and turns threshold
// breaches into alerts.
package sensors

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
)

// Reader produces one sample for a sensor type. Implementations talk to
// real hardware; SimulatedReader stands in when none is attached.
type Reader interface {
	// Read returns the current value for the sensor type.
	Read(ctx context.Context, sensorType string) (float64, error)
	// DeviceID identifies the backing device for a sensor type.
	DeviceID(sensorType string) string
}

// SimulatedReader generates plausible values per sensor type. Safe for
// concurrent use.
type SimulatedReader struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedReader creates a simulated reader seeded from seed.
func NewSimulatedReader(seed int64) *SimulatedReader {
	return &SimulatedReader{rng: rand.New(rand.NewSource(seed))}
}

// Read returns a random value inside the plausible operating range of the
// sensor type. Unknown types are an error.
func (r *SimulatedReader) Read(_ context.Context, sensorType string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch sensorType {
	case entities.SensorTypeCurrent:
		return roundTo(r.uniform(0, 20), 2), nil
	case entities.SensorTypeVoltage:
		return roundTo(r.uniform(200, 240), 1), nil
	case entities.SensorTypeTemperature:
		return roundTo(r.uniform(10, 60), 1), nil
	case entities.SensorTypeSmoke:
		return roundTo(r.uniform(0, 1000), 0), nil
	case entities.SensorTypeHumidity:
		return roundTo(r.uniform(30, 100), 1), nil
	case entities.SensorTypePower:
		return roundTo(r.uniform(0, 5000), 1), nil
	case entities.SensorTypeInfrared:
		return roundTo(r.uniform(0, 1), 0), nil
	default:
		return 0, fmt.Errorf("failed to read sensor: unknown type %q", sensorType)
	}
}

// DeviceID returns the simulated device identifier for a sensor type.
func (r *SimulatedReader) DeviceID(sensorType string) string {
	return fmt.Sprintf("sim_%s_001", sensorType)
}

func (r *SimulatedReader) uniform(low, high float64) float64 {
	return low + r.rng.Float64()*(high-low)
}

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
