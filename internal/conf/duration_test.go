package conf

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDurationJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		duration Duration
		encoded  string
	}{
		{"zero", Duration(0), `"0s"`},
		{"seconds", Duration(30 * time.Second), `"30s"`},
		{"minutes", Duration(5 * time.Minute), `"5m0s"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.duration)
			require.NoError(t, err)
			assert.Equal(t, tt.encoded, string(b))

			var d Duration
			require.NoError(t, json.Unmarshal(b, &d))
			assert.Equal(t, tt.duration, d)
		})
	}
}

func TestDurationUnmarshalJSONNull(t *testing.T) {
	d := Duration(30 * time.Second)
	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.Equal(t, Duration(0), d)
}

func TestDurationUnmarshalJSONRejectsNumber(t *testing.T) {
	var d Duration
	assert.Error(t, json.Unmarshal([]byte(`30000000000`), &d))
}

func TestDurationYAML(t *testing.T) {
	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte(`2m30s`), &d))
	assert.Equal(t, Duration(2*time.Minute+30*time.Second), d)

	assert.Error(t, yaml.Unmarshal([]byte(`not-a-duration`), &d))

	out, err := yaml.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, "1m30s\n", string(out))
}

func TestDurationDecodeHookConvertsStrings(t *testing.T) {
	type target struct {
		Backoff Duration `mapstructure:"backoff"`
	}
	var out target
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: DurationDecodeHook(),
		Result:     &out,
	})
	require.NoError(t, err)

	require.NoError(t, dec.Decode(map[string]any{"backoff": "45s"}))
	assert.Equal(t, Duration(45*time.Second), out.Backoff)
}
