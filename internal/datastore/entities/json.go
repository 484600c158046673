package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap stores a schema-less key/value payload as a JSON column. Values
// are deliberately untyped at the boundary; readers assert what they need.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json map: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
	if len(b) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(b, m)
}

// JSONFloats stores a float slice (e.g. a bounding box) as a JSON column.
type JSONFloats []float64

// Value implements driver.Valuer.
func (f JSONFloats) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	b, err := json.Marshal([]float64(f))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json floats: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (f *JSONFloats) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONFloats", value)
	}
	if len(b) == 0 {
		*f = nil
		return nil
	}
	return json.Unmarshal(b, f)
}
