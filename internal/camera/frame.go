// Package camera manages video stream pulling, per-frame detection and
// the snapshot buffer consumed by the HTTP endpoints.
package camera

import (
	"context"
	"time"
)

// Frame is one decoded video frame as JPEG bytes.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Timestamp time.Time
}

// Clone returns a deep copy. Readers always get clones so a concurrent
// writer can never mutate bytes under them.
func (f Frame) Clone() Frame {
	out := f
	out.Data = make([]byte, len(f.Data))
	copy(out.Data, f.Data)
	return out
}

// IsZero reports whether the frame carries no data.
func (f Frame) IsZero() bool {
	return len(f.Data) == 0
}

// FrameHandle is an open connection to one video source.
type FrameHandle interface {
	// Read blocks until the next frame arrives.
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// FrameSource opens video connections. Implementations wrap RTSP/HTTP
// pullers; tests substitute fakes.
type FrameSource interface {
	Open(ctx context.Context, url string) (FrameHandle, error)
}

// Detection is one object found in a frame.
type Detection struct {
	Class      string
	Confidence float64
	// BBox is x, y, width, height in pixels.
	BBox []float64
}

// Detector runs inference on frames.
type Detector interface {
	Infer(ctx context.Context, frame Frame) ([]Detection, error)
}
