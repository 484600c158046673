package camera

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/chargewatch-go/internal/logger"
)

// fakeHandle feeds frames from a channel; a closed channel means the
// connection is broken.
type fakeHandle struct {
	frames chan Frame
	closed chan struct{}
	once   sync.Once
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		frames: make(chan Frame, 16),
		closed: make(chan struct{}),
	}
}

func (h *fakeHandle) Read(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-h.closed:
		return Frame{}, errors.New("connection reset")
	case frame, ok := <-h.frames:
		if !ok {
			return Frame{}, errors.New("connection reset")
		}
		return frame, nil
	}
}

func (h *fakeHandle) Close() error {
	h.once.Do(func() { close(h.closed) })
	return nil
}

// fakeSource hands out handles in sequence; nil entries mean open failure.
type fakeSource struct {
	mu      sync.Mutex
	handles []*fakeHandle
	opens   int
}

func (s *fakeSource) Open(_ context.Context, _ string) (FrameHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	if len(s.handles) == 0 {
		return nil, errors.New("no route to camera")
	}
	h := s.handles[0]
	s.handles = s.handles[1:]
	if h == nil {
		return nil, errors.New("no route to camera")
	}
	return h, nil
}

func (s *fakeSource) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

func testFrame(b byte) Frame {
	return Frame{Data: []byte{b, b, b}, Width: 4, Height: 3, Timestamp: time.Now()}
}

func streamLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

func TestStreamReadBeforeFirstFrame(t *testing.T) {
	defer goleak.VerifyNone(t)

	handle := newFakeHandle()
	source := &fakeSource{handles: []*fakeHandle{handle}}
	stream := NewStream(source, StreamConfig{CameraID: 1, URL: "rtsp://cam"}, streamLogger())

	require.NoError(t, stream.Start(context.Background()))
	_, ok := stream.Read()
	assert.False(t, ok, "no frame before the first arrives")

	stream.Stop()
	stream.Wait()
}

func TestStreamDeliversLatestFrameCopy(t *testing.T) {
	defer goleak.VerifyNone(t)

	handle := newFakeHandle()
	source := &fakeSource{handles: []*fakeHandle{handle}}
	stream := NewStream(source, StreamConfig{CameraID: 1, URL: "rtsp://cam"}, streamLogger())
	require.NoError(t, stream.Start(context.Background()))

	handle.frames <- testFrame(7)
	require.Eventually(t, func() bool {
		_, ok := stream.Read()
		return ok
	}, time.Second, 5*time.Millisecond)

	frame, ok := stream.Read()
	require.True(t, ok)
	frame.Data[0] = 99

	again, ok := stream.Read()
	require.True(t, ok)
	assert.Equal(t, byte(7), again.Data[0], "reader mutations never touch the buffer")

	stream.Stop()
	stream.Wait()
}

func TestStreamStartIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	handle := newFakeHandle()
	source := &fakeSource{handles: []*fakeHandle{handle}}
	stream := NewStream(source, StreamConfig{CameraID: 1, URL: "rtsp://cam"}, streamLogger())

	require.NoError(t, stream.Start(context.Background()))
	require.NoError(t, stream.Start(context.Background()))
	assert.Equal(t, 1, source.openCount(), "second start opens nothing")

	stream.Stop()
	stream.Wait()
}

func TestStreamOpenFailureLeavesStopped(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := &fakeSource{}
	stream := NewStream(source, StreamConfig{CameraID: 1, URL: "rtsp://cam"}, streamLogger())

	err := stream.Start(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StatusStopped, stream.Status())
}

func TestStreamReconnectsAfterReadFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	first := newFakeHandle()
	second := newFakeHandle()
	source := &fakeSource{handles: []*fakeHandle{first, second}}

	var reconnects int
	var mu sync.Mutex
	stream := NewStream(source, StreamConfig{
		CameraID:       1,
		URL:            "rtsp://cam",
		ReconnectDelay: 10 * time.Millisecond,
		OnReconnect: func() {
			mu.Lock()
			reconnects++
			mu.Unlock()
		},
	}, streamLogger())
	require.NoError(t, stream.Start(context.Background()))

	first.frames <- testFrame(1)
	require.Eventually(t, func() bool {
		_, ok := stream.Read()
		return ok
	}, time.Second, 5*time.Millisecond)

	// Break the first connection; the stream should reopen and keep going.
	close(first.frames)
	second.frames <- testFrame(2)

	require.Eventually(t, func() bool {
		frame, ok := stream.Read()
		return ok && frame.Data[0] == 2
	}, time.Second, 5*time.Millisecond, "frames resume after reconnect")

	assert.Equal(t, StatusRunning, stream.Status())
	mu.Lock()
	assert.GreaterOrEqual(t, reconnects, 1)
	mu.Unlock()

	stream.Stop()
	stream.Wait()
}

func TestStreamStopClearsFrameAndAllowsRestart(t *testing.T) {
	defer goleak.VerifyNone(t)

	first := newFakeHandle()
	second := newFakeHandle()
	source := &fakeSource{handles: []*fakeHandle{first, second}}
	stream := NewStream(source, StreamConfig{CameraID: 1, URL: "rtsp://cam"}, streamLogger())
	require.NoError(t, stream.Start(context.Background()))

	first.frames <- testFrame(1)
	require.Eventually(t, func() bool {
		_, ok := stream.Read()
		return ok
	}, time.Second, 5*time.Millisecond)

	stream.Stop()
	stream.Wait()
	assert.Equal(t, StatusStopped, stream.Status())
	_, ok := stream.Read()
	assert.False(t, ok, "stop clears the buffered frame")

	require.NoError(t, stream.Start(context.Background()))
	stream.Stop()
	stream.Wait()
}

func TestRetiredPullerCannotOverwriteFrame(t *testing.T) {
	defer goleak.VerifyNone(t)

	handle := newFakeHandle()
	source := &fakeSource{handles: []*fakeHandle{handle}}
	stream := NewStream(source, StreamConfig{CameraID: 1, URL: "rtsp://cam"}, streamLogger())
	require.NoError(t, stream.Start(context.Background()))

	// A puller whose context was cancelled by Stop may still hold a frame
	// it read just before cancellation; it must be dropped even though the
	// stream is running again.
	retired, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, stream.storeFrame(retired, testFrame(9)))
	_, ok := stream.Read()
	assert.False(t, ok, "stale frame never lands")

	handle.frames <- testFrame(1)
	require.Eventually(t, func() bool {
		frame, ok := stream.Read()
		return ok && frame.Data[0] == 1
	}, time.Second, 5*time.Millisecond, "the live puller still publishes")

	stream.Stop()
	stream.Wait()
}

func TestStreamOnFrameCallback(t *testing.T) {
	defer goleak.VerifyNone(t)

	handle := newFakeHandle()
	source := &fakeSource{handles: []*fakeHandle{handle}}

	frames := make(chan Frame, 4)
	stream := NewStream(source, StreamConfig{
		CameraID: 1,
		URL:      "rtsp://cam",
		OnFrame:  func(f Frame) { frames <- f },
	}, streamLogger())
	require.NoError(t, stream.Start(context.Background()))

	handle.frames <- testFrame(5)
	select {
	case f := <-frames:
		assert.Equal(t, byte(5), f.Data[0])
	case <-time.After(time.Second):
		t.Fatal("frame callback never fired")
	}

	stream.Stop()
	stream.Wait()
}
