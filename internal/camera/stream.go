package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tphakala/chargewatch-go/internal/logger"
)

// Status describes the lifecycle state of one stream.
type Status string

// Stream states.
const (
	StatusStopped      Status = "stopped"
	StatusStarting     Status = "starting"
	StatusRunning      Status = "running"
	StatusReconnecting Status = "reconnecting"
)

// Stream pulls frames from one camera. It keeps only the most recent
// frame; readers get copies. A broken connection is reopened after the
// reconnect delay until Stop is called.
type Stream struct {
	cameraID       uint
	url            string
	source         FrameSource
	reconnectDelay time.Duration
	onFrame        func(Frame)
	onReconnect    func()
	log            logger.Logger

	mu        sync.Mutex
	status    Status
	lastFrame Frame
	cancel    context.CancelFunc
	done      chan struct{}
}

// StreamConfig carries the knobs for one stream.
type StreamConfig struct {
	CameraID       uint
	URL            string
	ReconnectDelay time.Duration
	// OnFrame, when set, is called with every pulled frame.
	OnFrame func(Frame)
	// OnReconnect, when set, is called before each reconnect attempt.
	OnReconnect func()
}

// NewStream creates a stopped stream.
func NewStream(source FrameSource, cfg StreamConfig, log logger.Logger) *Stream {
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Stream{
		cameraID:       cfg.CameraID,
		url:            cfg.URL,
		source:         source,
		reconnectDelay: delay,
		onFrame:        cfg.OnFrame,
		onReconnect:    cfg.OnReconnect,
		log:            log,
		status:         StatusStopped,
	}
}

// Start opens the source and launches the puller goroutine. Starting a
// stream that is not stopped is a no-op. When the initial open fails the
// stream stays stopped and no goroutine is left behind.
func (s *Stream) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusStopped {
		s.mu.Unlock()
		return nil
	}
	s.status = StatusStarting
	s.mu.Unlock()

	handle, err := s.source.Open(ctx, s.url)
	if err != nil {
		s.mu.Lock()
		s.status = StatusStopped
		s.mu.Unlock()
		return fmt.Errorf("failed to open camera %d stream: %w", s.cameraID, err)
	}

	pullCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	if s.status != StatusStarting {
		// Stopped while the source was opening.
		s.mu.Unlock()
		cancel()
		_ = handle.Close()
		return nil
	}
	s.status = StatusRunning
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.pull(pullCtx, handle, done)
	s.log.Info("camera stream started", logger.Uint64("camera_id", uint64(s.cameraID)))
	return nil
}

// Stop signals the puller to exit, clears the frame buffer and returns
// without waiting for the goroutine to finish.
func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusStopped || s.status == StatusStarting {
		s.status = StatusStopped
		return
	}
	s.status = StatusStopped
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.lastFrame = Frame{}
	s.log.Info("camera stream stopped", logger.Uint64("camera_id", uint64(s.cameraID)))
}

// Wait blocks until the puller goroutine has exited. Only meaningful
// after Stop.
func (s *Stream) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Status returns the current lifecycle state.
func (s *Stream) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Read returns a copy of the most recent frame. ok is false until the
// first frame has arrived, and again after Stop.
func (s *Stream) Read() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastFrame.IsZero() {
		return Frame{}, false
	}
	return s.lastFrame.Clone(), true
}

func (s *Stream) pull(ctx context.Context, handle FrameHandle, done chan struct{}) {
	defer close(done)
	defer func() {
		if handle != nil {
			_ = handle.Close()
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := handle.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			_ = handle.Close()
			handle = nil

			s.mu.Lock()
			if ctx.Err() != nil || s.status != StatusRunning {
				s.mu.Unlock()
				return
			}
			s.status = StatusReconnecting
			s.mu.Unlock()

			s.log.Warn("camera stream read failed, reconnecting",
				logger.Uint64("camera_id", uint64(s.cameraID)),
				logger.Error(err),
			)

			handle = s.reconnect(ctx)
			if handle == nil {
				return
			}

			s.mu.Lock()
			if ctx.Err() != nil || s.status != StatusReconnecting {
				s.mu.Unlock()
				_ = handle.Close()
				handle = nil
				return
			}
			s.status = StatusRunning
			s.mu.Unlock()
			continue
		}

		if !s.storeFrame(ctx, frame) {
			return
		}
		if s.onFrame != nil {
			s.onFrame(frame.Clone())
		}
	}
}

// storeFrame publishes a frame pulled under ctx. The context is
// re-checked under the lock so a puller cancelled by Stop cannot
// overwrite state a restarted stream now owns.
func (s *Stream) storeFrame(ctx context.Context, frame Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil || s.status != StatusRunning {
		return false
	}
	s.lastFrame = frame
	return true
}

// reconnect retries the source until it opens or the stream is stopped.
func (s *Stream) reconnect(ctx context.Context) FrameHandle {
	timer := time.NewTimer(s.reconnectDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		if s.onReconnect != nil {
			s.onReconnect()
		}
		handle, err := s.source.Open(ctx, s.url)
		if err == nil {
			return handle
		}
		s.log.Warn("camera reconnect failed",
			logger.Uint64("camera_id", uint64(s.cameraID)),
			logger.Error(err),
		)
		timer.Reset(s.reconnectDelay)
	}
}
