package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/tphakala/chargewatch-go/internal/alert"
	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
	"github.com/tphakala/chargewatch-go/internal/datastore/repository"
	"github.com/tphakala/chargewatch-go/internal/logger"
	"github.com/tphakala/chargewatch-go/internal/throttle"
)

// AlertCreator raises alerts for detections.
type AlertCreator interface {
	Create(ctx context.Context, req alert.CreateRequest) (*entities.Alert, error)
}

// Recorder counts camera pipeline activity for metrics.
type Recorder interface {
	FrameProcessed(cameraID string)
	StreamReconnect(cameraID string)
	DetectionEvent(cameraID, eventType string)
}

// Detection classes that escalate into alerts, with their alert type and
// severity. Other classes are recorded as events only.
var detectionAlerts = map[string]struct {
	alertType string
	severity  int
}{
	"fire":         {alert.TypeFire, 5},
	"smoke":        {alert.TypeSmoke, 4},
	"unauthorized": {alert.TypeUnauthorized, 4},
	"person":       {alert.TypeUnauthorized, 4},
}

// Manager owns one Stream per tracked camera and runs the detection
// pipeline over pulled frames.
type Manager struct {
	cameras    repository.CameraRepository
	detections repository.DetectionEventRepository
	alerts     AlertCreator
	source     FrameSource
	detector   Detector
	throttle   *throttle.Throttle
	recorder   Recorder
	settings   conf.CameraSettings
	detection  conf.DetectionSettings
	log        logger.Logger

	mu      sync.Mutex
	streams map[uint]*Stream
}

// NewManager creates a camera manager. Detector and recorder may be nil;
// without a detector frames are buffered for snapshots only.
func NewManager(
	cameras repository.CameraRepository,
	detections repository.DetectionEventRepository,
	alerts AlertCreator,
	source FrameSource,
	detector Detector,
	th *throttle.Throttle,
	recorder Recorder,
	settings conf.CameraSettings,
	detection conf.DetectionSettings,
	log logger.Logger,
) *Manager {
	return &Manager{
		cameras:    cameras,
		detections: detections,
		alerts:     alerts,
		source:     source,
		detector:   detector,
		throttle:   th,
		recorder:   recorder,
		settings:   settings,
		detection:  detection,
		log:        log,
		streams:    make(map[uint]*Stream),
	}
}

// Start loads active cameras from the store and starts their streams.
// Streams that fail to open are logged and left stopped; their cameras
// stay tracked so a later update can retry.
func (m *Manager) Start(ctx context.Context) error {
	active, err := m.cameras.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cameras: %w", err)
	}
	for i := range active {
		cam := &active[i]
		if startErr := m.startStream(ctx, cam); startErr != nil {
			m.log.Warn("camera stream did not start",
				logger.Uint64("camera_id", uint64(cam.ID)),
				logger.Error(startErr),
			)
		}
	}
	m.log.Info("camera manager started", logger.Int("cameras", len(active)))
	return nil
}

// Stop stops every tracked stream and waits for their pullers to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	streams := make([]*Stream, 0, len(m.streams))
	for _, s := range m.streams {
		streams = append(streams, s)
	}
	m.streams = make(map[uint]*Stream)
	m.mu.Unlock()

	for _, s := range streams {
		s.Stop()
	}
	for _, s := range streams {
		s.Wait()
	}
}

// AddCamera persists a new camera and starts its stream when active.
func (m *Manager) AddCamera(ctx context.Context, cam *entities.Camera) error {
	if err := m.cameras.Create(ctx, cam); err != nil {
		return err
	}
	if cam.Status == entities.CameraStatusActive || cam.Status == "" {
		if err := m.startStream(ctx, cam); err != nil {
			m.log.Warn("new camera stream did not start",
				logger.Uint64("camera_id", uint64(cam.ID)),
				logger.Error(err),
			)
		}
	}
	return nil
}

// UpdateCamera persists camera changes and reconciles the stream: a URL
// change restarts it, a non-active status stops it, activating starts it.
func (m *Manager) UpdateCamera(ctx context.Context, cam *entities.Camera) error {
	previous, err := m.cameras.Get(ctx, cam.ID)
	if err != nil {
		return err
	}
	if err := m.cameras.Save(ctx, cam); err != nil {
		return err
	}

	switch {
	case cam.Status != entities.CameraStatusActive:
		m.stopStream(cam.ID)
	case previous.URL != cam.URL || previous.Status != entities.CameraStatusActive:
		m.stopStream(cam.ID)
		if startErr := m.startStream(ctx, cam); startErr != nil {
			m.log.Warn("camera stream restart failed",
				logger.Uint64("camera_id", uint64(cam.ID)),
				logger.Error(startErr),
			)
		}
	}
	return nil
}

// DeleteCamera stops the stream and removes the camera row.
func (m *Manager) DeleteCamera(ctx context.Context, id uint) error {
	m.stopStream(id)
	return m.cameras.Delete(ctx, id)
}

// Snapshot returns a copy of the most recent frame for a camera.
// ok is false for untracked cameras and before the first frame.
func (m *Manager) Snapshot(cameraID uint) (Frame, bool) {
	m.mu.Lock()
	stream, tracked := m.streams[cameraID]
	m.mu.Unlock()
	if !tracked {
		return Frame{}, false
	}
	return stream.Read()
}

// ActiveDetector returns the configured detector, or nil.
func (m *Manager) ActiveDetector() Detector {
	return m.detector
}

// StreamStatus returns the lifecycle state of a camera's stream.
func (m *Manager) StreamStatus(cameraID uint) (Status, bool) {
	m.mu.Lock()
	stream, tracked := m.streams[cameraID]
	m.mu.Unlock()
	if !tracked {
		return StatusStopped, false
	}
	return stream.Status(), true
}

func (m *Manager) startStream(ctx context.Context, cam *entities.Camera) error {
	m.mu.Lock()
	if existing, ok := m.streams[cam.ID]; ok && existing.Status() != StatusStopped {
		m.mu.Unlock()
		return nil
	}

	cameraID := cam.ID
	cfg := StreamConfig{
		CameraID:       cameraID,
		URL:            cam.URL,
		ReconnectDelay: m.settings.ReconnectDelay.Std(),
		OnReconnect: func() {
			if m.recorder != nil {
				m.recorder.StreamReconnect(strconv.FormatUint(uint64(cameraID), 10))
			}
		},
	}
	if cam.DetectionEnabled && m.detector != nil {
		cfg.OnFrame = func(frame Frame) {
			m.ProcessFrame(context.Background(), cameraID, frame)
		}
	}
	stream := NewStream(m.source, cfg, m.log)
	m.streams[cameraID] = stream
	m.mu.Unlock()

	return stream.Start(ctx)
}

func (m *Manager) stopStream(cameraID uint) {
	m.mu.Lock()
	stream, ok := m.streams[cameraID]
	if ok {
		delete(m.streams, cameraID)
	}
	m.mu.Unlock()
	if ok {
		stream.Stop()
		stream.Wait()
	}
}

// ProcessFrame runs detection over one frame, persists the resulting
// events and escalates alert-worthy classes through the throttle.
func (m *Manager) ProcessFrame(ctx context.Context, cameraID uint, frame Frame) {
	cameraLabel := strconv.FormatUint(uint64(cameraID), 10)
	if m.recorder != nil {
		m.recorder.FrameProcessed(cameraLabel)
	}
	if m.detector == nil {
		return
	}

	found, err := m.detector.Infer(ctx, frame)
	if err != nil {
		m.log.Error("detection failed",
			logger.Uint64("camera_id", uint64(cameraID)),
			logger.Error(err),
		)
		return
	}

	for _, d := range found {
		if d.Confidence < m.detection.MinConfidence {
			continue
		}

		imagePath := m.saveDetectionImage(d.Class, frame)
		event := &entities.DetectionEvent{
			CameraID:   cameraID,
			EventType:  d.Class,
			Confidence: d.Confidence,
			BBox:       entities.JSONFloats(d.BBox),
			ImagePath:  imagePath,
			Timestamp:  frame.Timestamp,
		}
		if err := m.detections.Create(ctx, event); err != nil {
			m.log.Error("failed to record detection event",
				logger.Uint64("camera_id", uint64(cameraID)),
				logger.String("class", d.Class),
				logger.Error(err),
			)
		}
		if m.recorder != nil {
			m.recorder.DetectionEvent(cameraLabel, d.Class)
		}

		mapping, escalates := detectionAlerts[d.Class]
		if !escalates {
			continue
		}
		if !m.throttle.ShouldTrigger(cameraLabel, d.Class) {
			continue
		}

		_, err := m.alerts.Create(ctx, alert.CreateRequest{
			AlertType:  mapping.alertType,
			Message:    fmt.Sprintf("%s detected with confidence %.2f", d.Class, d.Confidence),
			SourceType: "camera",
			SourceID:   cameraLabel,
			Severity:   mapping.severity,
			ImageURL:   imagePath,
			Details: map[string]any{
				"detected_class": d.Class,
				"confidence":     d.Confidence,
				"bbox":           d.BBox,
				"event_id":       event.ID,
			},
		})
		if err != nil {
			m.log.Error("failed to raise detection alert",
				logger.Uint64("camera_id", uint64(cameraID)),
				logger.String("class", d.Class),
				logger.Error(err),
			)
		}
	}
}

// saveDetectionImage writes the frame JPEG under the configured image
// directory. Returns "" when persistence is disabled or fails; the
// detection itself still goes through.
func (m *Manager) saveDetectionImage(class string, frame Frame) string {
	if m.detection.ImageDir == "" || frame.IsZero() {
		return ""
	}
	name := fmt.Sprintf("%s_%s.jpg", class, uuid.NewString())
	path := filepath.Join(m.detection.ImageDir, name)
	if err := os.WriteFile(path, frame.Data, 0o644); err != nil {
		m.log.Warn("failed to save detection image",
			logger.String("path", path),
			logger.Error(err),
		)
		return ""
	}
	return path
}
