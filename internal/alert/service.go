package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
	"github.com/tphakala/chargewatch-go/internal/datastore/repository"
	"github.com/tphakala/chargewatch-go/internal/logger"
)

// Notifier fans an alert out to the configured delivery channels.
type Notifier interface {
	Dispatch(ctx context.Context, alert *entities.Alert)
}

// Broadcaster pushes an alert to connected websocket clients.
type Broadcaster interface {
	BroadcastAlert(alert *entities.Alert)
}

// Publisher publishes an alert to the MQTT broker.
type Publisher interface {
	PublishAlert(ctx context.Context, alert *entities.Alert) error
}

// Recorder counts created alerts for metrics.
type Recorder interface {
	AlertCreated(alertType string, severity int)
}

// CreateRequest carries the fields needed to raise an alert.
type CreateRequest struct {
	AlertType  string
	Message    string
	SourceType string
	SourceID   string
	Location   string
	Severity   int
	Details    map[string]any
	ImageURL   string
}

// Service owns alert creation, status transitions and fan-out. Fan-out is
// best effort: a delivery failure never fails the create.
type Service struct {
	repo      repository.AlertRepository
	notifier  Notifier
	broadcast Broadcaster
	publisher Publisher
	recorder  Recorder
	log       logger.Logger
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithNotifier wires the notification dispatcher.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithBroadcaster wires the websocket hub.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Service) { s.broadcast = b }
}

// WithPublisher wires the MQTT publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithRecorder wires the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// NewService creates an alert service backed by the given repository.
func NewService(repo repository.AlertRepository, log logger.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a new alert and fans it out. The alert is stored even
// when every delivery channel fails.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*entities.Alert, error) {
	severity := req.Severity
	if severity <= 0 {
		severity = 3
	}
	alert := &entities.Alert{
		AlertType:  NormalizeType(req.AlertType),
		Status:     StatusNew,
		Message:    req.Message,
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		Location:   req.Location,
		Severity:   severity,
		Details:    entities.JSONMap(req.Details),
		ImageURL:   req.ImageURL,
	}

	if err := s.repo.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	s.log.Info("alert created",
		logger.Uint64("id", uint64(alert.ID)),
		logger.String("type", alert.AlertType),
		logger.Int("severity", alert.Severity),
		logger.String("source", alert.SourceType),
	)

	if s.recorder != nil {
		s.recorder.AlertCreated(alert.AlertType, alert.Severity)
	}
	if s.notifier != nil {
		s.notifier.Dispatch(ctx, alert)
	}
	if s.broadcast != nil {
		s.broadcast.BroadcastAlert(alert)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishAlert(ctx, alert); err != nil {
			s.log.Warn("failed to publish alert to broker",
				logger.Uint64("id", uint64(alert.ID)),
				logger.Error(err),
			)
		}
	}

	return alert, nil
}

// StatusUpdate carries a status transition for an existing alert.
type StatusUpdate struct {
	Status       string
	HandledBy    string
	HandlerNotes string
}

// UpdateStatus transitions an alert to a new status. Resolving stamps
// ResolvedAt exactly once; re-resolving keeps the original timestamp.
func (s *Service) UpdateStatus(ctx context.Context, id uint, update StatusUpdate) (*entities.Alert, error) {
	alert, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	alert.Status = NormalizeStatus(update.Status)
	if update.HandledBy != "" {
		alert.HandledBy = update.HandledBy
	}
	if update.HandlerNotes != "" {
		alert.HandlerNotes = update.HandlerNotes
	}
	if alert.Status == StatusResolved && alert.ResolvedAt == nil {
		now := time.Now().UTC()
		alert.ResolvedAt = &now
	}

	if err := s.repo.Save(ctx, alert); err != nil {
		return nil, err
	}

	s.log.Info("alert status updated",
		logger.Uint64("id", uint64(alert.ID)),
		logger.String("status", alert.Status),
	)
	return alert, nil
}

// Get returns one alert by ID.
func (s *Service) Get(ctx context.Context, id uint) (*entities.Alert, error) {
	return s.repo.Get(ctx, id)
}

// List returns alerts matching the filter plus the unpaged total.
func (s *Service) List(ctx context.Context, filter repository.AlertFilter) ([]entities.Alert, int64, error) {
	return s.repo.List(ctx, filter)
}

// Active returns unhandled alerts, newest first.
func (s *Service) Active(ctx context.Context, limit int) ([]entities.Alert, error) {
	alerts, _, err := s.repo.List(ctx, repository.AlertFilter{
		Statuses: ActiveStatuses(),
		Limit:    limit,
	})
	return alerts, err
}

// ByType returns alerts of one type, newest first.
func (s *Service) ByType(ctx context.Context, alertType string, limit int) ([]entities.Alert, error) {
	alerts, _, err := s.repo.List(ctx, repository.AlertFilter{
		AlertType: NormalizeType(alertType),
		Limit:     limit,
	})
	return alerts, err
}

// BySource returns alerts raised by one source, newest first.
func (s *Service) BySource(ctx context.Context, sourceType, sourceID string, limit int) ([]entities.Alert, error) {
	alerts, _, err := s.repo.List(ctx, repository.AlertFilter{
		Source:   sourceType,
		SourceID: sourceID,
		Limit:    limit,
	})
	return alerts, err
}

// Stats aggregates alert counts over the trailing number of days.
func (s *Service) Stats(ctx context.Context, days int) (*repository.AlertStats, error) {
	if days <= 0 {
		days = 7
	}
	return s.repo.Stats(ctx, days)
}
