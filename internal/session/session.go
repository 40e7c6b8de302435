// Package session holds the state of one analyzed video: identity registry,
// event classifier, stats aggregator and the ordered game log.
//
// A Session accepts frames from a single logical stream in strictly
// increasing frame order. Process serializes callers, so concurrent producers
// are safe but must agree on ordering themselves.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/hoopvision/internal/domain/classifier"
	"github.com/okian/hoopvision/internal/domain/identity"
	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/internal/domain/stats"
	"github.com/okian/hoopvision/internal/domain/types"
	"github.com/okian/hoopvision/pkg/logger"
	"github.com/okian/hoopvision/pkg/metrics"
)

// Session is the per-video state object.
type Session struct {
	id        string
	createdAt time.Time
	calib     model.Calibration

	mu         sync.Mutex
	registry   *identity.Registry
	classifier *classifier.Classifier
	aggregator *stats.Aggregator
	recognizer identity.Recognizer
	events     []model.GameEvent
	frames     int64
	lastFrame  int64
	started    bool
	closed     bool

	logger logger.Logger
}

// New builds a session for calib. Invalid calibration or windows are rejected
// before any frame is processed.
func New(id string, calib model.Calibration, opts ...Option) (*Session, error) {
	st := settings{
		cooldown:      classifier.DefaultCooldown,
		reboundWindow: classifier.DefaultReboundWindow,
		threshold:     identity.DefaultConfidenceThreshold,
		recognizer:    identity.EmbeddedRecognizer{},
	}
	for _, opt := range opts {
		opt(&st)
	}
	if st.logger == nil {
		st.logger = logger.Get().Named("session")
	}
	log := st.logger.With(logger.String("session", id))

	cls, err := classifier.New(calib,
		classifier.WithCooldown(st.cooldown),
		classifier.WithReboundWindow(st.reboundWindow),
		classifier.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	agg := stats.New(stats.WithLogger(log))
	reg := identity.NewRegistry(agg,
		identity.WithConfidenceThreshold(st.threshold),
		identity.WithLogger(log),
	)

	return &Session{
		id:         id,
		createdAt:  time.Now().UTC(),
		calib:      calib,
		registry:   reg,
		classifier: cls,
		aggregator: agg,
		recognizer: st.recognizer,
		logger:     log,
	}, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Calibration returns the session's court geometry.
func (s *Session) Calibration() model.Calibration { return s.calib }

// Process resolves identities, classifies the frame and records the resulting
// events. A frame whose index is not greater than the last processed one is
// rejected with ErrOutOfOrder and changes nothing.
func (s *Session) Process(ctx context.Context, frame model.Frame) ([]model.GameEvent, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.started && frame.Index <= s.lastFrame {
		metrics.RecordFrameRejected("out_of_order")
		return nil, fmt.Errorf("%w: got %d, last %d", ErrOutOfOrder, frame.Index, s.lastFrame)
	}

	frame.Tracks = s.registry.Attach(ctx, frame, s.recognizer)
	events := s.classifier.Classify(ctx, frame)
	for _, evt := range events {
		// Every emitted player was ensured by the registry when its track was bound.
		if err := s.aggregator.RecordEvent(ctx, evt); err != nil {
			s.logger.Error(ctx, "dropping unrecordable event", logger.Any("event", evt), logger.Error(err))
			continue
		}
		s.events = append(s.events, evt)
	}

	s.started = true
	s.lastFrame = frame.Index
	s.frames++
	metrics.RecordFrameProcessed()
	metrics.RecordFrameLatency(float64(time.Since(start).Microseconds()) / 1000)
	return events, nil
}

// Close marks the session closed; later frames fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Events returns a copy of the ordered game log.
func (s *Session) Events() []model.GameEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.GameEvent(nil), s.events...)
}

// PlayerStats returns a snapshot of every player's totals.
func (s *Session) PlayerStats() map[string]model.PlayerStats {
	return s.aggregator.Snapshot()
}

// Player returns one player's totals.
func (s *Session) Player(playerID string) (model.PlayerStats, bool) {
	return s.aggregator.Player(playerID)
}

// Identities returns the identities resolved so far.
func (s *Session) Identities() []model.PlayerIdentity {
	return s.registry.Identities()
}

// Summary returns counters describing the session.
func (s *Session) Summary() types.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.SessionSummary{
		SessionID:       s.id,
		FramesProcessed: s.frames,
		LastFrame:       s.lastFrame,
		Events:          len(s.events),
		Players:         s.aggregator.Len(),
	}
}
