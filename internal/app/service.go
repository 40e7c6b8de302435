// Package service manages analysis sessions and implements the dependencies
// required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/hoopvision/internal/adapters/archive"
	"github.com/okian/hoopvision/internal/adapters/repository"
	"github.com/okian/hoopvision/internal/adapters/source"
	"github.com/okian/hoopvision/internal/domain/classifier"
	"github.com/okian/hoopvision/internal/domain/dedupe"
	"github.com/okian/hoopvision/internal/domain/identity"
	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/internal/domain/types"
	"github.com/okian/hoopvision/internal/session"
	"github.com/okian/hoopvision/pkg/logger"
	"github.com/okian/hoopvision/pkg/metrics"
)

// Frame submission outcomes.
const (
	StatusProcessed = types.StatusProcessed
	StatusDuplicate = types.StatusDuplicate
)

// Archiver stores closed sessions.
type Archiver interface {
	SaveSession(ctx context.Context, rec archive.Record) error
	LoadSession(ctx context.Context, sessionID string) (archive.Record, error)
}

// FrameResult is the outcome of one frame submission.
type FrameResult = types.FrameResult

// liveSession pairs a session with its leaderboard. mu orders Process and the
// board refresh that follows it, so the board never sees totals out of order.
type liveSession struct {
	mu    sync.Mutex
	sess  *session.Session
	board *repository.TreapStore
}

// Service owns every live session.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*liveSession

	deduper dedupe.Deduper
	decoder *source.Decoder
	archive Archiver

	calibration   model.Calibration
	cooldown      int64
	reboundWindow int64
	threshold     float64
	playerMin     float64
	ballMin       float64
	dedupeSize    int
	recognizer    identity.Recognizer

	started   bool
	startedAt time.Time
	closed    int64

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sessions:      make(map[string]*liveSession),
		calibration:   model.DefaultCalibration(),
		cooldown:      classifier.DefaultCooldown,
		reboundWindow: classifier.DefaultReboundWindow,
		threshold:     identity.DefaultConfidenceThreshold,
		playerMin:     source.DefaultPlayerMinConfidence,
		ballMin:       source.DefaultBallMinConfidence,
		dedupeSize:    dedupe.DefaultMaxSize,
		recognizer:    identity.EmbeddedRecognizer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if err := s.calibration.Validate(); err != nil {
		return fmt.Errorf("default calibration: %w", err)
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	// Clients choose which frames to send, so only confidence filters apply.
	s.decoder = source.NewDecoder(
		source.WithFrameSkip(1),
		source.WithPlayerMinConfidence(s.playerMin),
		source.WithBallMinConfidence(s.ballMin),
	)
	s.started = true
	s.startedAt = time.Now()

	s.logger.Info(ctx, "hoopvision service started",
		logger.String("hoop_box", s.calibration.HoopBox.String()),
		logger.Float64("three_point_line_y", s.calibration.ThreePointLineY),
		logger.Int64("cooldown", s.cooldown),
		logger.Int64("rebound_window", s.reboundWindow),
		logger.Bool("archive", s.archive != nil),
	)
	return nil
}

// Stop archives and closes every live session.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if _, err := s.CloseSession(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			s.logger.Error(ctx, "failed to close session on stop", logger.String("session", id), logger.Error(err))
		}
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	s.logger.Info(ctx, "hoopvision service stopped")
}

// CreateSession starts a session. An empty id gets a generated one; a nil
// calibration uses the service default.
func (s *Service) CreateSession(ctx context.Context, id string, calib *model.Calibration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return "", ErrNotStarted
	}
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := s.sessions[id]; exists {
		return "", fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	c := s.calibration
	if calib != nil {
		c = *calib
	}

	sess, err := session.New(id, c,
		session.WithCooldown(s.cooldown),
		session.WithReboundWindow(s.reboundWindow),
		session.WithConfidenceThreshold(s.threshold),
		session.WithRecognizer(s.recognizer),
		session.WithLogger(s.logger),
	)
	if err != nil {
		return "", err
	}
	s.sessions[id] = &liveSession{sess: sess, board: repository.NewTreapStore()}

	metrics.RecordSessionCreated()
	metrics.UpdateActiveSessions(len(s.sessions))
	s.logger.Info(ctx, "session created", logger.String("session", id))
	return id, nil
}

func (s *Service) live(id string) (*liveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	ls, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return ls, nil
}

// SubmitFrame filters and processes one detection record. A frame index that
// was already applied to the session is acknowledged as a duplicate.
func (s *Service) SubmitFrame(ctx context.Context, id string, rec source.Record) (FrameResult, error) {
	ls, err := s.live(id)
	if err != nil {
		return FrameResult{}, err
	}

	frame, err := s.decoder.Convert(rec)
	if err != nil {
		metrics.RecordFrameRejected("invalid")
		return FrameResult{}, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}

	key := dedupe.FrameKey(id, frame.Index)
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordFrameDuplicate()
		return FrameResult{Status: StatusDuplicate}, nil
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	// The last applied index is known even after its key left the cache.
	if sum := ls.sess.Summary(); !ls.sess.Closed() && sum.FramesProcessed > 0 && frame.Index == sum.LastFrame {
		metrics.RecordFrameDuplicate()
		return FrameResult{Status: StatusDuplicate}, nil
	}

	events, err := ls.sess.Process(ctx, frame)
	if err != nil {
		s.deduper.Unrecord(ctx, key)
		return FrameResult{}, err
	}
	s.refreshBoard(ctx, ls, events)
	return FrameResult{Status: StatusProcessed, Events: events}, nil
}

// refreshBoard copies the totals of every player touched by events into the
// session leaderboard. Newly identified players are seeded with their zero
// totals so they rank before their first event. Callers hold ls.mu.
func (s *Service) refreshBoard(ctx context.Context, ls *liveSession, events []model.GameEvent) {
	if ls.sess.Summary().Players > ls.board.Count(ctx) {
		for pid, st := range ls.sess.PlayerStats() {
			s.putBoard(ctx, ls, pid, st)
		}
		return
	}
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if _, dup := seen[e.PlayerID]; dup {
			continue
		}
		seen[e.PlayerID] = struct{}{}
		if st, ok := ls.sess.Player(e.PlayerID); ok {
			s.putBoard(ctx, ls, e.PlayerID, st)
		}
	}
}

func (s *Service) putBoard(ctx context.Context, ls *liveSession, playerID string, st model.PlayerStats) {
	if err := ls.board.Put(ctx, playerID, st); err != nil {
		s.logger.Error(ctx, "leaderboard update failed", logger.String("player", playerID), logger.Error(err))
	}
}

// Events returns the session's ordered game log. Closed sessions are read
// from the archive.
func (s *Service) Events(ctx context.Context, id string) ([]model.GameEvent, error) {
	ls, err := s.live(id)
	if err == nil {
		return ls.sess.Events(), nil
	}
	rec, aerr := s.archived(ctx, id, err)
	if aerr != nil {
		return nil, aerr
	}
	return rec.Events, nil
}

// PlayerStats returns the session's box score.
func (s *Service) PlayerStats(ctx context.Context, id string) (map[string]model.PlayerStats, error) {
	ls, err := s.live(id)
	if err == nil {
		return ls.sess.PlayerStats(), nil
	}
	rec, aerr := s.archived(ctx, id, err)
	if aerr != nil {
		return nil, aerr
	}
	return rec.Stats, nil
}

// Summary returns the session's counters.
func (s *Service) Summary(ctx context.Context, id string) (types.SessionSummary, error) {
	ls, err := s.live(id)
	if err == nil {
		return ls.sess.Summary(), nil
	}
	rec, aerr := s.archived(ctx, id, err)
	if aerr != nil {
		return types.SessionSummary{}, aerr
	}
	return rec.Summary, nil
}

// Identities returns the jersey identities resolved in a live session.
func (s *Service) Identities(_ context.Context, id string) ([]model.PlayerIdentity, error) {
	ls, err := s.live(id)
	if err != nil {
		return nil, err
	}
	return ls.sess.Identities(), nil
}

// archived falls back to the archive for sessions that are no longer live.
func (s *Service) archived(ctx context.Context, id string, liveErr error) (archive.Record, error) {
	if s.archive == nil || !errors.Is(liveErr, ErrSessionNotFound) {
		return archive.Record{}, liveErr
	}
	rec, err := s.archive.LoadSession(ctx, id)
	if errors.Is(err, archive.ErrNotFound) {
		return archive.Record{}, liveErr
	}
	return rec, err
}

// TopN returns the session's top n players by points.
func (s *Service) TopN(ctx context.Context, id string, n int) ([]types.Entry, error) {
	ls, err := s.live(id)
	if err != nil {
		return nil, err
	}
	return ls.board.TopN(ctx, n)
}

// Rank returns one player's leaderboard row.
func (s *Service) Rank(ctx context.Context, id, playerID string) (types.Entry, error) {
	ls, err := s.live(id)
	if err != nil {
		return types.Entry{}, err
	}
	return ls.board.Rank(ctx, playerID)
}

// ListSessions returns summaries of every live session ordered by id.
func (s *Service) ListSessions(_ context.Context) []types.SessionSummary {
	s.mu.RLock()
	out := make([]types.SessionSummary, 0, len(s.sessions))
	for _, ls := range s.sessions {
		out = append(out, ls.sess.Summary())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// CloseSession closes a session and, when an archive is configured, saves it.
// The session is removed only once it is archived; after a failed save it
// stays readable (but accepts no frames) and the close can be retried.
func (s *Service) CloseSession(ctx context.Context, id string) (types.SessionSummary, error) {
	s.mu.RLock()
	ls, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return types.SessionSummary{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	ls.sess.Close()
	summary := ls.sess.Summary()
	if s.archive != nil {
		rec := archive.Record{
			Summary:     summary,
			Calibration: ls.sess.Calibration(),
			CreatedAt:   ls.sess.CreatedAt(),
			ClosedAt:    time.Now().UTC(),
			Events:      ls.sess.Events(),
			Stats:       ls.sess.PlayerStats(),
		}
		if err := s.archive.SaveSession(ctx, rec); err != nil {
			s.logger.Error(ctx, "session kept live after failed archive",
				logger.String("session", id), logger.Error(err))
			return summary, fmt.Errorf("archive session %s: %w", id, err)
		}
	}

	s.mu.Lock()
	cur, ok := s.sessions[id]
	removed := ok && cur == ls
	if removed {
		delete(s.sessions, id)
		s.closed++
	}
	active := len(s.sessions)
	s.mu.Unlock()
	if !removed {
		// A concurrent close got there first.
		return types.SessionSummary{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	if s.deduper != nil {
		s.deduper.ForgetSession(ctx, id)
	}
	metrics.RecordSessionClosed()
	metrics.UpdateActiveSessions(active)
	s.logger.Info(ctx, "session closed",
		logger.String("session", id),
		logger.Int64("frames", summary.FramesProcessed),
		logger.Int("events", summary.Events),
	)
	return summary, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"activeSessions": len(s.sessions),
		"closedSessions": s.closed,
		"archive":        s.archive != nil,
	}
	if s.started {
		var frames int64
		for _, ls := range s.sessions {
			frames += ls.sess.Summary().FramesProcessed
		}
		stats["framesProcessed"] = frames
		stats["dedupeSize"] = s.deduper.Size()
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	}
	return stats
}
