// Package stats folds classified game events into per-player box-score totals.
package stats

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/pkg/logger"
)

// Aggregator owns the session's player_id -> PlayerStats mapping.
//
// Records are created through Ensure (called by the identity registry on first
// sighting) and mutated only by RecordEvent. Readers get copies.
type Aggregator struct {
	mu      sync.RWMutex
	players map[string]*model.PlayerStats
	order   []string // first-sighting order
	logger  logger.Logger
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an empty aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		players: make(map[string]*model.PlayerStats),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("stats")
	}
	return a
}

// Ensure creates a zeroed record for playerID if none exists.
// Returns true when a record was created. Existing records are never replaced.
func (a *Aggregator) Ensure(playerID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.players[playerID]; ok {
		return false
	}
	a.players[playerID] = &model.PlayerStats{}
	a.order = append(a.order, playerID)
	return true
}

// RecordEvent applies one event to its player's totals. Each call counts:
// recording the same event twice double-counts.
func (a *Aggregator) RecordEvent(ctx context.Context, evt model.GameEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.players[evt.PlayerID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, evt.PlayerID)
	}

	switch evt.Type {
	case model.EventShotMade:
		switch evt.Points {
		case model.ThreePoints:
			s.ThreePtAttempts++
			s.ThreePtMakes++
		case model.TwoPoints:
		default:
			return fmt.Errorf("%w: shot worth %d points", ErrInvalidEvent, evt.Points)
		}
		s.Attempts++
		s.Makes++
		s.Points += evt.Points
	case model.EventRebound:
		s.Rebounds++
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, evt.Type)
	}

	a.logger.Debug(ctx, "event recorded",
		logger.String("type", string(evt.Type)),
		logger.String("player", evt.PlayerID),
		logger.Int64("frame", evt.FrameIndex),
		logger.Int("points", s.Points),
	)
	return nil
}

// Snapshot returns a copy of every player's totals.
func (a *Aggregator) Snapshot() map[string]model.PlayerStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[string]model.PlayerStats, len(a.players))
	for id, s := range a.players {
		out[id] = *s
	}
	return out
}

// Player returns a copy of one player's totals.
func (a *Aggregator) Player(playerID string) (model.PlayerStats, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.players[playerID]
	if !ok {
		return model.PlayerStats{}, false
	}
	return *s, true
}

// PlayerIDs returns player ids in first-sighting order.
func (a *Aggregator) PlayerIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return append([]string(nil), a.order...)
}

// Len returns the number of tracked players.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.players)
}

// Totals sums every player's line.
func (a *Aggregator) Totals() model.PlayerStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var t model.PlayerStats
	for _, s := range a.players {
		t.Points += s.Points
		t.Makes += s.Makes
		t.Attempts += s.Attempts
		t.ThreePtMakes += s.ThreePtMakes
		t.ThreePtAttempts += s.ThreePtAttempts
		t.Rebounds += s.Rebounds
		t.Assists += s.Assists
	}
	return t
}

// SortedIDs returns ids of a snapshot ordered by points desc, then id asc.
func SortedIDs(snapshot map[string]model.PlayerStats) []string {
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := snapshot[ids[i]].Points, snapshot[ids[j]].Points
		if pi != pj {
			return pi > pj
		}
		return ids[i] < ids[j]
	})
	return ids
}
