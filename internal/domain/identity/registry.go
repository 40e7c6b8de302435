// Package identity binds tracker ids to jersey-number player identities.
package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/pkg/logger"
	"github.com/okian/hoopvision/pkg/metrics"
)

// DefaultConfidenceThreshold is the minimum (exclusive) OCR confidence accepted.
const DefaultConfidenceThreshold = 0.4

// Rejection reasons reported to metrics.
const (
	reasonNoReading     = "no_reading"
	reasonLowConfidence = "low_confidence"
	reasonEmptyText     = "empty_text"
)

// Recognizer reads a jersey number from a track's crop. A false second return
// means the crop was unreadable or recognition failed; it is not an error.
type Recognizer interface {
	Recognize(ctx context.Context, frame model.Frame, track model.Track) (model.JerseyReading, bool)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, frame model.Frame, track model.Track) (model.JerseyReading, bool)

// Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, frame model.Frame, track model.Track) (model.JerseyReading, bool) {
	return f(ctx, frame, track)
}

// EmbeddedRecognizer returns the reading the upstream OCR stage attached to the track.
type EmbeddedRecognizer struct{}

// Recognize returns track.Reading when present.
func (EmbeddedRecognizer) Recognize(_ context.Context, _ model.Frame, track model.Track) (model.JerseyReading, bool) {
	if track.Reading == nil {
		return model.JerseyReading{}, false
	}
	return *track.Reading, true
}

// StatsBook creates a zeroed stats record the first time a player is seen.
type StatsBook interface {
	Ensure(playerID string) bool
}

// Registry maps track ids to player ids. It is append-only for a session:
// a bound track keeps its first accepted reading for life.
type Registry struct {
	mu         sync.RWMutex
	threshold  float64
	bindings   map[int64]string
	identities map[string]*model.PlayerIdentity
	order      []string
	book       StatsBook
	logger     logger.Logger
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithConfidenceThreshold overrides the OCR acceptance threshold.
func WithConfidenceThreshold(threshold float64) Option {
	return func(r *Registry) {
		if threshold >= 0 && threshold <= 1 {
			r.threshold = threshold
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry that creates stats records in book.
func NewRegistry(book StatsBook, opts ...Option) *Registry {
	r := &Registry{
		threshold:  DefaultConfidenceThreshold,
		bindings:   make(map[int64]string),
		identities: make(map[string]*model.PlayerIdentity),
		book:       book,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("identity")
	}
	return r
}

// Threshold returns the active confidence threshold.
func (r *Registry) Threshold() float64 { return r.threshold }

// Resolve offers a jersey reading for track and returns the track's player id.
// An already bound track returns its existing id regardless of the reading.
// ok=false leaves the track anonymous so it can be retried on a later frame.
func (r *Registry) Resolve(ctx context.Context, track model.Track, reading model.JerseyReading, ok bool) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pid, bound := r.bindings[track.TrackID]; bound {
		return pid, true
	}

	if !ok {
		metrics.RecordJerseyRejected(reasonNoReading)
		return "", false
	}
	if reading.Confidence <= r.threshold {
		metrics.RecordJerseyRejected(reasonLowConfidence)
		r.logger.Debug(ctx, "jersey reading below threshold",
			logger.Int64("track", track.TrackID),
			logger.String("text", reading.Text),
			logger.Float64("confidence", reading.Confidence),
		)
		return "", false
	}
	pid := strings.TrimSpace(reading.Text)
	if pid == "" {
		metrics.RecordJerseyRejected(reasonEmptyText)
		return "", false
	}

	r.bindings[track.TrackID] = pid
	ident, exists := r.identities[pid]
	if !exists {
		ident = &model.PlayerIdentity{PlayerID: pid}
		r.identities[pid] = ident
		r.order = append(r.order, pid)
	}
	ident.TrackIDs = append(ident.TrackIDs, track.TrackID)
	if r.book != nil {
		r.book.Ensure(pid)
	}

	metrics.RecordIdentityResolved()
	r.logger.Debug(ctx, "track bound to player",
		logger.Int64("track", track.TrackID),
		logger.String("player", pid),
		logger.Float64("confidence", reading.Confidence),
	)
	return pid, true
}

// Attach returns a copy of tracks with PlayerID set from the registry. Unbound
// tracks are offered to rec; any PlayerID supplied upstream is ignored.
func (r *Registry) Attach(ctx context.Context, frame model.Frame, rec Recognizer) []model.Track {
	out := make([]model.Track, len(frame.Tracks))
	for i, tr := range frame.Tracks {
		tr.PlayerID = ""
		if pid, ok := r.Lookup(tr.TrackID); ok {
			tr.PlayerID = pid
			out[i] = tr
			continue
		}
		var (
			reading model.JerseyReading
			ok      bool
		)
		if rec != nil {
			reading, ok = rec.Recognize(ctx, frame, tr)
		}
		if pid, bound := r.Resolve(ctx, tr, reading, ok); bound {
			tr.PlayerID = pid
		}
		out[i] = tr
	}
	return out
}

// Lookup returns the player bound to trackID.
func (r *Registry) Lookup(trackID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pid, ok := r.bindings[trackID]
	return pid, ok
}

// Identities returns every identity in first-sighting order.
func (r *Registry) Identities() []model.PlayerIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.PlayerIdentity, 0, len(r.order))
	for _, pid := range r.order {
		ident := r.identities[pid]
		out = append(out, model.PlayerIdentity{
			PlayerID: ident.PlayerID,
			TrackIDs: append([]int64(nil), ident.TrackIDs...),
		})
	}
	return out
}

// BoundTracks returns the number of bound tracks.
func (r *Registry) BoundTracks() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
