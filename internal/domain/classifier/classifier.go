// Package classifier turns per-frame spatial observations into discrete game
// events.
//
// The only state carried between frames is the index of the last counted
// shot. Two windows hang off it:
//
//   - cooldown: a new shot is only considered when f - lastShot > cooldown,
//     so a ball dwelling in the hoop zone over several samples counts once;
//   - rebound window: while f - lastShot <= reboundWindow every identified
//     track on screen is credited a rebound (the shot frame itself included).
//
// Windows are frame-count deltas, so the caller must keep the sampling rate
// fixed for a session.
package classifier

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/pkg/logger"
	"github.com/okian/hoopvision/pkg/metrics"
)

// Default window sizes, in sampled frames.
const (
	DefaultCooldown      int64 = 10
	DefaultReboundWindow int64 = 5

	// initialLastShotFrame places the first shot far enough in the past that
	// neither window is open at frame 0.
	initialLastShotFrame int64 = -30
)

// Classifier is a single-writer state machine. It is not safe for concurrent use.
type Classifier struct {
	calib         model.Calibration
	cooldown      int64
	reboundWindow int64
	lastShotFrame int64
	logger        logger.Logger
}

// New validates calib and the windows and returns a ready classifier.
func New(calib model.Calibration, opts ...Option) (*Classifier, error) {
	if err := calib.Validate(); err != nil {
		return nil, err
	}

	c := &Classifier{
		calib:         calib,
		cooldown:      DefaultCooldown,
		reboundWindow: DefaultReboundWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cooldown < 0 {
		return nil, fmt.Errorf("%w: cooldown %d", ErrInvalidWindow, c.cooldown)
	}
	if c.reboundWindow < 0 {
		return nil, fmt.Errorf("%w: rebound window %d", ErrInvalidWindow, c.reboundWindow)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("classifier")
	}

	c.lastShotFrame = initialLastShotFrame
	if widest := max(c.cooldown, c.reboundWindow); -c.lastShotFrame <= widest {
		c.lastShotFrame = -(widest + 1)
	}
	return c, nil
}

// Calibration returns the court geometry the classifier was built with.
func (c *Classifier) Calibration() model.Calibration { return c.calib }

// LastShotFrame returns the frame of the last counted shot (or the initial sentinel).
func (c *Classifier) LastShotFrame() int64 { return c.lastShotFrame }

// Classify evaluates one frame and returns the events it produces: at most one
// shot, followed by zero or more rebounds. tracks must already carry resolved
// player ids.
func (c *Classifier) Classify(ctx context.Context, frame model.Frame) []model.GameEvent {
	if frame.Ball == nil {
		metrics.RecordFrameNoBall()
		return nil
	}

	var events []model.GameEvent
	if evt, ok := c.detectShot(ctx, frame); ok {
		events = append(events, evt)
	}
	return append(events, c.detectRebounds(frame)...)
}

func (c *Classifier) detectShot(ctx context.Context, frame model.Frame) (model.GameEvent, bool) {
	if frame.Index-c.lastShotFrame <= c.cooldown {
		return model.GameEvent{}, false
	}
	bx, by := frame.Ball.Center()
	if !c.calib.HoopBox.ContainsStrict(bx, by) {
		return model.GameEvent{}, false
	}

	shooter, ok := nearestTrack(frame.Tracks, bx)
	if !ok || !shooter.Resolved() {
		metrics.RecordShotDropped()
		c.logger.Debug(ctx, "shot dropped: nearest track unidentified",
			logger.Int64("frame", frame.Index),
			logger.Int("tracks", len(frame.Tracks)),
		)
		return model.GameEvent{}, false
	}

	points, zone := model.TwoPoints, metrics.ZoneTwo
	if shooter.BBox.CenterY() < c.calib.ThreePointLineY {
		points, zone = model.ThreePoints, metrics.ZoneThree
	}
	c.lastShotFrame = frame.Index
	metrics.RecordShotMade(zone)

	c.logger.Debug(ctx, "shot made",
		logger.Int64("frame", frame.Index),
		logger.String("player", shooter.PlayerID),
		logger.Int("points", points),
	)
	return model.GameEvent{
		Type:       model.EventShotMade,
		FrameIndex: frame.Index,
		Timestamp:  frame.Timestamp,
		PlayerID:   shooter.PlayerID,
		Points:     points,
	}, true
}

// detectRebounds credits every identified on-screen track, not only the one
// nearest the ball.
func (c *Classifier) detectRebounds(frame model.Frame) []model.GameEvent {
	if frame.Index-c.lastShotFrame > c.reboundWindow {
		return nil
	}
	var events []model.GameEvent
	for _, tr := range frame.Tracks {
		if !tr.Resolved() {
			continue
		}
		metrics.RecordRebound()
		events = append(events, model.GameEvent{
			Type:       model.EventRebound,
			FrameIndex: frame.Index,
			Timestamp:  frame.Timestamp,
			PlayerID:   tr.PlayerID,
		})
	}
	return events
}

// nearestTrack picks the track whose horizontal center is closest to x.
// Ties go to the earlier track.
func nearestTrack(tracks []model.Track, x float64) (model.Track, bool) {
	best, bestDist := -1, math.Inf(1)
	for i, tr := range tracks {
		if d := math.Abs(tr.BBox.CenterX() - x); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return model.Track{}, false
	}
	return tracks[best], true
}
