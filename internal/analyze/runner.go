package analyze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/okian/hoopvision/internal/adapters/archive"
	"github.com/okian/hoopvision/internal/adapters/mq/queue"
	"github.com/okian/hoopvision/internal/adapters/mq/worker"
	"github.com/okian/hoopvision/internal/adapters/source"
	"github.com/okian/hoopvision/internal/domain/identity"
	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/internal/session"
	"github.com/okian/hoopvision/pkg/logger"
)

// Run reads NDJSON detection records from in and processes them in frame
// order through a fresh session.
func Run(ctx context.Context, cfg *Config, in io.Reader, rec identity.Recognizer) (*Report, error) {
	report := &Report{StartTime: time.Now()}
	log := logger.Get().Named("analyze")

	id := cfg.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	if rec == nil {
		rec = identity.EmbeddedRecognizer{}
	}

	sess, err := session.New(id, cfg.Calibration,
		session.WithCooldown(cfg.Cooldown),
		session.WithReboundWindow(cfg.ReboundWindow),
		session.WithConfidenceThreshold(cfg.Threshold),
		// Workers already ran rec on unread tracks.
		session.WithRecognizer(identity.EmbeddedRecognizer{}),
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	log.Info(ctx, "starting analysis",
		logger.String("session", id),
		logger.Int64("frame_skip", cfg.FrameSkip),
		logger.Int("workers", cfg.Workers),
		logger.String("hoop_box", cfg.Calibration.HoopBox.String()),
		logger.Float64("three_point_line_y", cfg.Calibration.ThreePointLineY),
	)

	dec := source.NewDecoder(
		source.WithFrameSkip(cfg.FrameSkip),
		source.WithPlayerMinConfidence(cfg.PlayerMin),
		source.WithBallMinConfidence(cfg.BallMin),
	)
	decode := worker.DecoderFunc(func(ctx context.Context, payload []byte) (model.Frame, error) {
		frame, err := dec.Decode(ctx, payload)
		if errors.Is(err, source.ErrSkipped) {
			return frame, worker.ErrSkipped
		}
		return frame, err
	})
	handle := worker.HandlerFunc(func(ctx context.Context, frame model.Frame) error {
		_, err := sess.Process(ctx, frame)
		return err
	})

	q := queue.NewInMemoryQueue(queue.WithCapacity(cfg.QueueSize))
	pool := worker.NewPool(cfg.Workers, q, decode, handle, worker.WithRecognizer(rec))
	pool.Start(ctx)

	records, pumpErr := source.Pump(ctx, in, q)
	if err := pool.Shutdown(ctx); err != nil {
		return nil, err
	}
	if pumpErr != nil {
		return nil, pumpErr
	}
	sess.Close()

	ps := pool.Stats()
	report.Records = records
	report.Skipped = ps.Skipped
	report.Failed = ps.Failed
	report.Summary = sess.Summary()
	report.Stats = sess.PlayerStats()
	report.Events = sess.Events()
	report.Duration = time.Since(report.StartTime)

	if cfg.ArchivePath != "" {
		if err := archiveReport(ctx, cfg.ArchivePath, sess, report); err != nil {
			return report, err
		}
	}

	log.Info(ctx, "analysis complete",
		logger.Int64("records", report.Records),
		logger.Int64("frames", report.Summary.FramesProcessed),
		logger.Int64("skipped", report.Skipped),
		logger.Int64("failed", report.Failed),
		logger.Int("events", len(report.Events)),
		logger.Int("players", len(report.Stats)),
		logger.Duration("duration", report.Duration),
	)
	return report, nil
}

func archiveReport(ctx context.Context, path string, sess *session.Session, report *Report) error {
	a, err := archive.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close archive", logger.Error(err))
		}
	}()
	return a.SaveSession(ctx, archive.Record{
		Summary:     report.Summary,
		Calibration: sess.Calibration(),
		CreatedAt:   sess.CreatedAt(),
		ClosedAt:    time.Now().UTC(),
		Events:      report.Events,
		Stats:       report.Stats,
	})
}
