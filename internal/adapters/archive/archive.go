// Package archive persists closed sessions (game log and box score) to SQLite.
package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/internal/domain/types"
	"github.com/okian/hoopvision/pkg/logger"
	"github.com/okian/hoopvision/pkg/metrics"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned for sessions that were never archived.
var ErrNotFound = errors.New("session not archived")

// schema.sql defines the sessions, game_events and box_scores tables.
//
//go:embed schema.sql
var schemaSQL string

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

// Record is everything kept about a closed session.
type Record struct {
	Summary     types.SessionSummary
	Calibration model.Calibration
	CreatedAt   time.Time
	ClosedAt    time.Time
	Events      []model.GameEvent
	Stats       map[string]model.PlayerStats
}

// Archive is a SQLite-backed session store.
type Archive struct {
	db     *sql.DB
	logger logger.Logger
}

// Open opens (or creates) the archive at path and applies the schema.
func Open(ctx context.Context, path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent closes.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply archive schema: %w", err)
	}

	a := &Archive{db: db, logger: logger.Get().Named("archive")}
	a.logger.Info(ctx, "initialized archive schema", logger.String("path", path))
	return a, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveSession writes rec in one transaction, replacing any earlier copy.
func (a *Archive) SaveSession(ctx context.Context, rec Record) (err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			metrics.RecordArchiveError()
			return
		}
		metrics.RecordArchiveWrite(float64(time.Since(start).Microseconds()) / 1000)
	}()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id := rec.Summary.SessionID
	for _, q := range []string{
		`DELETE FROM game_events WHERE session_id = ?`,
		`DELETE FROM box_scores WHERE session_id = ?`,
		`DELETE FROM sessions WHERE session_id = ?`,
	} {
		if _, err = tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("clear session %s: %w", id, err)
		}
	}

	hoop := rec.Calibration.HoopBox
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (session_id, created_at, closed_at, hoop_x1, hoop_y1, hoop_x2, hoop_y2,
			three_point_line_y, frames_processed, last_frame)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.CreatedAt.UTC(), rec.ClosedAt.UTC(), hoop.X1, hoop.Y1, hoop.X2, hoop.Y2,
		rec.Calibration.ThreePointLineY, rec.Summary.FramesProcessed, rec.Summary.LastFrame,
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", id, err)
	}

	evtStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO game_events (session_id, seq, event_type, frame_index, ts, player_id, points)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare event insert: %w", err)
	}
	defer evtStmt.Close()
	for i, e := range rec.Events {
		if _, err = evtStmt.ExecContext(ctx, id, i, string(e.Type), e.FrameIndex, e.Timestamp, e.PlayerID, e.Points); err != nil {
			return fmt.Errorf("insert event %d: %w", i, err)
		}
	}

	statStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO box_scores (session_id, player_id, points, makes, attempts, three_pt_makes,
			three_pt_attempts, rebounds, assists)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare box score insert: %w", err)
	}
	defer statStmt.Close()
	for pid, s := range rec.Stats {
		if _, err = statStmt.ExecContext(ctx, id, pid, s.Points, s.Makes, s.Attempts,
			s.ThreePtMakes, s.ThreePtAttempts, s.Rebounds, s.Assists); err != nil {
			return fmt.Errorf("insert box score %s: %w", pid, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	a.logger.Debug(ctx, "session archived",
		logger.String("session", id),
		logger.Int("events", len(rec.Events)),
		logger.Int("players", len(rec.Stats)),
	)
	return nil
}

// LoadSession reads back a session's summary and calibration.
func (a *Archive) LoadSession(ctx context.Context, sessionID string) (Record, error) {
	var (
		rec  Record
		hoop model.Box
	)
	row := a.db.QueryRowContext(ctx, `
		SELECT created_at, closed_at, hoop_x1, hoop_y1, hoop_x2, hoop_y2, three_point_line_y,
			frames_processed, last_frame
		FROM sessions WHERE session_id = ?`, sessionID)
	err := row.Scan(&rec.CreatedAt, &rec.ClosedAt, &hoop.X1, &hoop.Y1, &hoop.X2, &hoop.Y2,
		&rec.Calibration.ThreePointLineY, &rec.Summary.FramesProcessed, &rec.Summary.LastFrame)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return Record{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	rec.Calibration.HoopBox = hoop
	rec.Summary.SessionID = sessionID

	if rec.Events, err = a.LoadEvents(ctx, sessionID); err != nil {
		return Record{}, err
	}
	if rec.Stats, err = a.LoadStats(ctx, sessionID); err != nil {
		return Record{}, err
	}
	rec.Summary.Events = len(rec.Events)
	rec.Summary.Players = len(rec.Stats)
	return rec, nil
}

// LoadEvents returns the archived game log in its original order.
func (a *Archive) LoadEvents(ctx context.Context, sessionID string) ([]model.GameEvent, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT event_type, frame_index, ts, player_id, points
		FROM game_events WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.GameEvent
	for rows.Next() {
		var (
			e   model.GameEvent
			typ string
		)
		if err := rows.Scan(&typ, &e.FrameIndex, &e.Timestamp, &e.PlayerID, &e.Points); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.Type = model.EventType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadStats returns the archived box score.
func (a *Archive) LoadStats(ctx context.Context, sessionID string) (map[string]model.PlayerStats, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT player_id, points, makes, attempts, three_pt_makes, three_pt_attempts, rebounds, assists
		FROM box_scores WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query box scores: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.PlayerStats)
	for rows.Next() {
		var (
			pid string
			s   model.PlayerStats
		)
		if err := rows.Scan(&pid, &s.Points, &s.Makes, &s.Attempts, &s.ThreePtMakes,
			&s.ThreePtAttempts, &s.Rebounds, &s.Assists); err != nil {
			return nil, fmt.Errorf("scan box score row: %w", err)
		}
		out[pid] = s
	}
	return out, rows.Err()
}

// ListSessions returns archived session ids, most recently closed first.
func (a *Archive) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT session_id FROM sessions ORDER BY closed_at DESC, session_id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
