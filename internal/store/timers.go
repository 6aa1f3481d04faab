package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"retrosync/pkg/types"
)

// StartTimer creates or overwrites the session's timer with a fresh
// countdown. One timer row per session; restarting resets it.
func (s *Store) StartTimer(ctx context.Context, t *types.Timer) (*types.Timer, error) {
	var out *types.Timer
	err := s.write(func(db *sql.DB) error {
		var startedAt sql.NullTime
		if t.StartedAt != nil {
			startedAt = sql.NullTime{Time: *t.StartedAt, Valid: true}
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO timers (id, session_id, duration, remaining_time, is_running, started_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET
				duration = excluded.duration,
				remaining_time = excluded.remaining_time,
				is_running = excluded.is_running,
				started_at = excluded.started_at,
				updated_at = excluded.updated_at`,
			t.ID, t.SessionID, t.Duration, t.RemainingTime, t.IsRunning, startedAt, t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("upserting timer: %w", err)
		}
		out, err = s.GetTimer(ctx, t.SessionID)
		return err
	})
	return out, err
}

// GetTimer returns the session's timer, or ErrNotFound if none was started.
func (s *Store) GetTimer(ctx context.Context, sessionID string) (*types.Timer, error) {
	var t types.Timer
	var startedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, duration, remaining_time, is_running, started_at, updated_at
		FROM timers WHERE session_id = ?`, sessionID).
		Scan(&t.ID, &t.SessionID, &t.Duration, &t.RemainingTime, &t.IsRunning, &startedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning timer: %w", err)
	}
	if startedAt.Valid {
		v := startedAt.Time
		t.StartedAt = &v
	}
	return &t, nil
}

// StopTimer marks the timer not running, keeping its remaining time.
func (s *Store) StopTimer(ctx context.Context, sessionID string) error {
	return s.write(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE timers SET is_running = 0, updated_at = ? WHERE session_id = ?`,
			time.Now().UTC(), sessionID)
		if err != nil {
			return fmt.Errorf("stopping timer: %w", err)
		}
		return requireRow(res)
	})
}

// FinishTimer zeroes the countdown and marks it not running.
func (s *Store) FinishTimer(ctx context.Context, sessionID string) error {
	return s.write(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE timers SET is_running = 0, remaining_time = 0, updated_at = ? WHERE session_id = ?`,
			time.Now().UTC(), sessionID)
		if err != nil {
			return fmt.Errorf("finishing timer: %w", err)
		}
		return requireRow(res)
	})
}

// DecrementTimer subtracts one second and returns the updated timer. The
// remaining time never goes below zero.
func (s *Store) DecrementTimer(ctx context.Context, sessionID string) (*types.Timer, error) {
	var out *types.Timer
	err := s.write(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			UPDATE timers SET remaining_time = MAX(remaining_time - 1, 0), updated_at = ?
			WHERE session_id = ?`,
			time.Now().UTC(), sessionID)
		if err != nil {
			return fmt.Errorf("decrementing timer: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}
		out, err = s.GetTimer(ctx, sessionID)
		return err
	})
	return out, err
}
