package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"retrosync/pkg/types"
)

// Per-user singletons for the warm-up and closing phases. Each is unique
// per (session, user) with latest-write-wins via an upsert, so repeated
// submissions replace rather than accumulate.

// UpsertIcebreakerResponse stores or replaces the user's answer.
func (s *Store) UpsertIcebreakerResponse(ctx context.Context, r *types.IcebreakerResponse) (*types.IcebreakerResponse, error) {
	var out *types.IcebreakerResponse
	err := s.write(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO icebreaker_responses (id, session_id, user_id, response, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(session_id, user_id) DO UPDATE SET response = excluded.response`,
			r.ID, r.SessionID, r.UserID, r.Response, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("upserting icebreaker response: %w", err)
		}

		var stored types.IcebreakerResponse
		err = db.QueryRowContext(ctx, `
			SELECT id, session_id, user_id, response, created_at
			FROM icebreaker_responses WHERE session_id = ? AND user_id = ?`,
			r.SessionID, r.UserID).
			Scan(&stored.ID, &stored.SessionID, &stored.UserID, &stored.Response, &stored.CreatedAt)
		if err != nil {
			return fmt.Errorf("reading icebreaker response: %w", err)
		}
		stored.User = s.userOrNil(ctx, stored.UserID)
		out = &stored
		return nil
	})
	return out, err
}

// ListIcebreakerResponses returns the session's answers with users joined.
func (s *Store) ListIcebreakerResponses(ctx context.Context, sessionID string) ([]types.IcebreakerResponse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, response, created_at
		FROM icebreaker_responses WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying icebreaker responses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var responses []types.IcebreakerResponse
	for rows.Next() {
		var r types.IcebreakerResponse
		if err := rows.Scan(&r.ID, &r.SessionID, &r.UserID, &r.Response, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning icebreaker response: %w", err)
		}
		r.User = s.userOrNil(ctx, r.UserID)
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// UpsertWelcomeVote stores or replaces the user's mood rating.
func (s *Store) UpsertWelcomeVote(ctx context.Context, v *types.WelcomeVote) (*types.WelcomeVote, error) {
	var out *types.WelcomeVote
	err := s.write(func(db *sql.DB) error {
		row, err := upsertRating(ctx, db, "welcome_votes", v.ID, v.SessionID, v.UserID, v.Rating, v.CreatedAt)
		if err != nil {
			return err
		}
		var stored types.WelcomeVote
		if err := row.Scan(&stored.ID, &stored.SessionID, &stored.UserID, &stored.Rating, &stored.CreatedAt); err != nil {
			return fmt.Errorf("reading welcome vote: %w", err)
		}
		stored.User = s.userOrNil(ctx, stored.UserID)
		out = &stored
		return nil
	})
	return out, err
}

// UpsertROTIVote stores or replaces the user's return-on-time-invested rating.
func (s *Store) UpsertROTIVote(ctx context.Context, v *types.ROTIVote) (*types.ROTIVote, error) {
	var out *types.ROTIVote
	err := s.write(func(db *sql.DB) error {
		row, err := upsertRating(ctx, db, "roti_votes", v.ID, v.SessionID, v.UserID, v.Rating, v.CreatedAt)
		if err != nil {
			return err
		}
		var stored types.ROTIVote
		if err := row.Scan(&stored.ID, &stored.SessionID, &stored.UserID, &stored.Rating, &stored.CreatedAt); err != nil {
			return fmt.Errorf("reading roti vote: %w", err)
		}
		stored.User = s.userOrNil(ctx, stored.UserID)
		out = &stored
		return nil
	})
	return out, err
}

// upsertRating is shared by both rating tables, which have identical shapes.
func upsertRating(ctx context.Context, db *sql.DB, table, id, sessionID, userID string, rating int, createdAt time.Time) (*sql.Row, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO `+table+` (id, session_id, user_id, rating, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, user_id) DO UPDATE SET rating = excluded.rating`,
		id, sessionID, userID, rating, createdAt)
	if err != nil {
		return nil, fmt.Errorf("upserting into %s: %w", table, err)
	}
	return db.QueryRowContext(ctx, `
		SELECT id, session_id, user_id, rating, created_at
		FROM `+table+` WHERE session_id = ? AND user_id = ?`, sessionID, userID), nil
}

// ListWelcomeVotes returns the session's mood ratings with users joined.
func (s *Store) ListWelcomeVotes(ctx context.Context, sessionID string) ([]types.WelcomeVote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, rating, created_at
		FROM welcome_votes WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying welcome votes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var votes []types.WelcomeVote
	for rows.Next() {
		var v types.WelcomeVote
		if err := rows.Scan(&v.ID, &v.SessionID, &v.UserID, &v.Rating, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning welcome vote: %w", err)
		}
		v.User = s.userOrNil(ctx, v.UserID)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// ListROTIVotes returns the session's closing ratings with users joined.
func (s *Store) ListROTIVotes(ctx context.Context, sessionID string) ([]types.ROTIVote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, rating, created_at
		FROM roti_votes WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying roti votes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var votes []types.ROTIVote
	for rows.Next() {
		var v types.ROTIVote
		if err := rows.Scan(&v.ID, &v.SessionID, &v.UserID, &v.Rating, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning roti vote: %w", err)
		}
		v.User = s.userOrNil(ctx, v.UserID)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}
