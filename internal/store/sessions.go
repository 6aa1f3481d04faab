package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"retrosync/pkg/types"
)

// CreateSession inserts the session, its columns, and the facilitator
// participant in one transaction, so a half-created session never exists.
func (s *Store) CreateSession(ctx context.Context, sess *types.Session, columns []types.Column, facilitator *types.Participant) error {
	return s.write(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		configJSON, err := json.Marshal(sess.Config)
		if err != nil {
			return fmt.Errorf("marshalling config: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO sessions (id, title, description, template, is_anonymous, invite_code,
				current_phase, created_by, config, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, sess.Title, sql.NullString{String: sess.Description, Valid: sess.Description != ""},
			string(sess.Template), sess.IsAnonymous, sess.InviteCode,
			string(sess.CurrentPhase), sess.CreatedByID, string(configJSON), sess.CreatedAt, sess.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting session: %w", err)
		}

		for _, col := range columns {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO columns (id, session_id, title, color, position, created_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				col.ID, col.SessionID, col.Title, col.Color, col.Position, col.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("inserting column %q: %w", col.Title, err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO participants (id, session_id, user_id, role, is_ready, joined_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			facilitator.ID, facilitator.SessionID, facilitator.UserID, facilitator.Role,
			facilitator.IsReady, facilitator.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting facilitator: %w", err)
		}

		return tx.Commit()
	})
}

const sessionColumns = `id, title, description, template, is_anonymous, invite_code,
	current_phase, created_by, config, created_at, updated_at`

func scanSession(row rowScanner) (*types.Session, error) {
	var sess types.Session
	var description sql.NullString
	var template, phase, configJSON string
	err := row.Scan(&sess.ID, &sess.Title, &description, &template, &sess.IsAnonymous,
		&sess.InviteCode, &phase, &sess.CreatedByID, &configJSON, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	sess.Description = description.String
	sess.Template = types.Template(template)
	sess.CurrentPhase = types.Phase(phase)
	if err := json.Unmarshal([]byte(configJSON), &sess.Config); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &sess, nil
}

// GetSession returns the bare session row without joined collections.
func (s *Store) GetSession(ctx context.Context, id string) (*types.Session, error) {
	return scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
}

// GetSessionByInviteCode resolves a session from its human-entered code.
func (s *Store) GetSessionByInviteCode(ctx context.Context, code string) (*types.Session, error) {
	return scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE invite_code = ?`, code))
}

// InviteCodeExists reports whether a code is already taken.
func (s *Store) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE invite_code = ?`, code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("counting invite codes: %w", err)
	}
	return n > 0, nil
}

// UpdatePhase persists the requested phase verbatim.
func (s *Store) UpdatePhase(ctx context.Context, sessionID string, phase types.Phase) error {
	return s.write(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE sessions SET current_phase = ?, updated_at = ? WHERE id = ?`,
			string(phase), time.Now().UTC(), sessionID)
		if err != nil {
			return fmt.Errorf("updating phase: %w", err)
		}
		return requireRow(res)
	})
}

// UpdateConfig replaces the session's structured options wholesale.
func (s *Store) UpdateConfig(ctx context.Context, sessionID string, cfg types.SessionConfig) error {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	return s.write(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE sessions SET config = ?, updated_at = ? WHERE id = ?`,
			string(configJSON), time.Now().UTC(), sessionID)
		if err != nil {
			return fmt.Errorf("updating config: %w", err)
		}
		return requireRow(res)
	})
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListColumns returns the session's columns ordered by position.
func (s *Store) ListColumns(ctx context.Context, sessionID string) ([]types.Column, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, title, color, position, created_at
		FROM columns WHERE session_id = ? ORDER BY position ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []types.Column
	for rows.Next() {
		var col types.Column
		if err := rows.Scan(&col.ID, &col.SessionID, &col.Title, &col.Color, &col.Position, &col.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// AddParticipant joins a user to a session. Idempotent: when the
// (session, user) pair already exists the stored record is returned
// unchanged, matching the join contract.
func (s *Store) AddParticipant(ctx context.Context, p *types.Participant) (*types.Participant, error) {
	var out *types.Participant
	err := s.write(func(db *sql.DB) error {
		existing, err := s.getParticipant(ctx, p.SessionID, p.UserID)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		_, err = db.ExecContext(ctx, `
			INSERT INTO participants (id, session_id, user_id, role, is_ready, joined_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.SessionID, p.UserID, p.Role, p.IsReady, p.JoinedAt)
		if err != nil {
			return fmt.Errorf("inserting participant: %w", err)
		}
		out, err = s.getParticipant(ctx, p.SessionID, p.UserID)
		return err
	})
	return out, err
}

func (s *Store) getParticipant(ctx context.Context, sessionID, userID string) (*types.Participant, error) {
	var p types.Participant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, user_id, role, is_ready, joined_at
		FROM participants WHERE session_id = ? AND user_id = ?`, sessionID, userID).
		Scan(&p.ID, &p.SessionID, &p.UserID, &p.Role, &p.IsReady, &p.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning participant: %w", err)
	}
	p.User = s.userOrNil(ctx, p.UserID)
	return &p, nil
}

// SetParticipantReady flips the ready flag for a session member.
func (s *Store) SetParticipantReady(ctx context.Context, sessionID, userID string, ready bool) error {
	return s.write(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE participants SET is_ready = ? WHERE session_id = ? AND user_id = ?`,
			ready, sessionID, userID)
		if err != nil {
			return fmt.Errorf("updating ready flag: %w", err)
		}
		return requireRow(res)
	})
}

// ListParticipants returns the session's members with their users joined.
func (s *Store) ListParticipants(ctx context.Context, sessionID string) ([]types.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, role, is_ready, joined_at
		FROM participants WHERE session_id = ? ORDER BY joined_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying participants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var participants []types.Participant
	for rows.Next() {
		var p types.Participant
		if err := rows.Scan(&p.ID, &p.SessionID, &p.UserID, &p.Role, &p.IsReady, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		p.User = s.userOrNil(ctx, p.UserID)
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// Snapshot assembles the fully joined session state served on page load.
func (s *Store) Snapshot(ctx context.Context, sessionID string) (*types.SessionSnapshot, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	snap := &types.SessionSnapshot{Session: *sess}

	if snap.Columns, err = s.ListColumns(ctx, sessionID); err != nil {
		return nil, err
	}
	if snap.Participants, err = s.ListParticipants(ctx, sessionID); err != nil {
		return nil, err
	}
	if snap.Tickets, err = s.ListTickets(ctx, sessionID); err != nil {
		return nil, err
	}
	if snap.Groups, err = s.ListGroups(ctx, sessionID); err != nil {
		return nil, err
	}
	if snap.Votes, err = s.ListVotes(ctx, sessionID); err != nil {
		return nil, err
	}
	if snap.Actions, err = s.ListActions(ctx, sessionID); err != nil {
		return nil, err
	}
	if snap.ActionItems, err = s.ListActionItems(ctx, sessionID); err != nil {
		return nil, err
	}
	if snap.Icebreakers, err = s.ListIcebreakerResponses(ctx, sessionID); err != nil {
		return nil, err
	}
	if snap.WelcomeVotes, err = s.ListWelcomeVotes(ctx, sessionID); err != nil {
		return nil, err
	}
	if snap.ROTIVotes, err = s.ListROTIVotes(ctx, sessionID); err != nil {
		return nil, err
	}

	timer, err := s.GetTimer(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	snap.Timer = timer

	return snap, nil
}
