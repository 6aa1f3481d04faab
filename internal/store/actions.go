package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"retrosync/pkg/types"
)

const actionColumns = `id, session_id, ticket_id, title, description,
	assignee_id, status, created_at, updated_at`

func scanAction(row rowScanner) (*types.Action, error) {
	var a types.Action
	var ticketID, description, assigneeID sql.NullString
	err := row.Scan(&a.ID, &a.SessionID, &ticketID, &a.Title, &description,
		&assigneeID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning action: %w", err)
	}
	a.TicketID = strPtr(ticketID)
	a.Description = description.String
	a.AssigneeID = strPtr(assigneeID)
	return &a, nil
}

// CreateAction records a proposed follow-up task.
func (s *Store) CreateAction(ctx context.Context, a *types.Action) (*types.Action, error) {
	var out *types.Action
	err := s.write(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO actions (id, session_id, ticket_id, title, description,
				assignee_id, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.SessionID, nullStr(a.TicketID), a.Title,
			sql.NullString{String: a.Description, Valid: a.Description != ""},
			nullStr(a.AssigneeID), a.Status, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting action: %w", err)
		}
		out, err = s.GetAction(ctx, a.ID)
		return err
	})
	return out, err
}

// GetAction returns the action with its assignee joined.
func (s *Store) GetAction(ctx context.Context, id string) (*types.Action, error) {
	a, err := scanAction(s.db.QueryRowContext(ctx,
		`SELECT `+actionColumns+` FROM actions WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if a.AssigneeID != nil {
		a.Assignee = s.userOrNil(ctx, *a.AssigneeID)
	}
	return a, nil
}

// UpdateAction applies the non-nil fields and returns the joined result.
func (s *Store) UpdateAction(ctx context.Context, id string, updates types.ActionUpdates) (*types.Action, error) {
	var out *types.Action
	err := s.write(func(db *sql.DB) error {
		current, err := scanAction(db.QueryRowContext(ctx,
			`SELECT `+actionColumns+` FROM actions WHERE id = ?`, id))
		if err != nil {
			return err
		}

		if updates.Title != nil {
			current.Title = *updates.Title
		}
		if updates.Description != nil {
			current.Description = *updates.Description
		}
		if updates.AssigneeID != nil {
			current.AssigneeID = updates.AssigneeID
		}
		if updates.Status != nil {
			current.Status = *updates.Status
		}

		_, err = db.ExecContext(ctx, `
			UPDATE actions SET title = ?, description = ?, assignee_id = ?, status = ?, updated_at = ?
			WHERE id = ?`,
			current.Title, sql.NullString{String: current.Description, Valid: current.Description != ""},
			nullStr(current.AssigneeID), current.Status, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("updating action: %w", err)
		}
		out, err = s.GetAction(ctx, id)
		return err
	})
	return out, err
}

// ListActions returns the session's actions newest first, assignees joined.
func (s *Store) ListActions(ctx context.Context, sessionID string) ([]types.Action, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+actionColumns+` FROM actions WHERE session_id = ? ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying actions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var actions []types.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		if a.AssigneeID != nil {
			a.Assignee = s.userOrNil(ctx, *a.AssigneeID)
		}
		actions = append(actions, *a)
	}
	return actions, rows.Err()
}

// CreateActionItem records a carried-over action for the review phase.
func (s *Store) CreateActionItem(ctx context.Context, item *types.ActionItem) error {
	return s.write(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO action_items (id, session_id, title, description, assigned_to,
				is_done, from_session_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.SessionID, item.Title,
			sql.NullString{String: item.Description, Valid: item.Description != ""},
			sql.NullString{String: item.AssignedTo, Valid: item.AssignedTo != ""},
			item.IsDone, nullStr(item.FromSessionID), item.CreatedAt, item.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting action item: %w", err)
		}
		return nil
	})
}

// SetActionItemDone flips the completion flag during the review phase.
func (s *Store) SetActionItemDone(ctx context.Context, id string, done bool) error {
	return s.write(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE action_items SET is_done = ?, updated_at = ? WHERE id = ?`,
			done, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("updating action item: %w", err)
		}
		return requireRow(res)
	})
}

// ListActionItems returns the session's carried-over actions oldest first.
func (s *Store) ListActionItems(ctx context.Context, sessionID string) ([]types.ActionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, title, description, assigned_to, is_done,
			from_session_id, created_at, updated_at
		FROM action_items WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying action items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []types.ActionItem
	for rows.Next() {
		var item types.ActionItem
		var description, assignedTo, fromSession sql.NullString
		err := rows.Scan(&item.ID, &item.SessionID, &item.Title, &description,
			&assignedTo, &item.IsDone, &fromSession, &item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning action item: %w", err)
		}
		item.Description = description.String
		item.AssignedTo = assignedTo.String
		item.FromSessionID = strPtr(fromSession)
		items = append(items, item)
	}
	return items, rows.Err()
}
