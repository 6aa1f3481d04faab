package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"retrosync/pkg/types"
)

// CreateGroup inserts a group at the end of the session's group list. As
// with tickets, the position subselect plus the writer loop keeps
// concurrent creations on distinct positions.
func (s *Store) CreateGroup(ctx context.Context, g *types.Group) (*types.Group, error) {
	var out *types.Group
	err := s.write(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO ticket_groups (id, session_id, title, position, created_at)
			VALUES (?, ?, ?,
				(SELECT COUNT(*) FROM ticket_groups WHERE session_id = ?),
				?)`,
			g.ID, g.SessionID, sql.NullString{String: g.Title, Valid: g.Title != ""},
			g.SessionID, g.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting group: %w", err)
		}
		out, err = s.GetGroup(ctx, g.ID)
		return err
	})
	return out, err
}

// GetGroup returns the group with its member tickets joined.
func (s *Store) GetGroup(ctx context.Context, id string) (*types.Group, error) {
	var g types.Group
	var title sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, title, position, created_at
		FROM ticket_groups WHERE id = ?`, id).
		Scan(&g.ID, &g.SessionID, &title, &g.Position, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning group: %w", err)
	}
	g.Title = title.String
	if g.Tickets, err = s.listTicketsInGroup(ctx, g.ID); err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGroups returns the session's groups with tickets, ordered by position.
func (s *Store) ListGroups(ctx context.Context, sessionID string) ([]types.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, title, position, created_at
		FROM ticket_groups WHERE session_id = ? ORDER BY position ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var groups []types.Group
	for rows.Next() {
		var g types.Group
		var title sql.NullString
		if err := rows.Scan(&g.ID, &g.SessionID, &title, &g.Position, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		g.Title = title.String
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		if groups[i].Tickets, err = s.listTicketsInGroup(ctx, groups[i].ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// AssignTicketsToGroup sets the group on each ticket and returns the
// updated group with its full member list.
func (s *Store) AssignTicketsToGroup(ctx context.Context, groupID string, ticketIDs []string) (*types.Group, error) {
	var out *types.Group
	err := s.write(func(db *sql.DB) error {
		now := time.Now().UTC()
		for _, ticketID := range ticketIDs {
			_, err := db.ExecContext(ctx,
				`UPDATE tickets SET group_id = ?, updated_at = ? WHERE id = ?`,
				groupID, now, ticketID)
			if err != nil {
				return fmt.Errorf("grouping ticket %s: %w", ticketID, err)
			}
		}
		var err error
		out, err = s.GetGroup(ctx, groupID)
		return err
	})
	return out, err
}
