package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"retrosync/pkg/types"
)

// CreateTicket inserts a ticket at the end of its column. The position is
// computed inside the INSERT from the column's current ticket count, and
// the writer loop serializes inserts, so two concurrent submissions to the
// same column always land on distinct positions.
func (s *Store) CreateTicket(ctx context.Context, t *types.Ticket) (*types.Ticket, error) {
	var out *types.Ticket
	err := s.write(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO tickets (id, session_id, column_id, author_id, content, color,
				is_revealed, position, group_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?,
				(SELECT COUNT(*) FROM tickets WHERE column_id = ?),
				?, ?, ?)`,
			t.ID, t.SessionID, t.ColumnID, t.AuthorID, t.Content,
			sql.NullString{String: t.Color, Valid: t.Color != ""},
			t.IsRevealed, t.ColumnID, nullStr(t.GroupID), t.CreatedAt, t.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting ticket: %w", err)
		}
		out, err = s.GetTicket(ctx, t.ID)
		return err
	})
	return out, err
}

const ticketColumns = `id, session_id, column_id, author_id, content, color,
	is_revealed, position, group_id, created_at, updated_at`

func scanTicket(row rowScanner) (*types.Ticket, error) {
	var t types.Ticket
	var color, groupID sql.NullString
	err := row.Scan(&t.ID, &t.SessionID, &t.ColumnID, &t.AuthorID, &t.Content,
		&color, &t.IsRevealed, &t.Position, &groupID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning ticket: %w", err)
	}
	t.Color = color.String
	t.GroupID = strPtr(groupID)
	return &t, nil
}

// GetTicket returns the ticket with its author, column, comments, and
// reactions joined, ready to broadcast as-is.
func (s *Store) GetTicket(ctx context.Context, id string) (*types.Ticket, error) {
	t, err := scanTicket(s.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := s.joinTicket(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) joinTicket(ctx context.Context, t *types.Ticket) error {
	t.Author = s.userOrNil(ctx, t.AuthorID)

	var col types.Column
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, title, color, position, created_at
		FROM columns WHERE id = ?`, t.ColumnID).
		Scan(&col.ID, &col.SessionID, &col.Title, &col.Color, &col.Position, &col.CreatedAt)
	if err == nil {
		t.Column = &col
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("scanning ticket column: %w", err)
	}

	if t.Comments, err = s.listComments(ctx, t.ID); err != nil {
		return err
	}
	if t.Reactions, err = s.listReactions(ctx, t.ID); err != nil {
		return err
	}
	return nil
}

// ListTickets returns every ticket in the session, joined, ordered by
// column position then ticket position.
func (s *Store) ListTickets(ctx context.Context, sessionID string) ([]types.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.session_id, t.column_id, t.author_id, t.content, t.color,
			t.is_revealed, t.position, t.group_id, t.created_at, t.updated_at
		FROM tickets t
		JOIN columns c ON c.id = t.column_id
		WHERE t.session_id = ?
		ORDER BY c.position ASC, t.position ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying tickets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tickets []types.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tickets {
		if err := s.joinTicket(ctx, &tickets[i]); err != nil {
			return nil, err
		}
	}
	return tickets, nil
}

// listTicketsInGroup returns the group's tickets ordered by position.
func (s *Store) listTicketsInGroup(ctx context.Context, groupID string) ([]types.Ticket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE group_id = ? ORDER BY position ASC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying group tickets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tickets []types.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range tickets {
		if err := s.joinTicket(ctx, &tickets[i]); err != nil {
			return nil, err
		}
	}
	return tickets, nil
}

// UpdateTicket applies the non-nil fields and returns the joined result.
func (s *Store) UpdateTicket(ctx context.Context, id string, updates types.TicketUpdates) (*types.Ticket, error) {
	var out *types.Ticket
	err := s.write(func(db *sql.DB) error {
		current, err := scanTicket(db.QueryRowContext(ctx,
			`SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id))
		if err != nil {
			return err
		}

		if updates.Content != nil {
			current.Content = *updates.Content
		}
		if updates.Color != nil {
			current.Color = *updates.Color
		}
		if updates.IsRevealed != nil {
			current.IsRevealed = *updates.IsRevealed
		}
		if updates.ColumnID != nil {
			current.ColumnID = *updates.ColumnID
		}
		if updates.GroupID != nil {
			current.GroupID = updates.GroupID
		}

		_, err = db.ExecContext(ctx, `
			UPDATE tickets SET content = ?, color = ?, is_revealed = ?, column_id = ?,
				group_id = ?, updated_at = ?
			WHERE id = ?`,
			current.Content, sql.NullString{String: current.Color, Valid: current.Color != ""},
			current.IsRevealed, current.ColumnID, nullStr(current.GroupID),
			time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("updating ticket: %w", err)
		}
		out, err = s.GetTicket(ctx, id)
		return err
	})
	return out, err
}

// DeleteTicket removes the ticket; comments and reactions cascade.
func (s *Store) DeleteTicket(ctx context.Context, id string) error {
	return s.write(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting ticket: %w", err)
		}
		return requireRow(res)
	})
}

// RevealTickets marks every ticket in the session revealed and returns the
// full joined list.
func (s *Store) RevealTickets(ctx context.Context, sessionID string) ([]types.Ticket, error) {
	var out []types.Ticket
	err := s.write(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`UPDATE tickets SET is_revealed = 1, updated_at = ? WHERE session_id = ?`,
			time.Now().UTC(), sessionID)
		if err != nil {
			return fmt.Errorf("revealing tickets: %w", err)
		}
		out, err = s.ListTickets(ctx, sessionID)
		return err
	})
	return out, err
}

// CreateComment appends a comment to a ticket and returns it with the
// author joined.
func (s *Store) CreateComment(ctx context.Context, c *types.Comment) (*types.Comment, error) {
	var out *types.Comment
	err := s.write(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO comments (id, ticket_id, author_id, content, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.TicketID, c.AuthorID, c.Content, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting comment: %w", err)
		}
		cc := *c
		cc.Author = s.userOrNil(ctx, c.AuthorID)
		out = &cc
		return nil
	})
	return out, err
}

func (s *Store) listComments(ctx context.Context, ticketID string) ([]types.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticket_id, author_id, content, created_at
		FROM comments WHERE ticket_id = ? ORDER BY created_at ASC`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []types.Comment
	for rows.Next() {
		var c types.Comment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		c.Author = s.userOrNil(ctx, c.AuthorID)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// AddReaction increments the (ticket, emoji) counter, creating the row at
// count 1 on first use. The upsert runs as one statement on the writer
// loop, so concurrent reactions to the same emoji never lose increments.
func (s *Store) AddReaction(ctx context.Context, ticketID, emoji string) (*types.Reaction, error) {
	var out *types.Reaction
	err := s.write(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO reactions (id, ticket_id, emoji, count, created_at)
			VALUES (?, ?, ?, 1, ?)
			ON CONFLICT(ticket_id, emoji) DO UPDATE SET count = count + 1`,
			uuid.NewString(), ticketID, emoji, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("upserting reaction: %w", err)
		}

		var r types.Reaction
		err = db.QueryRowContext(ctx, `
			SELECT id, ticket_id, emoji, count, created_at
			FROM reactions WHERE ticket_id = ? AND emoji = ?`, ticketID, emoji).
			Scan(&r.ID, &r.TicketID, &r.Emoji, &r.Count, &r.CreatedAt)
		if err != nil {
			return fmt.Errorf("reading reaction: %w", err)
		}
		out = &r
		return nil
	})
	return out, err
}

func (s *Store) listReactions(ctx context.Context, ticketID string) ([]types.Reaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticket_id, emoji, count, created_at
		FROM reactions WHERE ticket_id = ? ORDER BY created_at ASC`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("querying reactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reactions []types.Reaction
	for rows.Next() {
		var r types.Reaction
		if err := rows.Scan(&r.ID, &r.TicketID, &r.Emoji, &r.Count, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning reaction: %w", err)
		}
		reactions = append(reactions, r)
	}
	return reactions, rows.Err()
}
