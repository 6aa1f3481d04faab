package store

import (
	"context"
	"database/sql"
	"fmt"

	"retrosync/pkg/types"
)

// CreateVote records a vote against exactly one of a ticket or a group.
// The exactly-one rule is validated upstream and backed by a CHECK
// constraint; no per-user cap is enforced server-side.
func (s *Store) CreateVote(ctx context.Context, v *types.Vote) (*types.Vote, error) {
	var out *types.Vote
	err := s.write(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO votes (id, session_id, user_id, ticket_id, group_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			v.ID, v.SessionID, v.UserID, nullStr(v.TicketID), nullStr(v.GroupID), v.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting vote: %w", err)
		}
		vv := *v
		vv.User = s.userOrNil(ctx, v.UserID)
		out = &vv
		return nil
	})
	return out, err
}

// ListVotes returns the session's votes with voters joined, oldest first.
func (s *Store) ListVotes(ctx context.Context, sessionID string) ([]types.Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, ticket_id, group_id, created_at
		FROM votes WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying votes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var votes []types.Vote
	for rows.Next() {
		var v types.Vote
		var ticketID, groupID sql.NullString
		if err := rows.Scan(&v.ID, &v.SessionID, &v.UserID, &ticketID, &groupID, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning vote: %w", err)
		}
		v.TicketID = strPtr(ticketID)
		v.GroupID = strPtr(groupID)
		v.User = s.userOrNil(ctx, v.UserID)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}
