package router

import (
	"context"
	"time"

	"github.com/google/uuid"

	"retrosync/internal/hub"
	"retrosync/pkg/types"
)

// handleCastVote records a vote against exactly one of a ticket or a
// group. No per-user cap is enforced here; maxVotes is advisory and lives
// in the session config for clients to apply.
func (r *Router) handleCastVote(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.CastVotePayload](cmd)
	if err != nil {
		return err
	}

	vote, err := r.store.CreateVote(ctx, &types.Vote{
		ID:        uuid.NewString(),
		SessionID: payload.SessionID,
		UserID:    payload.UserID,
		TicketID:  payload.TicketID,
		GroupID:   payload.GroupID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventVoteCast, vote)
	return nil
}
