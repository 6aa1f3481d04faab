package router

import (
	"context"
	"time"

	"github.com/google/uuid"

	"retrosync/internal/hub"
	"retrosync/pkg/types"
)

func (r *Router) handleCreateGroup(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.CreateGroupPayload](cmd)
	if err != nil {
		return err
	}

	group, err := r.store.CreateGroup(ctx, &types.Group{
		ID:        uuid.NewString(),
		SessionID: payload.SessionID,
		Title:     payload.Title,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventGroupCreated, group)
	return nil
}

// handleGroupTickets assigns the listed tickets to a group and broadcasts
// the group with its updated membership.
func (r *Router) handleGroupTickets(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.GroupTicketsPayload](cmd)
	if err != nil {
		return err
	}

	group, err := r.store.AssignTicketsToGroup(ctx, payload.GroupID, payload.TicketIDs)
	if err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventTicketGrouped, group)
	return nil
}
