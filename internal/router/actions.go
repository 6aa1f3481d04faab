package router

import (
	"context"
	"time"

	"github.com/google/uuid"

	"retrosync/internal/hub"
	"retrosync/pkg/types"
)

func (r *Router) handleCreateAction(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.CreateActionPayload](cmd)
	if err != nil {
		return err
	}

	status := payload.Status
	if status == "" {
		status = types.ActionStatusProposed
	}

	now := time.Now().UTC()
	action, err := r.store.CreateAction(ctx, &types.Action{
		ID:          uuid.NewString(),
		SessionID:   payload.SessionID,
		TicketID:    payload.TicketID,
		Title:       payload.Title,
		Description: payload.Description,
		AssigneeID:  payload.AssigneeID,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventActionCreated, action)
	return nil
}

func (r *Router) handleUpdateAction(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.UpdateActionPayload](cmd)
	if err != nil {
		return err
	}

	action, err := r.store.UpdateAction(ctx, payload.ActionID, payload.Updates)
	if err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventActionUpdated, action)
	return nil
}
