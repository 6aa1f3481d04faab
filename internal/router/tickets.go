package router

import (
	"context"
	"time"

	"github.com/google/uuid"

	"retrosync/internal/hub"
	"retrosync/pkg/types"
)

// handleCreateTicket inserts the ticket and broadcasts it fully joined.
// When the payload leaves reveal unset, the session's revealImmediately
// option decides.
func (r *Router) handleCreateTicket(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.CreateTicketPayload](cmd)
	if err != nil {
		return err
	}

	revealed := false
	if payload.IsRevealed != nil {
		revealed = *payload.IsRevealed
	} else {
		sess, err := r.store.GetSession(ctx, payload.SessionID)
		if err != nil {
			return err
		}
		revealed = sess.Config.RevealImmediately
	}

	now := time.Now().UTC()
	ticket, err := r.store.CreateTicket(ctx, &types.Ticket{
		ID:         uuid.NewString(),
		SessionID:  payload.SessionID,
		ColumnID:   payload.ColumnID,
		AuthorID:   payload.AuthorID,
		Content:    payload.Content,
		Color:      payload.Color,
		IsRevealed: revealed,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventTicketCreated, ticket)
	return nil
}

func (r *Router) handleUpdateTicket(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.UpdateTicketPayload](cmd)
	if err != nil {
		return err
	}

	ticket, err := r.store.UpdateTicket(ctx, payload.TicketID, payload.Updates)
	if err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventTicketUpdated, ticket)
	return nil
}

func (r *Router) handleDeleteTicket(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.DeleteTicketPayload](cmd)
	if err != nil {
		return err
	}

	if err := r.store.DeleteTicket(ctx, payload.TicketID); err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventTicketDeleted, types.TicketDeletedPayload{
		TicketID: payload.TicketID,
	})
	return nil
}

// handleRevealTickets flips every ticket in the session to revealed. The
// broadcast carries no payload; each client flips its local tickets.
func (r *Router) handleRevealTickets(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.RevealTicketsPayload](cmd)
	if err != nil {
		return err
	}

	if _, err := r.store.RevealTickets(ctx, payload.SessionID); err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventTicketsRevealed, struct{}{})
	return nil
}

func (r *Router) handleCreateComment(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.CreateCommentPayload](cmd)
	if err != nil {
		return err
	}

	comment, err := r.store.CreateComment(ctx, &types.Comment{
		ID:        uuid.NewString(),
		TicketID:  payload.TicketID,
		AuthorID:  payload.AuthorID,
		Content:   payload.Content,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventCommentCreated, comment)
	return nil
}

func (r *Router) handleAddReaction(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.AddReactionPayload](cmd)
	if err != nil {
		return err
	}

	reaction, err := r.store.AddReaction(ctx, payload.TicketID, payload.Emoji)
	if err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventReactionAdded, reaction)
	return nil
}
