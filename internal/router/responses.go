package router

import (
	"context"
	"time"

	"github.com/google/uuid"

	"retrosync/internal/hub"
	"retrosync/pkg/types"
)

// The warm-up and closing submissions are per-user singletons: resending
// replaces the previous value and the replacement is what gets broadcast.

func (r *Router) handleSubmitIcebreaker(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.SubmitIcebreakerPayload](cmd)
	if err != nil {
		return err
	}

	response, err := r.store.UpsertIcebreakerResponse(ctx, &types.IcebreakerResponse{
		ID:        uuid.NewString(),
		SessionID: payload.SessionID,
		UserID:    payload.UserID,
		Response:  payload.Response,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventIcebreakerResponse, response)
	return nil
}

func (r *Router) handleSubmitWelcomeVote(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.SubmitRatingPayload](cmd)
	if err != nil {
		return err
	}

	vote, err := r.store.UpsertWelcomeVote(ctx, &types.WelcomeVote{
		ID:        uuid.NewString(),
		SessionID: payload.SessionID,
		UserID:    payload.UserID,
		Rating:    payload.Rating,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventWelcomeVote, vote)
	return nil
}

func (r *Router) handleSubmitROTIVote(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.SubmitRatingPayload](cmd)
	if err != nil {
		return err
	}

	vote, err := r.store.UpsertROTIVote(ctx, &types.ROTIVote{
		ID:        uuid.NewString(),
		SessionID: payload.SessionID,
		UserID:    payload.UserID,
		Rating:    payload.Rating,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventROTIVote, vote)
	return nil
}
