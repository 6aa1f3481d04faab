package router

import (
	"context"

	"retrosync/internal/hub"
	"retrosync/pkg/types"
)

// Timer commands delegate to the engine, which owns the countdown loops
// and their broadcasts.

func (r *Router) handleStartTimer(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.StartTimerPayload](cmd)
	if err != nil {
		return err
	}
	_, err = r.timers.Start(ctx, payload.SessionID, payload.Duration)
	return err
}

func (r *Router) handleStopTimer(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.StopTimerPayload](cmd)
	if err != nil {
		return err
	}
	return r.timers.Stop(ctx, payload.SessionID)
}
