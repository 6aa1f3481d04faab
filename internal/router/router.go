// Package router maps inbound events to store mutations and broadcasts.
// Handlers are fire-and-forget: a failed command is logged and dropped,
// never echoed back, so one client's bad payload cannot disturb the room.
package router

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"retrosync/internal/hub"
	"retrosync/internal/store"
	"retrosync/internal/timer"
	"retrosync/internal/ws"
	"retrosync/pkg/types"
)

// Per-connection command budget. Bursty UIs (drag-grouping several
// tickets) stay under the burst; runaway clients get clipped.
const (
	commandsPerSecond = 20
	commandBurst      = 40
)

type Router struct {
	store       *store.Store
	registry    *ws.Registry
	broadcaster *ws.Broadcaster
	timers      *timer.Engine
	log         zerolog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(st *store.Store, registry *ws.Registry, broadcaster *ws.Broadcaster, timers *timer.Engine, logger zerolog.Logger) *Router {
	return &Router{
		store:       st,
		registry:    registry,
		broadcaster: broadcaster,
		timers:      timers,
		log:         logger.With().Str("component", "router").Logger(),
		limiters:    make(map[string]*rate.Limiter),
	}
}

// Dispatch routes one command to its handler.
func (r *Router) Dispatch(ctx context.Context, cmd *hub.Command) {
	if !r.allow(cmd.Conn.ID()) {
		r.log.Warn().
			Str("connection_id", cmd.Conn.ID()).
			Str("event", cmd.Event.Name).
			Msg("rate limit exceeded, command dropped")
		return
	}

	var err error
	switch cmd.Event.Name {
	case types.EventJoinSession:
		err = r.handleJoinSession(ctx, cmd)
	case types.EventLeaveSession:
		err = r.handleLeaveSession(ctx, cmd)
	case types.EventChangePhase:
		err = r.handleChangePhase(ctx, cmd)
	case types.EventParticipantReady:
		err = r.handleParticipantReady(ctx, cmd)
	case types.EventCreateTicket:
		err = r.handleCreateTicket(ctx, cmd)
	case types.EventUpdateTicket:
		err = r.handleUpdateTicket(ctx, cmd)
	case types.EventDeleteTicket:
		err = r.handleDeleteTicket(ctx, cmd)
	case types.EventRevealTickets:
		err = r.handleRevealTickets(ctx, cmd)
	case types.EventCreateComment:
		err = r.handleCreateComment(ctx, cmd)
	case types.EventAddReaction:
		err = r.handleAddReaction(ctx, cmd)
	case types.EventCreateGroup:
		err = r.handleCreateGroup(ctx, cmd)
	case types.EventGroupTickets:
		err = r.handleGroupTickets(ctx, cmd)
	case types.EventCastVote:
		err = r.handleCastVote(ctx, cmd)
	case types.EventCreateAction:
		err = r.handleCreateAction(ctx, cmd)
	case types.EventUpdateAction:
		err = r.handleUpdateAction(ctx, cmd)
	case types.EventStartTimer:
		err = r.handleStartTimer(ctx, cmd)
	case types.EventStopTimer:
		err = r.handleStopTimer(ctx, cmd)
	case types.EventSubmitIcebreaker:
		err = r.handleSubmitIcebreaker(ctx, cmd)
	case types.EventSubmitWelcomeVote:
		err = r.handleSubmitWelcomeVote(ctx, cmd)
	case types.EventSubmitROTIVote:
		err = r.handleSubmitROTIVote(ctx, cmd)
	case types.EventUpdateConfig:
		err = r.handleUpdateConfig(ctx, cmd)
	default:
		r.log.Warn().
			Str("event", cmd.Event.Name).
			Str("connection_id", cmd.Conn.ID()).
			Msg("unknown event dropped")
		return
	}

	if err != nil {
		r.log.Error().
			Err(err).
			Str("event", cmd.Event.Name).
			Str("connection_id", cmd.Conn.ID()).
			Msg("command failed")
	}
}

func (r *Router) allow(connID string) bool {
	r.mu.Lock()
	limiter, ok := r.limiters[connID]
	if !ok {
		limiter = rate.NewLimiter(commandsPerSecond, commandBurst)
		r.limiters[connID] = limiter
	}
	r.mu.Unlock()
	return limiter.Allow()
}

// Forget drops a connection's rate limiter after disconnect.
func (r *Router) Forget(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.limiters, connID)
}

// decode unmarshals and validates the command payload in one step.
func decode[T interface{ Validate() error }](cmd *hub.Command) (T, error) {
	var payload T
	if err := json.Unmarshal(cmd.Event.Data, &payload); err != nil {
		return payload, err
	}
	if err := payload.Validate(); err != nil {
		return payload, err
	}
	return payload, nil
}
