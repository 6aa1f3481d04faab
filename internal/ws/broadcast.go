package ws

import (
	"github.com/rs/zerolog"
)

// Broadcaster fans events out to a session's connections. Delivery is
// fire-and-forget: a failed write is logged and the loop moves on, so one
// bad socket never blocks the rest of the room.
type Broadcaster struct {
	registry *Registry
	log      zerolog.Logger
}

func NewBroadcaster(registry *Registry, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		log:      logger.With().Str("component", "broadcast").Logger(),
	}
}

// Broadcast sends the event to every connection in the session,
// including the one that triggered it.
func (b *Broadcaster) Broadcast(sessionID, event string, payload any) {
	for _, conn := range b.registry.Connections(sessionID) {
		if err := conn.WriteEvent(event, payload); err != nil {
			b.log.Warn().
				Err(err).
				Str("session_id", sessionID).
				Str("connection_id", conn.ID()).
				Str("event", event).
				Msg("broadcast delivery failed")
		}
	}
}

// BroadcastOthers sends the event to everyone in the session except the
// originating connection.
func (b *Broadcaster) BroadcastOthers(sessionID, originID, event string, payload any) {
	for _, conn := range b.registry.Connections(sessionID) {
		if conn.ID() == originID {
			continue
		}
		if err := conn.WriteEvent(event, payload); err != nil {
			b.log.Warn().
				Err(err).
				Str("session_id", sessionID).
				Str("connection_id", conn.ID()).
				Str("event", event).
				Msg("broadcast delivery failed")
		}
	}
}
