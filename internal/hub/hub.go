// Package hub funnels every inbound event through one dispatch loop. The
// loop itself stays cheap: each command is handed to the router on its
// own goroutine so a slow database write never stalls intake.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"retrosync/internal/ws"
	"retrosync/pkg/types"
)

// Command is one inbound event together with its origin connection.
type Command struct {
	Event      types.Event
	Conn       *ws.Connection
	ReceivedAt time.Time
}

// Router dispatches a single command. Implemented by the action router;
// declared here so the hub does not depend on handler wiring. Forget is
// called after disconnect so per-connection state can be released.
type Router interface {
	Dispatch(ctx context.Context, cmd *Command)
	Forget(connID string)
}

// Announcer broadcasts departure notices when a connection drops.
type Announcer interface {
	Broadcast(sessionID, event string, payload any)
}

type Hub struct {
	router    Router
	registry  *ws.Registry
	announcer Announcer
	log       zerolog.Logger

	commandCh    chan *Command
	disconnectCh chan *ws.Connection
	shutdown     chan struct{}
	wg           sync.WaitGroup
	stopOnce     sync.Once
}

func New(router Router, registry *ws.Registry, announcer Announcer, logger zerolog.Logger) *Hub {
	return &Hub{
		router:       router,
		registry:     registry,
		announcer:    announcer,
		log:          logger.With().Str("component", "hub").Logger(),
		commandCh:    make(chan *Command, 256),
		disconnectCh: make(chan *ws.Connection, 64),
		shutdown:     make(chan struct{}),
	}
}

// Start launches the dispatch loop.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.run()
}

// Stop drains the loop and waits for in-flight dispatches.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.shutdown)
	})
	h.wg.Wait()
}

// Submit queues an inbound event. Non-blocking: when the hub is
// saturated the event is dropped and logged rather than backing up the
// connection's read loop.
func (h *Hub) Submit(conn *ws.Connection, event types.Event) {
	cmd := &Command{Event: event, Conn: conn, ReceivedAt: time.Now()}
	select {
	case h.commandCh <- cmd:
	case <-h.shutdown:
	default:
		h.log.Warn().
			Str("event", event.Name).
			Str("connection_id", conn.ID()).
			Msg("command queue full, event dropped")
	}
}

// Disconnect queues cleanup for a dropped connection.
func (h *Hub) Disconnect(conn *ws.Connection) {
	select {
	case h.disconnectCh <- conn:
	case <-h.shutdown:
	}
}

func (h *Hub) run() {
	defer h.wg.Done()

	for {
		select {
		case cmd := <-h.commandCh:
			h.wg.Add(1)
			go func() {
				defer h.wg.Done()
				h.router.Dispatch(context.Background(), cmd)
			}()
		case conn := <-h.disconnectCh:
			h.handleDisconnect(conn)
		case <-h.shutdown:
			return
		}
	}
}

// handleDisconnect removes the connection from every session it joined
// and announces the departure to each.
func (h *Hub) handleDisconnect(conn *ws.Connection) {
	sessions := h.registry.LeaveAll(conn)
	h.router.Forget(conn.ID())
	payload := types.UserLeftPayload{UserID: conn.UserID(), ConnectionID: conn.ID()}
	for _, sessionID := range sessions {
		h.announcer.Broadcast(sessionID, types.EventUserLeft, payload)
	}
	if len(sessions) > 0 {
		h.log.Debug().
			Str("connection_id", conn.ID()).
			Int("sessions", len(sessions)).
			Msg("connection left all sessions")
	}
}
