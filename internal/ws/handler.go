package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"retrosync/internal/config"
	"retrosync/pkg/types"
)

// CommandSink receives parsed events from connection read loops. The hub
// implements it; the indirection keeps the transport free of dispatch
// logic.
type CommandSink interface {
	Submit(conn *Connection, event types.Event)
	Disconnect(conn *Connection)
}

// Handler upgrades HTTP requests and runs the per-connection read loop.
type Handler struct {
	sink     CommandSink
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewHandler(sink CommandSink, cfg config.WebSocketConfig, logger zerolog.Logger) *Handler {
	return &Handler{
		sink: sink,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Session membership is enforced per event, not per origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: logger.With().Str("component", "ws").Logger(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := NewConnection(socket, h.cfg.SendBuffer, h.cfg.WriteTimeout)
	h.log.Debug().Str("connection_id", conn.ID()).Msg("connection opened")

	go h.pingLoop(conn)
	h.readLoop(conn, socket)
}

// pingLoop keeps the connection alive. Read deadlines are refreshed by
// the pong handler in readLoop.
func (h *Handler) pingLoop(conn *Connection) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				return
			}
		case <-conn.Done():
			return
		}
	}
}

func (h *Handler) readLoop(conn *Connection, socket *websocket.Conn) {
	defer func() {
		h.sink.Disconnect(conn)
		_ = conn.Close()
		h.log.Debug().Str("connection_id", conn.ID()).Msg("connection closed")
	}()

	_ = socket.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	for {
		_, data, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Str("connection_id", conn.ID()).Msg("unexpected close")
			}
			return
		}

		var event types.Event
		if err := json.Unmarshal(data, &event); err != nil {
			h.log.Warn().Err(err).Str("connection_id", conn.ID()).Msg("malformed event dropped")
			continue
		}
		if event.Name == "" {
			h.log.Warn().Str("connection_id", conn.ID()).Msg("event without a name dropped")
			continue
		}

		h.sink.Submit(conn, event)
	}
}
