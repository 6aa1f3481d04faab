package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrosync/pkg/types"
)

// socketPair upgrades one client/server connection pair over a test server.
func socketPair(t *testing.T) (*Connection, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	serverSide := make(chan *Connection, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverSide <- NewConnection(socket, 16, time.Second)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	conn := <-serverSide
	t.Cleanup(func() { _ = conn.Close() })
	return conn, client
}

func readEvent(t *testing.T, client *websocket.Conn) types.Event {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	var event types.Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestBroadcastReachesAllSessionMembers(t *testing.T) {
	registry := NewRegistry()
	b := NewBroadcaster(registry, zerolog.Nop())

	conn1, client1 := socketPair(t)
	conn2, client2 := socketPair(t)
	conn3, client3 := socketPair(t)

	registry.Join("s1", conn1)
	registry.Join("s1", conn2)
	registry.Join("s2", conn3)

	b.Broadcast("s1", types.EventPhaseChanged, types.PhaseChangedPayload{Phase: types.PhaseBrainstorm})

	for _, client := range []*websocket.Conn{client1, client2} {
		event := readEvent(t, client)
		assert.Equal(t, types.EventPhaseChanged, event.Name)
		var payload types.PhaseChangedPayload
		require.NoError(t, json.Unmarshal(event.Data, &payload))
		assert.Equal(t, types.PhaseBrainstorm, payload.Phase)
	}

	// The other session must stay silent.
	require.NoError(t, client3.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := client3.ReadMessage()
	assert.Error(t, err, "connection outside the session should receive nothing")
}

func TestBroadcastOthersSkipsOrigin(t *testing.T) {
	registry := NewRegistry()
	b := NewBroadcaster(registry, zerolog.Nop())

	origin, originClient := socketPair(t)
	peer, peerClient := socketPair(t)

	registry.Join("s1", origin)
	registry.Join("s1", peer)

	b.BroadcastOthers("s1", origin.ID(), types.EventUserJoined, types.UserJoinedPayload{
		UserID:       "u1",
		ConnectionID: origin.ID(),
	})

	event := readEvent(t, peerClient)
	assert.Equal(t, types.EventUserJoined, event.Name)

	require.NoError(t, originClient.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := originClient.ReadMessage()
	assert.Error(t, err, "origin connection should be skipped")
}

func TestBroadcastSurvivesClosedConnection(t *testing.T) {
	registry := NewRegistry()
	b := NewBroadcaster(registry, zerolog.Nop())

	dead, _ := socketPair(t)
	live, liveClient := socketPair(t)

	registry.Join("s1", dead)
	registry.Join("s1", live)
	require.NoError(t, dead.Close())

	b.Broadcast("s1", types.EventTicketDeleted, types.TicketDeletedPayload{TicketID: "t1"})

	event := readEvent(t, liveClient)
	assert.Equal(t, types.EventTicketDeleted, event.Name)
}
