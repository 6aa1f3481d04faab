package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrosync/internal/hub"
	"retrosync/internal/store"
	"retrosync/internal/timer"
	"retrosync/internal/ws"
	"retrosync/pkg/types"
)

type fixture struct {
	store    *store.Store
	registry *ws.Registry
	router   *Router
	session  *types.Session
	columns  []types.Column
	user     *types.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "router.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	registry := ws.NewRegistry()
	broadcaster := ws.NewBroadcaster(registry, zerolog.Nop())
	engine := timer.NewEngine(st, broadcaster, zerolog.Nop())
	t.Cleanup(engine.StopAll)
	r := New(st, registry, broadcaster, engine, zerolog.Nop())

	now := time.Now().UTC()
	user := &types.User{ID: uuid.NewString(), Name: "alice", Color: "#3b82f6", CreatedAt: now}
	require.NoError(t, st.CreateUser(context.Background(), user))

	sess := &types.Session{
		ID:           uuid.NewString(),
		Title:        "retro",
		Template:     types.TemplateClassic,
		InviteCode:   "ABCD1234",
		CurrentPhase: types.PhaseSetup,
		CreatedByID:  user.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tmpl, _ := types.TemplateColumns(types.TemplateClassic)
	columns := make([]types.Column, len(tmpl))
	for i, tc := range tmpl {
		columns[i] = types.Column{
			ID: uuid.NewString(), SessionID: sess.ID,
			Title: tc.Title, Color: tc.Color, Position: i, CreatedAt: now,
		}
	}
	facilitator := &types.Participant{
		ID: uuid.NewString(), SessionID: sess.ID, UserID: user.ID,
		Role: types.RoleFacilitator, JoinedAt: now,
	}
	require.NoError(t, st.CreateSession(context.Background(), sess, columns, facilitator))

	return &fixture{store: st, registry: registry, router: r, session: sess, columns: columns, user: user}
}

// socketPair upgrades one client/server connection pair over a test server.
func socketPair(t *testing.T) (*ws.Connection, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	serverSide := make(chan *ws.Connection, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverSide <- ws.NewConnection(socket, 16, time.Second)
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

func command(t *testing.T, conn *ws.Connection, name string, payload any) *hub.Command {
	t.Helper()
	event, err := types.NewEvent(name, payload)
	require.NoError(t, err)
	return &hub.Command{Event: event, Conn: conn, ReceivedAt: time.Now()}
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

func expectSilence(t *testing.T, client *websocket.Conn) {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := client.ReadMessage()
	assert.Error(t, err)
}

func TestJoinSessionAnnouncesToOthers(t *testing.T) {
	f := newFixture(t)
	first, firstClient := socketPair(t)
	second, secondClient := socketPair(t)

	f.router.Dispatch(context.Background(), command(t, first, types.EventJoinSession, types.JoinSessionPayload{
		SessionID: f.session.ID, UserID: f.user.ID,
	}))

	bob := &types.User{ID: uuid.NewString(), Name: "bob", Color: "#ef4444", CreatedAt: time.Now().UTC()}
	require.NoError(t, f.store.CreateUser(context.Background(), bob))
	f.router.Dispatch(context.Background(), command(t, second, types.EventJoinSession, types.JoinSessionPayload{
		SessionID: f.session.ID, UserID: bob.ID,
	}))

	// The first member hears about the second; the joiner itself does not.
	event := readEvent(t, firstClient)
	assert.Equal(t, types.EventUserJoined, event.Name)
	var payload types.UserJoinedPayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, bob.ID, payload.UserID)
	expectSilence(t, secondClient)

	// The joiner is recorded as a plain participant.
	participants, err := f.store.ListParticipants(context.Background(), f.session.ID)
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, bob.ID, participants[1].UserID)
	assert.Equal(t, types.RoleParticipant, participants[1].Role)
	assert.Equal(t, bob.ID, second.UserID())
}

func TestJoinUnknownSessionIsDropped(t *testing.T) {
	f := newFixture(t)
	conn, client := socketPair(t)

	f.router.Dispatch(context.Background(), command(t, conn, types.EventJoinSession, types.JoinSessionPayload{
		SessionID: "missing", UserID: f.user.ID,
	}))

	assert.Empty(t, f.registry.Connections("missing"))
	expectSilence(t, client)
}

func TestCreateTicketBroadcastsJoinedEntity(t *testing.T) {
	f := newFixture(t)
	conn, client := socketPair(t)
	f.router.Dispatch(context.Background(), command(t, conn, types.EventJoinSession, types.JoinSessionPayload{
		SessionID: f.session.ID, UserID: f.user.ID,
	}))

	f.router.Dispatch(context.Background(), command(t, conn, types.EventCreateTicket, types.CreateTicketPayload{
		SessionID: f.session.ID,
		ColumnID:  f.columns[0].ID,
		AuthorID:  f.user.ID,
		Content:   "we shipped on time",
	}))

	event := readEvent(t, client)
	require.Equal(t, types.EventTicketCreated, event.Name)
	var ticket types.Ticket
	require.NoError(t, json.Unmarshal(event.Data, &ticket))
	assert.Equal(t, "we shipped on time", ticket.Content)
	assert.Equal(t, 0, ticket.Position)
	assert.False(t, ticket.IsRevealed, "reveal defaults to the session config")
	require.NotNil(t, ticket.Author)
	assert.Equal(t, "alice", ticket.Author.Name)
	require.NotNil(t, ticket.Column)
	assert.Equal(t, f.columns[0].ID, ticket.Column.ID)
}

func TestRevealBroadcastsEmptyPayload(t *testing.T) {
	f := newFixture(t)
	conn, client := socketPair(t)
	f.router.Dispatch(context.Background(), command(t, conn, types.EventJoinSession, types.JoinSessionPayload{
		SessionID: f.session.ID, UserID: f.user.ID,
	}))

	f.router.Dispatch(context.Background(), command(t, conn, types.EventCreateTicket, types.CreateTicketPayload{
		SessionID: f.session.ID,
		ColumnID:  f.columns[0].ID,
		AuthorID:  f.user.ID,
		Content:   "hidden until reveal",
	}))
	readEvent(t, client)

	f.router.Dispatch(context.Background(), command(t, conn, types.EventRevealTickets, types.RevealTicketsPayload{
		SessionID: f.session.ID,
	}))

	event := readEvent(t, client)
	require.Equal(t, types.EventTicketsRevealed, event.Name)
	assert.JSONEq(t, `{}`, string(event.Data), "reveal carries no payload")

	tickets, err := f.store.ListTickets(context.Background(), f.session.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.True(t, tickets[0].IsRevealed)
}

func TestCastVoteRejectsDualTarget(t *testing.T) {
	f := newFixture(t)
	conn, client := socketPair(t)
	f.router.Dispatch(context.Background(), command(t, conn, types.EventJoinSession, types.JoinSessionPayload{
		SessionID: f.session.ID, UserID: f.user.ID,
	}))

	ticketID := "t1"
	groupID := "g1"
	f.router.Dispatch(context.Background(), command(t, conn, types.EventCastVote, types.CastVotePayload{
		SessionID: f.session.ID, UserID: f.user.ID,
		TicketID: &ticketID, GroupID: &groupID,
	}))

	votes, err := f.store.ListVotes(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Empty(t, votes, "a vote naming both targets must be dropped")
	expectSilence(t, client)
}

func TestPhaseChangeBroadcast(t *testing.T) {
	f := newFixture(t)
	conn, client := socketPair(t)
	f.router.Dispatch(context.Background(), command(t, conn, types.EventJoinSession, types.JoinSessionPayload{
		SessionID: f.session.ID, UserID: f.user.ID,
	}))

	f.router.Dispatch(context.Background(), command(t, conn, types.EventChangePhase, types.ChangePhasePayload{
		SessionID: f.session.ID, Phase: types.PhaseBrainstorm,
	}))

	event := readEvent(t, client)
	assert.Equal(t, types.EventPhaseChanged, event.Name)

	sess, err := f.store.GetSession(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PhaseBrainstorm, sess.CurrentPhase)
}

func TestInvalidPhaseIsDropped(t *testing.T) {
	f := newFixture(t)
	conn, client := socketPair(t)
	f.router.Dispatch(context.Background(), command(t, conn, types.EventJoinSession, types.JoinSessionPayload{
		SessionID: f.session.ID, UserID: f.user.ID,
	}))

	f.router.Dispatch(context.Background(), command(t, conn, types.EventChangePhase, types.ChangePhasePayload{
		SessionID: f.session.ID, Phase: "intermission",
	}))

	sess, err := f.store.GetSession(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PhaseSetup, sess.CurrentPhase)
	expectSilence(t, client)
}

func TestUnknownEventIsDropped(t *testing.T) {
	f := newFixture(t)
	conn, client := socketPair(t)
	f.router.Dispatch(context.Background(), command(t, conn, types.EventJoinSession, types.JoinSessionPayload{
		SessionID: f.session.ID, UserID: f.user.ID,
	}))

	f.router.Dispatch(context.Background(), &hub.Command{
		Event: types.Event{Name: "reboot_server", Data: json.RawMessage(`{}`)},
		Conn:  conn,
	})
	expectSilence(t, client)
}

func TestRateLimiterClipsRunawayConnection(t *testing.T) {
	f := newFixture(t)
	conn, _ := socketPair(t)
	f.router.Dispatch(context.Background(), command(t, conn, types.EventJoinSession, types.JoinSessionPayload{
		SessionID: f.session.ID, UserID: f.user.ID,
	}))

	// Push far past the burst; the tail must be dropped.
	for i := 0; i < commandBurst*3; i++ {
		f.router.Dispatch(context.Background(), command(t, conn, types.EventCreateTicket, types.CreateTicketPayload{
			SessionID: f.session.ID,
			ColumnID:  f.columns[0].ID,
			AuthorID:  f.user.ID,
			Content:   "spam",
		}))
	}

	tickets, err := f.store.ListTickets(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Less(t, len(tickets), commandBurst*3)

	f.router.Forget(conn.ID())
	f.router.mu.Lock()
	_, ok := f.router.limiters[conn.ID()]
	f.router.mu.Unlock()
	assert.False(t, ok)
}

func TestReadyStatusRoundTrip(t *testing.T) {
	f := newFixture(t)
	conn, client := socketPair(t)
	f.router.Dispatch(context.Background(), command(t, conn, types.EventJoinSession, types.JoinSessionPayload{
		SessionID: f.session.ID, UserID: f.user.ID,
	}))

	f.router.Dispatch(context.Background(), command(t, conn, types.EventParticipantReady, types.ParticipantReadyPayload{
		SessionID: f.session.ID, UserID: f.user.ID, IsReady: true,
	}))

	event := readEvent(t, client)
	require.Equal(t, types.EventParticipantReadyStatus, event.Name)
	var payload types.ReadyStatusPayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.True(t, payload.IsReady)

	participants, err := f.store.ListParticipants(context.Background(), f.session.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.True(t, participants[0].IsReady)
}
