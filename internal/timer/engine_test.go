package timer

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrosync/internal/store"
	"retrosync/pkg/types"
)

type recordedEvent struct {
	name    string
	payload any
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeBroadcaster) Broadcast(_ string, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{name: event, payload: payload})
}

func (f *fakeBroadcaster) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.events))
	for i, e := range f.events {
		names[i] = e.name
	}
	return names
}

func newTestEngine(t *testing.T) (*Engine, *store.Store, *fakeBroadcaster, string) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "timer.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	broadcaster := &fakeBroadcaster{}
	engine := NewEngine(st, broadcaster, zerolog.Nop())
	engine.interval = 10 * time.Millisecond

	sessionID := seedTimerSession(t, st)
	return engine, st, broadcaster, sessionID
}

func seedTimerSession(t *testing.T, st *store.Store) string {
	t.Helper()
	now := time.Now().UTC()
	user := &types.User{ID: uuid.NewString(), Name: "alice", Color: "#3b82f6", CreatedAt: now}
	require.NoError(t, st.CreateUser(context.Background(), user))

	sess := &types.Session{
		ID:           uuid.NewString(),
		Title:        "retro",
		Template:     types.TemplateClassic,
		InviteCode:   uuid.NewString()[:8],
		CurrentPhase: types.PhaseSetup,
		CreatedByID:  user.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	facilitator := &types.Participant{
		ID: uuid.NewString(), SessionID: sess.ID, UserID: user.ID,
		Role: types.RoleFacilitator, JoinedAt: now,
	}
	require.NoError(t, st.CreateSession(context.Background(), sess, nil, facilitator))
	return sess.ID
}

func TestTimerCountsDownToFinish(t *testing.T) {
	engine, st, broadcaster, sessionID := newTestEngine(t)

	started, err := engine.Start(context.Background(), sessionID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, started.RemainingTime)
	assert.True(t, started.IsRunning)

	require.Eventually(t, func() bool {
		for _, name := range broadcaster.names() {
			if name == types.EventTimerStopped {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	names := broadcaster.names()
	assert.Equal(t, types.EventTimerStarted, names[0])
	assert.Equal(t, types.EventTimerStopped, names[len(names)-1])

	var updates int
	for _, name := range names {
		if name == types.EventTimerUpdated {
			updates++
		}
	}
	assert.Equal(t, 2, updates, "one update per second of countdown")

	broadcaster.mu.Lock()
	last := broadcaster.events[len(broadcaster.events)-1]
	broadcaster.mu.Unlock()
	payload, ok := last.payload.(types.TimerStoppedPayload)
	require.True(t, ok)
	assert.True(t, payload.Finished)

	final, err := st.GetTimer(context.Background(), sessionID)
	require.NoError(t, err)
	assert.False(t, final.IsRunning)
	assert.Equal(t, 0, final.RemainingTime)
}

func TestTimerManualStopKeepsRemaining(t *testing.T) {
	engine, st, broadcaster, sessionID := newTestEngine(t)

	_, err := engine.Start(context.Background(), sessionID, 600)
	require.NoError(t, err)

	require.NoError(t, engine.Stop(context.Background(), sessionID))

	timer, err := st.GetTimer(context.Background(), sessionID)
	require.NoError(t, err)
	assert.False(t, timer.IsRunning)
	assert.Greater(t, timer.RemainingTime, 0)

	broadcaster.mu.Lock()
	last := broadcaster.events[len(broadcaster.events)-1]
	broadcaster.mu.Unlock()
	assert.Equal(t, types.EventTimerStopped, last.name)
	payload, ok := last.payload.(types.TimerStoppedPayload)
	require.True(t, ok)
	assert.False(t, payload.Finished)

	// The loop is gone; no further updates arrive.
	count := len(broadcaster.names())
	time.Sleep(5 * engine.interval)
	assert.Equal(t, count, len(broadcaster.names()))
}

func TestTimerStopWithoutTimerIsSilent(t *testing.T) {
	engine, _, broadcaster, sessionID := newTestEngine(t)

	require.NoError(t, engine.Stop(context.Background(), sessionID))
	assert.Empty(t, broadcaster.names(), "no timer row, no stop announcement")
}

func TestTimerRestartReplacesLoop(t *testing.T) {
	engine, st, _, sessionID := newTestEngine(t)

	_, err := engine.Start(context.Background(), sessionID, 600)
	require.NoError(t, err)

	restarted, err := engine.Start(context.Background(), sessionID, 300)
	require.NoError(t, err)
	assert.Equal(t, 300, restarted.RemainingTime)

	// Let both loops tick if the old one survived; only one may decrement.
	time.Sleep(3 * engine.interval)
	require.NoError(t, engine.Stop(context.Background(), sessionID))

	timer, err := st.GetTimer(context.Background(), sessionID)
	require.NoError(t, err)
	// With a single loop at 10ms ticks over ~30ms plus scheduling slack,
	// a doubled loop would burn through far more than this.
	assert.GreaterOrEqual(t, timer.RemainingTime, 300-6)

	engine.mu.Lock()
	active := len(engine.active)
	engine.mu.Unlock()
	assert.Zero(t, active)
}

func TestTimerRejectsNonPositiveDuration(t *testing.T) {
	engine, _, _, sessionID := newTestEngine(t)
	_, err := engine.Start(context.Background(), sessionID, 0)
	assert.ErrorIs(t, err, types.ErrInvalidDuration)
}

func TestTimerStopAll(t *testing.T) {
	engine, st, _, sessionID := newTestEngine(t)

	_, err := engine.Start(context.Background(), sessionID, 600)
	require.NoError(t, err)

	engine.StopAll()

	engine.mu.Lock()
	active := len(engine.active)
	engine.mu.Unlock()
	assert.Zero(t, active)

	// Stored state is untouched so a restart can resume or inspect it.
	timer, err := st.GetTimer(context.Background(), sessionID)
	require.NoError(t, err)
	assert.True(t, timer.IsRunning)
}
