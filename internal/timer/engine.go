// Package timer runs the per-session countdowns. At most one loop exists
// per session; starting a new timer cancels the previous loop before its
// replacement is launched, so ticks never double up.
package timer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"retrosync/internal/store"
	"retrosync/pkg/types"
)

// Broadcaster delivers timer events to a session's connections.
type Broadcaster interface {
	Broadcast(sessionID, event string, payload any)
}

type loopHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type Engine struct {
	store       *store.Store
	broadcaster Broadcaster
	log         zerolog.Logger

	mu     sync.Mutex
	active map[string]*loopHandle

	// Tick interval, one second in production.
	interval time.Duration
}

func NewEngine(st *store.Store, broadcaster Broadcaster, logger zerolog.Logger) *Engine {
	return &Engine{
		store:       st,
		broadcaster: broadcaster,
		log:         logger.With().Str("component", "timer").Logger(),
		active:      make(map[string]*loopHandle),
		interval:    time.Second,
	}
}

// Start begins (or restarts) the session's countdown. The stored timer is
// overwritten and the fresh state is broadcast before the loop starts.
func (e *Engine) Start(ctx context.Context, sessionID string, duration int) (*types.Timer, error) {
	if duration <= 0 {
		return nil, types.ErrInvalidDuration
	}

	now := time.Now().UTC()
	timer, err := e.store.StartTimer(ctx, &types.Timer{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Duration:      duration,
		RemainingTime: duration,
		IsRunning:     true,
		StartedAt:     &now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, err
	}

	e.broadcaster.Broadcast(sessionID, types.EventTimerStarted, timer)
	e.launch(sessionID)
	return timer, nil
}

// launch replaces any running loop for the session with a fresh one. The
// old loop is cancelled and waited out first.
func (e *Engine) launch(sessionID string) {
	e.mu.Lock()
	prev := e.active[sessionID]
	loopCtx, cancel := context.WithCancel(context.Background())
	handle := &loopHandle{cancel: cancel, done: make(chan struct{})}
	e.active[sessionID] = handle
	e.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	go e.run(loopCtx, sessionID, handle)
}

func (e *Engine) run(ctx context.Context, sessionID string, handle *loopHandle) {
	defer close(handle.done)
	defer e.release(sessionID, handle)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			timer, err := e.store.GetTimer(ctx, sessionID)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					e.log.Error().Err(err).Str("session_id", sessionID).Msg("timer read failed")
				}
				return
			}
			if !timer.IsRunning {
				return
			}
			if timer.RemainingTime <= 0 {
				if err := e.store.FinishTimer(ctx, sessionID); err != nil {
					e.log.Error().Err(err).Str("session_id", sessionID).Msg("timer finish failed")
				}
				e.broadcaster.Broadcast(sessionID, types.EventTimerStopped, types.TimerStoppedPayload{Finished: true})
				return
			}

			updated, err := e.store.DecrementTimer(ctx, sessionID)
			if err != nil {
				e.log.Error().Err(err).Str("session_id", sessionID).Msg("timer decrement failed")
				return
			}
			e.broadcaster.Broadcast(sessionID, types.EventTimerUpdated, updated)

		case <-ctx.Done():
			return
		}
	}
}

// release drops the handle from the active map, unless a restart already
// replaced it.
func (e *Engine) release(sessionID string, handle *loopHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active[sessionID] == handle {
		delete(e.active, sessionID)
	}
}

// Stop halts the countdown without zeroing it and announces a manual stop.
func (e *Engine) Stop(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	handle := e.active[sessionID]
	e.mu.Unlock()
	if handle != nil {
		handle.cancel()
		<-handle.done
	}

	err := e.store.StopTimer(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		// Nothing was ever started; there is no stop to announce.
		return nil
	}
	if err != nil {
		return err
	}
	e.broadcaster.Broadcast(sessionID, types.EventTimerStopped, types.TimerStoppedPayload{Finished: false})
	return nil
}

// StopAll cancels every running loop, used on shutdown. Stored timers are
// left as-is so a restart can inspect them.
func (e *Engine) StopAll() {
	e.mu.Lock()
	handles := make([]*loopHandle, 0, len(e.active))
	for _, handle := range e.active {
		handles = append(handles, handle)
	}
	e.mu.Unlock()

	for _, handle := range handles {
		handle.cancel()
		<-handle.done
	}
}
