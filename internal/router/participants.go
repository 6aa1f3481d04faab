package router

import (
	"context"
	"time"

	"github.com/google/uuid"

	"retrosync/internal/hub"
	"retrosync/pkg/types"
)

// handleJoinSession makes the connection a member of the session's
// broadcast set and records the participant if this user is new. Repeat
// joins (reconnects, extra tabs) are harmless.
func (r *Router) handleJoinSession(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.JoinSessionPayload](cmd)
	if err != nil {
		return err
	}

	if _, err := r.store.GetSession(ctx, payload.SessionID); err != nil {
		return err
	}

	cmd.Conn.SetUserID(payload.UserID)

	if _, err := r.store.AddParticipant(ctx, &types.Participant{
		ID:        uuid.NewString(),
		SessionID: payload.SessionID,
		UserID:    payload.UserID,
		Role:      types.RoleParticipant,
		JoinedAt:  time.Now().UTC(),
	}); err != nil {
		return err
	}

	r.registry.Join(payload.SessionID, cmd.Conn)

	r.broadcaster.BroadcastOthers(payload.SessionID, cmd.Conn.ID(), types.EventUserJoined, types.UserJoinedPayload{
		UserID:       payload.UserID,
		ConnectionID: cmd.Conn.ID(),
	})
	return nil
}

// handleLeaveSession removes the connection from the broadcast set. The
// participant record stays; leaving a room is not leaving the retro.
func (r *Router) handleLeaveSession(_ context.Context, cmd *hub.Command) error {
	payload, err := decode[types.LeaveSessionPayload](cmd)
	if err != nil {
		return err
	}

	r.registry.Leave(payload.SessionID, cmd.Conn)

	r.broadcaster.Broadcast(payload.SessionID, types.EventUserLeft, types.UserLeftPayload{
		UserID:       payload.UserID,
		ConnectionID: cmd.Conn.ID(),
	})
	return nil
}

// handleChangePhase persists and announces the new phase. Any participant
// may drive the phase; facilitation is a social contract, not a server
// rule.
func (r *Router) handleChangePhase(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.ChangePhasePayload](cmd)
	if err != nil {
		return err
	}

	if err := r.store.UpdatePhase(ctx, payload.SessionID, payload.Phase); err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventPhaseChanged, types.PhaseChangedPayload{
		Phase: payload.Phase,
	})
	return nil
}

func (r *Router) handleParticipantReady(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.ParticipantReadyPayload](cmd)
	if err != nil {
		return err
	}

	if err := r.store.SetParticipantReady(ctx, payload.SessionID, payload.UserID, payload.IsReady); err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventParticipantReadyStatus, types.ReadyStatusPayload{
		UserID:  payload.UserID,
		IsReady: payload.IsReady,
	})
	return nil
}

func (r *Router) handleUpdateConfig(ctx context.Context, cmd *hub.Command) error {
	payload, err := decode[types.UpdateConfigPayload](cmd)
	if err != nil {
		return err
	}

	if err := r.store.UpdateConfig(ctx, payload.SessionID, payload.Config); err != nil {
		return err
	}

	r.broadcaster.Broadcast(payload.SessionID, types.EventConfigUpdated, payload.Config)
	return nil
}
