// Package session owns session lifecycle: creation from a template,
// invite codes, joining, and snapshot reads.
package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"retrosync/internal/store"
	"retrosync/pkg/types"
)

// Invite codes are 8 characters from an unambiguous uppercase alphabet.
const (
	inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteCodeLength   = 8
	inviteCodeRetries  = 5
)

type Service struct {
	store *store.Store
	log   zerolog.Logger
}

func NewService(st *store.Store, logger zerolog.Logger) *Service {
	return &Service{
		store: st,
		log:   logger.With().Str("component", "session").Logger(),
	}
}

// CreateInput carries everything needed to open a new retrospective.
// Columns is only consulted for the custom template; the named templates
// bring their own.
type CreateInput struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Template    types.Template         `json:"template"`
	IsAnonymous bool                   `json:"isAnonymous"`
	CreatedByID string                 `json:"createdById"`
	Config      types.SessionConfig    `json:"config"`
	Columns     []types.TemplateColumn `json:"columns,omitempty"`
}

func (in CreateInput) validate() error {
	if in.Title == "" {
		return ErrMissingTitle
	}
	if in.CreatedByID == "" {
		return ErrMissingCreator
	}
	if !types.IsValidTemplate(in.Template) {
		return types.ErrInvalidTemplate
	}
	if in.Template == types.TemplateCustom && len(in.Columns) == 0 {
		return ErrNoColumns
	}
	return nil
}

// Create opens a session in the setup phase with its template columns and
// the creator as facilitator.
func (s *Service) Create(ctx context.Context, in CreateInput) (*types.Session, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	code, err := s.allocateInviteCode(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &types.Session{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Description:  in.Description,
		Template:     in.Template,
		IsAnonymous:  in.IsAnonymous,
		InviteCode:   code,
		CurrentPhase: types.PhaseSetup,
		CreatedByID:  in.CreatedByID,
		Config:       in.Config,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	blueprints := in.Columns
	if in.Template != types.TemplateCustom {
		blueprints, _ = types.TemplateColumns(in.Template)
	}
	columns := make([]types.Column, len(blueprints))
	for i, bp := range blueprints {
		columns[i] = types.Column{
			ID:        uuid.NewString(),
			SessionID: sess.ID,
			Title:     bp.Title,
			Color:     bp.Color,
			Position:  i,
			CreatedAt: now,
		}
	}

	facilitator := &types.Participant{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		UserID:    in.CreatedByID,
		Role:      types.RoleFacilitator,
		JoinedAt:  now,
	}

	if err := s.store.CreateSession(ctx, sess, columns, facilitator); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", sess.ID).
		Str("invite_code", sess.InviteCode).
		Str("template", string(sess.Template)).
		Msg("session created")
	return sess, nil
}

// allocateInviteCode draws random codes until one is free. Collisions at
// 32^8 codes are vanishingly rare, so a handful of retries is plenty.
func (s *Service) allocateInviteCode(ctx context.Context) (string, error) {
	for i := 0; i < inviteCodeRetries; i++ {
		code, err := generateInviteCode()
		if err != nil {
			return "", err
		}
		taken, err := s.store.InviteCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}

func generateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(buf), nil
}

// Join adds a user to the session as a participant. Idempotent.
func (s *Service) Join(ctx context.Context, sessionID, userID string) (*types.Participant, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.AddParticipant(ctx, &types.Participant{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		Role:      types.RoleParticipant,
		JoinedAt:  time.Now().UTC(),
	})
}

// Get returns the fully joined snapshot used to seed clients.
func (s *Service) Get(ctx context.Context, sessionID string) (*types.SessionSnapshot, error) {
	return s.store.Snapshot(ctx, sessionID)
}

// GetByInviteCode resolves a code to its session and columns, the lookup
// behind the invite landing page.
func (s *Service) GetByInviteCode(ctx context.Context, code string) (*types.Session, []types.Column, error) {
	sess, err := s.store.GetSessionByInviteCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	columns, err := s.store.ListColumns(ctx, sess.ID)
	if err != nil {
		return nil, nil, err
	}
	return sess, columns, nil
}

// ChangePhase persists a phase transition outside the realtime path.
func (s *Service) ChangePhase(ctx context.Context, sessionID string, phase types.Phase) error {
	if !types.IsValidPhase(phase) {
		return types.ErrInvalidPhase
	}
	return s.store.UpdatePhase(ctx, sessionID, phase)
}

// UpdateConfig persists new session options outside the realtime path.
func (s *Service) UpdateConfig(ctx context.Context, sessionID string, cfg types.SessionConfig) error {
	return s.store.UpdateConfig(ctx, sessionID, cfg)
}
