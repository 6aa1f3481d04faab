package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrosync/internal/store"
	"retrosync/pkg/types"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "session.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewService(st, zerolog.Nop()), st
}

func seedUser(t *testing.T, st *store.Store) *types.User {
	t.Helper()
	u := &types.User{ID: uuid.NewString(), Name: "alice", Color: "#3b82f6", CreatedAt: time.Now().UTC()}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func TestCreateFromTemplate(t *testing.T) {
	svc, st := newTestService(t)
	user := seedUser(t, st)

	sess, err := svc.Create(context.Background(), CreateInput{
		Title:       "Sprint 42",
		Template:    types.Template4L,
		CreatedByID: user.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, types.PhaseSetup, sess.CurrentPhase)
	assert.Len(t, sess.InviteCode, inviteCodeLength)
	for _, r := range sess.InviteCode {
		assert.Contains(t, inviteCodeAlphabet, string(r))
	}

	columns, err := st.ListColumns(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, columns, 4)
	assert.Equal(t, "Learned (Appris) 📚", columns[0].Title)
	assert.Equal(t, 0, columns[0].Position)
	assert.Equal(t, 3, columns[3].Position)

	participants, err := st.ListParticipants(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, types.RoleFacilitator, participants[0].Role)
	assert.Equal(t, user.ID, participants[0].UserID)
}

func TestCreateCustomTemplate(t *testing.T) {
	svc, st := newTestService(t)
	user := seedUser(t, st)

	sess, err := svc.Create(context.Background(), CreateInput{
		Title:       "custom retro",
		Template:    types.TemplateCustom,
		CreatedByID: user.ID,
		Columns: []types.TemplateColumn{
			{Title: "Wins", Color: "#10b981"},
			{Title: "Blockers", Color: "#ef4444"},
		},
	})
	require.NoError(t, err)

	columns, err := st.ListColumns(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "Wins", columns[0].Title)
}

func TestCreateValidation(t *testing.T) {
	svc, st := newTestService(t)
	user := seedUser(t, st)

	_, err := svc.Create(context.Background(), CreateInput{Template: types.TemplateClassic, CreatedByID: user.ID})
	assert.ErrorIs(t, err, ErrMissingTitle)

	_, err = svc.Create(context.Background(), CreateInput{Title: "x", Template: types.TemplateClassic})
	assert.ErrorIs(t, err, ErrMissingCreator)

	_, err = svc.Create(context.Background(), CreateInput{Title: "x", Template: "mystery", CreatedByID: user.ID})
	assert.ErrorIs(t, err, types.ErrInvalidTemplate)

	_, err = svc.Create(context.Background(), CreateInput{Title: "x", Template: types.TemplateCustom, CreatedByID: user.ID})
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestInviteCodesAreUnique(t *testing.T) {
	svc, st := newTestService(t)
	user := seedUser(t, st)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		sess, err := svc.Create(context.Background(), CreateInput{
			Title: "retro", Template: types.TemplateClassic, CreatedByID: user.ID,
		})
		require.NoError(t, err)
		assert.False(t, seen[sess.InviteCode], "invite code %s repeated", sess.InviteCode)
		seen[sess.InviteCode] = true
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	svc, st := newTestService(t)
	creator := seedUser(t, st)
	sess, err := svc.Create(context.Background(), CreateInput{
		Title: "retro", Template: types.TemplateClassic, CreatedByID: creator.ID,
	})
	require.NoError(t, err)

	joiner := &types.User{ID: uuid.NewString(), Name: "bob", Color: "#ef4444", CreatedAt: time.Now().UTC()}
	require.NoError(t, st.CreateUser(context.Background(), joiner))

	first, err := svc.Join(context.Background(), sess.ID, joiner.ID)
	require.NoError(t, err)
	second, err := svc.Join(context.Background(), sess.ID, joiner.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = svc.Join(context.Background(), "missing", joiner.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetByInviteCode(t *testing.T) {
	svc, st := newTestService(t)
	user := seedUser(t, st)
	created, err := svc.Create(context.Background(), CreateInput{
		Title: "retro", Template: types.TemplateClassic, CreatedByID: user.ID,
	})
	require.NoError(t, err)

	sess, columns, err := svc.GetByInviteCode(context.Background(), created.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, created.ID, sess.ID)
	assert.Len(t, columns, 3)

	_, _, err = svc.GetByInviteCode(context.Background(), "NOPE0000")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestChangePhaseValidates(t *testing.T) {
	svc, st := newTestService(t)
	user := seedUser(t, st)
	sess, err := svc.Create(context.Background(), CreateInput{
		Title: "retro", Template: types.TemplateClassic, CreatedByID: user.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.ChangePhase(context.Background(), sess.ID, types.PhaseIcebreaker))
	snap, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PhaseIcebreaker, snap.CurrentPhase)

	assert.ErrorIs(t, svc.ChangePhase(context.Background(), sess.ID, "lunch"), types.ErrInvalidPhase)
}
