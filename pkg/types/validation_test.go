package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestCastVoteExactlyOneTarget(t *testing.T) {
	base := CastVotePayload{SessionID: "s1", UserID: "u1"}

	p := base
	p.TicketID = strp("t1")
	assert.NoError(t, p.Validate())

	p = base
	p.GroupID = strp("g1")
	assert.NoError(t, p.Validate())

	p = base
	assert.ErrorIs(t, p.Validate(), ErrVoteTarget, "no target")

	p = base
	p.TicketID = strp("t1")
	p.GroupID = strp("g1")
	assert.ErrorIs(t, p.Validate(), ErrVoteTarget, "both targets")

	// Empty strings count as absent.
	p = base
	p.TicketID = strp("")
	p.GroupID = strp("g1")
	assert.NoError(t, p.Validate())
}

func TestRatingBounds(t *testing.T) {
	for rating, want := range map[int]error{
		0: ErrInvalidRating,
		1: nil,
		3: nil,
		5: nil,
		6: ErrInvalidRating,
	} {
		err := SubmitRatingPayload{SessionID: "s1", UserID: "u1", Rating: rating}.Validate()
		if want == nil {
			assert.NoError(t, err, "rating %d", rating)
		} else {
			assert.ErrorIs(t, err, want, "rating %d", rating)
		}
	}
}

func TestCreateTicketRequiredFields(t *testing.T) {
	valid := CreateTicketPayload{SessionID: "s1", ColumnID: "c1", AuthorID: "u1", Content: "idea"}
	assert.NoError(t, valid.Validate())

	p := valid
	p.SessionID = ""
	assert.ErrorIs(t, p.Validate(), ErrMissingSessionID)

	p = valid
	p.ColumnID = ""
	assert.ErrorIs(t, p.Validate(), ErrMissingColumnID)

	p = valid
	p.Content = ""
	assert.ErrorIs(t, p.Validate(), ErrMissingContent)
}

func TestGroupTicketsValidation(t *testing.T) {
	assert.NoError(t, GroupTicketsPayload{SessionID: "s1", GroupID: "g1", TicketIDs: []string{"t1"}}.Validate())
	assert.ErrorIs(t, GroupTicketsPayload{SessionID: "s1", GroupID: "g1"}.Validate(), ErrEmptyTicketList)
	assert.ErrorIs(t, GroupTicketsPayload{SessionID: "s1", TicketIDs: []string{"t1"}}.Validate(), ErrMissingGroupID)
}

func TestActionStatusValidation(t *testing.T) {
	assert.NoError(t, CreateActionPayload{SessionID: "s1", Title: "x", Status: ActionStatusApproved}.Validate())
	assert.NoError(t, CreateActionPayload{SessionID: "s1", Title: "x"}.Validate(), "status defaults later")
	assert.ErrorIs(t, CreateActionPayload{SessionID: "s1", Title: "x", Status: "done"}.Validate(), ErrInvalidStatus)

	bad := "paused"
	assert.ErrorIs(t, UpdateActionPayload{SessionID: "s1", ActionID: "a1", Updates: ActionUpdates{Status: &bad}}.Validate(), ErrInvalidStatus)
}

func TestEventEnvelopeRoundTrip(t *testing.T) {
	event, err := NewEvent(EventChangePhase, ChangePhasePayload{SessionID: "s1", Phase: PhaseVote})
	require.NoError(t, err)
	assert.Equal(t, EventChangePhase, event.Name)
	assert.JSONEq(t, `{"sessionId":"s1","phase":"vote"}`, string(event.Data))
}
