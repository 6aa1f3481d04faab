package types

// Phase is one of the ten ordered stages a session moves through.
type Phase string

const (
	PhaseSetup         Phase = "setup"
	PhaseIcebreaker    Phase = "icebreaker"
	PhaseWelcome       Phase = "welcome"
	PhaseReviewActions Phase = "review-actions"
	PhaseBrainstorm    Phase = "brainstorm"
	PhaseGroup         Phase = "group"
	PhaseVote          Phase = "vote"
	PhaseDiscuss       Phase = "discuss"
	PhaseReview        Phase = "review"
	PhaseClosing       Phase = "closing"
)

// Phases lists all phases in session order. The facilitator may jump to
// any phase; the order is a UI convention, not a server-side constraint.
var Phases = []Phase{
	PhaseSetup,
	PhaseIcebreaker,
	PhaseWelcome,
	PhaseReviewActions,
	PhaseBrainstorm,
	PhaseGroup,
	PhaseVote,
	PhaseDiscuss,
	PhaseReview,
	PhaseClosing,
}

// IsValidPhase reports whether p names a known phase.
func IsValidPhase(p Phase) bool {
	for _, known := range Phases {
		if p == known {
			return true
		}
	}
	return false
}

// PhaseIndex returns the position of p in the session order, or -1.
func PhaseIndex(p Phase) int {
	for i, known := range Phases {
		if p == known {
			return i
		}
	}
	return -1
}
