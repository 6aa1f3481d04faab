package types

import "errors"

var (
	ErrMissingSessionID = errors.New("session id is required")
	ErrMissingUserID    = errors.New("user id is required")
	ErrMissingColumnID  = errors.New("column id is required")
	ErrMissingTicketID  = errors.New("ticket id is required")
	ErrMissingContent   = errors.New("content is required")
	ErrMissingTitle     = errors.New("title is required")
	ErrMissingEmoji     = errors.New("emoji is required")
	ErrMissingActionID  = errors.New("action id is required")
	ErrInvalidPhase     = errors.New("unknown phase")
	ErrInvalidTemplate  = errors.New("unknown template")
	ErrInvalidStatus    = errors.New("unknown action status")
	ErrInvalidDuration  = errors.New("timer duration must be positive")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
	ErrVoteTarget       = errors.New("vote must target exactly one of ticket or group")
	ErrEmptyTicketList  = errors.New("ticket id list is empty")
	ErrMissingGroupID   = errors.New("group id is required")
)
