package session

import "errors"

var (
	ErrMissingTitle   = errors.New("session: title is required")
	ErrMissingCreator = errors.New("session: creator is required")
	ErrNoColumns      = errors.New("session: custom template needs at least one column")
	ErrCodeExhausted  = errors.New("session: could not allocate a unique invite code")
)
