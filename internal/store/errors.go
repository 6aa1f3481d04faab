package store

import "errors"

var (
	// ErrNotFound is returned by lookups for missing rows. The HTTP layer
	// maps it to 404; realtime handlers log and drop the command.
	ErrNotFound = errors.New("store: not found")

	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("store: closed")
)
