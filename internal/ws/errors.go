package ws

import "errors"

var (
	ErrConnectionClosed = errors.New("ws: connection closed")
	ErrWriteTimeout     = errors.New("ws: write timeout")
)
