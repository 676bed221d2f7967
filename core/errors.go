package core

import "errors"

// Error taxonomy. None of these are fatal to the process; all are scoped to
// one room or one connection.
var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotFound              = errors.New("not found")
	ErrInvalidToken          = errors.New("invalid or expired room token")
	ErrInvalidMessage        = errors.New("message body is empty")
	ErrMediaPermissionDenied = errors.New("media permission denied")
	ErrChannelDisconnected   = errors.New("realtime channel disconnected")
)
