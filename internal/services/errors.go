package services

import "errors"

// Domain error taxonomy. Callers match with errors.Is; handlers map these to
// HTTP statuses. Conflicts from lost atomic updates surface as ErrInvalidState.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidState = errors.New("invalid state")
)
