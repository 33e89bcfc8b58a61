package types

import "errors"

var (
	ErrUnknownEvent       = errors.New("unknown event")
	ErrMalformedEvent     = errors.New("malformed event payload")
	ErrMissingField       = errors.New("required field missing")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrConnClosed         = errors.New("connection closed")
	ErrOriginForbidden    = errors.New("origin not allowed")
)
