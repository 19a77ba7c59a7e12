package session

import "errors"

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrSessionExists  = errors.New("session already joined")
)
