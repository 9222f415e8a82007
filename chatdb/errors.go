package chatdb

import "errors"

var (
	ErrDuplicateUsername  = errors.New("username already in use")
	ErrNotFound           = errors.New("username not found")
	ErrUnknownUser        = errors.New("unknown user")
	ErrBadPassword        = errors.New("incorrect password")
	ErrAlreadyLoggedIn    = errors.New("already logged in")
	ErrSenderNotLoggedIn  = errors.New("sender not logged in")
	ErrUnknownDestination = errors.New("unknown destination account")
)
