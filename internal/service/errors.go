package service

import "errors"

// Caller-visible error taxonomy. ErrInvalidCredentials is deliberately
// the same for unknown emails and wrong passwords.
var (
	ErrInvalidInput       = errors.New("missing or invalid fields")
	ErrDuplicateAccount   = errors.New("an account with that email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRateLimited        = errors.New("too many login attempts, try again later")
	ErrAccountBlocked     = errors.New("account is blocked")
	ErrInvalidSession     = errors.New("invalid session")
	ErrSessionExpired     = errors.New("session has expired")
	ErrNotFound           = errors.New("not found")
)
