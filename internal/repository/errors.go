package repository

import "errors"

// Common errors that can be returned by the repositories
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSubmissionNotFound = errors.New("submission not found")
)
