package model

import "time"

// Role identifies what an account is allowed to do.
type Role string

const (
	RoleStudent Role = "Student"
	RoleAdmin   Role = "Admin"
)

// Status is the administrative state of an account.
type Status string

const (
	StatusActive  Status = "Active"
	StatusBlocked Status = "Blocked"
)

type Account struct {
	ID           string
	Name         string
	Email        string // normalized: trimmed, lower-cased
	PasswordHash string // never the plaintext
	Phone        string
	Role         Role
	Status       Status
	CreatedAt    time.Time
}
