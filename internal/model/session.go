package model

import "time"

// Session is the server-side record behind an issued token. Role and
// Status are snapshots taken at issuance; validation re-checks the
// account's current status against the store.
type Session struct {
	TokenID   string
	AccountID string
	Role      Role
	Status    Status
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
}
