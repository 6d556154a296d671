package interfaces

import (
	"context"
	"time"

	"github.com/tolberthub/student-portal/internal/model"
)

// AccountRepository defines the durable credential store. Email
// uniqueness is enforced by the storage layer, not by callers.
type AccountRepository interface {
	CreateAccount(ctx context.Context, acct *model.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	SetAccountStatus(ctx context.Context, id string, status model.Status) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	// UpsertAdmin creates or refreshes the administrative singleton
	// identified by its email.
	UpsertAdmin(ctx context.Context, acct *model.Account) error
}

// SessionRepository defines server-side session persistence.
type SessionRepository interface {
	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, tokenID string) (*model.Session, error)
	// ExtendSession moves the session's expiry forward (sliding window).
	ExtendSession(ctx context.Context, tokenID string, expiresAt time.Time) error
	RevokeSession(ctx context.Context, tokenID string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// SubmissionRepository stores application submissions and their
// document metadata.
type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	ListSubmissionsByAccount(ctx context.Context, accountID string) ([]*model.Submission, error)
	ListAllSubmissions(ctx context.Context) ([]*model.Submission, error)
	SetSubmissionStatus(ctx context.Context, id string, status model.SubmissionStatus) error
	AttachAdmissionLetter(ctx context.Context, id string, letter *model.AdmissionLetter) error
}
