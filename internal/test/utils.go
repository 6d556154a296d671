// Package test provides an in-memory store implementation for
// service-level tests.
package test

import (
	"context"
	"sync"
	"time"

	"github.com/tolberthub/student-portal/internal/interfaces"
	"github.com/tolberthub/student-portal/internal/model"
	"github.com/tolberthub/student-portal/internal/repository"
)

// MemoryRepository implements the store interfaces in memory. The
// uniqueness check and insert happen under one lock, mirroring the
// UNIQUE constraint the SQL backends rely on.
type MemoryRepository struct {
	mu          sync.Mutex
	byEmail     map[string]*model.Account
	byID        map[string]*model.Account
	sessions    map[string]*model.Session
	submissions map[string]*model.Submission
	order       []string // submission ids, insertion order
}

var (
	_ interfaces.AccountRepository    = (*MemoryRepository)(nil)
	_ interfaces.SessionRepository    = (*MemoryRepository)(nil)
	_ interfaces.SubmissionRepository = (*MemoryRepository)(nil)
)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byEmail:     make(map[string]*model.Account),
		byID:        make(map[string]*model.Account),
		sessions:    make(map[string]*model.Session),
		submissions: make(map[string]*model.Submission),
	}
}

func (r *MemoryRepository) CreateAccount(ctx context.Context, acct *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[acct.Email]; exists {
		return repository.ErrDuplicateEmail
	}
	cp := *acct
	r.byEmail[cp.Email] = &cp
	r.byID[cp.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *acct
	return &cp, nil
}

func (r *MemoryRepository) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *acct
	return &cp, nil
}

func (r *MemoryRepository) SetAccountStatus(ctx context.Context, id string, status model.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.byID[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	acct.Status = status
	return nil
}

func (r *MemoryRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.byID[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	acct.PasswordHash = hash
	return nil
}

func (r *MemoryRepository) UpsertAdmin(ctx context.Context, acct *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byEmail[acct.Email]; ok {
		existing.Name = acct.Name
		existing.PasswordHash = acct.PasswordHash
		existing.Role = acct.Role
		existing.Status = acct.Status
		return nil
	}
	cp := *acct
	r.byEmail[cp.Email] = &cp
	r.byID[cp.ID] = &cp
	return nil
}

func (r *MemoryRepository) CreateSession(ctx context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[cp.TokenID] = &cp
	return nil
}

func (r *MemoryRepository) GetSession(ctx context.Context, tokenID string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[tokenID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) ExtendSession(ctx context.Context, tokenID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[tokenID]
	if !ok || s.Revoked {
		return repository.ErrSessionNotFound
	}
	s.ExpiresAt = expiresAt
	return nil
}

func (r *MemoryRepository) RevokeSession(ctx context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[tokenID]
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.Revoked = true
	return nil
}

func (r *MemoryRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(before) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	r.submissions[cp.ID] = &cp
	r.order = append(r.order, cp.ID)
	return nil
}

func (r *MemoryRepository) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok {
		return nil, repository.ErrSubmissionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *MemoryRepository) ListSubmissionsByAccount(ctx context.Context, accountID string) ([]*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var subs []*model.Submission
	for i := len(r.order) - 1; i >= 0; i-- {
		if sub := r.submissions[r.order[i]]; sub.AccountID == accountID {
			cp := *sub
			subs = append(subs, &cp)
		}
	}
	return subs, nil
}

func (r *MemoryRepository) ListAllSubmissions(ctx context.Context) ([]*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := make([]*model.Submission, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		cp := *r.submissions[r.order[i]]
		subs = append(subs, &cp)
	}
	return subs, nil
}

func (r *MemoryRepository) SetSubmissionStatus(ctx context.Context, id string, status model.SubmissionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok {
		return repository.ErrSubmissionNotFound
	}
	sub.Status = status
	return nil
}

func (r *MemoryRepository) AttachAdmissionLetter(ctx context.Context, id string, letter *model.AdmissionLetter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok {
		return repository.ErrSubmissionNotFound
	}
	cp := *letter
	sub.AdmissionLetter = &cp
	sub.Status = model.SubmissionLetterIssued
	return nil
}
