package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tolberthub/student-portal/internal/interfaces"
	"github.com/tolberthub/student-portal/internal/model"
	"github.com/tolberthub/student-portal/internal/password"
	"github.com/tolberthub/student-portal/internal/ratelimit"
	"github.com/tolberthub/student-portal/internal/repository"
)

const (
	// SessionTTL is the sliding session lifetime: each successful
	// validation pushes the expiry this far from now.
	SessionTTL = 8 * time.Hour

	// tokenCeiling bounds how far sliding renewal can carry a token.
	// The server-side session row is the effective expiry; the JWT exp
	// claim is only this hard ceiling.
	tokenCeiling = 30 * 24 * time.Hour

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8
)

// AuthService owns account registration, credential verification,
// session issuance/validation/revocation and login rate limiting.
type AuthService struct {
	accounts interfaces.AccountRepository
	sessions interfaces.SessionRepository
	hasher   password.Hasher
	legacy   password.Hasher
	limiter  *ratelimit.Limiter
	secret   []byte
	log      *slog.Logger
	now      func() time.Time
}

func NewAuthService(
	accounts interfaces.AccountRepository,
	sessions interfaces.SessionRepository,
	hasher password.Hasher,
	limiter *ratelimit.Limiter,
	sessionSecret string,
	log *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		legacy:   password.NewLegacySHA256Hasher(),
		limiter:  limiter,
		secret:   []byte(sessionSecret),
		log:      log.With("component", "auth"),
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a Student account and issues a session for it.
func (s *AuthService) Register(ctx context.Context, name, email, plaintext, phone string) (*model.Account, string, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	phone = strings.TrimSpace(phone)

	if name == "" || email == "" || plaintext == "" {
		return nil, "", fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return nil, "", fmt.Errorf("%w: email address is malformed", ErrInvalidInput)
	}
	if len(plaintext) < MinPasswordLength {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, "", err
	}

	acct := &model.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Phone:        phone,
		Role:         model.RoleStudent,
		Status:       model.StatusActive,
		CreatedAt:    s.now(),
	}

	if err := s.accounts.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", ErrDuplicateAccount
		}
		return nil, "", err
	}

	token, err := s.issueSession(ctx, acct)
	if err != nil {
		return nil, "", err
	}

	s.log.InfoContext(ctx, "account registered", "account_id", acct.ID)
	return acct, token, nil
}

// Login verifies credentials and issues a session. key identifies the
// caller for rate limiting (client IP on server paths). An attempt is
// recorded whether the email is unknown or the password is wrong, so
// the limiter does not reveal which.
func (s *AuthService) Login(ctx context.Context, email, plaintext, key string) (*model.Account, string, error) {
	if !s.limiter.CanAttempt(key) {
		return nil, "", ErrRateLimited
	}

	email = normalizeEmail(email)
	if email == "" || plaintext == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	acct, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			s.limiter.RecordAttempt(key)
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if acct.Status != model.StatusActive {
		return nil, "", ErrAccountBlocked
	}

	if !s.hasher.Verify(plaintext, acct.PasswordHash) {
		if !s.legacy.Verify(plaintext, acct.PasswordHash) {
			s.limiter.RecordAttempt(key)
			return nil, "", ErrInvalidCredentials
		}
		// Account imported from the old client-side portal. The stored
		// digest is unsalted SHA-256, so rehash it now that we have the
		// plaintext.
		if hash, err := s.hasher.Hash(plaintext); err == nil {
			if err := s.accounts.UpdatePasswordHash(ctx, acct.ID, hash); err != nil {
				s.log.WarnContext(ctx, "could not upgrade legacy password hash", "account_id", acct.ID, "error", err)
			} else {
				s.log.InfoContext(ctx, "legacy password hash upgraded", "account_id", acct.ID)
			}
		}
	}

	token, err := s.issueSession(ctx, acct)
	if err != nil {
		return nil, "", err
	}
	return acct, token, nil
}

// issueSession mints a fresh token for acct. The token id is never
// reused, so a new login always rotates whatever cookie value the
// client held before.
func (s *AuthService) issueSession(ctx context.Context, acct *model.Account) (string, error) {
	now := s.now()
	sess := &model.Session{
		TokenID:   uuid.NewString(),
		AccountID: acct.ID,
		Role:      acct.Role,
		Status:    acct.Status,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
	}

	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": acct.ID,
		"jti": sess.TokenID,
		"exp": now.Add(tokenCeiling).Unix(),
	})
	return token.SignedString(s.secret)
}

// Authenticate validates a token and returns the bound account and
// session. The account's current status is re-checked against the
// store on every call; a session issued before a block never grants
// access afterwards. On success the expiry slides forward.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Account, *model.Session, error) {
	if token == "" {
		return nil, nil, ErrInvalidSession
	}

	tokenID, err := s.parseTokenID(token)
	if err != nil {
		return nil, nil, ErrInvalidSession
	}

	sess, err := s.sessions.GetSession(ctx, tokenID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil, ErrInvalidSession
		}
		return nil, nil, err
	}
	if sess.Revoked {
		return nil, nil, ErrInvalidSession
	}
	now := s.now()
	if now.After(sess.ExpiresAt) {
		return nil, nil, ErrSessionExpired
	}

	acct, err := s.accounts.GetAccountByID(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, nil, ErrInvalidSession
		}
		return nil, nil, err
	}
	if acct.Status != model.StatusActive {
		return nil, nil, ErrAccountBlocked
	}

	if err := s.sessions.ExtendSession(ctx, tokenID, now.Add(SessionTTL)); err != nil {
		// A concurrent revoke can race the extension; the session was
		// valid when checked, so the request proceeds.
		s.log.WarnContext(ctx, "could not extend session", "error", err)
	}

	return acct, sess, nil
}

// Logout revokes the session behind token. Unknown, garbled or
// already-revoked tokens are a no-op: logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	tokenID, err := s.parseTokenID(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.RevokeSession(ctx, tokenID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// SetAccountStatus is the administrative block/unblock mutation. It
// does not touch issued sessions; validation fails them from now on.
func (s *AuthService) SetAccountStatus(ctx context.Context, accountID string, status model.Status) error {
	if err := s.accounts.SetAccountStatus(ctx, accountID, status); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.log.InfoContext(ctx, "account status changed", "account_id", accountID, "status", status)
	return nil
}

// BootstrapAdmin upserts the administrative singleton account.
func (s *AuthService) BootstrapAdmin(ctx context.Context, email, plaintext string) error {
	email = normalizeEmail(email)
	if email == "" || plaintext == "" {
		return fmt.Errorf("%w: admin email and password are required", ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return err
	}

	err = s.accounts.UpsertAdmin(ctx, &model.Account{
		ID:           uuid.NewString(),
		Name:         "Portal Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Status:       model.StatusActive,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "admin account bootstrapped")
	return nil
}

// CleanupExpiredSessions removes session rows past their expiry.
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpiredSessions(ctx, s.now())
}

func (s *AuthService) parseTokenID(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidSession
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidSession
	}
	tokenID, ok := claims["jti"].(string)
	if !ok || tokenID == "" {
		return "", ErrInvalidSession
	}
	return tokenID, nil
}
