package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/tolberthub/student-portal/internal/database"
	"github.com/tolberthub/student-portal/internal/interfaces"
	"github.com/tolberthub/student-portal/internal/model"
)

// PostgresRepository implements the store interfaces against a pgx pool.
type PostgresRepository struct {
	db *database.DB
}

var (
	_ interfaces.AccountRepository    = (*PostgresRepository)(nil)
	_ interfaces.SessionRepository    = (*PostgresRepository)(nil)
	_ interfaces.SubmissionRepository = (*PostgresRepository)(nil)
)

func NewPostgresRepository(db *database.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateAccount inserts a new account. The UNIQUE constraint on email
// is the authoritative duplicate guard; a concurrent registration for
// the same email surfaces here as ErrDuplicateEmail.
func (r *PostgresRepository) CreateAccount(ctx context.Context, acct *model.Account) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO accounts (id, name, email, password_hash, phone, role, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		acct.ID, acct.Name, acct.Email, acct.PasswordHash,
		nullable(acct.Phone), string(acct.Role), string(acct.Status), acct.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.scanAccount(r.db.Pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, phone, role, status, created_at
		 FROM accounts WHERE email = $1`, email))
}

func (r *PostgresRepository) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return r.scanAccount(r.db.Pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, phone, role, status, created_at
		 FROM accounts WHERE id = $1`, id))
}

func (r *PostgresRepository) scanAccount(row pgx.Row) (*model.Account, error) {
	var acct model.Account
	var phone sql.NullString
	var role, status string
	err := row.Scan(&acct.ID, &acct.Name, &acct.Email, &acct.PasswordHash,
		&phone, &role, &status, &acct.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	acct.Phone = phone.String
	acct.Role = model.Role(role)
	acct.Status = model.Status(status)
	return &acct, nil
}

func (r *PostgresRepository) SetAccountStatus(ctx context.Context, id string, status model.Status) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE accounts SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *PostgresRepository) UpsertAdmin(ctx context.Context, acct *model.Account) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO accounts (id, name, email, password_hash, phone, role, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (email) DO UPDATE
		 SET name = EXCLUDED.name,
		     password_hash = EXCLUDED.password_hash,
		     role = EXCLUDED.role,
		     status = EXCLUDED.status`,
		acct.ID, acct.Name, acct.Email, acct.PasswordHash,
		nullable(acct.Phone), string(acct.Role), string(acct.Status), acct.CreatedAt)
	return err
}

func (r *PostgresRepository) CreateSession(ctx context.Context, s *model.Session) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO sessions (token_id, account_id, role, status, created_at, expires_at, revoked)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.TokenID, s.AccountID, string(s.Role), string(s.Status), s.CreatedAt, s.ExpiresAt, s.Revoked)
	return err
}

func (r *PostgresRepository) GetSession(ctx context.Context, tokenID string) (*model.Session, error) {
	var s model.Session
	var role, status string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT token_id, account_id, role, status, created_at, expires_at, revoked
		 FROM sessions WHERE token_id = $1`, tokenID).
		Scan(&s.TokenID, &s.AccountID, &role, &status, &s.CreatedAt, &s.ExpiresAt, &s.Revoked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Role = model.Role(role)
	s.Status = model.Status(status)
	return &s, nil
}

func (r *PostgresRepository) ExtendSession(ctx context.Context, tokenID string, expiresAt time.Time) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE sessions SET expires_at = $1 WHERE token_id = $2 AND NOT revoked`,
		expiresAt, tokenID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *PostgresRepository) RevokeSession(ctx context.Context, tokenID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE sessions SET revoked = TRUE WHERE token_id = $1`, tokenID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	docs, err := json.Marshal(sub.Documents)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO submissions (id, account_id, application_type, target_program, summary, documents, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sub.ID, sub.AccountID, sub.ApplicationType, sub.TargetProgram,
		sub.Summary, string(docs), string(sub.Status), sub.SubmittedAt)
	return err
}

const submissionColumns = `id, account_id, application_type, target_program, summary, documents,
	status, submitted_at, letter_id, letter_message, letter_issued_at, letter_issued_by`

func (r *PostgresRepository) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	sub, err := scanPostgresSubmission(r.db.Pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	return sub, err
}

func (r *PostgresRepository) ListSubmissionsByAccount(ctx context.Context, accountID string) ([]*model.Submission, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE account_id = $1 ORDER BY submitted_at DESC`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPostgresSubmissions(rows)
}

func (r *PostgresRepository) ListAllSubmissions(ctx context.Context) ([]*model.Submission, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions ORDER BY submitted_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPostgresSubmissions(rows)
}

func (r *PostgresRepository) SetSubmissionStatus(ctx context.Context, id string, status model.SubmissionStatus) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE submissions SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

func (r *PostgresRepository) AttachAdmissionLetter(ctx context.Context, id string, letter *model.AdmissionLetter) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE submissions
		 SET status = $1, letter_id = $2, letter_message = $3, letter_issued_at = $4, letter_issued_by = $5
		 WHERE id = $6`,
		string(model.SubmissionLetterIssued), letter.LetterID, letter.Message,
		letter.IssuedAt, letter.IssuedBy, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

func collectPostgresSubmissions(rows pgx.Rows) ([]*model.Submission, error) {
	var subs []*model.Submission
	for rows.Next() {
		sub, err := scanPostgresSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func scanPostgresSubmission(row pgx.Row) (*model.Submission, error) {
	var sub model.Submission
	var docs, status string
	var letterID, letterMessage, letterIssuedBy sql.NullString
	var letterIssuedAt sql.NullTime

	err := row.Scan(&sub.ID, &sub.AccountID, &sub.ApplicationType, &sub.TargetProgram,
		&sub.Summary, &docs, &status, &sub.SubmittedAt,
		&letterID, &letterMessage, &letterIssuedAt, &letterIssuedBy)
	if err != nil {
		return nil, err
	}
	sub.Status = model.SubmissionStatus(status)

	if err := json.Unmarshal([]byte(docs), &sub.Documents); err != nil {
		return nil, err
	}
	if letterID.Valid {
		sub.AdmissionLetter = &model.AdmissionLetter{
			LetterID: letterID.String,
			Message:  letterMessage.String,
			IssuedAt: letterIssuedAt.Time,
			IssuedBy: letterIssuedBy.String,
		}
	}
	return &sub, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
