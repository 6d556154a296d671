package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tolberthub/student-portal/internal/interfaces"
	"github.com/tolberthub/student-portal/internal/model"
)

// SQLiteRepository implements the store interfaces against an embedded
// SQLite database. Timestamps are stored as RFC 3339 strings.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ interfaces.AccountRepository    = (*SQLiteRepository)(nil)
	_ interfaces.SessionRepository    = (*SQLiteRepository)(nil)
	_ interfaces.SubmissionRepository = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// timeLayout is fixed-width so lexicographic ordering of stored
// strings matches chronological ordering in ORDER BY clauses.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, acct *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, email, password_hash, phone, role, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		acct.ID, acct.Name, acct.Email, acct.PasswordHash,
		nullable(acct.Phone), string(acct.Role), string(acct.Status), encodeTime(acct.CreatedAt))

	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *SQLiteRepository) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.scanAccount(r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, phone, role, status, created_at
		 FROM accounts WHERE email = ?`, email))
}

func (r *SQLiteRepository) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return r.scanAccount(r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, phone, role, status, created_at
		 FROM accounts WHERE id = ?`, id))
}

func (r *SQLiteRepository) scanAccount(row *sql.Row) (*model.Account, error) {
	var acct model.Account
	var phone sql.NullString
	var createdAt string
	err := row.Scan(&acct.ID, &acct.Name, &acct.Email, &acct.PasswordHash,
		&phone, &acct.Role, &acct.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	acct.Phone = phone.String
	if acct.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (r *SQLiteRepository) SetAccountStatus(ctx context.Context, id string, status model.Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	return checkAffected(res, ErrAccountNotFound)
}

func (r *SQLiteRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return err
	}
	return checkAffected(res, ErrAccountNotFound)
}

func (r *SQLiteRepository) UpsertAdmin(ctx context.Context, acct *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, email, password_hash, phone, role, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE
		 SET name = excluded.name,
		     password_hash = excluded.password_hash,
		     role = excluded.role,
		     status = excluded.status`,
		acct.ID, acct.Name, acct.Email, acct.PasswordHash,
		nullable(acct.Phone), string(acct.Role), string(acct.Status), encodeTime(acct.CreatedAt))
	return err
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, s *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token_id, account_id, role, status, created_at, expires_at, revoked)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.TokenID, s.AccountID, string(s.Role), string(s.Status),
		encodeTime(s.CreatedAt), encodeTime(s.ExpiresAt), s.Revoked)
	return err
}

func (r *SQLiteRepository) GetSession(ctx context.Context, tokenID string) (*model.Session, error) {
	var s model.Session
	var createdAt, expiresAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT token_id, account_id, role, status, created_at, expires_at, revoked
		 FROM sessions WHERE token_id = ?`, tokenID).
		Scan(&s.TokenID, &s.AccountID, &s.Role, &s.Status, &createdAt, &expiresAt, &s.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if s.ExpiresAt, err = decodeTime(expiresAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteRepository) ExtendSession(ctx context.Context, tokenID string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = ? WHERE token_id = ? AND revoked = 0`,
		encodeTime(expiresAt), tokenID)
	if err != nil {
		return err
	}
	return checkAffected(res, ErrSessionNotFound)
}

func (r *SQLiteRepository) RevokeSession(ctx context.Context, tokenID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked = 1 WHERE token_id = ?`, tokenID)
	if err != nil {
		return err
	}
	return checkAffected(res, ErrSessionNotFound)
}

func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, encodeTime(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	docs, err := json.Marshal(sub.Documents)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO submissions (id, account_id, application_type, target_program, summary, documents, status, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.AccountID, sub.ApplicationType, sub.TargetProgram,
		sub.Summary, string(docs), string(sub.Status), encodeTime(sub.SubmittedAt))
	return err
}

func (r *SQLiteRepository) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	sub, err := scanSQLiteSubmission(r.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	return sub, err
}

func (r *SQLiteRepository) ListSubmissionsByAccount(ctx context.Context, accountID string) ([]*model.Submission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE account_id = ? ORDER BY submitted_at DESC`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSQLiteSubmissions(rows)
}

func (r *SQLiteRepository) ListAllSubmissions(ctx context.Context) ([]*model.Submission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions ORDER BY submitted_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSQLiteSubmissions(rows)
}

func (r *SQLiteRepository) SetSubmissionStatus(ctx context.Context, id string, status model.SubmissionStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE submissions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	return checkAffected(res, ErrSubmissionNotFound)
}

func (r *SQLiteRepository) AttachAdmissionLetter(ctx context.Context, id string, letter *model.AdmissionLetter) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE submissions
		 SET status = ?, letter_id = ?, letter_message = ?, letter_issued_at = ?, letter_issued_by = ?
		 WHERE id = ?`,
		string(model.SubmissionLetterIssued), letter.LetterID, letter.Message,
		encodeTime(letter.IssuedAt), letter.IssuedBy, id)
	if err != nil {
		return err
	}
	return checkAffected(res, ErrSubmissionNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSubmission(row rowScanner) (*model.Submission, error) {
	var sub model.Submission
	var docs, submittedAt string
	var letterID, letterMessage, letterIssuedAt, letterIssuedBy sql.NullString

	err := row.Scan(&sub.ID, &sub.AccountID, &sub.ApplicationType, &sub.TargetProgram,
		&sub.Summary, &docs, &sub.Status, &submittedAt,
		&letterID, &letterMessage, &letterIssuedAt, &letterIssuedBy)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(docs), &sub.Documents); err != nil {
		return nil, err
	}
	if sub.SubmittedAt, err = decodeTime(submittedAt); err != nil {
		return nil, err
	}
	if letterID.Valid {
		issuedAt, err := decodeTime(letterIssuedAt.String)
		if err != nil {
			return nil, err
		}
		sub.AdmissionLetter = &model.AdmissionLetter{
			LetterID: letterID.String,
			Message:  letterMessage.String,
			IssuedAt: issuedAt,
			IssuedBy: letterIssuedBy.String,
		}
	}
	return &sub, nil
}

func collectSQLiteSubmissions(rows *sql.Rows) ([]*model.Submission, error) {
	var subs []*model.Submission
	for rows.Next() {
		sub, err := scanSQLiteSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
