package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolberthub/student-portal/internal/database"
	"github.com/tolberthub/student-portal/internal/model"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteRepository(db)
}

func testAccount(id, email string) *model.Account {
	return &model.Account{
		ID:           id,
		Name:         "Alice Smith",
		Email:        email,
		PasswordHash: "$2a$12$notarealhashnotarealhashnotarealhash",
		Phone:        "555-0100",
		Role:         model.RoleStudent,
		Status:       model.StatusActive,
		CreatedAt:    time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestSQLite_CreateAndGetAccount(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	acct := testAccount("a1", "alice@example.com")
	require.NoError(t, repo.CreateAccount(ctx, acct))

	got, err := repo.GetAccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)
	assert.Equal(t, acct.Name, got.Name)
	assert.Equal(t, acct.Phone, got.Phone)
	assert.Equal(t, model.RoleStudent, got.Role)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.True(t, acct.CreatedAt.Equal(got.CreatedAt))

	byID, err := repo.GetAccountByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, got.Email, byID.Email)

	_, err = repo.GetAccountByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestSQLite_DuplicateEmail(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateAccount(ctx, testAccount("a1", "alice@example.com")))

	err := repo.CreateAccount(ctx, testAccount("a2", "alice@example.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestSQLite_EmptyPhoneStoredAsNull(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	acct := testAccount("a1", "alice@example.com")
	acct.Phone = ""
	require.NoError(t, repo.CreateAccount(ctx, acct))

	got, err := repo.GetAccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, got.Phone)
}

func TestSQLite_SetAccountStatus(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateAccount(ctx, testAccount("a1", "alice@example.com")))
	require.NoError(t, repo.SetAccountStatus(ctx, "a1", model.StatusBlocked))

	got, err := repo.GetAccountByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusBlocked, got.Status)

	assert.ErrorIs(t, repo.SetAccountStatus(ctx, "missing", model.StatusBlocked), ErrAccountNotFound)
}

func TestSQLite_UpdatePasswordHash(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateAccount(ctx, testAccount("a1", "alice@example.com")))
	require.NoError(t, repo.UpdatePasswordHash(ctx, "a1", "$2a$12$rehashedrehashedrehashedrehashed"))

	got, err := repo.GetAccountByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "$2a$12$rehashedrehashedrehashedrehashed", got.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePasswordHash(ctx, "missing", "x"), ErrAccountNotFound)
}

func TestSQLite_UpsertAdmin(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	admin := testAccount("adm1", "admin@example.com")
	admin.Role = model.RoleAdmin
	require.NoError(t, repo.UpsertAdmin(ctx, admin))

	// Second upsert with the same email rotates the hash, not the row.
	rotated := testAccount("adm2", "admin@example.com")
	rotated.Role = model.RoleAdmin
	rotated.PasswordHash = "$2a$12$rotatedrotatedrotatedrotatedrotated"
	require.NoError(t, repo.UpsertAdmin(ctx, rotated))

	got, err := repo.GetAccountByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "adm1", got.ID, "upsert must keep the original row")
	assert.Equal(t, rotated.PasswordHash, got.PasswordHash)
	assert.Equal(t, model.RoleAdmin, got.Role)
}

func TestSQLite_SessionLifecycle(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateAccount(ctx, testAccount("a1", "alice@example.com")))

	issued := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	sess := &model.Session{
		TokenID:   "tok1",
		AccountID: "a1",
		Role:      model.RoleStudent,
		Status:    model.StatusActive,
		CreatedAt: issued,
		ExpiresAt: issued.Add(8 * time.Hour),
	}
	require.NoError(t, repo.CreateSession(ctx, sess))

	got, err := repo.GetSession(ctx, "tok1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.AccountID)
	assert.False(t, got.Revoked)
	assert.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))

	// Sliding extension
	later := issued.Add(12 * time.Hour)
	require.NoError(t, repo.ExtendSession(ctx, "tok1", later))
	got, err = repo.GetSession(ctx, "tok1")
	require.NoError(t, err)
	assert.True(t, later.Equal(got.ExpiresAt))

	// Revocation sticks and blocks further extension
	require.NoError(t, repo.RevokeSession(ctx, "tok1"))
	got, err = repo.GetSession(ctx, "tok1")
	require.NoError(t, err)
	assert.True(t, got.Revoked)
	assert.ErrorIs(t, repo.ExtendSession(ctx, "tok1", later.Add(time.Hour)), ErrSessionNotFound)

	_, err = repo.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, repo.RevokeSession(ctx, "missing"), ErrSessionNotFound)
}

func TestSQLite_DeleteExpiredSessions(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateAccount(ctx, testAccount("a1", "alice@example.com")))

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i, exp := range []time.Time{base.Add(-time.Hour), base.Add(-time.Minute), base.Add(time.Hour)} {
		require.NoError(t, repo.CreateSession(ctx, &model.Session{
			TokenID:   string(rune('x' + i)),
			AccountID: "a1",
			Role:      model.RoleStudent,
			Status:    model.StatusActive,
			CreatedAt: base.Add(-9 * time.Hour),
			ExpiresAt: exp,
		}))
	}

	n, err := repo.DeleteExpiredSessions(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.GetSession(ctx, "z") // still unexpired
	assert.NoError(t, err)
}

func TestSQLite_SubmissionLifecycle(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateAccount(ctx, testAccount("a1", "alice@example.com")))

	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	older := &model.Submission{
		ID:              "s1",
		AccountID:       "a1",
		ApplicationType: "Undergraduate",
		TargetProgram:   "Computer Science",
		Summary:         "First attempt.",
		Documents: []model.Document{
			{Name: "transcript.pdf", Size: 48213, Type: "application/pdf"},
			{Name: "essay.docx", Size: 9001, Type: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		},
		Status:      model.SubmissionSubmitted,
		SubmittedAt: base,
	}
	newer := &model.Submission{
		ID:              "s2",
		AccountID:       "a1",
		ApplicationType: "Scholarship",
		TargetProgram:   "Computer Science",
		Summary:         "Second attempt.",
		Documents:       []model.Document{{Name: "recommendation.pdf", Size: 1024, Type: "application/pdf"}},
		Status:          model.SubmissionSubmitted,
		SubmittedAt:     base.Add(time.Hour),
	}
	require.NoError(t, repo.CreateSubmission(ctx, older))
	require.NoError(t, repo.CreateSubmission(ctx, newer))

	got, err := repo.GetSubmission(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got.Documents, 2)
	assert.Equal(t, "transcript.pdf", got.Documents[0].Name)
	assert.Nil(t, got.AdmissionLetter)

	subs, err := repo.ListSubmissionsByAccount(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "s2", subs[0].ID, "newest first")

	require.NoError(t, repo.SetSubmissionStatus(ctx, "s1", model.SubmissionQualified))
	got, err = repo.GetSubmission(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionQualified, got.Status)

	letter := &model.AdmissionLetter{
		LetterID: "TIH-ADMIT-2025-4242",
		Message:  "Welcome aboard.",
		IssuedAt: base.Add(2 * time.Hour),
		IssuedBy: "Portal Administrator",
	}
	require.NoError(t, repo.AttachAdmissionLetter(ctx, "s1", letter))

	got, err = repo.GetSubmission(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got.AdmissionLetter)
	assert.Equal(t, letter.LetterID, got.AdmissionLetter.LetterID)
	assert.Equal(t, model.SubmissionLetterIssued, got.Status)
	assert.True(t, letter.IssuedAt.Equal(got.AdmissionLetter.IssuedAt))

	_, err = repo.GetSubmission(ctx, "missing")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
	assert.ErrorIs(t, repo.SetSubmissionStatus(ctx, "missing", model.SubmissionQualified), ErrSubmissionNotFound)
	assert.ErrorIs(t, repo.AttachAdmissionLetter(ctx, "missing", letter), ErrSubmissionNotFound)
}
