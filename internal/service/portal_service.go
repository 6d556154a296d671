package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tolberthub/student-portal/internal/interfaces"
	"github.com/tolberthub/student-portal/internal/model"
	"github.com/tolberthub/student-portal/internal/repository"
)

// PortalService covers the application-submission workflow sitting on
// top of authenticated sessions: students submit application metadata,
// admins review it and issue admission letters.
type PortalService struct {
	submissions interfaces.SubmissionRepository
	log         *slog.Logger
	now         func() time.Time
}

func NewPortalService(submissions interfaces.SubmissionRepository, log *slog.Logger) *PortalService {
	return &PortalService{
		submissions: submissions,
		log:         log.With("component", "portal"),
		now:         time.Now,
	}
}

// SubmissionInput is what a student provides when applying. Documents
// carry metadata only; file contents are never stored.
type SubmissionInput struct {
	ApplicationType string
	TargetProgram   string
	Summary         string
	Documents       []model.Document
}

func (s *PortalService) SubmitApplication(ctx context.Context, accountID string, in SubmissionInput) (*model.Submission, error) {
	in.ApplicationType = strings.TrimSpace(in.ApplicationType)
	in.TargetProgram = strings.TrimSpace(in.TargetProgram)
	in.Summary = strings.TrimSpace(in.Summary)

	if in.ApplicationType == "" || in.TargetProgram == "" || in.Summary == "" {
		return nil, fmt.Errorf("%w: application type, target program and summary are required", ErrInvalidInput)
	}
	if len(in.Documents) == 0 {
		return nil, fmt.Errorf("%w: at least one supporting document is required", ErrInvalidInput)
	}
	for _, doc := range in.Documents {
		if doc.Name == "" {
			return nil, fmt.Errorf("%w: document name is required", ErrInvalidInput)
		}
	}

	sub := &model.Submission{
		ID:              uuid.NewString(),
		AccountID:       accountID,
		ApplicationType: in.ApplicationType,
		TargetProgram:   in.TargetProgram,
		Summary:         in.Summary,
		Documents:       in.Documents,
		Status:          model.SubmissionSubmitted,
		SubmittedAt:     s.now(),
	}

	if err := s.submissions.CreateSubmission(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "application submitted",
		"submission_id", sub.ID, "account_id", accountID, "documents", len(sub.Documents))
	return sub, nil
}

func (s *PortalService) ListOwnSubmissions(ctx context.Context, accountID string) ([]*model.Submission, error) {
	return s.submissions.ListSubmissionsByAccount(ctx, accountID)
}

func (s *PortalService) ListAllSubmissions(ctx context.Context) ([]*model.Submission, error) {
	return s.submissions.ListAllSubmissions(ctx)
}

// UpdateSubmissionStatus sets the review state of a submission.
func (s *PortalService) UpdateSubmissionStatus(ctx context.Context, id string, status model.SubmissionStatus) error {
	if !model.ValidSubmissionStatus(status) {
		return fmt.Errorf("%w: unknown review status %q", ErrInvalidInput, status)
	}
	if err := s.submissions.SetSubmissionStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrSubmissionNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// IssueAdmissionLetter attaches a letter to a submission and marks it
// as issued.
func (s *PortalService) IssueAdmissionLetter(ctx context.Context, id, message, issuedBy string) (*model.AdmissionLetter, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: letter message is required", ErrInvalidInput)
	}

	now := s.now()
	letter := &model.AdmissionLetter{
		LetterID: fmt.Sprintf("TIH-ADMIT-%d-%04d", now.Year(), rand.IntN(9000)+1000),
		Message:  message,
		IssuedAt: now,
		IssuedBy: issuedBy,
	}

	if err := s.submissions.AttachAdmissionLetter(ctx, id, letter); err != nil {
		if errors.Is(err, repository.ErrSubmissionNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.log.InfoContext(ctx, "admission letter issued",
		"submission_id", id, "letter_id", letter.LetterID)
	return letter, nil
}
