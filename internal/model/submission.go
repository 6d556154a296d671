package model

import "time"

// SubmissionStatus is the review state of an application submission.
type SubmissionStatus string

const (
	SubmissionSubmitted    SubmissionStatus = "Submitted"
	SubmissionUnderReview  SubmissionStatus = "Under Review"
	SubmissionNeedsDocs    SubmissionStatus = "Needs More Documents"
	SubmissionQualified    SubmissionStatus = "Qualified"
	SubmissionLetterIssued SubmissionStatus = "Admission Letter Issued"
)

// ValidSubmissionStatus reports whether s is one of the known review states.
func ValidSubmissionStatus(s SubmissionStatus) bool {
	switch s {
	case SubmissionSubmitted, SubmissionUnderReview, SubmissionNeedsDocs,
		SubmissionQualified, SubmissionLetterIssued:
		return true
	}
	return false
}

// Document holds metadata about an uploaded file. The file bytes
// themselves are not stored.
type Document struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

type AdmissionLetter struct {
	LetterID string    `json:"letterId"`
	Message  string    `json:"message"`
	IssuedAt time.Time `json:"issuedAt"`
	IssuedBy string    `json:"issuedBy"`
}

type Submission struct {
	ID              string
	AccountID       string
	ApplicationType string
	TargetProgram   string
	Summary         string
	Documents       []Document
	Status          SubmissionStatus
	SubmittedAt     time.Time
	AdmissionLetter *AdmissionLetter // nil until issued
}
