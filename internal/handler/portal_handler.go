package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tolberthub/student-portal/internal/middleware"
	"github.com/tolberthub/student-portal/internal/model"
	"github.com/tolberthub/student-portal/internal/service"
)

type PortalHandler struct {
	portal *service.PortalService
	log    *slog.Logger
}

func NewPortalHandler(portal *service.PortalService, log *slog.Logger) *PortalHandler {
	return &PortalHandler{
		portal: portal,
		log:    log.With("component", "http"),
	}
}

type submissionRequest struct {
	ApplicationType string           `json:"applicationType"`
	TargetProgram   string           `json:"targetProgram"`
	Summary         string           `json:"summary"`
	Documents       []model.Document `json:"documents"`
}

type submissionResponse struct {
	ID              string                 `json:"id"`
	AccountID       string                 `json:"accountId,omitempty"`
	ApplicationType string                 `json:"applicationType"`
	TargetProgram   string                 `json:"targetProgram"`
	Summary         string                 `json:"summary"`
	Documents       []model.Document       `json:"documents"`
	Status          string                 `json:"status"`
	SubmittedAt     time.Time              `json:"submittedAt"`
	AdmissionLetter *model.AdmissionLetter `json:"admissionLetter,omitempty"`
}

func toSubmissionResponse(sub *model.Submission, includeAccount bool) submissionResponse {
	resp := submissionResponse{
		ID:              sub.ID,
		ApplicationType: sub.ApplicationType,
		TargetProgram:   sub.TargetProgram,
		Summary:         sub.Summary,
		Documents:       sub.Documents,
		Status:          string(sub.Status),
		SubmittedAt:     sub.SubmittedAt,
		AdmissionLetter: sub.AdmissionLetter,
	}
	if includeAccount {
		resp.AccountID = sub.AccountID
	}
	return resp
}

// Tutorial serves the protected tutorial payload; the access guard has
// already admitted the caller.
func (h *PortalHandler) Tutorial(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Protected tutorial content."})
}

// Submit records an application with its document metadata for the
// logged-in student.
func (h *PortalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	acct, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := h.portal.SubmitApplication(r.Context(), acct.ID, service.SubmissionInput{
		ApplicationType: req.ApplicationType,
		TargetProgram:   req.TargetProgram,
		Summary:         req.Summary,
		Documents:       req.Documents,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.ErrorContext(r.Context(), "submission failed", "error", err)
		sendJSONError(w, "Unable to save submission.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toSubmissionResponse(sub, false))
}

// ListOwn returns the logged-in student's submissions, newest first.
func (h *PortalHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	acct, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	subs, err := h.portal.ListOwnSubmissions(r.Context(), acct.ID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "listing submissions failed", "error", err)
		sendJSONError(w, "Unable to load submissions.", http.StatusInternalServerError)
		return
	}

	resp := make([]submissionResponse, 0, len(subs))
	for _, sub := range subs {
		resp = append(resp, toSubmissionResponse(sub, false))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"submissions": resp})
}

// ListAll is the admin review view: every submission plus totals.
func (h *PortalHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	subs, err := h.portal.ListAllSubmissions(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "listing submissions failed", "error", err)
		sendJSONError(w, "Unable to load submissions.", http.StatusInternalServerError)
		return
	}

	issued := 0
	resp := make([]submissionResponse, 0, len(subs))
	for _, sub := range subs {
		if sub.AdmissionLetter != nil {
			issued++
		}
		resp = append(resp, toSubmissionResponse(sub, true))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"submissions": resp,
		"summary": map[string]int{
			"totalSubmissions": len(subs),
			"issuedLetters":    issued,
		},
	})
}

// UpdateStatus sets a submission's review status.
func (h *PortalHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.portal.UpdateSubmissionStatus(r.Context(), chi.URLParam(r, "id"), model.SubmissionStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			sendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, service.ErrNotFound):
			sendJSONError(w, "Submission not found", http.StatusNotFound)
		default:
			h.log.ErrorContext(r.Context(), "status update failed", "error", err)
			sendJSONError(w, "Unable to update submission.", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

type letterRequest struct {
	Message string `json:"message"`
}

// IssueLetter attaches an admission letter to a submission.
func (h *PortalHandler) IssueLetter(w http.ResponseWriter, r *http.Request) {
	acct, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req letterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	letter, err := h.portal.IssueAdmissionLetter(r.Context(), chi.URLParam(r, "id"), req.Message, acct.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			sendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, service.ErrNotFound):
			sendJSONError(w, "Submission not found", http.StatusNotFound)
		default:
			h.log.ErrorContext(r.Context(), "letter issuance failed", "error", err)
			sendJSONError(w, "Unable to issue letter.", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(letter)
}
