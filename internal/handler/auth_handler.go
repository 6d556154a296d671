package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tolberthub/student-portal/internal/middleware"
	"github.com/tolberthub/student-portal/internal/model"
	"github.com/tolberthub/student-portal/internal/service"
)

type AuthHandler struct {
	auth          *service.AuthService
	log           *slog.Logger
	secureCookies bool
}

func NewAuthHandler(auth *service.AuthService, log *slog.Logger, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		auth:          auth,
		log:           log.With("component", "http"),
		secureCookies: secureCookies,
	}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
}

type accountSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// Register handles account creation and issues a session for the new
// account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	acct, token, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password, req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			sendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, service.ErrDuplicateAccount):
			sendJSONError(w, err.Error(), http.StatusConflict)
		default:
			h.log.ErrorContext(r.Context(), "register failed", "error", err)
			sendJSONError(w, "Unable to create account.", http.StatusInternalServerError)
		}
		return
	}

	h.setSessionCookie(w, token)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"message": "Account registered successfully",
		"email":   acct.Email,
		"token":   token,
	})
}

// Login verifies credentials and issues a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	_, token, err := h.auth.Login(r.Context(), req.Email, req.Password, clientKey(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRateLimited):
			sendJSONError(w, err.Error(), http.StatusTooManyRequests)
		case errors.Is(err, service.ErrInvalidInput):
			sendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, service.ErrInvalidCredentials):
			sendJSONError(w, err.Error(), http.StatusUnauthorized)
		case errors.Is(err, service.ErrAccountBlocked):
			sendJSONError(w, err.Error(), http.StatusForbidden)
		default:
			h.log.ErrorContext(r.Context(), "login failed", "error", err)
			sendJSONError(w, "Unable to log in.", http.StatusInternalServerError)
		}
		return
	}

	h.setSessionCookie(w, token)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token})
}

// Logout revokes the session and clears the cookie. Logging out
// without a session is a no-op success.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), middleware.ExtractToken(r)); err != nil {
		h.log.ErrorContext(r.Context(), "logout failed", "error", err)
		sendJSONError(w, "Failed to logout", http.StatusInternalServerError)
		return
	}

	h.clearSessionCookie(w)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logged out successfully"})
}

// Me reports who the caller is. It never errors: an invalid or absent
// session yields the anonymous marker.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	acct, _, err := h.auth.Authenticate(r.Context(), middleware.ExtractToken(r))
	if err != nil {
		json.NewEncoder(w).Encode(map[string]any{"authenticated": false})
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"authenticated": true,
		"user": accountSummary{
			ID:     acct.ID,
			Name:   acct.Name,
			Email:  acct.Email,
			Role:   string(acct.Role),
			Status: string(acct.Status),
		},
	})
}

// ForgotPassword acknowledges the request without acting on it, so the
// response does not reveal whether the email exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetAccountStatus is the administrative block/unblock endpoint.
func (h *AuthHandler) SetAccountStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	status := model.Status(req.Status)
	if status != model.StatusActive && status != model.StatusBlocked {
		sendJSONError(w, "Status must be Active or Blocked", http.StatusBadRequest)
		return
	}

	err := h.auth.SetAccountStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			sendJSONError(w, "Account not found", http.StatusNotFound)
		default:
			h.log.ErrorContext(r.Context(), "status change failed", "error", err)
			sendJSONError(w, "Unable to update account.", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(service.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies,
	})
}

// clientKey identifies the caller for login rate limiting. RealIP
// middleware has already resolved proxy headers into RemoteAddr.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// sendJSONError writes a structured error response.
func sendJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(AuthResponse{Error: message})
}
