package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/tolberthub/student-portal/internal/model"
	"github.com/tolberthub/student-portal/internal/service"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "portal_session"

type contextKey int

const accountKey contextKey = 0

// AccountFromContext returns the account attached by RequireSession.
func AccountFromContext(ctx context.Context) (*model.Account, bool) {
	acct, ok := ctx.Value(accountKey).(*model.Account)
	return acct, ok
}

// ExtractToken pulls the session token from the request cookie or, for
// API callers, from a bearer Authorization header.
func ExtractToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// RequireSession gates protected resources. Deny reasons are NoSession,
// ExpiredSession and AccountBlocked; page requests are redirected to
// the login entry point with a return-to parameter, API requests get a
// structured unauthorized error. An anonymous caller sees the same deny
// shape whether or not the resource exists.
func RequireSession(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acct, _, err := auth.Authenticate(r.Context(), ExtractToken(r))
			if err != nil {
				deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey, acct)))
		})
	}
}

// RequireAdmin gates administrative resources. Non-admin callers get
// the same unauthorized shape as anonymous ones, so the admin surface
// is not discoverable.
func RequireAdmin(auth *service.AuthService) func(http.Handler) http.Handler {
	requireSession := RequireSession(auth)
	return func(next http.Handler) http.Handler {
		return requireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acct, ok := AccountFromContext(r.Context())
			if !ok || acct.Role != model.RoleAdmin {
				unauthorizedJSON(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func deny(w http.ResponseWriter, r *http.Request, err error) {
	if isPageRequest(r) {
		redirect := url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, "/login.html?redirect="+redirect, http.StatusFound)
		return
	}

	switch {
	case errors.Is(err, service.ErrAccountBlocked):
		unauthorizedJSON(w, http.StatusForbidden, "Account is blocked.")
	case errors.Is(err, service.ErrSessionExpired):
		unauthorizedJSON(w, http.StatusUnauthorized, "Unauthorized")
	default: // no or invalid session
		unauthorizedJSON(w, http.StatusUnauthorized, "Unauthorized")
	}
}

func isPageRequest(r *http.Request) bool {
	return !strings.HasPrefix(r.URL.Path, "/api/")
}

func unauthorizedJSON(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
