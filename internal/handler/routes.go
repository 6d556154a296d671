package handler

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tolberthub/student-portal/internal/middleware"
	"github.com/tolberthub/student-portal/internal/service"
)

// NewRouter assembles the full HTTP surface. staticDir holds the
// public site; the tutorial page inside it is gated by the session
// guard while everything else is served as-is.
func NewRouter(authH *AuthHandler, portalH *PortalHandler, auth *service.AuthService, staticDir string) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RateLimiter())

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Credential endpoints with strict rate limiting
	r.Group(func(r chi.Router) {
		r.Use(middleware.StrictRateLimiter())
		r.Post("/api/register", authH.Register)
		r.Post("/api/login", authH.Login)
		r.Post("/api/forgot-password", authH.ForgotPassword)
	})

	r.Post("/api/logout", authH.Logout)
	r.Get("/api/me", authH.Me)

	// Protected student resources
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(auth))
		r.Get("/api/tutorial", portalH.Tutorial)
		r.Post("/api/submissions", portalH.Submit)
		r.Get("/api/submissions", portalH.ListOwn)
	})

	// Administrative resources
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(auth))
		r.Get("/api/admin/submissions", portalH.ListAll)
		r.Put("/api/admin/submissions/{id}/status", portalH.UpdateStatus)
		r.Post("/api/admin/submissions/{id}/letter", portalH.IssueLetter)
		r.Put("/api/admin/accounts/{id}/status", authH.SetAccountStatus)
	})

	// Gated tutorial page, then the rest of the static site
	r.With(middleware.RequireSession(auth)).Get("/ielts-toefl.html", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(staticDir, "ielts-toefl.html"))
	})
	r.Handle("/*", http.FileServer(http.Dir(staticDir)))

	return r
}
