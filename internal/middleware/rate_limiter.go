package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimiter caps raw request volume per client IP on regular
// endpoints (100 requests per minute). It backstops, not replaces, the
// login attempt limiter, which only counts failed credential checks.
func RateLimiter() func(http.Handler) http.Handler {
	return httprate.LimitByIP(100, time.Minute)
}

// StrictRateLimiter is the tighter cap for the credential endpoints
// (10 requests per minute per IP).
func StrictRateLimiter() func(http.Handler) http.Handler {
	return httprate.LimitByIP(10, time.Minute)
}
