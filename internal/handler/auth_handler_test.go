package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/tolberthub/student-portal/internal/middleware"
	"github.com/tolberthub/student-portal/internal/password"
	"github.com/tolberthub/student-portal/internal/ratelimit"
	"github.com/tolberthub/student-portal/internal/service"
	"github.com/tolberthub/student-portal/internal/test"
)

type handlerEnv struct {
	router http.Handler
	repo   *test.MemoryRepository
	auth   *service.AuthService
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	repo := test.NewMemoryRepository()
	auth := service.NewAuthService(
		repo, repo,
		password.NewBcryptHasher(bcrypt.MinCost),
		ratelimit.NewDefault(),
		"test-secret",
		log,
	)
	portal := service.NewPortalService(repo, log)

	router := NewRouter(
		NewAuthHandler(auth, log, false),
		NewPortalHandler(portal, log),
		auth,
		t.TempDir(),
	)
	return &handlerEnv{router: router, repo: repo, auth: auth}
}

type request struct {
	method string
	path   string
	body   any
	token  string
	remote string
}

func (e *handlerEnv) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if req.body != nil {
		if err := json.NewEncoder(&body).Encode(req.body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	r := httptest.NewRequest(req.method, req.path, &body)
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	if req.remote != "" {
		r.RemoteAddr = req.remote
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, r)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func (e *handlerEnv) register(t *testing.T, email string) string {
	t.Helper()
	_, token, err := e.auth.Register(context.Background(), "Alice Smith", email, "P@ssw0rd1", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return token
}

func (e *handlerEnv) adminToken(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	if err := e.auth.BootstrapAdmin(ctx, "admin@example.com", "adminpass"); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	_, token, err := e.auth.Login(ctx, "admin@example.com", "adminpass", "admin-origin")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	return token
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	return nil
}

func TestRegisterEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{
			name:       "valid registration",
			body:       RegisterRequest{Name: "Alice Smith", Email: "alice@example.com", Password: "P@ssw0rd1"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "short password",
			body:       RegisterRequest{Name: "Alice Smith", Email: "alice@example.com", Password: "short"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing email",
			body:       RegisterRequest{Name: "Alice Smith", Password: "P@ssw0rd1"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       "not json",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newHandlerEnv(t)
			rec := env.do(t, request{method: http.MethodPost, path: "/api/register", body: tt.body})

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusCreated {
				body := decodeJSON(t, rec)
				if body["token"] == "" {
					t.Error("response missing session token")
				}
				c := sessionCookie(rec)
				if c == nil || c.Value == "" {
					t.Fatal("session cookie not set")
				}
				if !c.HttpOnly {
					t.Error("session cookie must be HttpOnly")
				}
			}
		})
	}
}

func TestRegisterEndpoint_Duplicate(t *testing.T) {
	env := newHandlerEnv(t)
	env.register(t, "alice@example.com")

	// Case-insensitive duplicate.
	rec := env.do(t, request{
		method: http.MethodPost,
		path:   "/api/register",
		body:   RegisterRequest{Name: "Other Alice", Email: "ALICE@example.com", Password: "Different1"},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := newHandlerEnv(t)
	env.register(t, "alice@example.com")

	t.Run("valid credentials", func(t *testing.T) {
		rec := env.do(t, request{
			method: http.MethodPost,
			path:   "/api/login",
			body:   LoginRequest{Email: "alice@example.com", Password: "P@ssw0rd1"},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		var resp AuthResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Token == "" {
			t.Error("response missing session token")
		}
		if sessionCookie(rec) == nil {
			t.Error("session cookie not set")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := env.do(t, request{
			method: http.MethodPost,
			path:   "/api/login",
			body:   LoginRequest{Email: "alice@example.com", Password: "WrongPass1"},
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("unknown email gets same status", func(t *testing.T) {
		rec := env.do(t, request{
			method: http.MethodPost,
			path:   "/api/login",
			body:   LoginRequest{Email: "nobody@example.com", Password: "P@ssw0rd1"},
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestLoginEndpoint_RateLimited(t *testing.T) {
	env := newHandlerEnv(t)
	env.register(t, "alice@example.com")

	// Five failed attempts from one address exhaust the attempt budget.
	for i := 0; i < 5; i++ {
		rec := env.do(t, request{
			method: http.MethodPost,
			path:   "/api/login",
			body:   LoginRequest{Email: "alice@example.com", Password: "WrongPass1"},
			remote: "203.0.113.7:1234",
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i+1, rec.Code)
		}
	}

	rec := env.do(t, request{
		method: http.MethodPost,
		path:   "/api/login",
		body:   LoginRequest{Email: "alice@example.com", Password: "P@ssw0rd1"},
		remote: "203.0.113.7:1234",
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 even with correct password", rec.Code)
	}

	// Another address is unaffected.
	rec = env.do(t, request{
		method: http.MethodPost,
		path:   "/api/login",
		body:   LoginRequest{Email: "alice@example.com", Password: "P@ssw0rd1"},
		remote: "198.51.100.9:1234",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("other client: status = %d, want 200", rec.Code)
	}
}

func TestLogoutEndpoint(t *testing.T) {
	env := newHandlerEnv(t)
	token := env.register(t, "alice@example.com")

	rec := env.do(t, request{method: http.MethodPost, path: "/api/logout", token: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if c := sessionCookie(rec); c == nil || c.MaxAge != -1 {
		t.Error("session cookie not cleared")
	}

	// The revoked token no longer grants access.
	rec = env.do(t, request{method: http.MethodGet, path: "/api/tutorial", token: token})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token: status = %d, want 401", rec.Code)
	}

	// Logging out again is still a success.
	rec = env.do(t, request{method: http.MethodPost, path: "/api/logout", token: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat logout: status = %d, want 200", rec.Code)
	}
}

func TestMeEndpoint(t *testing.T) {
	env := newHandlerEnv(t)

	rec := env.do(t, request{method: http.MethodGet, path: "/api/me"})
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous: status = %d, want 200", rec.Code)
	}
	if body := decodeJSON(t, rec); body["authenticated"] != false {
		t.Error("anonymous caller reported as authenticated")
	}

	token := env.register(t, "alice@example.com")
	rec = env.do(t, request{method: http.MethodGet, path: "/api/me", token: token})
	body := decodeJSON(t, rec)
	if body["authenticated"] != true {
		t.Fatal("logged-in caller reported as anonymous")
	}
	user, ok := body["user"].(map[string]any)
	if !ok || user["email"] != "alice@example.com" {
		t.Errorf("user payload = %v", body["user"])
	}
}

func TestForgotPasswordEndpoint(t *testing.T) {
	env := newHandlerEnv(t)

	// Same acknowledgement whether or not the email exists.
	for _, email := range []string{"alice@example.com", "nobody@example.com"} {
		rec := env.do(t, request{
			method: http.MethodPost,
			path:   "/api/forgot-password",
			body:   map[string]string{"email": email},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if body := decodeJSON(t, rec); body["success"] != true {
			t.Errorf("body = %v", body)
		}
	}
}

func TestSetAccountStatusEndpoint(t *testing.T) {
	env := newHandlerEnv(t)
	adminToken := env.adminToken(t)
	studentToken := env.register(t, "alice@example.com")

	acct, _, err := env.auth.Authenticate(context.Background(), studentToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	t.Run("student cannot block accounts", func(t *testing.T) {
		rec := env.do(t, request{
			method: http.MethodPut,
			path:   "/api/admin/accounts/" + acct.ID + "/status",
			body:   map[string]string{"status": "Blocked"},
			token:  studentToken,
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("invalid status value", func(t *testing.T) {
		rec := env.do(t, request{
			method: http.MethodPut,
			path:   "/api/admin/accounts/" + acct.ID + "/status",
			body:   map[string]string{"status": "Suspended"},
			token:  adminToken,
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		rec := env.do(t, request{
			method: http.MethodPut,
			path:   "/api/admin/accounts/missing/status",
			body:   map[string]string{"status": "Blocked"},
			token:  adminToken,
		})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("block takes effect immediately", func(t *testing.T) {
		rec := env.do(t, request{
			method: http.MethodPut,
			path:   "/api/admin/accounts/" + acct.ID + "/status",
			body:   map[string]string{"status": "Blocked"},
			token:  adminToken,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}

		rec = env.do(t, request{method: http.MethodGet, path: "/api/tutorial", token: studentToken})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("blocked student: status = %d, want 403", rec.Code)
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	env := newHandlerEnv(t)
	rec := env.do(t, request{method: http.MethodGet, path: "/health"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", rec.Body.String())
	}
}
