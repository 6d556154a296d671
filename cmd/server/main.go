package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tolberthub/student-portal/internal/config"
	"github.com/tolberthub/student-portal/internal/database"
	"github.com/tolberthub/student-portal/internal/handler"
	"github.com/tolberthub/student-portal/internal/interfaces"
	"github.com/tolberthub/student-portal/internal/password"
	"github.com/tolberthub/student-portal/internal/ratelimit"
	"github.com/tolberthub/student-portal/internal/repository"
	"github.com/tolberthub/student-portal/internal/service"
)

// store is whichever backend the configuration selected; both
// repository implementations satisfy all three interfaces.
type store interface {
	interfaces.AccountRepository
	interfaces.SessionRepository
	interfaces.SubmissionRepository
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Pick the store backend: Postgres when DATABASE_URL is set,
	// otherwise the embedded SQLite file.
	var (
		repo        store
		closeStore  func()
		backendName string
	)
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		repo = repository.NewPostgresRepository(db)
		closeStore = db.Close
		backendName = "postgres"
	} else {
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		repo = repository.NewSQLiteRepository(db)
		closeStore = func() { db.Close() }
		backendName = "sqlite"
	}
	defer closeStore()

	// Initialize services and handlers
	hasher := password.NewBcryptHasher(password.DefaultCost)
	limiter := ratelimit.NewDefault()
	authService := service.NewAuthService(repo, repo, hasher, limiter, cfg.SessionSecret, log)
	portalService := service.NewPortalService(repo, log)

	if cfg.AdminEmail != "" {
		if err := authService.BootstrapAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Error("failed to bootstrap admin account", "error", err)
			os.Exit(1)
		}
	}

	secureCookies := os.Getenv("ENV") == "production"
	authHandler := handler.NewAuthHandler(authService, log, secureCookies)
	portalHandler := handler.NewPortalHandler(portalService, log)

	r := handler.NewRouter(authHandler, portalHandler, authService, cfg.StaticDir)

	// Periodically drop expired session rows.
	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	defer cancelCleanup()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				if n, err := authService.CleanupExpiredSessions(cleanupCtx); err != nil {
					log.Warn("session cleanup failed", "error", err)
				} else if n > 0 {
					log.Info("expired sessions removed", "count", n)
				}
			}
		}
	}()

	// Create server with timeouts
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server starting", "port", cfg.Port, "store", backendName)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("server is shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server exited properly")
}
