package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	SessionSecret string

	// DatabaseURL selects the Postgres backend when set. When empty the
	// service runs against an embedded SQLite file at SQLitePath.
	DatabaseURL string
	SQLitePath  string

	StaticDir string

	// Optional administrative singleton, upserted at startup.
	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from a .env file or environment variables.
// It returns an error if any required variable is missing.
func Load() (*Config, error) {
	// Try to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getenv("PORT", "3000"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SQLitePath:    getenv("SQLITE_PATH", "data/app.db"),
		StaticDir:     getenv("STATIC_DIR", "public"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("missing required environment variable SESSION_SECRET")
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return nil, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
