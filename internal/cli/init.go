// Package cli provides common bootstrap utilities shared by cmd/pfms
// and cmd/pfms-worker.
package cli

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"pfms/internal/auth"
	"pfms/internal/config"
	applog "pfms/internal/log"
	"pfms/internal/storage"
)

// SetupLogger initializes structured logging for the named component
// and installs it as the default logger.
func SetupLogger(component string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Component = component
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. Errors are
// ignored, the file is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it, exiting
// the process on failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the SQLite repository, exiting the process on
// failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// SeedAdminUser creates the configured admin account if it does not
// exist yet. The password is bcrypt-hashed before storage.
func SeedAdminUser(ctx context.Context, logger *applog.Logger, repo *storage.SQLiteRepository, cfg *config.Config) {
	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		logger.Error("Failed to hash seed password", "error", err)
		os.Exit(1)
	}
	if err := repo.EnsureUser(ctx, cfg.SeedAdminUser, hash); err != nil {
		logger.Error("Failed to seed admin user", "error", err, "username", cfg.SeedAdminUser)
		os.Exit(1)
	}
}
