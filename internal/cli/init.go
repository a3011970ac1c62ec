// Package cli holds the start-up steps shared by cmd/bolsya and
// cmd/bolsya-worker.
package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bolsya/internal/config"
	"bolsya/internal/log"
	"bolsya/internal/storage"
)

// Bootstrap loads .env (when present) and the configuration, installs the
// default logger for component and validates the configuration with
// validate. It exits the process when validation fails.
func Bootstrap(component string, validate func(*config.Config) error) (*config.Config, *log.Logger) {
	// Errors are ignored: .env is optional outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel, component)

	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg, logger
}

// SetupLogger builds a stdout logger at level and makes it the default.
func SetupLogger(level, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// InitSQLite opens the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeDatabase,
			"path", dbPath)
		os.Exit(1)
	}
	return repo
}

// ShutdownSignals returns a channel receiving SIGINT and SIGTERM.
func ShutdownSignals() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}
