package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const minJWTSecretLength = 16

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	// Database
	SQLiteDBPath string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// AI advisor
	GeminiAPIKey string
	GeminiModel  string

	// AMQP (optional on the server, required by the export worker)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	// Caching and limits
	StatsCacheSize          int
	StatsCacheTTL           time.Duration
	CacheCleanupInterval    time.Duration
	RecentTransactionsLimit int
	ChatHistoryLimit        int
	ChatRequestsPerMinute   int

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bolsya.db"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 72*time.Hour),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "bolsya"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_export"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),

		StatsCacheSize:          getEnvInt("STATS_CACHE_SIZE", 256),
		StatsCacheTTL:           getEnvDuration("STATS_CACHE_TTL", 5*time.Minute),
		CacheCleanupInterval:    getEnvDuration("CACHE_CLEANUP_INTERVAL", time.Minute),
		RecentTransactionsLimit: getEnvInt("RECENT_TRANSACTIONS_LIMIT", 10),
		ChatHistoryLimit:        getEnvInt("CHAT_HISTORY_LIMIT", 100),
		ChatRequestsPerMinute:   getEnvInt("CHAT_REQUESTS_PER_MINUTE", 10),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the settings the API server needs and reports every
// problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	errors = append(errors, c.validateDatabase()...)

	if len(c.JWTSecret) < minJWTSecretLength {
		errors = append(errors, fmt.Sprintf("JWT_SECRET must be at least %d characters", minJWTSecretLength))
	}
	if c.TokenTTL < time.Minute || c.TokenTTL > 30*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid token TTL %v: must be between 1 minute and 30 days", c.TokenTTL))
	}

	if c.GeminiAPIKey != "" && strings.TrimSpace(c.GeminiModel) == "" {
		errors = append(errors, "GEMINI_MODEL cannot be empty when GEMINI_API_KEY is provided")
	}

	if c.AMQPURL != "" {
		errors = append(errors, c.validateAMQP()...)
	}

	if c.StatsCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid stats cache size %d: must be at least 1", c.StatsCacheSize))
	}
	if c.StatsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid stats cache TTL %v: must not be negative", c.StatsCacheTTL))
	}
	if c.CacheCleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must be at least 1 second", c.CacheCleanupInterval))
	}
	if c.RecentTransactionsLimit < 1 || c.RecentTransactionsLimit > 100 {
		errors = append(errors, fmt.Sprintf("invalid recent transactions limit %d: must be between 1 and 100", c.RecentTransactionsLimit))
	}
	if c.ChatHistoryLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid chat history limit %d: must not be negative", c.ChatHistoryLimit))
	}
	if c.ChatRequestsPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid chat requests per minute %d: must be at least 1", c.ChatRequestsPerMinute))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker checks the settings of the spreadsheet export worker.
func (c *Config) ValidateWorker() error {
	var errors []string

	errors = append(errors, c.validateDatabase()...)

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required by the export worker")
	} else {
		errors = append(errors, c.validateAMQP()...)
	}

	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required by the export worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required by the export worker")
	}
	if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided")
	}
	if c.GoogleCredentialsFile != "" && c.GoogleCredentialsJSON == "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleCredentialsFile))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateDatabase() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func (c *Config) validateAMQP() []string {
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
