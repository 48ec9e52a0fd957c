package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

var defaultCORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort        string
	JWTSecret       string
	TokenExpiration time.Duration

	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	RedisURL       string
	IdempotencyTTL time.Duration

	LLMProvider    string
	LLMAPIKey      string
	LLMModel       string
	LLMBaseURL     string
	LLMMaxAttempts int
	// LLMAttemptTimeout bounds one provider call; retries and the fallback
	// follow an overrun.
	LLMAttemptTimeout time.Duration

	CORSAllowedOrigins []string
}

// LoadEnvFile loads variables from path without overriding ones already set.
// A missing file is not an error.
func LoadEnvFile(path string) {
	if err := godotenv.Load(path); err != nil {
		log.Printf("Warning: Could not load %s. Using environment variables only. %v", path, err)
	}
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	tokenExpHours, err := getEnvInt("JWT_EXPIRATION_HOURS", 24)
	if err != nil {
		return nil, err
	}
	idempotencyHours, err := getEnvInt("IDEMPOTENCY_TTL_HOURS", 24)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := getEnvInt("LLM_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("LLM_MAX_ATTEMPTS must be at least 1, got %d", maxAttempts)
	}
	attemptTimeoutSecs, err := getEnvInt("LLM_ATTEMPT_TIMEOUT_SECONDS", 15)
	if err != nil {
		return nil, err
	}
	if attemptTimeoutSecs < 1 {
		return nil, fmt.Errorf("LLM_ATTEMPT_TIMEOUT_SECONDS must be at least 1, got %d", attemptTimeoutSecs)
	}

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		JWTSecret:          getEnv("JWT_SECRET", "default-super-secret-key"), // CHANGE THIS IN PRODUCTION!
		TokenExpiration:    time.Hour * time.Duration(tokenExpHours),
		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SQLitePath:         getEnv("SQLITE_PATH", "reqnexa.db"),
		RedisURL:           getEnv("REDIS_URL", ""),
		IdempotencyTTL:     time.Hour * time.Duration(idempotencyHours),
		LLMProvider:        strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		LLMModel:           getEnv("LLM_MODEL", ""),
		LLMBaseURL:         getEnv("LLM_BASE_URL", ""),
		LLMMaxAttempts:     maxAttempts,
		LLMAttemptTimeout:  time.Second * time.Duration(attemptTimeoutSecs),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", strings.Join(defaultCORSOrigins, ","))),
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is not set (STORE_DRIVER=%s)", cfg.StoreDriver)
		}
	case StoreDriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH must not be empty (STORE_DRIVER=%s)", cfg.StoreDriver)
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q (want %s or %s)", cfg.StoreDriver, StoreDriverPostgres, StoreDriverSQLite)
	}

	log.Printf("Loaded config: Port=%s, Store=%s, Redis=%t, LLMProvider=%s, LLMKey=%t, TokenExp=%s",
		cfg.HTTPPort, cfg.StoreDriver, cfg.RedisURL != "", cfg.LLMProvider, cfg.LLMAPIKey != "", cfg.TokenExpiration)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
