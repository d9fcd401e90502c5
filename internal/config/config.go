package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            string
	Environment     string
	SupabaseURL     string
	SupabaseKey     string
	SupabaseDBURL   string
	SupabaseJWKSURL string // Constructed from SupabaseURL + /auth/v1/.well-known/jwks.json
	CORSOrigins     string
	TablePrefix     string
	// Storage backend: "postgres" (Supabase) or "sqlite" (local)
	DatabaseDriver string
	SQLitePath     string
	// LLM Configuration
	AnthropicAPIKey   string
	OpenAIAPIKey      string
	EnhancedModel     string
	BasicModel        string
	RemoteTierTimeout time.Duration
	// Encryption at rest
	EncryptionPepper     string
	EncryptionIterations int
	// Logging
	LogDir string
	// Debug flags
	Debug bool // Enables debug logging and the lorem provider fallback
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)
	supabaseURL := getEnv("SUPABASE_URL", "")

	// Construct JWKS URL from Supabase URL
	jwksURL := supabaseURL + "/auth/v1/.well-known/jwks.json"

	return &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     env,
		SupabaseURL:     supabaseURL,
		SupabaseKey:     getEnv("SUPABASE_KEY", ""),
		SupabaseDBURL:   getEnv("SUPABASE_DB_URL", ""),
		SupabaseJWKSURL: jwksURL,
		CORSOrigins:     getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:     tablePrefix,
		DatabaseDriver:  getEnv("DATABASE_DRIVER", "postgres"),
		SQLitePath:      getEnv("SQLITE_PATH", "scriptmentor.db"),
		// LLM Configuration
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		EnhancedModel:     getEnv("ENHANCED_MODEL", "anthropic/claude-haiku-4-5"),
		BasicModel:        getEnv("BASIC_MODEL", "openai/gpt-4o-mini"),
		RemoteTierTimeout: getDuration("REMOTE_TIER_TIMEOUT", 25*time.Second),
		// Encryption
		EncryptionPepper:     getEnv("ENCRYPTION_PEPPER", ""),
		EncryptionIterations: getInt("ENCRYPTION_ITERATIONS", 100000),
		LogDir:               getEnv("LOG_DIR", ""),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
