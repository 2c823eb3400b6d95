package config

import "os"

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string

	// Persistence
	DatabaseURL string

	// Auth
	JWTSecret string

	// AI suggestions
	OpenAIAPIKey string // Optional; the mock suggester is used when empty

	// CORS
	CORSOrigin string

	// Observability
	SentryDSN string
}

func Load() *Config {
	return &Config{
		Environment:  getEnv("ENVIRONMENT", "development"),
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  getEnv("DATABASE_URL", "postgres://localhost:5432/gridbeat?sslmode=disable"),
		JWTSecret:    getEnv("JWT_SECRET", "dev_secret_change_me"),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		CORSOrigin:   getEnv("CORS_ORIGIN", "http://localhost:3001"),
		SentryDSN:    getEnv("SENTRY_DSN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

// IsProduction reports whether the API runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
