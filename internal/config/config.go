package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string
	LogFile  string

	DatabaseURL string
	RedisURL    string

	// Billing
	VVIPPolicy      string
	CatalogCacheTTL time.Duration

	// Worker
	WorkerSchedule string

	// SMTP delivery of daily summaries
	SMTPHost       string
	SMTPPort       string
	SMTPUser       string
	SMTPPass       string
	EmailFrom      string
	SummaryEmailTo []string

	// WhatsApp delivery through WAHA
	WAHABaseURL       string
	WAHAAPIKey        string
	SummaryWhatsAppTo []string
}

// Load reads a .env file when present, then configuration from environment variables
func Load() *Config {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		VVIPPolicy:      strings.ToLower(strings.TrimSpace(getEnv("VVIP_POLICY", "free"))),
		CatalogCacheTTL: getEnvAsDuration("CATALOG_CACHE_TTL", 5*time.Minute),

		WorkerSchedule: getEnv("WORKER_SCHEDULE", "@every 5m"),

		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnv("SMTP_PORT", "587"),
		SMTPUser:       getEnv("SMTP_USER", ""),
		SMTPPass:       getEnv("SMTP_PASS", ""),
		EmailFrom:      getEnv("EMAIL_FROM", ""),
		SummaryEmailTo: getEnvAsList("SUMMARY_EMAIL_TO"),

		WAHABaseURL:       getEnv("WAHA_BASE_URL", ""),
		WAHAAPIKey:        getEnv("WAHA_API_KEY", ""),
		SummaryWhatsAppTo: getEnvAsList("SUMMARY_WHATSAPP_TO"),
	}
}

// IsProduction reports whether the app runs with production settings
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s") or a bare number of seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if seconds, err := cast.ToInt64E(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range cast.ToStringSlice(strings.Split(getEnv(key, ""), ",")) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
