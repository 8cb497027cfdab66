package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings, loaded from environment variables with
// sensible defaults for local development.
type Config struct {
	Port           string
	DatabaseURL    string
	AllowedOrigins []string

	RequestTimeout time.Duration
	UserAgent      string
	UseBrowser     bool

	CheckSchedule string
	RetrySchedule string

	RateLimit      float64
	APIKey         string
	MaxTaskWorkers int

	DraftTTL time.Duration
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT", 10)) * time.Second,
		UserAgent: getEnv("USER_AGENT",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"),
		UseBrowser: getEnvBool("USE_BROWSER", false),

		CheckSchedule: getEnv("CHECK_SCHEDULE", "0 */6 * * *"),
		RetrySchedule: getEnv("RETRY_SCHEDULE", "*/5 * * * *"),

		RateLimit:      getEnvFloat("RATE_LIMIT", 5),
		APIKey:         getEnv("API_KEY", ""),
		MaxTaskWorkers: getEnvInt("MAX_TASK_WORKERS", 3),

		DraftTTL: time.Duration(getEnvInt("DRAFT_TTL_MINUTES", 60)) * time.Minute,
	}
}

// RequestHeaders returns browser-like headers for storefront requests.
// Storefronts serve stripped or blocked pages to clients without them.
func (c *Config) RequestHeaders() map[string]string {
	return map[string]string{
		"User-Agent":                c.UserAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "pt-BR,pt;q=0.9,en;q=0.8",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
