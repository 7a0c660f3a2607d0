package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort int
	AppEnv     string
	LogLevel   string

	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	SessionCookieName     string
	SessionCookieSameSite string // "lax" or "strict"
	SessionPurgeSchedule  string

	CORSAllowedOrigins []string

	UploadBackend string // "local" or "s3"
	UploadDir     string
	MaxUploadMB   int64

	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string

	AnalyzerURL     string
	AnalyzerAPIKey  string
	AnalyzerTimeout time.Duration
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_MB", "20"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err)
	}

	analyzerTimeout, err := time.ParseDuration(getEnv("ANALYZER_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ANALYZER_TIMEOUT: %w", err)
	}

	cfg := &Config{
		ServerPort: port,
		AppEnv:     getEnv("APP_ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseDSN:    getEnv("DATABASE_DSN", "./resumai.db"),

		SessionCookieName:     getEnv("SESSION_COOKIE_NAME", "session"),
		SessionCookieSameSite: strings.ToLower(getEnv("SESSION_COOKIE_SAMESITE", "lax")),
		SessionPurgeSchedule:  getEnv("SESSION_PURGE_SCHEDULE", "@hourly"),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),

		UploadBackend: strings.ToLower(getEnv("UPLOAD_BACKEND", "local")),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadMB:   maxUpload,

		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3BaseEndpoint: getEnv("S3_ENDPOINT", ""),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),

		AnalyzerURL:     getEnv("ANALYZER_URL", ""),
		AnalyzerAPIKey:  getEnv("ANALYZER_API_KEY", ""),
		AnalyzerTimeout: analyzerTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.SessionCookieSameSite {
	case "lax", "strict":
	default:
		return fmt.Errorf("unsupported SESSION_COOKIE_SAMESITE %q", c.SessionCookieSameSite)
	}
	switch c.UploadBackend {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when UPLOAD_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unsupported UPLOAD_BACKEND %q", c.UploadBackend)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
