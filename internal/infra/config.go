package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv        string
	Port          string
	DatabaseURL   string
	PublicBaseURL string

	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseJWTSecret  string
	InputBucket        string
	OutputBucket       string

	StripeSecretKey     string
	StripeWebhookSecret string

	ReplicateAPIToken string
	ReplicateBaseURL  string
	ReplicateModel    string

	GenerationPriceCents int64
	GenerationCurrency   string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),

		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
		SupabaseJWTSecret:  os.Getenv("SUPABASE_JWT_SECRET"),
		InputBucket:        getEnv("INPUT_BUCKET", "input-images"),
		OutputBucket:       getEnv("OUTPUT_BUCKET", "output-images"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateBaseURL:  getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		ReplicateModel:    getEnv("REPLICATE_MODEL", "google/nano-banana"),

		GenerationPriceCents: getEnvInt64("GENERATION_PRICE_CENTS", 200),
		GenerationCurrency:   getEnv("GENERATION_CURRENCY", "eur"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		AllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	required := map[string]string{
		"DATABASE_URL":          cfg.DatabaseURL,
		"SUPABASE_URL":          cfg.SupabaseURL,
		"SUPABASE_SERVICE_KEY":  cfg.SupabaseServiceKey,
		"SUPABASE_JWT_SECRET":   cfg.SupabaseJWTSecret,
		"STRIPE_SECRET_KEY":     cfg.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": cfg.StripeWebhookSecret,
		"REPLICATE_API_TOKEN":   cfg.ReplicateAPIToken,
	}
	for _, key := range []string{
		"DATABASE_URL",
		"SUPABASE_URL",
		"SUPABASE_SERVICE_KEY",
		"SUPABASE_JWT_SECRET",
		"STRIPE_SECRET_KEY",
		"STRIPE_WEBHOOK_SECRET",
		"REPLICATE_API_TOKEN",
	} {
		if required[key] == "" {
			return nil, fmt.Errorf("%s is required", key)
		}
	}

	if cfg.GenerationPriceCents <= 0 {
		return nil, fmt.Errorf("GENERATION_PRICE_CENTS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
