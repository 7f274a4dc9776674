package infra

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
	t.Setenv("SUPABASE_JWT_SECRET", "jwt-secret")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("REPLICATE_API_TOKEN", "r8_token")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("INPUT_BUCKET", "")
	t.Setenv("GENERATION_PRICE_CENTS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.InputBucket != "input-images" || cfg.OutputBucket != "output-images" {
		t.Fatalf("bucket defaults mismatch: %q / %q", cfg.InputBucket, cfg.OutputBucket)
	}
	if cfg.GenerationPriceCents != 200 || cfg.GenerationCurrency != "eur" {
		t.Fatalf("price defaults mismatch: %d %s", cfg.GenerationPriceCents, cfg.GenerationCurrency)
	}
	if cfg.ReplicateModel != "google/nano-banana" {
		t.Fatalf("model default mismatch: %q", cfg.ReplicateModel)
	}
}

func TestLoadConfigRequiresStripeSecrets(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when STRIPE_WEBHOOK_SECRET is missing")
	}
}

func TestLoadConfigRejectsNonPositivePrice(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GENERATION_PRICE_CENTS", "-5")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for non-positive price")
	}
}

func TestLoadConfigSplitsAllowedOrigins(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://staging.example.com" {
		t.Fatalf("AllowedOrigins mismatch: %#v", cfg.AllowedOrigins)
	}
}
