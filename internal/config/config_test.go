package config

import (
	"strings"
	"testing"
)

func validBase() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "lynqai"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
		Vapi:  VapiConfig{APIKey: "vapi-key"},
		Stripe: StripeConfig{
			SecretKey:           "sk_test_x",
			StarterPriceID:      "price_starter",
			ProfessionalPriceID: "price_pro",
			GrowthPriceID:       "price_growth",
		},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSecrets(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	// Production demands explicit sslmode, webhook secrets, issuer/audience.
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without explicit secrets")
	}

	c = validBase()
	c.App.Env = "production"
	c.DB.SSLMode = "require"
	c.Auth.JWTIssuer = "lynqai"
	c.Auth.JWTAudience = "lynqai-api"
	c.Vapi.WebhookSecret = "whsec-vapi"
	c.Stripe.WebhookSecret = "whsec-stripe"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Vapi.BaseURL != "https://api.vapi.ai" {
		t.Fatalf("expected vapi base url default, got %q", c.Vapi.BaseURL)
	}
	if c.Stripe.OverageRateCents != 35 {
		t.Fatalf("expected overage default 35, got %d", c.Stripe.OverageRateCents)
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		t.Fatalf("expected refresh TTL default above access TTL")
	}
}

func TestPostgresDSN_ContainsSSLMode(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	dsn := c.PostgresDSN()
	if !strings.Contains(dsn, "sslmode=disable") {
		t.Fatalf("unexpected dsn: %q", dsn)
	}
}
