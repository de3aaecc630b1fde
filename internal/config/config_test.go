package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig(env string) Config {
	return Config{
		App:        AppConfig{Env: env, Port: 8080},
		DB:         DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "assistants"},
		Redis:      RedisConfig{Host: "localhost", Port: 6379},
		Auth:       AuthConfig{JWTSecret: "secret"},
		Twilio:     TwilioConfig{AccountSID: "AC123", AuthToken: "tok"},
		ElevenLabs: ElevenLabsConfig{APIKey: "xi"},
		Secrets:    SecretsConfig{Key: make([]byte, 32)},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_ENV", "TWILIO_ACCOUNT_SID", "ELEVENLABS_API_KEY", "SECRETS_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in error, got %v", want, err)
		}
	}
}

func TestValidate_ProductionRequiresSSLModeAndOrigins(t *testing.T) {
	c := validConfig("production")
	c.Auth.JWTIssuer = "iss"
	c.Auth.JWTAudience = "aud"
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
	if !strings.Contains(err.Error(), "DB_SSLMODE") || !strings.Contains(err.Error(), "CORS_ALLOWED_ORIGINS") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validConfig("local")
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Purchase.MaxRetries == nil || *c.Purchase.MaxRetries != 3 || c.Purchase.BaseDelay != time.Second {
		t.Fatalf("unexpected purchase defaults: %+v", c.Purchase)
	}
	if c.ElevenLabs.Model != "eleven_flash_v2_5" {
		t.Fatalf("unexpected model default %q", c.ElevenLabs.Model)
	}
	if c.Twilio.BaseURL != "https://api.twilio.com" || c.Calcom.BaseURL != "https://api.cal.com" {
		t.Fatalf("unexpected base urls: %q %q", c.Twilio.BaseURL, c.Calcom.BaseURL)
	}
	if c.Preview.CacheSize != 256 {
		t.Fatalf("expected cache size 256, got %d", c.Preview.CacheSize)
	}
}

func TestValidate_RejectsShortSecretsKey(t *testing.T) {
	c := validConfig("dev")
	c.Secrets.Key = []byte("short")
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for short key")
	}
}

func TestLoad_ReadsEnv(t *testing.T) {
	t.Setenv("ENV_FILE", t.TempDir()+"/missing.env")
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_NAME", "n")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC1")
	t.Setenv("TWILIO_AUTH_TOKEN", "t")
	t.Setenv("ELEVENLABS_API_KEY", "xi")
	t.Setenv("SECRETS_KEY", "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PURCHASE_MAX_RETRIES", "0")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.App.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", c.App.CORSAllowedOrigins)
	}
	if c.Purchase.MaxRetries == nil || *c.Purchase.MaxRetries != 0 {
		t.Fatalf("expected explicit zero retries, got %v", c.Purchase.MaxRetries)
	}
	if c.RedisAddr() != "redis:6379" {
		t.Fatalf("unexpected redis addr %q", c.RedisAddr())
	}
}

func TestParsePrices(t *testing.T) {
	got, err := parsePrices(" fr=1.50, GB=1.2 ")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got["FR"] != 1.5 || got["GB"] != 1.2 || len(got) != 2 {
		t.Fatalf("unexpected prices: %v", got)
	}

	if empty, err := parsePrices(""); err != nil || len(empty) != 0 {
		t.Fatalf("expected empty map, got %v %v", empty, err)
	}
	for _, bad := range []string{"FR", "FRA=1", "FR=abc", "FR=-1"} {
		if _, err := parsePrices(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestLoad_RejectsNegativeRetries(t *testing.T) {
	t.Setenv("ENV_FILE", t.TempDir()+"/missing.env")
	t.Setenv("APP_ENV", "dev")
	t.Setenv("PURCHASE_MAX_RETRIES", "-1")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "PURCHASE_MAX_RETRIES") {
		t.Fatalf("expected PURCHASE_MAX_RETRIES error, got %v", err)
	}
}
