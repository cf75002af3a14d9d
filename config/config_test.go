package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

// saveEnv saves current environment variables for restoration
func saveEnv(t *testing.T, keys []string) map[string]string {
	t.Helper()
	saved := make(map[string]string)
	for _, key := range keys {
		saved[key] = os.Getenv(key)
	}
	return saved
}

// restoreEnv restores previously saved environment variables
func restoreEnv(t *testing.T, saved map[string]string) {
	t.Helper()
	for key, val := range saved {
		if val == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, val)
		}
	}
}

// clearEnv clears environment variables
func clearEnv(t *testing.T, keys []string) {
	t.Helper()
	for _, key := range keys {
		os.Unsetenv(key)
	}
}

var allEnvKeys = []string{
	"FINNHUB_API_KEY",
	"FINNHUB_BASE_URL",
	"TIINGO_API_KEY",
	"TIINGO_BASE_URL",
	"POLYGON_API_KEY",
	"POLYGON_BASE_URL",
	"ALPACA_API_KEY",
	"ALPACA_API_SECRET",
	"ALPACA_DATA_URL",
	"PRICE_PROVIDER",
	"REFRESH_INTERVAL_SECONDS",
	"REFRESH_LIMIT",
	"PORT",
	"STATIC_DIR",
	"CORS_ALLOWED_ORIGINS",
	"REQUEST_TIMEOUT_SECONDS",
	"LOG_FORMAT",
	"LOG_LEVEL",
	"TRACING_ENABLED",
}

func TestLoad_Defaults(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}

	if cfg.Finnhub.BaseURL != "https://finnhub.io/api/v1" {
		t.Errorf("expected Finnhub.BaseURL default, got %s", cfg.Finnhub.BaseURL)
	}
	if cfg.Tiingo.BaseURL != "https://api.tiingo.com" {
		t.Errorf("expected Tiingo.BaseURL default, got %s", cfg.Tiingo.BaseURL)
	}
	if cfg.PriceProvider != PriceProviderTiingo {
		t.Errorf("expected PriceProvider=tiingo, got %s", cfg.PriceProvider)
	}
	if cfg.Refresh.IntervalSeconds != 60 {
		t.Errorf("expected IntervalSeconds=60, got %d", cfg.Refresh.IntervalSeconds)
	}
	if cfg.Refresh.Limit != 100 {
		t.Errorf("expected Limit=100, got %d", cfg.Refresh.Limit)
	}
	if cfg.HTTP.Port != "3000" {
		t.Errorf("expected Port=3000, got %s", cfg.HTTP.Port)
	}
	if cfg.HTTP.StaticDir != "web/static" {
		t.Errorf("expected StaticDir=web/static, got %s", cfg.HTTP.StaticDir)
	}
	if cfg.HTTP.CORSAllowedOrigins != "*" {
		t.Errorf("expected CORSAllowedOrigins='*', got %s", cfg.HTTP.CORSAllowedOrigins)
	}
	if cfg.Observability.TracingEnabled {
		t.Error("expected tracing disabled by default")
	}
	if cfg.RefreshInterval() != time.Minute {
		t.Errorf("expected RefreshInterval=1m, got %v", cfg.RefreshInterval())
	}
}

func TestLoad_MissingKeysAreNotFatal(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() without API keys should succeed, got %v", err)
	}
	if cfg.HasFinnhub() || cfg.HasTiingo() || cfg.HasPolygon() || cfg.HasAlpaca() {
		t.Error("expected no provider to report configured")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	os.Setenv("FINNHUB_API_KEY", "fh-key")
	os.Setenv("TIINGO_API_KEY", "tiingo-key")
	os.Setenv("POLYGON_API_KEY", "poly-key")
	os.Setenv("ALPACA_API_KEY", "alpaca-key")
	os.Setenv("ALPACA_API_SECRET", "alpaca-secret")
	os.Setenv("PRICE_PROVIDER", "ALPACA")
	os.Setenv("REFRESH_INTERVAL_SECONDS", "15")
	os.Setenv("REFRESH_LIMIT", "50")
	os.Setenv("PORT", "8080")
	os.Setenv("LOG_FORMAT", "json")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if !cfg.HasFinnhub() || !cfg.HasTiingo() || !cfg.HasPolygon() || !cfg.HasAlpaca() {
		t.Error("expected all providers configured")
	}
	if cfg.PriceProvider != PriceProviderAlpaca {
		t.Errorf("expected PriceProvider=alpaca, got %s", cfg.PriceProvider)
	}
	if cfg.RefreshInterval() != 15*time.Second {
		t.Errorf("expected RefreshInterval=15s, got %v", cfg.RefreshInterval())
	}
	if cfg.Refresh.Limit != 50 {
		t.Errorf("expected Limit=50, got %d", cfg.Refresh.Limit)
	}
	if cfg.HTTP.Port != "8080" {
		t.Errorf("expected Port=8080, got %s", cfg.HTTP.Port)
	}
	if !cfg.IsProduction() {
		t.Error("expected json log format to mean production")
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.LogLevel())
	}
	if !cfg.Observability.TracingEnabled {
		t.Error("expected tracing enabled")
	}
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	os.Setenv("REFRESH_INTERVAL_SECONDS", "not-a-number")
	os.Setenv("REFRESH_LIMIT", "-5")
	os.Setenv("TRACING_ENABLED", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Refresh.IntervalSeconds != 60 {
		t.Errorf("expected fallback IntervalSeconds=60, got %d", cfg.Refresh.IntervalSeconds)
	}
	if cfg.Refresh.Limit != 100 {
		t.Errorf("expected fallback Limit=100, got %d", cfg.Refresh.Limit)
	}
	if cfg.Observability.TracingEnabled {
		t.Error("expected fallback tracing=false")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"unknown price provider", func(c *Config) { c.PriceProvider = "yahoo" }, "PRICE_PROVIDER"},
		{"zero interval", func(c *Config) { c.Refresh.IntervalSeconds = 0 }, "REFRESH_INTERVAL_SECONDS"},
		{"limit too large", func(c *Config) { c.Refresh.Limit = 5000 }, "REFRESH_LIMIT"},
		{"zero request timeout", func(c *Config) { c.HTTP.RequestTimeoutSeconds = 0 }, "REQUEST_TIMEOUT_SECONDS"},
		{"empty port", func(c *Config) { c.HTTP.Port = "" }, "PORT"},
		{"bad log format", func(c *Config) { c.Observability.LogFormat = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := NewTestConfig()
		cfg.Observability.LogLevel = tt.level
		if got := cfg.LogLevel(); got != tt.want {
			t.Errorf("LogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
