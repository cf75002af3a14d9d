package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Price provider identifiers
const (
	PriceProviderTiingo = "tiingo"
	PriceProviderAlpaca = "alpaca"
)

// Config holds all application configuration
type Config struct {
	// Provider configurations
	Finnhub FinnhubConfig
	Tiingo  TiingoConfig
	Polygon PolygonConfig
	Alpaca  AlpacaConfig

	// PriceProvider selects the daily price source (tiingo or alpaca)
	PriceProvider string

	// Refresh scheduler configuration
	Refresh RefreshConfig

	// HTTP configuration
	HTTP HTTPConfig

	// Logging and tracing
	Observability ObservabilityConfig
}

// FinnhubConfig holds the insider-transactions provider configuration
type FinnhubConfig struct {
	APIKey  string
	BaseURL string
}

// TiingoConfig holds the daily price provider configuration
type TiingoConfig struct {
	APIKey  string
	BaseURL string
}

// PolygonConfig holds the company financials provider configuration
type PolygonConfig struct {
	APIKey  string
	BaseURL string
}

// AlpacaConfig holds Alpaca market data configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	DataURL   string
}

// RefreshConfig controls the transaction snapshot refresh loop
type RefreshConfig struct {
	IntervalSeconds int
	Limit           int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port                  string
	StaticDir             string
	CORSAllowedOrigins    string
	RequestTimeoutSeconds int
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogFormat      string // text or json
	LogLevel       string // debug, info, warn, error
	TracingEnabled bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Finnhub: FinnhubConfig{
			APIKey:  os.Getenv("FINNHUB_API_KEY"),
			BaseURL: getEnvString("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		},
		Tiingo: TiingoConfig{
			APIKey:  os.Getenv("TIINGO_API_KEY"),
			BaseURL: getEnvString("TIINGO_BASE_URL", "https://api.tiingo.com"),
		},
		Polygon: PolygonConfig{
			APIKey:  os.Getenv("POLYGON_API_KEY"),
			BaseURL: os.Getenv("POLYGON_BASE_URL"),
		},
		Alpaca: AlpacaConfig{
			APIKey:    os.Getenv("ALPACA_API_KEY"),
			APISecret: os.Getenv("ALPACA_API_SECRET"),
			DataURL:   os.Getenv("ALPACA_DATA_URL"),
		},
		PriceProvider: strings.ToLower(getEnvString("PRICE_PROVIDER", PriceProviderTiingo)),
		Refresh: RefreshConfig{
			IntervalSeconds: getEnvInt("REFRESH_INTERVAL_SECONDS", 60),
			Limit:           getEnvInt("REFRESH_LIMIT", 100),
		},
		HTTP: HTTPConfig{
			Port:                  getEnvString("PORT", "3000"),
			StaticDir:             getEnvString("STATIC_DIR", "web/static"),
			CORSAllowedOrigins:    getEnvString("CORS_ALLOWED_ORIGINS", "*"),
			RequestTimeoutSeconds: getEnvInt("REQUEST_TIMEOUT_SECONDS", 30),
		},
		Observability: ObservabilityConfig{
			LogFormat:      strings.ToLower(getEnvString("LOG_FORMAT", "text")),
			LogLevel:       strings.ToLower(getEnvString("LOG_LEVEL", "info")),
			TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration.
// Missing API keys are not an error: provider calls fail at request time instead.
func (c *Config) Validate() error {
	switch c.PriceProvider {
	case PriceProviderTiingo, PriceProviderAlpaca:
	default:
		return fmt.Errorf("PRICE_PROVIDER must be %q or %q, got %q", PriceProviderTiingo, PriceProviderAlpaca, c.PriceProvider)
	}

	if c.Refresh.IntervalSeconds <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL_SECONDS must be positive, got %d", c.Refresh.IntervalSeconds)
	}
	if c.Refresh.Limit <= 0 || c.Refresh.Limit > 1000 {
		return fmt.Errorf("REFRESH_LIMIT must be between 1 and 1000, got %d", c.Refresh.Limit)
	}
	if c.HTTP.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive, got %d", c.HTTP.RequestTimeoutSeconds)
	}
	if c.HTTP.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}

	switch c.Observability.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Observability.LogFormat)
	}

	return nil
}

// RefreshInterval returns the refresh period as a duration
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}

// RequestTimeout returns the per-request handler timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.RequestTimeoutSeconds) * time.Second
}

// LogLevel maps the configured level name to a slog level
func (c *Config) LogLevel() slog.Level {
	switch c.Observability.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when structured JSON logs are requested
func (c *Config) IsProduction() bool {
	return c.Observability.LogFormat == "json"
}

// HasFinnhub returns true if the insider-transactions provider key is set
func (c *Config) HasFinnhub() bool {
	return c.Finnhub.APIKey != ""
}

// HasTiingo returns true if the Tiingo key is set
func (c *Config) HasTiingo() bool {
	return c.Tiingo.APIKey != ""
}

// HasPolygon returns true if the Polygon key is set
func (c *Config) HasPolygon() bool {
	return c.Polygon.APIKey != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

func getEnvString(key, defaultValue string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Finnhub: FinnhubConfig{
			APIKey:  "",
			BaseURL: "https://finnhub.io/api/v1",
		},
		Tiingo: TiingoConfig{
			APIKey:  "",
			BaseURL: "https://api.tiingo.com",
		},
		Polygon: PolygonConfig{},
		Alpaca:  AlpacaConfig{},

		PriceProvider: PriceProviderTiingo,
		Refresh: RefreshConfig{
			IntervalSeconds: 60,
			Limit:           100,
		},
		HTTP: HTTPConfig{
			Port:                  "3000",
			StaticDir:             "web/static",
			CORSAllowedOrigins:    "*",
			RequestTimeoutSeconds: 30,
		},
		Observability: ObservabilityConfig{
			LogFormat: "text",
			LogLevel:  "info",
		},
	}
}
