// Package e2e provides end-to-end testing infrastructure for insider-watch.
// The harness wires the real provider clients, refresher and router against
// an in-process mock of every external API.
package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"insider-watch/config"
	"insider-watch/e2e/mocks"
	"insider-watch/internal/api"
	"insider-watch/internal/app"
	"insider-watch/internal/hub"
	"insider-watch/internal/refresher"
	"insider-watch/internal/snapshot"
	"insider-watch/services"
)

// TestHarness provides the infrastructure for running E2E tests.
type TestHarness struct {
	t          *testing.T
	ctx        context.Context
	cancel     context.CancelFunc
	mockServer *mocks.MockServer
	store      *snapshot.Store
	refresher  *refresher.Refresher
	app        *app.App
	router     http.Handler
	config     *config.Config
}

// NewTestHarness creates a new test harness. Call Setup before use.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	return &TestHarness{
		t:      t,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Setup initializes all test dependencies.
func (h *TestHarness) Setup() error {
	services.SetGlobalRegistry(services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig))

	// Start mock server for external APIs
	h.mockServer = mocks.NewMockServer()

	cfg, err := h.createTestConfig()
	if err != nil {
		return err
	}
	h.config = cfg

	insider := services.NewFinnhubService(cfg.Finnhub.APIKey, cfg.Finnhub.BaseURL)
	financials, err := services.NewPolygonService(cfg.Polygon.APIKey, cfg.Polygon.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to create financials provider: %w", err)
	}

	var prices services.PriceProvider = services.NewTiingoService(cfg.Tiingo.APIKey, cfg.Tiingo.BaseURL)
	if cfg.PriceProvider == config.PriceProviderAlpaca {
		prices = services.NewAlpacaService(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
	}

	h.store = snapshot.NewStore()
	h.refresher = refresher.New(insider, h.store, cfg.RefreshInterval(), cfg.Refresh.Limit)
	h.app = app.New(cfg, h.store, prices, financials)

	handler := api.NewHandler(h.app, cfg)
	h.router = api.NewRouter(handler, hub.New(h.store), cfg)

	return nil
}

// Teardown cleans up all test resources.
func (h *TestHarness) Teardown() {
	if h.cancel != nil {
		h.cancel()
	}
	if h.refresher != nil {
		h.refresher.Wait()
	}
	if h.mockServer != nil {
		h.mockServer.Close()
	}
	services.SetGlobalRegistry(nil)
}

// Context returns the test context.
func (h *TestHarness) Context() context.Context {
	return h.ctx
}

// MockServer returns the mock server for configuring responses.
func (h *TestHarness) MockServer() *mocks.MockServer {
	return h.mockServer
}

// Store returns the snapshot store.
func (h *TestHarness) Store() *snapshot.Store {
	return h.store
}

// Refresh runs one refresh synchronously.
func (h *TestHarness) Refresh() error {
	return h.refresher.Refresh(h.ctx)
}

// App returns the application instance.
func (h *TestHarness) App() *app.App {
	return h.app
}

// Router returns the HTTP router for making requests.
func (h *TestHarness) Router() http.Handler {
	return h.router
}

// Config returns the test configuration.
func (h *TestHarness) Config() *config.Config {
	return h.config
}

// DoRequest performs a GET request and returns the response.
func (h *TestHarness) DoRequest(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// DoHTMXRequest performs an HTMX GET request and returns the response.
func (h *TestHarness) DoHTMXRequest(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("HX-Request", "true")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *TestHarness) createTestConfig() (*config.Config, error) {
	mockURL := h.mockServer.URL()

	cfg := config.NewTestConfig()
	cfg.Finnhub = config.FinnhubConfig{APIKey: "test-finnhub", BaseURL: mockURL}
	cfg.Tiingo = config.TiingoConfig{APIKey: "test-tiingo", BaseURL: mockURL}
	cfg.Polygon = config.PolygonConfig{APIKey: "test-polygon", BaseURL: mockURL}
	cfg.Alpaca = config.AlpacaConfig{APIKey: "test-alpaca", APISecret: "test-secret", DataURL: mockURL}

	staticDir, err := findStaticDir()
	if err != nil {
		return nil, err
	}
	cfg.HTTP.StaticDir = staticDir

	return cfg, cfg.Validate()
}

// findStaticDir locates web/static by walking up from the working directory.
func findStaticDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, "web", "static")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("web/static not found")
		}
		dir = parent
	}
}
