// Package main runs the insider trading dashboard server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"insider-watch/config"
	"insider-watch/internal/api"
	"insider-watch/internal/app"
	"insider-watch/internal/hub"
	"insider-watch/internal/refresher"
	"insider-watch/internal/snapshot"
	"insider-watch/observability"
	"insider-watch/services"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		observability.InitLogger(false)
		observability.Fatal("invalid configuration", "error", err)
	}

	observability.InitLoggerWithLevel(cfg.IsProduction(), cfg.LogLevel())
	observability.InitMetrics()
	if envErr != nil {
		observability.Debug("no .env file found, using environment variables")
	}

	// Prices are serialised as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	shutdownTracing, err := observability.InitTracing(cfg.Observability.TracingEnabled, os.Stdout)
	if err != nil {
		observability.Fatal("failed to initialize tracing", "error", err)
	}

	warnMissingKeys(cfg)

	// Providers
	insider := services.NewFinnhubService(cfg.Finnhub.APIKey, cfg.Finnhub.BaseURL)
	financials, err := services.NewPolygonService(cfg.Polygon.APIKey, cfg.Polygon.BaseURL)
	if err != nil {
		observability.Fatal("failed to initialize financials provider", "error", err)
	}
	prices := newPriceProvider(cfg)

	// Snapshot pipeline
	store := snapshot.NewStore()
	live := hub.New(store)
	poller := refresher.New(insider, store, cfg.RefreshInterval(), cfg.Refresh.Limit)

	ctx, stop := context.WithCancel(context.Background())
	go poller.Run(ctx)

	application := app.New(cfg, store, prices, financials)

	// Create HTTP router
	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, live, cfg)

	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		observability.Info("starting server",
			"port", cfg.HTTP.Port,
			"url", fmt.Sprintf("http://localhost:%s", cfg.HTTP.Port),
			"price_provider", cfg.PriceProvider,
			"refresh_interval", cfg.RefreshInterval().String())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down server...")

	stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("server forced to shutdown", "error", err)
	}
	poller.Wait()

	if err := shutdownTracing(shutdownCtx); err != nil {
		observability.Error("failed to flush traces", "error", err)
	}
	observability.Info("server stopped")
}

// newPriceProvider returns the configured daily price source
func newPriceProvider(cfg *config.Config) services.PriceProvider {
	if cfg.PriceProvider == config.PriceProviderAlpaca {
		return services.NewAlpacaService(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
	}
	return services.NewTiingoService(cfg.Tiingo.APIKey, cfg.Tiingo.BaseURL)
}

// warnMissingKeys logs providers that will fail at request time
func warnMissingKeys(cfg *config.Config) {
	if !cfg.HasFinnhub() {
		observability.Warn("FINNHUB_API_KEY not set, insider transaction refreshes will fail")
	}
	if !cfg.HasPolygon() {
		observability.Warn("POLYGON_API_KEY not set, financials requests will fail")
	}
	switch cfg.PriceProvider {
	case config.PriceProviderAlpaca:
		if !cfg.HasAlpaca() {
			observability.Warn("ALPACA_API_KEY or ALPACA_API_SECRET not set, price requests will fail")
		}
	default:
		if !cfg.HasTiingo() {
			observability.Warn("TIINGO_API_KEY not set, price requests will fail")
		}
	}
}
