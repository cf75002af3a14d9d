// Package main serves fake insider-transaction, price and financials APIs
// for running the dashboard locally without provider keys. Point
// FINNHUB_BASE_URL, TIINGO_BASE_URL, POLYGON_BASE_URL and ALPACA_DATA_URL
// at this server.
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

	"insider-watch/e2e/mocks"
	"insider-watch/observability"
)

func main() {
	envErr := godotenv.Load()
	observability.InitLogger(false)
	if envErr != nil {
		observability.Debug("no .env file found, using environment variables")
	}

	port := os.Getenv("MOCK_PROVIDERS_PORT")
	if port == "" {
		port = "9090"
	}

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mocks.NewMockHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		observability.Info("starting mock providers", "port", port, "url", fmt.Sprintf("http://localhost:%s", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down mock providers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}
	observability.Info("mock providers stopped")
}
