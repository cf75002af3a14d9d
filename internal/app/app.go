package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"insider-watch/analysis"
	"insider-watch/config"
	"insider-watch/internal/dashboard"
	"insider-watch/internal/snapshot"
	"insider-watch/models"
	"insider-watch/observability"
	"insider-watch/services"
)

// App is the query facade used by the HTTP layer. Transactions are served from
// the in-memory snapshot; prices and financials are fetched per request.
type App struct {
	cfg        *config.Config
	store      *snapshot.Store
	prices     services.PriceProvider
	financials services.FinancialsProvider
	now        func() time.Time
}

// New creates a new App
func New(cfg *config.Config, store *snapshot.Store, prices services.PriceProvider, financials services.FinancialsProvider) *App {
	if store == nil {
		store = snapshot.NewStore()
	}
	return &App{
		cfg:        cfg,
		store:      store,
		prices:     prices,
		financials: financials,
		now:        time.Now,
	}
}

// Store returns the snapshot store backing the app
func (a *App) Store() *snapshot.Store {
	return a.store
}

// GetTransactions returns the current snapshot without calling any provider
func (a *App) GetTransactions() *snapshot.Snapshot {
	return a.store.Load()
}

// GetPriceSeries returns the daily price series for symbol
func (a *App) GetPriceSeries(ctx context.Context, symbol string) ([]models.PricePoint, error) {
	if a.prices == nil {
		return nil, fmt.Errorf("price provider not initialized")
	}

	series, err := a.prices.GetDailyPrices(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no prices for %s: %w", symbol, services.ErrNoData)
	}
	return series, nil
}

// GetLatestPrice returns the freshest point of the price series for symbol
func (a *App) GetLatestPrice(ctx context.Context, symbol string) (*models.PricePoint, error) {
	series, err := a.GetPriceSeries(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return models.LatestPrice(series), nil
}

// GetFinancials returns the most recent financials filing for symbol
func (a *App) GetFinancials(ctx context.Context, symbol string) (*models.Financials, error) {
	if a.financials == nil {
		return nil, fmt.Errorf("financials provider not initialized")
	}

	fin, err := a.financials.GetFinancials(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if fin == nil {
		return nil, fmt.Errorf("no financials for %s: %w", symbol, services.ErrNoData)
	}
	return fin, nil
}

// Analysis is the ratio analysis of a symbol's latest financials
type Analysis struct {
	Symbol     string                `json:"symbol"`
	Financials *models.Financials    `json:"financials"`
	Report     models.RatioReport    `json:"report"`
	Chart      []analysis.ChartPoint `json:"chart"`
}

// AnalyzeSymbol fetches financials and runs ratio analysis. Unavailable
// financials are analysed as absent (HOLD, no ratios) rather than failing;
// only a cancelled request is an error.
func (a *App) AnalyzeSymbol(ctx context.Context, symbol string) (*Analysis, error) {
	fin, err := a.financialsOrNil(ctx, symbol)
	if err != nil {
		return nil, err
	}

	report := analysis.Analyze(fin)
	observability.GetMetrics().RecordRecommendation(string(report.Recommendation))
	observability.WithSymbol(symbol).Debug("analysis complete", "recommendation", report.Recommendation)

	return &Analysis{
		Symbol:     symbol,
		Financials: fin,
		Report:     report,
		Chart:      analysis.ChartSeries(fin),
	}, nil
}

// Detail fetches the price, then the financials, and builds the detail view.
// A price failure aborts; a financials failure degrades to the HOLD report.
func (a *App) Detail(ctx context.Context, symbol string) (*dashboard.Detail, error) {
	price, err := a.GetLatestPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	fin, err := a.financialsOrNil(ctx, symbol)
	if err != nil {
		return nil, err
	}

	detail, ok := dashboard.BuildDetail(symbol, price, fin)
	if !ok {
		return nil, fmt.Errorf("no price for %s: %w", symbol, services.ErrNoData)
	}
	observability.GetMetrics().RecordRecommendation(string(detail.Report.Recommendation))
	return detail, nil
}

// financialsOrNil returns nil financials for any provider failure, logging
// everything except "none on file". Cancellation is passed through.
func (a *App) financialsOrNil(ctx context.Context, symbol string) (*models.Financials, error) {
	fin, err := a.GetFinancials(ctx, symbol)
	if err == nil {
		return fin, nil
	}
	if errors.Is(err, context.Canceled) {
		return nil, err
	}
	if !errors.Is(err, services.ErrNoData) {
		observability.WithSymbol(symbol).Warn("financials unavailable, analysing without them", "error", err)
	}
	return nil, nil
}

// SnapshotStatus summarises the current snapshot for health and meta endpoints
type SnapshotStatus struct {
	ID         string    `json:"id,omitempty"`
	FetchedAt  time.Time `json:"fetched_at"`
	AgeSeconds float64   `json:"age_seconds"`
	Count      int       `json:"count"`
	Received   int       `json:"received"`
	Stale      bool      `json:"stale"`
}

// SnapshotStatus describes the current snapshot. A snapshot older than two
// refresh intervals, or none at all, is stale.
func (a *App) SnapshotStatus() SnapshotStatus {
	s := a.store.Load()
	age := s.Age(a.now())

	status := SnapshotStatus{
		FetchedAt:  s.FetchedAt,
		AgeSeconds: age.Seconds(),
		Count:      s.Len(),
		Received:   s.Received,
		Stale:      s.IsEmpty(),
	}
	if !s.IsEmpty() {
		status.ID = s.ID.String()
		if a.cfg != nil && age > 2*a.cfg.RefreshInterval() {
			status.Stale = true
		}
	}
	return status
}

// Health is the service health report
type Health struct {
	Status          string                                   `json:"status"`
	Snapshot        SnapshotStatus                           `json:"snapshot"`
	Providers       map[string]bool                          `json:"providers"`
	CircuitBreakers map[string]services.CircuitBreakerStatus `json:"circuit_breakers"`
}

// Health reports "ok", or "degraded" when the snapshot is stale or a circuit breaker is open
func (a *App) Health() Health {
	h := Health{
		Status:          "ok",
		Snapshot:        a.SnapshotStatus(),
		Providers:       map[string]bool{},
		CircuitBreakers: services.GetGlobalRegistry().Status(),
	}

	if a.cfg != nil {
		h.Providers[services.BreakerFinnhub] = a.cfg.HasFinnhub()
		h.Providers[services.BreakerPolygon] = a.cfg.HasPolygon()
		if a.cfg.PriceProvider == config.PriceProviderAlpaca {
			h.Providers[services.BreakerAlpaca] = a.cfg.HasAlpaca()
		} else {
			h.Providers[services.BreakerTiingo] = a.cfg.HasTiingo()
		}
	}

	if h.Snapshot.Stale {
		h.Status = "degraded"
	}
	for _, cb := range h.CircuitBreakers {
		if cb.State == "open" {
			h.Status = "degraded"
			break
		}
	}
	return h
}
