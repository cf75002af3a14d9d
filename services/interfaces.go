package services

import (
	"context"

	"insider-watch/models"
)

// InsiderProvider fetches the most recent insider transactions across all tickers
type InsiderProvider interface {
	GetInsiderTransactions(ctx context.Context, limit int) ([]models.Transaction, error)
}

// PriceProvider fetches the daily price series for a symbol
type PriceProvider interface {
	GetDailyPrices(ctx context.Context, symbol string) ([]models.PricePoint, error)
}

// FinancialsProvider fetches the most recent financials filing for a symbol
type FinancialsProvider interface {
	GetFinancials(ctx context.Context, symbol string) (*models.Financials, error)
}

// Compile-time interface verification
var _ InsiderProvider = (*FinnhubService)(nil)
var _ PriceProvider = (*TiingoService)(nil)
var _ PriceProvider = (*AlpacaService)(nil)
var _ FinancialsProvider = (*PolygonService)(nil)
