package services

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"insider-watch/models"
)

// alpacaLookbackDays covers long weekends and market holidays
const alpacaLookbackDays = 7

// AlpacaService fetches daily bars from Alpaca market data as an alternate price source
type AlpacaService struct {
	dataClient *marketdata.Client
	now        func() time.Time
}

// NewAlpacaService creates a new AlpacaService instance. An empty dataURL uses Alpaca's default.
func NewAlpacaService(apiKey, apiSecret, dataURL string) *AlpacaService {
	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   dataURL,
	})

	return &AlpacaService{
		dataClient: dataClient,
		now:        time.Now,
	}
}

// GetDailyPrices returns the last week of daily bars for symbol, oldest first.
// No bars is ErrNoData.
func (s *AlpacaService) GetDailyPrices(ctx context.Context, symbol string) ([]models.PricePoint, error) {
	return callProvider(ctx, BreakerAlpaca, "daily_bars", func(ctx context.Context) ([]models.PricePoint, error) {
		end := s.now()
		start := end.AddDate(0, 0, -alpacaLookbackDays)

		bars, err := s.dataClient.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
		})
		if err != nil {
			return nil, &ProviderError{Provider: BreakerAlpaca, Message: "failed to get bars", Err: err}
		}
		if len(bars) == 0 {
			return nil, fmt.Errorf("no bars for %s: %w", symbol, ErrNoData)
		}

		series := make([]models.PricePoint, 0, len(bars))
		for _, bar := range bars {
			closePrice := decimal.NewFromFloat(bar.Close)
			series = append(series, models.PricePoint{
				Date:     bar.Timestamp,
				Open:     decimal.NewFromFloat(bar.Open),
				High:     decimal.NewFromFloat(bar.High),
				Low:      decimal.NewFromFloat(bar.Low),
				Close:    closePrice,
				AdjClose: closePrice,
				Volume:   int64(bar.Volume),
			})
		}
		return series, nil
	}, attribute.String("symbol", symbol))
}
