package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"insider-watch/models"
)

// TiingoService fetches end-of-day prices from the Tiingo API
type TiingoService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewTiingoService creates a new TiingoService instance
func NewTiingoService(apiKey, baseURL string) *TiingoService {
	if baseURL == "" {
		baseURL = "https://api.tiingo.com"
	}
	return &TiingoService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// tiingoPrice is one element of /tiingo/daily/{ticker}/prices
type tiingoPrice struct {
	Date     time.Time       `json:"date"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	AdjClose decimal.Decimal `json:"adjClose"`
	Volume   int64           `json:"volume"`
}

// GetDailyPrices returns the daily price series for symbol. An empty series is ErrNoData.
func (s *TiingoService) GetDailyPrices(ctx context.Context, symbol string) ([]models.PricePoint, error) {
	return callProvider(ctx, BreakerTiingo, "daily_prices", func(ctx context.Context) ([]models.PricePoint, error) {
		reqURL := fmt.Sprintf("%s/tiingo/daily/%s/prices", s.baseURL, url.PathEscape(strings.ToLower(symbol)))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Token "+s.apiKey)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, transportError(BreakerTiingo, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, statusError(BreakerTiingo, resp)
		}

		var prices []tiingoPrice
		if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
			return nil, decodeError(BreakerTiingo, err)
		}
		if len(prices) == 0 {
			return nil, fmt.Errorf("no price data for %s: %w", symbol, ErrNoData)
		}

		series := make([]models.PricePoint, 0, len(prices))
		for _, p := range prices {
			series = append(series, models.PricePoint{
				Date:     p.Date,
				Open:     p.Open,
				High:     p.High,
				Low:      p.Low,
				Close:    p.Close,
				AdjClose: p.AdjClose,
				Volume:   p.Volume,
			})
		}
		return series, nil
	}, attribute.String("symbol", symbol))
}
