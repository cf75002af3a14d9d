package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	pmodels "github.com/polygon-io/client-go/rest/models"
	"go.opentelemetry.io/otel/attribute"

	"insider-watch/models"
)

// PolygonService fetches company financials from Polygon's vX stock financials endpoint
type PolygonService struct {
	client *polygon.Client
}

// NewPolygonService creates a new PolygonService instance. A non-empty baseURL
// redirects requests away from api.polygon.io (used against local fakes).
func NewPolygonService(apiKey, baseURL string) (*PolygonService, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	if baseURL != "" {
		target, err := url.Parse(baseURL)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("invalid polygon base URL %q", baseURL)
		}
		httpClient.Transport = &hostRewriter{target: target, next: http.DefaultTransport}
	}

	return &PolygonService{
		client: polygon.NewWithClient(apiKey, httpClient),
	}, nil
}

// GetFinancials returns the most recent financials filing for symbol, or ErrNoData
func (s *PolygonService) GetFinancials(ctx context.Context, symbol string) (*models.Financials, error) {
	return callProvider(ctx, BreakerPolygon, "financials", func(ctx context.Context) (*models.Financials, error) {
		params := pmodels.ListStockFinancialsParams{}.
			WithTicker(symbol).
			WithLimit(1)

		iter := s.client.VX.ListStockFinancials(ctx, params)
		if !iter.Next() {
			if err := iter.Err(); err != nil {
				return nil, polygonError(err)
			}
			return nil, fmt.Errorf("no financials for %s: %w", symbol, ErrNoData)
		}

		return financialsFromPolygon(symbol, iter.Item()), nil
	}, attribute.String("symbol", symbol))
}

func polygonError(err error) error {
	var apiErr *pmodels.ErrorResponse
	if errors.As(err, &apiErr) {
		msg := apiErr.ErrorMessage
		if msg == "" {
			msg = apiErr.Message
		}
		return &ProviderError{Provider: BreakerPolygon, StatusCode: apiErr.StatusCode, Message: msg, Err: err}
	}
	return transportError(BreakerPolygon, err)
}

// financialsFromPolygon extracts the figures used by ratio analysis.
// Figures absent from the filing stay nil.
func financialsFromPolygon(symbol string, sf pmodels.StockFinancial) *models.Financials {
	pick := func(statement, key string) *float64 {
		section, ok := sf.Financials[statement]
		if !ok {
			return nil
		}
		f, ok := section[key]
		if !ok {
			return nil
		}
		return models.Float(f.Value)
	}

	return &models.Financials{
		Symbol:       symbol,
		CompanyName:  sf.CompanyName,
		FiscalPeriod: sf.FiscalPeriod,
		FiscalYear:   sf.FiscalYear,
		EndDate:      sf.EndDate,

		Revenue:            pick("income_statement", "revenues"),
		NetIncome:          pick("income_statement", "net_income_loss"),
		TotalAssets:        pick("balance_sheet", "assets"),
		CurrentAssets:      pick("balance_sheet", "current_assets"),
		CurrentLiabilities: pick("balance_sheet", "current_liabilities"),
		TotalLiabilities:   pick("balance_sheet", "liabilities"),
		Equity:             pick("balance_sheet", "equity"),
	}
}

// hostRewriter sends every request to target's scheme and host, keeping path and query
type hostRewriter struct {
	target *url.URL
	next   http.RoundTripper
}

func (h *hostRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = h.target.Scheme
	out.URL.Host = h.target.Host
	out.Host = h.target.Host
	return h.next.RoundTrip(out)
}
