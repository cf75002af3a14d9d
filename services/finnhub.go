package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"insider-watch/models"
)

// FinnhubService fetches insider transactions from the Finnhub API
type FinnhubService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewFinnhubService creates a new FinnhubService instance
func NewFinnhubService(apiKey, baseURL string) *FinnhubService {
	if baseURL == "" {
		baseURL = "https://finnhub.io/api/v1"
	}
	return &FinnhubService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// finnhubInsiderResponse is the envelope of /stock/insider-transactions
type finnhubInsiderResponse struct {
	Data   []models.Transaction `json:"data"`
	Symbol string               `json:"symbol"`
}

// GetInsiderTransactions returns up to limit of the latest insider transactions
// in provider order. An empty list is not an error.
func (s *FinnhubService) GetInsiderTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	return callProvider(ctx, BreakerFinnhub, "insider_transactions", func(ctx context.Context) ([]models.Transaction, error) {
		params := url.Values{}
		if limit > 0 {
			params.Set("limit", strconv.Itoa(limit))
		}

		reqURL := s.baseURL + "/stock/insider-transactions"
		if len(params) > 0 {
			reqURL += "?" + params.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Finnhub-Token", s.apiKey)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, transportError(BreakerFinnhub, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, statusError(BreakerFinnhub, resp)
		}

		var body finnhubInsiderResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, decodeError(BreakerFinnhub, err)
		}
		if body.Data == nil {
			body.Data = []models.Transaction{}
		}

		return body.Data, nil
	}, attribute.Int("limit", limit))
}
