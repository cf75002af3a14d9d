// Package mocks provides an HTTP mock of the external market data APIs used
// by the dashboard: the insider-transactions feed, Tiingo daily prices,
// Polygon financials and Alpaca bars.
package mocks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Provider names accepted by SetStatus
const (
	ProviderInsider = "insider"
	ProviderTiingo  = "tiingo"
	ProviderPolygon = "polygon"
	ProviderAlpaca  = "alpaca"
)

// MockServer provides configurable mock responses for all external APIs.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	// Response configurations
	transactions []InsiderTransaction
	prices       map[string][]TiingoPrice
	financials   map[string]*Financials
	bars         map[string][]AlpacaBar

	// Error injection: provider -> HTTP status
	statuses map[string]int

	// Request tracking for assertions
	requestLog []RequestLog
}

// RequestLog records incoming requests for test assertions.
type RequestLog struct {
	Method string
	Path   string
	Query  string
}

// NewMockServer creates and starts a mock server with default responses.
func NewMockServer() *MockServer {
	m := NewMockHandler()
	m.server = httptest.NewServer(m)
	return m
}

// NewMockHandler creates a mock with default responses without starting a
// listener, for callers that serve it themselves.
func NewMockHandler() *MockServer {
	m := &MockServer{
		prices:     make(map[string][]TiingoPrice),
		financials: make(map[string]*Financials),
		bars:       make(map[string][]AlpacaBar),
		statuses:   make(map[string]int),
		requestLog: make([]RequestLog, 0),
	}
	m.setDefaults()
	return m
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	if m.server != nil {
		m.server.Close()
	}
}

// ServeHTTP implements http.Handler to route requests to appropriate mock handlers.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
	})
	m.mu.Unlock()

	path := r.URL.Path

	// Route to appropriate handler based on path
	switch {
	case strings.HasSuffix(path, "/stock/insider-transactions"):
		m.handleInsiderTransactions(w, r)
	case strings.HasPrefix(path, "/tiingo/daily/") && strings.HasSuffix(path, "/prices"):
		m.handleTiingoPrices(w, r)
	case path == "/vX/reference/financials":
		m.handlePolygonFinancials(w, r)
	case strings.HasPrefix(path, "/v2/stocks") && strings.HasSuffix(path, "/bars"):
		m.handleAlpacaBars(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GetRequestLog returns all logged requests for assertions.
func (m *MockServer) GetRequestLog() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog{}, m.requestLog...)
}

// CountRequests returns how many logged requests had a path containing fragment.
func (m *MockServer) CountRequests(fragment string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, req := range m.requestLog {
		if strings.Contains(req.Path, fragment) {
			n++
		}
	}
	return n
}

// ClearRequestLog clears the request log.
func (m *MockServer) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = make([]RequestLog, 0)
}

// SetTransactions configures the insider-transactions feed.
func (m *MockServer) SetTransactions(txns []InsiderTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = txns
}

// SetPrices configures the Tiingo daily series for symbol.
func (m *MockServer) SetPrices(symbol string, prices []TiingoPrice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[strings.ToUpper(symbol)] = prices
}

// SetFinancials configures the Polygon filing for symbol. Nil removes it.
func (m *MockServer) SetFinancials(symbol string, f *Financials) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f == nil {
		delete(m.financials, strings.ToUpper(symbol))
		return
	}
	m.financials[strings.ToUpper(symbol)] = f
}

// SetAlpacaBars configures the Alpaca daily bars for symbol.
func (m *MockServer) SetAlpacaBars(symbol string, bars []AlpacaBar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[strings.ToUpper(symbol)] = bars
}

// SetStatus makes provider answer every request with status. Zero restores normal responses.
func (m *MockServer) SetStatus(provider string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == 0 {
		delete(m.statuses, provider)
		return
	}
	m.statuses[provider] = status
}

func (m *MockServer) setDefaults() {
	m.transactions = []InsiderTransaction{
		{Symbol: "ABC", Name: "DOE JOHN", Share: 250000, Change: 50000, FilingDate: "2024-03-08", TransactionDate: "2024-03-07", TransactionCode: "P", TransactionPrice: Price(1.5)},
		{Symbol: "BRK.B", Name: "BUFFETT WARREN", Share: 1000, Change: 100, FilingDate: "2024-03-08", TransactionDate: "2024-03-07", TransactionCode: "P", TransactionPrice: Price(400)},
		{Symbol: "MSFT", Name: "ROE JANE", Share: 12000, Change: -2000, FilingDate: "2024-03-08", TransactionDate: "2024-03-06", TransactionCode: "S", TransactionPrice: Price(410.25)},
		{Symbol: "XYZ", Name: "POE ALEX", Share: 5000, Change: 1000, FilingDate: "2024-03-07", TransactionDate: "2024-03-05", TransactionCode: "P", TransactionPrice: Price(12)},
		{Symbol: "7203", Name: "TOYODA AKIO", Share: 100, Change: 100, FilingDate: "2024-03-07", TransactionDate: "2024-03-05", TransactionCode: "P", TransactionPrice: Price(20)},
		{Symbol: "QRS", Name: "LEE SAM", Share: 0, Change: 300, FilingDate: "2024-03-07", TransactionDate: "2024-03-04", TransactionCode: "M", TransactionPrice: nil},
	}

	m.prices["ABC"] = generateDefaultPrices(5, 1.5)
	m.prices["MSFT"] = generateDefaultPrices(5, 410)
	m.prices["XYZ"] = generateDefaultPrices(5, 12)

	m.bars["ABC"] = generateDefaultBars(5, 1.5)

	m.financials["ABC"] = &Financials{
		CompanyName: "ABC Corp", FiscalPeriod: "FY", FiscalYear: "2023", EndDate: "2023-12-31",
		Revenue: Price(1000), NetIncome: Price(150), TotalAssets: Price(2000),
		CurrentAssets: Price(500), CurrentLiabilities: Price(200), TotalLiabilities: Price(300), Equity: Price(1000),
	}
	m.financials["XYZ"] = &Financials{
		CompanyName: "XYZ Holdings", FiscalPeriod: "FY", FiscalYear: "2023", EndDate: "2023-12-31",
		Revenue: Price(1000), NetIncome: Price(-50), TotalAssets: Price(2000),
		CurrentAssets: Price(500), CurrentLiabilities: Price(200), TotalLiabilities: Price(300), Equity: Price(1000),
	}
}

// injectedStatus writes the configured error status for provider, if any.
func (m *MockServer) injectedStatus(w http.ResponseWriter, provider string) bool {
	m.mu.RLock()
	status := m.statuses[provider]
	m.mu.RUnlock()

	if status == 0 {
		return false
	}
	http.Error(w, http.StatusText(status), status)
	return true
}

func (m *MockServer) handleInsiderTransactions(w http.ResponseWriter, r *http.Request) {
	if m.injectedStatus(w, ProviderInsider) {
		return
	}

	m.mu.RLock()
	txns := append([]InsiderTransaction{}, m.transactions...)
	m.mu.RUnlock()

	writeJSON(w, map[string]any{"data": txns, "symbol": ""})
}

func (m *MockServer) handleTiingoPrices(w http.ResponseWriter, r *http.Request) {
	if m.injectedStatus(w, ProviderTiingo) {
		return
	}

	symbol := strings.ToUpper(strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/tiingo/daily/"), "/prices"))

	m.mu.RLock()
	prices, ok := m.prices[symbol]
	m.mu.RUnlock()

	if !ok {
		prices = []TiingoPrice{}
	}
	writeJSON(w, prices)
}

func (m *MockServer) handlePolygonFinancials(w http.ResponseWriter, r *http.Request) {
	if m.injectedStatus(w, ProviderPolygon) {
		return
	}

	symbol := strings.ToUpper(r.URL.Query().Get("ticker"))

	m.mu.RLock()
	f, ok := m.financials[symbol]
	m.mu.RUnlock()

	results := []map[string]any{}
	if ok {
		results = append(results, f.polygonResult())
	}
	writeJSON(w, map[string]any{
		"status":     "OK",
		"request_id": "mock",
		"count":      len(results),
		"results":    results,
	})
}

func (m *MockServer) handleAlpacaBars(w http.ResponseWriter, r *http.Request) {
	if m.injectedStatus(w, ProviderAlpaca) {
		return
	}

	// Single-symbol path /v2/stocks/{symbol}/bars, or multi-symbol with ?symbols=
	symbol := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v2/stocks/"), "/bars")
	multi := r.URL.Path == "/v2/stocks/bars"
	if multi {
		symbol = r.URL.Query().Get("symbols")
	}
	symbol = strings.ToUpper(symbol)

	m.mu.RLock()
	bars, ok := m.bars[symbol]
	m.mu.RUnlock()
	if !ok {
		bars = []AlpacaBar{}
	}

	if multi {
		writeJSON(w, map[string]any{"bars": map[string]any{symbol: bars}, "next_page_token": nil})
		return
	}
	writeJSON(w, map[string]any{"bars": bars, "symbol": symbol, "next_page_token": nil})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// generateDefaultPrices returns n trading days ending yesterday around base.
func generateDefaultPrices(n int, base float64) []TiingoPrice {
	out := make([]TiingoPrice, 0, n)
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -n)
	for i := 0; i < n; i++ {
		c := base * (1 + 0.01*float64(i))
		out = append(out, TiingoPrice{
			Date:     start.AddDate(0, 0, i).Format(time.RFC3339),
			Open:     c * 0.99,
			High:     c * 1.02,
			Low:      c * 0.97,
			Close:    c,
			AdjClose: c,
			Volume:   100000 + int64(i)*1000,
		})
	}
	return out
}

// generateDefaultBars returns n daily Alpaca bars ending yesterday around base.
func generateDefaultBars(n int, base float64) []AlpacaBar {
	prices := generateDefaultPrices(n, base)
	out := make([]AlpacaBar, len(prices))
	for i, p := range prices {
		out[i] = AlpacaBar{Timestamp: p.Date, Open: p.Open, High: p.High, Low: p.Low, Close: p.Close, Volume: p.Volume}
	}
	return out
}
