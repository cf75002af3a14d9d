package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"insider-watch/config"
	"insider-watch/internal/app"
	"insider-watch/internal/hub"
	"insider-watch/internal/snapshot"
	"insider-watch/models"
	"insider-watch/services"
)

type stubPrices struct {
	series []models.PricePoint
	err    error
	calls  int
}

func (s *stubPrices) GetDailyPrices(ctx context.Context, symbol string) ([]models.PricePoint, error) {
	s.calls++
	return s.series, s.err
}

type stubFinancials struct {
	fin *models.Financials
	err error
}

func (s *stubFinancials) GetFinancials(ctx context.Context, symbol string) (*models.Financials, error) {
	return s.fin, s.err
}

// testConfig returns a test configuration serving assets from a temp dir
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>insider trades</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "dashboard.js"), []byte("// dashboard"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.NewTestConfig()
	cfg.HTTP.StaticDir = dir
	return cfg
}

type fixture struct {
	router http.Handler
	store  *snapshot.Store
	prices *stubPrices
	fin    *stubFinancials
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	services.SetGlobalRegistry(services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig))
	t.Cleanup(func() { services.SetGlobalRegistry(nil) })

	cfg := testConfig(t)
	store := snapshot.NewStore()
	prices := &stubPrices{}
	fin := &stubFinancials{}
	a := app.New(cfg, store, prices, fin)

	return &fixture{
		router: NewRouter(NewHandler(a, cfg), hub.New(store), cfg),
		store:  store,
		prices: prices,
		fin:    fin,
	}
}

func (f *fixture) get(t *testing.T, target string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func sampleTransactions() []models.Transaction {
	return []models.Transaction{
		{Symbol: "ABC", Name: "Jane Doe", TransactionCode: models.TransactionCodePurchase, Change: 1000,
			TransactionPrice: decimal.NewNullDecimal(decimal.RequireFromString("1.5")), TransactionDate: "2024-03-07"},
		{Symbol: "BRK.B", TransactionCode: models.TransactionCodePurchase},
		{Symbol: "XYZ", Name: "John Roe", TransactionCode: models.TransactionCodeSale, Change: -10,
			TransactionPrice: decimal.NewNullDecimal(decimal.RequireFromString("40")), TransactionDate: "2024-03-06"},
	}
}

func buyFinancials() *models.Financials {
	return &models.Financials{
		Symbol:             "ABC",
		Revenue:            models.Float(1000),
		NetIncome:          models.Float(150),
		TotalAssets:        models.Float(2000),
		CurrentAssets:      models.Float(500),
		CurrentLiabilities: models.Float(200),
		TotalLiabilities:   models.Float(300),
		Equity:             models.Float(1000),
	}
}

func TestHandler_Index(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/", "/static/dashboard.js"} {
		w := f.get(t, path)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: expected status 200, got %d", path, w.Code)
		}
	}

	if body := f.get(t, "/").Body.String(); !strings.Contains(body, "insider trades") {
		t.Errorf("expected index page, got %s", body)
	}
}

func TestHandler_Health(t *testing.T) {
	f := newFixture(t)
	f.store.Swap(snapshot.New(sampleTransactions(), time.Now()))

	w := f.get(t, "/api/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if _, ok := body["circuit_breakers"]; !ok {
		t.Error("expected circuit_breakers in response")
	}
}

func TestHandler_GetInsiderTrades(t *testing.T) {
	t.Run("empty before first refresh", func(t *testing.T) {
		f := newFixture(t)

		w := f.get(t, "/api/insider-trades")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if strings.TrimSpace(w.Body.String()) != "[]" {
			t.Errorf("expected empty array, got %s", w.Body.String())
		}
	})

	t.Run("filtered snapshot in provider order", func(t *testing.T) {
		f := newFixture(t)
		f.store.Swap(snapshot.New(sampleTransactions(), time.Now()))

		w := f.get(t, "/api/insider-trades")
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %s", ct)
		}

		var got []map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 transactions, got %d", len(got))
		}
		if got[0]["symbol"] != "ABC" || got[1]["symbol"] != "XYZ" {
			t.Errorf("unexpected order: %v", got)
		}
		if got[0]["transactionCode"] != "P" {
			t.Errorf("expected provider field names, got %v", got[0])
		}
	})

	t.Run("htmx table partial", func(t *testing.T) {
		f := newFixture(t)
		f.store.Swap(snapshot.New(sampleTransactions(), time.Now()))

		w := f.get(t, "/api/insider-trades", "HX-Request", "true")
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("expected HTML, got %s", ct)
		}
		if !strings.Contains(w.Body.String(), `class="purchase-strong"`) {
			t.Errorf("expected styled purchase row, got %s", w.Body.String())
		}
	})
}

func TestHandler_GetInsiderTradesMeta(t *testing.T) {
	f := newFixture(t)
	snap := snapshot.New(sampleTransactions(), time.Now())
	f.store.Swap(snap)

	var meta app.SnapshotStatus
	if err := json.Unmarshal(f.get(t, "/api/insider-trades/meta").Body.Bytes(), &meta); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if meta.ID != snap.ID.String() || meta.Count != 2 || meta.Received != 3 {
		t.Errorf("unexpected meta %+v", meta)
	}
}

func TestHandler_GetPrices(t *testing.T) {
	t.Run("series", func(t *testing.T) {
		f := newFixture(t)
		f.prices.series = []models.PricePoint{{Close: decimal.RequireFromString("1.58"), Volume: 98000}}

		w := f.get(t, "/api/tiingo?symbol=abc")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		var got []map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 price record, got %d", len(got))
		}
	})

	t.Run("empty series is 404", func(t *testing.T) {
		f := newFixture(t)
		f.prices.series = []models.PricePoint{}

		w := f.get(t, "/api/tiingo?symbol=ABC")
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
		if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
			t.Errorf("expected plain text, got %s", w.Header().Get("Content-Type"))
		}
	})

	t.Run("provider status is propagated", func(t *testing.T) {
		f := newFixture(t)
		f.prices.err = &services.ProviderError{Provider: "tiingo", StatusCode: http.StatusTooManyRequests, Message: "slow down"}

		w := f.get(t, "/api/tiingo?symbol=ABC")
		if w.Code != http.StatusTooManyRequests {
			t.Errorf("expected status 429, got %d", w.Code)
		}
	})

	t.Run("provider message is propagated", func(t *testing.T) {
		f := newFixture(t)
		f.prices.err = &services.ProviderError{Provider: "tiingo", StatusCode: http.StatusUnauthorized, Message: "Invalid token provided"}

		w := f.get(t, "/api/tiingo?symbol=ABC")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", w.Code)
		}
		if got := strings.TrimSpace(w.Body.String()); got != "Error fetching price data for ABC: Invalid token provided" {
			t.Errorf("unexpected body %q", got)
		}
	})

	t.Run("transport failure is 500", func(t *testing.T) {
		f := newFixture(t)
		f.prices.err = &services.ProviderError{Provider: "tiingo", Message: "unreachable", Err: errors.New("refused")}

		w := f.get(t, "/api/tiingo?symbol=ABC")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", w.Code)
		}
	})
}

func TestHandler_GetFinancials(t *testing.T) {
	t.Run("financials", func(t *testing.T) {
		f := newFixture(t)
		f.fin.fin = buyFinancials()

		w := f.get(t, "/api/polygon-financials?symbol=ABC")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var got map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got["symbol"] != "ABC" {
			t.Errorf("unexpected body %v", got)
		}
	})

	t.Run("none found is 404", func(t *testing.T) {
		f := newFixture(t)
		f.fin.err = services.ErrNoData

		if w := f.get(t, "/api/polygon-financials?symbol=ABC"); w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})

	t.Run("provider failure is 500", func(t *testing.T) {
		f := newFixture(t)
		f.fin.err = &services.ProviderError{Provider: "polygon", StatusCode: http.StatusForbidden}

		if w := f.get(t, "/api/polygon-financials?symbol=ABC"); w.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", w.Code)
		}
	})
}

func TestHandler_GetAnalysis(t *testing.T) {
	f := newFixture(t)
	f.fin.fin = buyFinancials()

	w := f.get(t, "/api/analysis?symbol=ABC")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var got struct {
		Symbol string `json:"symbol"`
		Report struct {
			Recommendation string             `json:"recommendation"`
			Details        map[string]float64 `json:"details"`
		} `json:"report"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Report.Recommendation != "BUY" {
		t.Errorf("expected BUY, got %s", got.Report.Recommendation)
	}
	if got.Report.Details["netProfitMargin"] != 15 {
		t.Errorf("expected netProfitMargin 15, got %v", got.Report.Details["netProfitMargin"])
	}
}

func TestHandler_GetAnalysis_FinancialsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"none on file", services.ErrNoData},
		{"provider bad gateway", &services.ProviderError{Provider: "polygon", StatusCode: http.StatusBadGateway, Message: "upstream"}},
		{"breaker open", fmt.Errorf("polygon: circuit breaker open: %w", services.ErrServiceUnavailable)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.fin.err = tt.err

			w := f.get(t, "/api/analysis?symbol=ABC")
			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"report":{"recommendation":"HOLD","details":{}}`) {
				t.Errorf("expected HOLD with empty details, got %s", w.Body.String())
			}
		})
	}
}

func TestHandler_GetDetail_FinancialsProviderFailure(t *testing.T) {
	f := newFixture(t)
	f.prices.series = []models.PricePoint{{Close: decimal.RequireFromString("1.58")}}
	f.fin.err = &services.ProviderError{Provider: "polygon", StatusCode: http.StatusBadGateway}

	w := f.get(t, "/api/detail?symbol=ABC")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"report":{"recommendation":"HOLD","details":{}}`) {
		t.Errorf("expected HOLD with empty details, got %s", w.Body.String())
	}
}

func TestHandler_GetDetail(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		f := newFixture(t)
		f.prices.series = []models.PricePoint{{Close: decimal.RequireFromString("1.58")}}
		f.fin.fin = buyFinancials()

		w := f.get(t, "/api/detail?symbol=ABC")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"recommendation":"BUY"`) {
			t.Errorf("unexpected body %s", w.Body.String())
		}
	})

	t.Run("htmx partial", func(t *testing.T) {
		f := newFixture(t)
		f.prices.series = []models.PricePoint{{Close: decimal.RequireFromString("1.58")}}
		f.fin.err = services.ErrNoData

		w := f.get(t, "/api/detail?symbol=ABC", "HX-Request", "true")
		if !strings.Contains(w.Body.String(), "HOLD") {
			t.Errorf("expected HOLD partial, got %s", w.Body.String())
		}
	})

	t.Run("no price does not open", func(t *testing.T) {
		f := newFixture(t)
		f.prices.series = []models.PricePoint{}
		f.fin.fin = buyFinancials()

		w := f.get(t, "/api/detail?symbol=ABC", "HX-Request", "true")
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "error-state") {
			t.Errorf("expected error state, got %s", w.Body.String())
		}
	})
}

func TestHandler_InvalidSymbol(t *testing.T) {
	f := newFixture(t)

	for _, target := range []string{
		"/api/tiingo",
		"/api/tiingo?symbol=",
		"/api/tiingo?symbol=ABC%3BDROP",
		"/api/polygon-financials?symbol=VERYLONGSYMBOL",
		"/api/analysis?symbol=A%20B",
		"/api/detail?symbol=%3Cscript%3E",
	} {
		w := f.get(t, target)
		if w.Code != http.StatusBadRequest {
			t.Errorf("GET %s: expected status 400, got %d", target, w.Code)
		}
	}
	if f.prices.calls != 0 {
		t.Errorf("provider should not be called for invalid symbols, got %d calls", f.prices.calls)
	}
}

func TestHandler_ValidateSymbol(t *testing.T) {
	h := &Handler{}

	tests := []struct {
		symbol  string
		wantErr bool
	}{
		{"AAPL", false},
		{"BRK.B", false},
		{"BF-B", false},
		{"7203", false},
		{"", true},
		{"ABCDEFGHIJK", true},
		{"aapl", true},
		{"AB C", true},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			err := h.ValidateSymbol(tt.symbol)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSymbol(%q) error = %v, wantErr %v", tt.symbol, err, tt.wantErr)
			}
		})
	}
}

func TestHandler_NotFound(t *testing.T) {
	f := newFixture(t)

	if w := f.get(t, "/api/nonexistent"); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/insider-trades", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestHandler_CORSHeaders(t *testing.T) {
	f := newFixture(t)

	w := f.get(t, "/api/health")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected CORS header *, got %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
}

func TestHandler_OptionsRequest(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/insider-trades", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestHandler_Metrics(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/api/insider-trades")

	w := f.get(t, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "insider_watch_") {
		t.Error("expected insider_watch metrics in exposition")
	}
}

func TestHandler_WebsocketThroughRouter(t *testing.T) {
	f := newFixture(t)
	f.store.Swap(snapshot.New(sampleTransactions(), time.Now()))

	server := httptest.NewServer(f.router)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws/insider-trades", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type         string               `json:"type"`
		Transactions []models.Transaction `json:"transactions"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msg.Type != "snapshot" || len(msg.Transactions) != 2 {
		t.Errorf("unexpected message %+v", msg)
	}
}
