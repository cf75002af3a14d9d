package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/a-h/templ"

	"insider-watch/config"
	"insider-watch/internal/app"
	"insider-watch/internal/dashboard"
	"insider-watch/observability"
	"insider-watch/services"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
	cfg *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// HandleIndex serves the dashboard page
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(h.cfg.HTTP.StaticDir, "index.html"))
}

// StaticHandler serves dashboard assets under /static/
func (h *Handler) StaticHandler() http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.Dir(h.cfg.HTTP.StaticDir)))
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.app.Health())
}

// HandleGetInsiderTrades returns the current transaction snapshot
func (h *Handler) HandleGetInsiderTrades(w http.ResponseWriter, r *http.Request) {
	snap := h.app.GetTransactions()

	if isHTMXRequest(r) {
		h.htmlResponse(w, dashboard.TableComponent(dashboard.BuildTable(snap)), r)
		return
	}

	h.jsonResponse(w, snap.Transactions)
}

// HandleGetInsiderTradesMeta returns metadata about the current snapshot
func (h *Handler) HandleGetInsiderTradesMeta(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.app.SnapshotStatus())
}

// HandleGetPrices proxies the daily price series for a symbol. Provider
// failures are surfaced with the provider's status.
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	series, err := h.app.GetPriceSeries(r.Context(), symbol)
	if err != nil {
		status := services.HTTPStatus(err)
		if status == http.StatusNotFound {
			h.textError(w, fmt.Sprintf("No price data found for %s", symbol), status)
			return
		}
		h.providerError(w, r, symbol, "Error fetching price data", err, status)
		return
	}

	h.jsonResponse(w, series)
}

// HandleGetFinancials proxies the latest financials filing for a symbol.
// Any provider failure other than "none found" is reported as 500.
func (h *Handler) HandleGetFinancials(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	fin, err := h.app.GetFinancials(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, services.ErrNoData) {
			h.textError(w, fmt.Sprintf("No financial data found for %s", symbol), http.StatusNotFound)
			return
		}
		h.providerError(w, r, symbol, "Error fetching financial data", err, http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, fin)
}

// HandleGetAnalysis returns the ratio analysis for a symbol
func (h *Handler) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	result, err := h.app.AnalyzeSymbol(r.Context(), symbol)
	if err != nil {
		h.providerError(w, r, symbol, "Error analyzing financials", err, services.HTTPStatus(err))
		return
	}

	h.jsonResponse(w, result)
}

// HandleGetDetail returns the detail view for a symbol. Without a price the
// view is not available.
func (h *Handler) HandleGetDetail(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	detail, err := h.app.Detail(r.Context(), symbol)
	if err != nil {
		status := services.HTTPStatus(err)
		msg := errorMessage("Error fetching price data", symbol, err)
		if status == http.StatusNotFound {
			msg = fmt.Sprintf("No price data found for %s", symbol)
		} else {
			observability.WithContext(r.Context()).Warn("detail lookup failed",
				"symbol", symbol, "status", status, "error", err)
		}
		if isHTMXRequest(r) {
			h.htmlError(w, msg, status, r)
			return
		}
		h.textError(w, msg, status)
		return
	}

	if isHTMXRequest(r) {
		h.htmlResponse(w, dashboard.DetailComponent(*detail), r)
		return
	}

	h.jsonResponse(w, detail)
}

// Helper functions

// isHTMXRequest checks if the request is from HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// htmlResponse renders a templ component as HTML
func (h *Handler) htmlResponse(w http.ResponseWriter, component templ.Component, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		observability.WithContext(r.Context()).Error("failed to render partial", "error", err)
	}
}

// htmlError renders an error state as HTML
func (h *Handler) htmlError(w http.ResponseWriter, message string, status int, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := dashboard.ErrorComponent(message).Render(r.Context(), w); err != nil {
		observability.WithContext(r.Context()).Error("failed to render error state", "error", err)
	}
}

// symbolParam reads and validates the symbol query parameter, writing a 400 on failure
func (h *Handler) symbolParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if err := h.ValidateSymbol(symbol); err != nil {
		h.textError(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return symbol, true
}

// ValidateSymbol validates a stock symbol
func (h *Handler) ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	if len(symbol) > 10 {
		return fmt.Errorf("symbol too long (max 10 characters)")
	}

	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format (alphanumeric, dots, and dashes only)")
	}

	return nil
}

// providerError logs a failed proxy call and writes a plain-text diagnostic
// carrying the provider's own message when there is one
func (h *Handler) providerError(w http.ResponseWriter, r *http.Request, symbol, prefix string, err error, status int) {
	observability.WithContext(r.Context()).Warn("provider request failed",
		"symbol", symbol,
		"status", status,
		"error", err)
	h.textError(w, errorMessage(prefix, symbol, err), status)
}

// errorMessage formats "<prefix> for <symbol>[: <provider message>]"
func errorMessage(prefix, symbol string, err error) string {
	msg := fmt.Sprintf("%s for %s", prefix, symbol)
	var perr *services.ProviderError
	if errors.As(err, &perr) && perr.Message != "" {
		msg += ": " + perr.Message
	}
	return msg
}

func (h *Handler) textError(w http.ResponseWriter, message string, status int) {
	http.Error(w, message, status)
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		observability.Error("failed to encode response", "error", err)
	}
}
