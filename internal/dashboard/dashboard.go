//go:generate templ generate

package dashboard

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"insider-watch/analysis"
	"insider-watch/internal/snapshot"
	"insider-watch/models"
)

// Style is the CSS class applied to a table row
type Style string

const (
	StyleNone           Style = ""
	StylePurchase       Style = "purchase"
	StylePurchaseStrong Style = "purchase-strong"
)

// strongPurchaseMaxPrice is the inclusive price ceiling for emphasised purchases
var strongPurchaseMaxPrice = decimal.NewFromInt(2)

// NotAvailable is shown for values the provider did not report
const NotAvailable = "N/A"

// Row is one rendered transaction
type Row struct {
	Symbol     string `json:"symbol"`
	Insider    string `json:"insider"`
	Code       string `json:"code"`
	Change     int64  `json:"change"`
	Price      string `json:"price"`
	TradeValue string `json:"tradeValue"`
	Date       string `json:"date"`
	Style      Style  `json:"style"`
}

// Table is the rendered transactions table
type Table struct {
	SnapshotID string    `json:"snapshotId,omitempty"`
	FetchedAt  time.Time `json:"fetchedAt"`
	Rows       []Row     `json:"rows"`
}

// Detail is the rendered detail view for a selected symbol
type Detail struct {
	Symbol     string                `json:"symbol"`
	Price      models.PricePoint     `json:"price"`
	Financials *models.Financials    `json:"financials"`
	Report     models.RatioReport    `json:"report"`
	Chart      []analysis.ChartPoint `json:"chart"`
}

// RowStyle picks the row class: purchases at or below $2 are emphasised,
// other purchases get the standard style, everything else is unstyled.
func RowStyle(t models.Transaction) Style {
	if !t.IsPurchase() {
		return StyleNone
	}
	if t.TransactionPrice.Valid && t.TransactionPrice.Decimal.LessThanOrEqual(strongPurchaseMaxPrice) {
		return StylePurchaseStrong
	}
	return StylePurchase
}

// BuildTable renders every transaction of s in snapshot order
func BuildTable(s *snapshot.Snapshot) Table {
	table := Table{Rows: []Row{}}
	if s == nil {
		return table
	}
	if !s.IsEmpty() {
		table.SnapshotID = s.ID.String()
		table.FetchedAt = s.FetchedAt
	}

	table.Rows = make([]Row, 0, s.Len())
	for _, t := range s.Transactions {
		table.Rows = append(table.Rows, BuildRow(t))
	}
	return table
}

// BuildRow renders a single transaction
func BuildRow(t models.Transaction) Row {
	row := Row{
		Symbol:     t.Symbol,
		Insider:    t.Name,
		Code:       string(t.TransactionCode),
		Change:     t.Change,
		Price:      NotAvailable,
		TradeValue: NotAvailable,
		Date:       t.TransactionDate,
		Style:      RowStyle(t),
	}
	if t.TransactionPrice.Valid {
		row.Price = FormatCurrency(t.TransactionPrice.Decimal)
	}
	if v, ok := t.TradeValue(); ok {
		row.TradeValue = FormatCurrency(v)
	}
	return row
}

// BuildDetail assembles the detail view. It reports false when no price is
// available, in which case the view is not shown. Missing financials yield
// a HOLD report with no ratios.
func BuildDetail(symbol string, price *models.PricePoint, fin *models.Financials) (*Detail, bool) {
	if price == nil {
		return nil, false
	}
	return &Detail{
		Symbol:     symbol,
		Price:      *price,
		Financials: fin,
		Report:     analysis.Analyze(fin),
		Chart:      analysis.ChartSeries(fin),
	}, true
}

// FormatCurrency renders d as US dollars with thousands separators, e.g. $1,234.56
func FormatCurrency(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	whole := d.Truncate(0)
	cents := d.Sub(whole).StringFixed(2)

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString("$")
	b.WriteString(humanize.Comma(whole.IntPart()))
	b.WriteString(strings.TrimPrefix(cents, "0"))
	return b.String()
}

// FormatRatio renders a ratio with two decimals, or N/A when it is unbounded
func FormatRatio(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return NotAvailable
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}
