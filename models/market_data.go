package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one daily bar in a price series
type PricePoint struct {
	Date     time.Time       `json:"date"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	AdjClose decimal.Decimal `json:"adjClose"`
	Volume   int64           `json:"volume"`
}

// LatestPrice returns the point with the most recent date, or nil for an empty series
func LatestPrice(series []PricePoint) *PricePoint {
	if len(series) == 0 {
		return nil
	}
	latest := series[0]
	for _, p := range series[1:] {
		if p.Date.After(latest.Date) {
			latest = p
		}
	}
	return &latest
}

// Financials is a single reporting-period extract of income statement and
// balance sheet figures. Nil fields were not reported.
type Financials struct {
	Symbol       string `json:"symbol"`
	CompanyName  string `json:"companyName,omitempty"`
	FiscalPeriod string `json:"fiscalPeriod,omitempty"`
	FiscalYear   string `json:"fiscalYear,omitempty"`
	EndDate      string `json:"endDate,omitempty"`

	Revenue            *float64 `json:"revenue"`
	NetIncome          *float64 `json:"netIncome"`
	TotalAssets        *float64 `json:"totalAssets"`
	CurrentAssets      *float64 `json:"currentAssets"`
	CurrentLiabilities *float64 `json:"currentLiabilities"`
	TotalLiabilities   *float64 `json:"totalLiabilities"`
	Equity             *float64 `json:"equity"`
}

// Accessors below substitute 0 for missing numerators and 1 for missing denominators.

func (f *Financials) RevenueOr() float64            { return valueOr(f.Revenue, 1) }
func (f *Financials) NetIncomeOr() float64          { return valueOr(f.NetIncome, 0) }
func (f *Financials) TotalAssetsOr() float64        { return valueOr(f.TotalAssets, 1) }
func (f *Financials) CurrentAssetsOr() float64      { return valueOr(f.CurrentAssets, 0) }
func (f *Financials) CurrentLiabilitiesOr() float64 { return valueOr(f.CurrentLiabilities, 1) }
func (f *Financials) TotalLiabilitiesOr() float64   { return valueOr(f.TotalLiabilities, 0) }
func (f *Financials) EquityOr() float64             { return valueOr(f.Equity, 1) }

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Float returns a pointer to v. Used to build Financials literals.
func Float(v float64) *float64 {
	return &v
}
