package models

import (
	"encoding/json"
	"math"
)

// Recommendation is the discrete outcome of ratio analysis
type Recommendation string

const (
	RecommendationBuy  Recommendation = "BUY"
	RecommendationHold Recommendation = "HOLD"
	RecommendationSell Recommendation = "SELL"
)

// RatioDetails holds the six derived ratios. Percentages are scaled by 100.
type RatioDetails struct {
	NetProfitMargin float64 `json:"netProfitMargin"`
	ReturnOnAssets  float64 `json:"returnOnAssets"`
	ReturnOnEquity  float64 `json:"returnOnEquity"`
	CurrentRatio    float64 `json:"currentRatio"`
	DebtToEquity    float64 `json:"debtToEquity"`
	AssetTurnover   float64 `json:"assetTurnover"`
}

// MarshalJSON renders unbounded ratios (a non-zero figure over a zero
// denominator) as null, since JSON has no infinity
func (d RatioDetails) MarshalJSON() ([]byte, error) {
	finite := func(v float64) *float64 {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return nil
		}
		return &v
	}
	return json.Marshal(struct {
		NetProfitMargin *float64 `json:"netProfitMargin"`
		ReturnOnAssets  *float64 `json:"returnOnAssets"`
		ReturnOnEquity  *float64 `json:"returnOnEquity"`
		CurrentRatio    *float64 `json:"currentRatio"`
		DebtToEquity    *float64 `json:"debtToEquity"`
		AssetTurnover   *float64 `json:"assetTurnover"`
	}{
		NetProfitMargin: finite(d.NetProfitMargin),
		ReturnOnAssets:  finite(d.ReturnOnAssets),
		ReturnOnEquity:  finite(d.ReturnOnEquity),
		CurrentRatio:    finite(d.CurrentRatio),
		DebtToEquity:    finite(d.DebtToEquity),
		AssetTurnover:   finite(d.AssetTurnover),
	})
}

// RatioReport is the result of analysing one Financials snapshot
type RatioReport struct {
	Recommendation Recommendation `json:"recommendation"`
	Details        *RatioDetails  `json:"details"`
}

// MarshalJSON renders nil details as an empty object
func (r RatioReport) MarshalJSON() ([]byte, error) {
	type alias struct {
		Recommendation Recommendation `json:"recommendation"`
		Details        any            `json:"details"`
	}
	out := alias{Recommendation: r.Recommendation, Details: struct{}{}}
	if r.Details != nil {
		out.Details = r.Details
	}
	return json.Marshal(out)
}
