package analysis

import (
	"math"

	"insider-watch/models"
)

// Recommendation thresholds. All comparisons are strict.
const (
	buyMinNetProfitMargin = 10.0
	buyMinReturnOnAssets  = 5.0
	buyMinReturnOnEquity  = 10.0
	buyMinCurrentRatio    = 1.5
	buyMaxDebtToEquity    = 2.0

	sellMaxNetProfitMargin = 0.0
	sellMaxReturnOnAssets  = 1.0
	sellMaxCurrentRatio    = 1.0
)

// Analyze computes the six ratios for f and derives a recommendation.
// A nil snapshot yields HOLD with no details.
func Analyze(f *models.Financials) models.RatioReport {
	if f == nil {
		return models.RatioReport{Recommendation: models.RecommendationHold}
	}

	revenue := f.RevenueOr()
	netIncome := f.NetIncomeOr()
	totalAssets := f.TotalAssetsOr()
	equity := f.EquityOr()

	d := &models.RatioDetails{
		NetProfitMargin: divide(netIncome, revenue) * 100,
		ReturnOnAssets:  divide(netIncome, totalAssets) * 100,
		ReturnOnEquity:  divide(netIncome, equity) * 100,
		CurrentRatio:    divide(f.CurrentAssetsOr(), f.CurrentLiabilitiesOr()),
		DebtToEquity:    divide(f.TotalLiabilitiesOr(), equity),
		AssetTurnover:   divide(revenue, totalAssets),
	}

	return models.RatioReport{
		Recommendation: Recommend(d),
		Details:        d,
	}
}

// Recommend applies the BUY rule first, then SELL, falling back to HOLD
func Recommend(d *models.RatioDetails) models.Recommendation {
	if d == nil {
		return models.RecommendationHold
	}

	if d.NetProfitMargin > buyMinNetProfitMargin &&
		d.ReturnOnAssets > buyMinReturnOnAssets &&
		d.ReturnOnEquity > buyMinReturnOnEquity &&
		d.CurrentRatio > buyMinCurrentRatio &&
		d.DebtToEquity < buyMaxDebtToEquity {
		return models.RecommendationBuy
	}

	if d.NetProfitMargin < sellMaxNetProfitMargin ||
		d.ReturnOnAssets < sellMaxReturnOnAssets ||
		d.CurrentRatio < sellMaxCurrentRatio {
		return models.RecommendationSell
	}

	return models.RecommendationHold
}

// divide returns a/b, or 0 when the quotient is undefined (0/0). A non-zero
// numerator over zero stays ±Inf and takes part in the recommendation.
func divide(a, b float64) float64 {
	q := a / b
	if math.IsNaN(q) {
		return 0
	}
	return q
}

// ChartPoint is one bar of the financials chart
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ChartSeries returns the bars plotted in the detail view. Missing figures plot as 0.
func ChartSeries(f *models.Financials) []ChartPoint {
	if f == nil {
		return nil
	}
	return []ChartPoint{
		{Label: "Revenue", Value: orZero(f.Revenue)},
		{Label: "Net Income", Value: orZero(f.NetIncome)},
		{Label: "Assets", Value: orZero(f.TotalAssets)},
		{Label: "Liabilities", Value: orZero(f.TotalLiabilities)},
		{Label: "Equity", Value: orZero(f.Equity)},
	}
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
