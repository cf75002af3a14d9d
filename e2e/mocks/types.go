package mocks

// InsiderTransaction is one record of the insider-transactions feed.
type InsiderTransaction struct {
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name"`
	Share            int64    `json:"share"`
	Change           int64    `json:"change"`
	FilingDate       string   `json:"filingDate"`
	TransactionDate  string   `json:"transactionDate"`
	TransactionCode  string   `json:"transactionCode"`
	TransactionPrice *float64 `json:"transactionPrice"`
}

// TiingoPrice is one daily price record.
type TiingoPrice struct {
	Date     string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adjClose"`
	Volume   int64   `json:"volume"`
}

// AlpacaBar represents OHLCV bar data from Alpaca.
type AlpacaBar struct {
	Timestamp string  `json:"t"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    int64   `json:"v"`
}

// Financials is the subset of a Polygon financials filing the mock serves.
// Nil fields are omitted from the response.
type Financials struct {
	CompanyName        string
	FiscalPeriod       string
	FiscalYear         string
	EndDate            string
	Revenue            *float64
	NetIncome          *float64
	TotalAssets        *float64
	CurrentAssets      *float64
	CurrentLiabilities *float64
	TotalLiabilities   *float64
	Equity             *float64
}

// Price returns a pointer to v for optional fields.
func Price(v float64) *float64 {
	return &v
}

type polygonDataPoint struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Label string  `json:"label"`
}

func (f *Financials) polygonResult() map[string]any {
	income := map[string]polygonDataPoint{}
	balance := map[string]polygonDataPoint{}

	put := func(section map[string]polygonDataPoint, key, label string, v *float64) {
		if v != nil {
			section[key] = polygonDataPoint{Value: *v, Unit: "USD", Label: label}
		}
	}
	put(income, "revenues", "Revenues", f.Revenue)
	put(income, "net_income_loss", "Net Income/Loss", f.NetIncome)
	put(balance, "assets", "Assets", f.TotalAssets)
	put(balance, "current_assets", "Current Assets", f.CurrentAssets)
	put(balance, "current_liabilities", "Current Liabilities", f.CurrentLiabilities)
	put(balance, "liabilities", "Liabilities", f.TotalLiabilities)
	put(balance, "equity", "Equity", f.Equity)

	return map[string]any{
		"company_name":  f.CompanyName,
		"fiscal_period": f.FiscalPeriod,
		"fiscal_year":   f.FiscalYear,
		"end_date":      f.EndDate,
		"financials": map[string]any{
			"income_statement": income,
			"balance_sheet":    balance,
		},
	}
}
