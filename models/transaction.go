package models

import (
	"github.com/shopspring/decimal"
)

// TransactionCode is the SEC Form 4 transaction code reported by the provider
type TransactionCode string

const (
	TransactionCodePurchase TransactionCode = "P"
	TransactionCodeSale     TransactionCode = "S"
)

// Transaction is one insider trade as reported by the insider-transactions provider.
// Values are never modified after parsing.
type Transaction struct {
	Symbol           string              `json:"symbol"`
	Name             string              `json:"name"`
	Share            int64               `json:"share"`
	Change           int64               `json:"change"`
	FilingDate       string              `json:"filingDate"`
	TransactionDate  string              `json:"transactionDate"`
	TransactionCode  TransactionCode     `json:"transactionCode"`
	TransactionPrice decimal.NullDecimal `json:"transactionPrice"`
}

// IsPurchase reports whether the transaction is an open-market purchase
func (t Transaction) IsPurchase() bool {
	return t.TransactionCode == TransactionCodePurchase
}

// IsSale reports whether the transaction is an open-market sale
func (t Transaction) IsSale() bool {
	return t.TransactionCode == TransactionCodeSale
}

// TradeValue returns price * |change|. The second result is false when the
// provider did not report a price.
func (t Transaction) TradeValue() (decimal.Decimal, bool) {
	if !t.TransactionPrice.Valid {
		return decimal.Zero, false
	}
	return t.TransactionPrice.Decimal.Mul(decimal.NewFromInt(t.Change).Abs()), true
}

// IsUSEquity reports whether symbol is a plain US ticker: one or more
// uppercase ASCII letters and nothing else.
func IsUSEquity(symbol string) bool {
	if symbol == "" {
		return false
	}
	for i := 0; i < len(symbol); i++ {
		if symbol[i] < 'A' || symbol[i] > 'Z' {
			return false
		}
	}
	return true
}

// FilterUSEquities returns the transactions whose symbol passes IsUSEquity,
// preserving order. The input slice is not modified.
func FilterUSEquities(txns []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txns))
	for _, t := range txns {
		if IsUSEquity(t.Symbol) {
			out = append(out, t)
		}
	}
	return out
}
