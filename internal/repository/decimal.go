package repository

import "github.com/shopspring/decimal"

// Rates are stored as DECIMAL(5,2) and scanned as strings to avoid
// float drift on the way in and out.
func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
