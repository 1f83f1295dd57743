package models

import "github.com/shopspring/decimal"

func init() {
	// Amounts are rendered as JSON numbers on the dashboard and API payloads.
	decimal.MarshalJSONWithoutQuotes = true
}
