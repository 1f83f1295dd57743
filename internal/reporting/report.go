// Package reporting shapes the dashboard figures from aggregated rows.
// The queries live in services.ReportService; everything here is pure.
package reporting

import (
	"sort"

	"github.com/shopspring/decimal"

	"clinic_app_echo/internal/models"
)

// DateAmount is one per-date sum coming out of the storage layer
type DateAmount struct {
	Date   string          `json:"date"` // YYYY-MM-DD
	Amount decimal.Decimal `json:"amount"`
}

// DailyEntry is one day of the income/expense series
type DailyEntry struct {
	Date    string          `json:"date"`
	Expense decimal.Decimal `json:"expense"`
	Income  decimal.Decimal `json:"income"`
}

// ProductUsage is the revenue and usage of one product across all records
type ProductUsage struct {
	ProductID     uint            `json:"product_id"`
	Product       string          `json:"product"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalDuration int64           `json:"total_duration"`
	UsageCount    int64           `json:"usage_count"`
}

// Totals carries overall figures next to the product-only profit
type Totals struct {
	Income      decimal.Decimal `json:"income"`
	Expense     decimal.Decimal `json:"expense"`
	RecordCount int64           `json:"record_count"`
}

// Report is the dashboard payload
type Report struct {
	Daily           []DailyEntry    `json:"daily"`
	Products        []ProductUsage  `json:"products"`
	Profit          decimal.Decimal `json:"profit"`
	MostUsedProduct *models.Product `json:"mostUsedProduct"`
	Totals          Totals          `json:"totals"`
}

// MergeDaily joins expense and income sums over the union of their dates.
// A date missing on one side reads as zero there. Output is ascending by date.
func MergeDaily(expenses, income []DateAmount) []DailyEntry {
	byDate := make(map[string]*DailyEntry)
	entry := func(date string) *DailyEntry {
		e, ok := byDate[date]
		if !ok {
			e = &DailyEntry{Date: date, Expense: decimal.Zero, Income: decimal.Zero}
			byDate[date] = e
		}
		return e
	}

	for _, row := range expenses {
		e := entry(row.Date)
		e.Expense = e.Expense.Add(row.Amount)
	}
	for _, row := range income {
		e := entry(row.Date)
		e.Income = e.Income.Add(row.Amount)
	}

	out := make([]DailyEntry, 0, len(byDate))
	for _, e := range byDate {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// RankProducts orders the breakdown by usage, most used first, ties going to
// the lowest product id.
func RankProducts(usage []ProductUsage) []ProductUsage {
	out := make([]ProductUsage, len(usage))
	copy(out, usage)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// Profit is product revenue minus expenses. Service revenue is reported in
// Totals.Income and does not enter the profit figure.
func Profit(usage []ProductUsage, expense decimal.Decimal) decimal.Decimal {
	revenue := decimal.Zero
	for _, u := range usage {
		revenue = revenue.Add(u.TotalAmount)
	}
	return revenue.Sub(expense)
}

// Build assembles the report. lookup resolves the catalog row of the most
// used product; it is not called when no product was ever used.
func Build(expenses, income []DateAmount, usage []ProductUsage, totals Totals, lookup func(id uint) (*models.Product, error)) (*Report, error) {
	ranked := RankProducts(usage)
	report := &Report{
		Daily:    MergeDaily(expenses, income),
		Products: ranked,
		Profit:   Profit(ranked, totals.Expense),
		Totals:   totals,
	}

	if len(ranked) > 0 && ranked[0].UsageCount > 0 && lookup != nil {
		product, err := lookup(ranked[0].ProductID)
		if err != nil {
			return nil, err
		}
		report.MostUsedProduct = product
	}
	return report, nil
}
