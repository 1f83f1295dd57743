package reporting

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic_app_echo/internal/models"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestMergeDaily(t *testing.T) {
	expenses := []DateAmount{{Date: "2025-01-01", Amount: d("50")}}
	income := []DateAmount{{Date: "2025-01-02", Amount: d("200")}}

	got := MergeDaily(expenses, income)
	require.Len(t, got, 2)

	assert.Equal(t, "2025-01-01", got[0].Date)
	assert.True(t, got[0].Expense.Equal(d("50")))
	assert.True(t, got[0].Income.IsZero())

	assert.Equal(t, "2025-01-02", got[1].Date)
	assert.True(t, got[1].Expense.IsZero())
	assert.True(t, got[1].Income.Equal(d("200")))
}

func TestMergeDaily_SameDateAndOrdering(t *testing.T) {
	expenses := []DateAmount{
		{Date: "2025-03-10", Amount: d("10")},
		{Date: "2025-01-05", Amount: d("5")},
	}
	income := []DateAmount{
		{Date: "2025-03-10", Amount: d("100")},
		{Date: "2025-02-01", Amount: d("40")},
	}

	got := MergeDaily(expenses, income)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"2025-01-05", "2025-02-01", "2025-03-10"}, []string{got[0].Date, got[1].Date, got[2].Date})
	assert.True(t, got[2].Expense.Equal(d("10")))
	assert.True(t, got[2].Income.Equal(d("100")))

	assert.Empty(t, MergeDaily(nil, nil))
}

func TestRankProducts(t *testing.T) {
	usage := []ProductUsage{
		{ProductID: 3, Product: "C", UsageCount: 3},
		{ProductID: 2, Product: "B", UsageCount: 3},
		{ProductID: 1, Product: "A", UsageCount: 5},
	}

	got := RankProducts(usage)
	assert.Equal(t, uint(1), got[0].ProductID)
	assert.Equal(t, uint(2), got[1].ProductID)
	assert.Equal(t, uint(3), got[2].ProductID)

	// input is left as it was
	assert.Equal(t, uint(3), usage[0].ProductID)
}

func TestProfit(t *testing.T) {
	usage := []ProductUsage{{TotalAmount: d("300")}, {TotalAmount: d("50.25")}}
	assert.True(t, Profit(usage, d("100")).Equal(d("250.25")))
	assert.True(t, Profit(nil, d("20")).Equal(d("-20")))
}

func TestBuild(t *testing.T) {
	usage := []ProductUsage{
		{ProductID: 2, Product: "B", TotalAmount: d("300"), UsageCount: 3, TotalDuration: 90},
		{ProductID: 1, Product: "A", TotalAmount: d("500"), UsageCount: 5, TotalDuration: 150},
	}
	totals := Totals{Income: d("850"), Expense: d("120"), RecordCount: 6}

	var asked []uint
	lookup := func(id uint) (*models.Product, error) {
		asked = append(asked, id)
		return &models.Product{ID: id, Name: "A", Price: d("100"), Duration: 30}, nil
	}

	report, err := Build(nil, nil, usage, totals, lookup)
	require.NoError(t, err)

	require.NotNil(t, report.MostUsedProduct)
	assert.Equal(t, uint(1), report.MostUsedProduct.ID)
	assert.Equal(t, []uint{1}, asked)
	assert.True(t, report.Profit.Equal(d("680")))
	assert.Equal(t, int64(6), report.Totals.RecordCount)

	again, err := Build(nil, nil, usage, totals, lookup)
	require.NoError(t, err)
	assert.Equal(t, report.Products, again.Products)
}

func TestBuild_NoUsage(t *testing.T) {
	called := false
	report, err := Build(nil, nil, nil, Totals{Expense: d("10")}, func(uint) (*models.Product, error) {
		called = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, report.MostUsedProduct)
	assert.False(t, called)
	assert.True(t, report.Profit.Equal(d("-10")))
}

func TestBuild_LookupFailure(t *testing.T) {
	_, err := Build(nil, nil, []ProductUsage{{ProductID: 1, UsageCount: 1}}, Totals{}, func(uint) (*models.Product, error) {
		return nil, errors.New("db down")
	})
	assert.Error(t, err)
}
