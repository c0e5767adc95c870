package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func fixedClock() time.Time {
	return time.Date(2025, 3, 20, 14, 5, 0, 0, time.UTC)
}

func TestBuilder_ResetProducesZeroDashboard(t *testing.T) {
	res := NewBuilder(nil, fixedClock).Build()

	assert.Zero(t, res.Balance)
	assert.Zero(t, res.TotalIncome)
	assert.NotNil(t, res.Recent)
	assert.Empty(t, res.Recent)
	assert.Equal(t, Stats{}, res.Stats)
	assert.Equal(t, []float64{0, 0}, res.Charts.IncomeVsExpense.Data)
	assert.Equal(t, "20/03/2025 14:05", res.UpdatedAt)
	assert.Equal(t, AppliedFilters{}, res.Filters)
}

func TestBuilder_StepsAreIndependent(t *testing.T) {
	records := []core.Transaction{
		inc("1000", "2025-03-01", "Salary"),
		exp("200", "2025-03-02", "Rent"),
	}

	onlyStats := NewBuilder(records, fixedClock).WithStats().Build()
	assert.Equal(t, 2, onlyStats.Stats.Count)
	assert.Zero(t, onlyStats.Balance, "balance step not requested")
	assert.Empty(t, onlyStats.Recent)

	a := NewBuilder(records, fixedClock).WithCharts().WithBalance().WithRecent(5).Build()
	b := NewBuilder(records, fixedClock).WithRecent(5).WithBalance().WithCharts().Build()
	assert.Equal(t, a, b, "order of steps does not matter")
}

func TestBuilder_FilterAppliesToEveryStep(t *testing.T) {
	records := []core.Transaction{
		inc("1000", "2025-02-01", "Salary"),
		inc("500", "2025-03-01", "Salary"),
		exp("200", "2025-03-02", "Rent"),
	}
	res := NewBuilder(records, fixedClock).
		WithFilters(ParseCriteria("2025-03-01", "2025-03-31", "")).
		WithBalance().
		WithRecent(10).
		WithCategorySummary().
		WithStats().
		WithCharts().
		Build()

	assert.Equal(t, 300.0, res.Balance)
	assert.Len(t, res.Recent, 2)
	assert.Equal(t, 2, res.Stats.Count)
	assert.Equal(t, []float64{500}, res.Charts.IncomeByCategory.Data)
	require.Len(t, res.Categories.Income, 1)
	assert.Equal(t, 500.0, res.Categories.Income[0].Value)
	assert.Equal(t, "01/03/2025", res.Filters.StartDate)
}

func TestBuilder_SnapshotIsCopied(t *testing.T) {
	records := []core.Transaction{inc("10", "2025-03-01", "Salary")}
	b := NewBuilder(records, fixedClock)
	records[0] = exp("99", "2025-03-01", "Food")

	res := b.WithBalance().Build()
	assert.Equal(t, 10.0, res.Balance)
}

func TestBuilder_BuildReturnsIndependentCopies(t *testing.T) {
	b := NewBuilder([]core.Transaction{exp("10", "2025-03-01", "Food")}, fixedClock).WithRecent(10).WithCharts()
	first := b.Build()
	first.Recent[0].Description = "changed"
	first.Charts.ExpenseByCategory.Labels[0] = "changed"

	second := b.Build()
	assert.Equal(t, "expense 10", second.Recent[0].Description)
	assert.Equal(t, "Food", second.Charts.ExpenseByCategory.Labels[0])
}

func TestBuilder_BuildCompleteIgnoresEarlierFilter(t *testing.T) {
	records := []core.Transaction{
		inc("1000", "2025-01-01", "Salary"),
		exp("250.50", "2025-03-02", "Food"),
	}
	res := NewBuilder(records, fixedClock).
		WithFilters(ParseCriteria("2025-03-01", "", "")).
		BuildComplete()

	assert.Equal(t, 749.5, res.Balance)
	assert.Len(t, res.Recent, 2)
	assert.Equal(t, AppliedFilters{}, res.Filters)
}
