package dashboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func on(date string) time.Time {
	t, err := time.Parse(core.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return t
}

func inc(amount, date, category string) core.Transaction {
	return core.NewIncome(d(amount), on(date), "income "+amount, category, "Checking")
}

func exp(amount, date, category string) core.Transaction {
	return core.NewExpense(d(amount), on(date), "expense "+amount, category, "Card", "Shop")
}

func TestComputeTotals_BalanceIsExact(t *testing.T) {
	records := []core.Transaction{
		inc("10.10", "2025-03-01", "Salary"),
		inc("5.05", "2025-03-02", "Gift"),
		exp("3.03", "2025-03-03", "Food"),
	}
	totals := ComputeTotals(records)

	assert.True(t, d("12.12").Equal(totals.Balance()), "balance %s", totals.Balance())
	assert.True(t, d("15.15").Equal(totals.Income))
	assert.True(t, d("3.03").Equal(totals.Expense))
	assert.Equal(t, 2, totals.IncomeCount)
	assert.Equal(t, 1, totals.ExpenseCount)
}

func TestComputeTotals_SkipsInvalidRecords(t *testing.T) {
	broken := inc("99", "2025-03-01", "Salary")
	broken.Income = nil

	totals := ComputeTotals([]core.Transaction{broken, exp("5", "2025-03-01", "Food")})
	assert.True(t, totals.Income.IsZero())
	assert.Equal(t, 0, totals.IncomeCount)
	assert.Equal(t, 1, totals.ExpenseCount)
}

func TestGroupByCategory_IsLosslessPartition(t *testing.T) {
	records := []core.Transaction{
		exp("12.34", "2025-03-01", "Food"),
		exp("0.66", "2025-03-02", "food"),
		exp("100", "2025-03-03", "Rent"),
		exp("7.77", "2025-03-04", "Fun"),
		inc("3000", "2025-03-05", "Salary"),
		inc("0.01", "2025-03-06", "Interest"),
	}
	totals := ComputeTotals(records)

	for _, kind := range []core.Kind{core.Income, core.Expense} {
		sum := decimal.Zero
		for _, g := range GroupByCategory(records, kind) {
			sum = sum.Add(g.Total)
		}
		want := totals.Income
		if kind == core.Expense {
			want = totals.Expense
		}
		assert.True(t, want.Equal(sum), "%s: %s != %s", kind, sum, want)
	}
}

func TestGroupByCategory_SortsDescendingWithNameTieBreak(t *testing.T) {
	records := []core.Transaction{
		exp("10", "2025-03-01", "B"),
		exp("30", "2025-03-01", "C"),
		exp("10", "2025-03-01", "A"),
	}
	groups := GroupByCategory(records, core.Expense)
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{groups[0].Category, groups[1].Category, groups[2].Category})
}

func TestGroupByCategory_UsesUncategorizedLabel(t *testing.T) {
	tx := exp("4", "2025-03-01", "x")
	tx.Category = " "
	groups := GroupByCategory([]core.Transaction{tx}, core.Expense)
	require.Len(t, groups, 1)
	assert.Equal(t, core.UncategorizedLabel, groups[0].Category)
}

func TestRollup_Percentages(t *testing.T) {
	records := []core.Transaction{
		exp("75", "2025-03-01", "Rent"),
		exp("25", "2025-03-02", "Food"),
		inc("10", "2025-03-03", "Salary"),
		inc("40", "2025-03-03", "Bonus"),
	}
	sum := Rollup(records)

	require.Len(t, sum.Expense, 2)
	assert.Equal(t, ExpenseCategory{Category: "Rent", Value: 75, Percentage: 75}, sum.Expense[0])
	assert.Equal(t, ExpenseCategory{Category: "Food", Value: 25, Percentage: 25}, sum.Expense[1])

	require.Len(t, sum.Income, 2)
	assert.Equal(t, IncomeCategory{Category: "Bonus", Value: 40}, sum.Income[0])
	assert.Equal(t, IncomeCategory{Category: "Salary", Value: 10}, sum.Income[1])
}

func TestRollup_KeepsUncategorizedRecords(t *testing.T) {
	blank := exp("40", "2025-03-01", "")
	records := []core.Transaction{blank, exp("60", "2025-03-02", "Food")}

	totals := ComputeTotals(records)
	assert.True(t, d("100").Equal(totals.Expense), "expense %s", totals.Expense)
	assert.Equal(t, 2, totals.ExpenseCount)

	sum := Rollup(records)
	require.Len(t, sum.Expense, 2)
	assert.Equal(t, ExpenseCategory{Category: "Food", Value: 60, Percentage: 60}, sum.Expense[0])
	assert.Equal(t, ExpenseCategory{Category: core.UncategorizedLabel, Value: 40, Percentage: 40}, sum.Expense[1])

	assert.Equal(t, 2, ComputeStats(records).Count)
	assert.Equal(t, []string{"Food", core.UncategorizedLabel}, ComputeCharts(records).ExpenseByCategory.Labels)

	recent := Recent(records, 0)
	require.Len(t, recent, 2)
	assert.Equal(t, core.UncategorizedLabel, recent[1].Category)
}

func TestRollup_DisplayedPercentagesStayWithinHundred(t *testing.T) {
	cases := [][]string{
		{"24.69", "175.31"},
		{"1", "1", "1"},
		{"33.335", "33.335", "33.33"},
		{"0.01", "99.99"},
	}
	for _, amounts := range cases {
		t.Run(fmt.Sprint(amounts), func(t *testing.T) {
			records := make([]core.Transaction, 0, len(amounts))
			for i, a := range amounts {
				records = append(records, exp(a, "2025-03-01", fmt.Sprintf("C%d", i)))
			}
			sum := decimal.Zero
			for _, e := range Rollup(records).Expense {
				assert.LessOrEqual(t, e.Percentage, 100.0)
				sum = sum.Add(decimal.NewFromFloat(e.Percentage))
			}
			assert.True(t, sum.LessThanOrEqual(decimal.NewFromInt(100)), "sum %s", sum)
		})
	}
}

func TestShare_NeverExceedsHundred(t *testing.T) {
	records := []core.Transaction{
		exp("1", "2025-03-01", "A"),
		exp("1", "2025-03-01", "B"),
		exp("1", "2025-03-01", "C"),
	}
	groups := GroupByCategory(records, core.Expense)
	total := ComputeTotals(records).Expense

	sum := decimal.Zero
	for _, g := range groups {
		sum = sum.Add(Share(g.Total, total))
	}
	assert.True(t, sum.LessThanOrEqual(decimal.NewFromInt(100)), "sum %s", sum)
	assert.True(t, Share(d("5"), decimal.Zero).IsZero())
}

func TestRollup_NoExpensesMeansNoPercentages(t *testing.T) {
	sum := Rollup([]core.Transaction{inc("10", "2025-03-01", "Salary")})
	assert.Empty(t, sum.Expense)
	assert.NotNil(t, sum.Expense)
	assert.Len(t, sum.Income, 1)
}

func TestSortByRecency_IsStableAndIdempotent(t *testing.T) {
	records := []core.Transaction{
		inc("1", "2025-03-01", "a"),
		exp("2", "2025-03-05", "b"),
		inc("3", "2025-03-05", "c"),
		exp("4", "2025-03-02", "d"),
	}
	once := SortByRecency(records)
	twice := SortByRecency(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, "b", once[0].Category, "equal dates keep input order")
	assert.Equal(t, "c", once[1].Category)
	assert.Equal(t, "a", once[3].Category)
	assert.Equal(t, "a", records[0].Category, "input untouched")
}

func TestRecent_LimitsAndFormats(t *testing.T) {
	var records []core.Transaction
	for i := 1; i <= 15; i++ {
		records = append(records, exp(fmt.Sprintf("%d.5", i), fmt.Sprintf("2025-03-%02d", i), "Food"))
	}
	records = append(records, inc("1000", "2025-03-20", "Salary"))

	items := Recent(records, 0)
	require.Len(t, items, DefaultRecentLimit)

	first := items[0]
	assert.Equal(t, "income", first.Kind)
	assert.Equal(t, "20/03/2025", first.Date)
	assert.Equal(t, "2025-03-20T00:00:00Z", first.DateISO)
	assert.Equal(t, "Checking", first.DestinationAccount)
	assert.Empty(t, first.Merchant)

	second := items[1]
	assert.Equal(t, "expense", second.Kind)
	assert.Equal(t, 15.5, second.Amount)
	assert.Equal(t, "Card", second.PaymentMethod)
	assert.Equal(t, "Shop", second.Merchant)
	assert.Empty(t, second.DestinationAccount)

	assert.Len(t, Recent(records, 3), 3)
}

func TestComputeStats(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, Stats{}, ComputeStats(nil))
	})
	t.Run("mixed kinds", func(t *testing.T) {
		st := ComputeStats([]core.Transaction{
			inc("10", "2025-03-01", "a"),
			exp("20", "2025-03-01", "b"),
			exp("0.01", "2025-03-01", "c"),
		})
		assert.Equal(t, Stats{Mean: 10, Max: 20, Min: 0.01, Count: 3}, st)
	})
}

func TestComputeCharts_CapsCategories(t *testing.T) {
	var records []core.Transaction
	for i := 1; i <= 20; i++ {
		records = append(records, exp(fmt.Sprintf("%d", i), "2025-03-01", fmt.Sprintf("cat%02d", i)))
		records = append(records, inc(fmt.Sprintf("%d", i*10), "2025-03-01", fmt.Sprintf("src%02d", i)))
	}
	ch := ComputeCharts(records)

	require.Len(t, ch.ExpenseByCategory.Labels, MaxChartCategories)
	require.Len(t, ch.ExpenseByCategory.Data, MaxChartCategories)
	assert.Equal(t, "cat20", ch.ExpenseByCategory.Labels[0])
	assert.Equal(t, "cat13", ch.ExpenseByCategory.Labels[7])
	assert.Equal(t, []float64{20, 19, 18, 17, 16, 15, 14, 13}, ch.ExpenseByCategory.Data)
	assert.Equal(t, ExpenseColor, ch.ExpenseByCategory.Color)

	require.Len(t, ch.IncomeByCategory.Labels, MaxChartCategories)
	assert.Equal(t, "src20", ch.IncomeByCategory.Labels[0])
	assert.Equal(t, IncomeColor, ch.IncomeByCategory.Color)

	assert.Equal(t, []string{"Income", "Expense"}, ch.IncomeVsExpense.Labels)
	assert.Equal(t, []float64{2100, 210}, ch.IncomeVsExpense.Data)
	assert.Equal(t, []string{IncomeColor, ExpenseColor}, ch.IncomeVsExpense.Colors)
}

func TestComputeCharts_Empty(t *testing.T) {
	ch := ComputeCharts(nil)
	assert.Equal(t, []float64{0, 0}, ch.IncomeVsExpense.Data)
	assert.NotNil(t, ch.ExpenseByCategory.Labels)
	assert.Empty(t, ch.ExpenseByCategory.Labels)
	assert.Empty(t, ch.IncomeByCategory.Data)
}
