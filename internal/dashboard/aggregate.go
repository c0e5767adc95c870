package dashboard

import (
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	// DefaultRecentLimit is how many records the recent list shows.
	DefaultRecentLimit = 10
	// MaxChartCategories caps the per-category chart series.
	MaxChartCategories = 8
)

var hundred = decimal.NewFromInt(100)

// Totals are the exact per-kind sums of a record set.
type Totals struct {
	Income       decimal.Decimal
	Expense      decimal.Decimal
	IncomeCount  int
	ExpenseCount int
}

func (t Totals) Balance() decimal.Decimal {
	return t.Income.Sub(t.Expense)
}

// CategoryTotal is the exact sum of one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// usable drops records with an impossible amount or kind details. Such
// records come from a misbehaving store; they are logged and left out of the
// derivation. A missing category is not a reason to drop a record.
func usable(records []core.Transaction, derivation string) []core.Transaction {
	out := records[:0:0]
	for _, t := range records {
		if err := t.ValidateDetails(); err != nil {
			slog.Warn("Skipping invalid transaction",
				"derivation", derivation,
				"transaction_id", t.ID,
				"kind", t.Kind,
				"error", err)
			continue
		}
		out = append(out, t)
	}
	return out
}

// ComputeTotals sums income and expense separately.
func ComputeTotals(records []core.Transaction) Totals {
	t := Totals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, r := range usable(records, "totals") {
		switch r.Kind {
		case core.Income:
			t.Income = t.Income.Add(r.Amount)
			t.IncomeCount++
		case core.Expense:
			t.Expense = t.Expense.Add(r.Amount)
			t.ExpenseCount++
		}
	}
	return t
}

// SortByRecency returns a copy of records ordered newest first. Records with
// equal timestamps keep their input order.
func SortByRecency(records []core.Transaction) []core.Transaction {
	out := append([]core.Transaction(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	return out
}

// Recent formats the limit most recent records. A non-positive limit means
// DefaultRecentLimit.
func Recent(records []core.Transaction, limit int) []Item {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	sorted := SortByRecency(usable(records, "recent"))
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	items := make([]Item, 0, len(sorted))
	for _, t := range sorted {
		items = append(items, FormatItem(t))
	}
	return items
}

// FormatItem renders one record for display.
func FormatItem(t core.Transaction) Item {
	it := Item{
		ID:          t.ID,
		Kind:        t.Kind.String(),
		Description: t.Description,
		Amount:      core.DisplayValue(t.Amount),
		Category:    t.CategoryOrDefault(),
		Date:        t.OccurredAt.Format(DisplayDateLayout),
		DateISO:     t.OccurredAt.Format(time.RFC3339),
	}
	switch t.Kind {
	case core.Income:
		it.DestinationAccount = dash("")
		if t.Income != nil {
			it.DestinationAccount = dash(t.Income.DestinationAccount)
		}
	case core.Expense:
		it.PaymentMethod, it.Merchant = dash(""), dash("")
		if t.Expense != nil {
			it.PaymentMethod = dash(t.Expense.PaymentMethod)
			it.Merchant = dash(t.Expense.Merchant)
		}
	}
	return it
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// GroupByCategory sums the records of one kind per category, largest total
// first. Ties are ordered by category name.
func GroupByCategory(records []core.Transaction, kind core.Kind) []CategoryTotal {
	sums := make(map[string]decimal.Decimal)
	for _, t := range records {
		if t.Kind != kind {
			continue
		}
		cat := t.CategoryOrDefault()
		sums[cat] = sums[cat].Add(t.Amount)
	}
	out := make([]CategoryTotal, 0, len(sums))
	for cat, total := range sums {
		out = append(out, CategoryTotal{Category: cat, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Share returns part as a percentage of total, or zero when total is zero.
func Share(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(hundred)
}

// displayShare truncates a percentage to display precision. Rounding each
// share up on its own could push the displayed sum over 100.
func displayShare(p decimal.Decimal) float64 {
	return p.Truncate(core.DisplayPlaces).InexactFloat64()
}

// Rollup builds both category summaries. Expense rows carry their share of
// total expense.
func Rollup(records []core.Transaction) CategorySummary {
	records = usable(records, "categories")

	incomes := GroupByCategory(records, core.Income)
	expenses := GroupByCategory(records, core.Expense)

	totalExpense := decimal.Zero
	for _, e := range expenses {
		totalExpense = totalExpense.Add(e.Total)
	}

	sum := CategorySummary{
		Income:  make([]IncomeCategory, 0, len(incomes)),
		Expense: make([]ExpenseCategory, 0, len(expenses)),
	}
	for _, g := range incomes {
		sum.Income = append(sum.Income, IncomeCategory{Category: g.Category, Value: core.DisplayValue(g.Total)})
	}
	for _, g := range expenses {
		sum.Expense = append(sum.Expense, ExpenseCategory{
			Category:   g.Category,
			Value:      core.DisplayValue(g.Total),
			Percentage: displayShare(Share(g.Total, totalExpense)),
		})
	}
	return sum
}

// ComputeStats describes every record regardless of kind. An empty set
// yields all zeros.
func ComputeStats(records []core.Transaction) Stats {
	records = usable(records, "stats")
	if len(records) == 0 {
		return Stats{}
	}
	total := decimal.Zero
	max, min := records[0].Amount, records[0].Amount
	for _, t := range records {
		total = total.Add(t.Amount)
		if t.Amount.GreaterThan(max) {
			max = t.Amount
		}
		if t.Amount.LessThan(min) {
			min = t.Amount
		}
	}
	mean := total.Div(decimal.NewFromInt(int64(len(records))))
	return Stats{
		Mean:  core.DisplayValue(mean),
		Max:   core.DisplayValue(max),
		Min:   core.DisplayValue(min),
		Count: len(records),
	}
}

// ComputeCharts builds the three chart series.
func ComputeCharts(records []core.Transaction) Charts {
	records = usable(records, "charts")
	totals := ComputeTotals(records)

	ch := emptyCharts()
	ch.IncomeVsExpense.Data = []float64{core.DisplayValue(totals.Income), core.DisplayValue(totals.Expense)}
	ch.ExpenseByCategory = topSeries(GroupByCategory(records, core.Expense), ExpenseColor)
	ch.IncomeByCategory = topSeries(GroupByCategory(records, core.Income), IncomeColor)
	return ch
}

// topSeries keeps the MaxChartCategories largest groups. The rest are
// dropped, not merged.
func topSeries(groups []CategoryTotal, color string) CategorySeries {
	if len(groups) > MaxChartCategories {
		groups = groups[:MaxChartCategories]
	}
	s := CategorySeries{
		Labels: make([]string, 0, len(groups)),
		Data:   make([]float64, 0, len(groups)),
		Color:  color,
	}
	for _, g := range groups {
		s.Labels = append(s.Labels, g.Category)
		s.Data = append(s.Data, core.DisplayValue(g.Total))
	}
	return s
}
