package dashboard

import (
	"time"

	"fintrack/internal/core"
)

// Builder assembles a Result step by step over one snapshot of records.
//
// Every With* step reads the same snapshot (narrowed by WithFilters when it
// was called) and writes only its own part of the Result, so steps can be
// chained in any order. A Builder is not safe for concurrent use.
type Builder struct {
	snapshot []core.Transaction
	filtered []core.Transaction
	now      func() time.Time
	result   Result
}

// NewBuilder copies records so later changes by the caller are not seen.
// A nil now defaults to time.Now.
func NewBuilder(records []core.Transaction, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	b := &Builder{
		snapshot: append([]core.Transaction(nil), records...),
		now:      now,
	}
	return b.Reset()
}

// Reset clears every derived value and any filter.
func (b *Builder) Reset() *Builder {
	b.filtered = nil
	b.result = emptyResult()
	b.result.UpdatedAt = b.now().Format(UpdatedAtLayout)
	return b
}

func (b *Builder) records() []core.Transaction {
	if b.filtered != nil {
		return b.filtered
	}
	return b.snapshot
}

// WithFilters narrows the snapshot for all following steps. It always
// filters the full snapshot, so calling it twice replaces the first filter.
func (b *Builder) WithFilters(c Criteria) *Builder {
	b.filtered, b.result.Filters = Apply(b.snapshot, c)
	return b
}

// WithBalance sets balance, totals and per-kind counts.
func (b *Builder) WithBalance() *Builder {
	t := ComputeTotals(b.records())
	b.result.Balance = core.DisplayValue(t.Balance())
	b.result.TotalIncome = core.DisplayValue(t.Income)
	b.result.TotalExpense = core.DisplayValue(t.Expense)
	b.result.IncomeCount = t.IncomeCount
	b.result.ExpenseCount = t.ExpenseCount
	return b
}

// WithRecent sets the recent list; see Recent for limit handling.
func (b *Builder) WithRecent(limit int) *Builder {
	b.result.Recent = Recent(b.records(), limit)
	return b
}

func (b *Builder) WithCategorySummary() *Builder {
	b.result.Categories = Rollup(b.records())
	return b
}

func (b *Builder) WithStats() *Builder {
	b.result.Stats = ComputeStats(b.records())
	return b
}

func (b *Builder) WithCharts() *Builder {
	b.result.Charts = ComputeCharts(b.records())
	return b
}

// Build returns a copy of the current Result; the Builder can keep going.
func (b *Builder) Build() Result {
	return b.result.clone()
}

// BuildComplete resets and runs every derivation with default settings over
// the unfiltered snapshot.
func (b *Builder) BuildComplete() Result {
	return b.Reset().
		WithBalance().
		WithRecent(DefaultRecentLimit).
		WithCategorySummary().
		WithStats().
		WithCharts().
		Build()
}
