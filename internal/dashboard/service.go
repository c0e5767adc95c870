package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// DefaultFetchTimeout bounds a single store read.
const DefaultFetchTimeout = 7 * time.Second

// Config tunes a Service. Zero values select the defaults.
type Config struct {
	FetchTimeout time.Duration
	RecentLimit  int
	Location     *time.Location
	Now          func() time.Time
}

// Service reads a user's records once per request and derives views over them.
type Service struct {
	reader      ports.TransactionReader
	timeout     time.Duration
	recentLimit int
	loc         *time.Location
	now         func() time.Time
}

func NewService(reader ports.TransactionReader, cfg Config) *Service {
	s := &Service{
		reader:      reader,
		timeout:     cfg.FetchTimeout,
		recentLimit: cfg.RecentLimit,
		loc:         cfg.Location,
		now:         cfg.Now,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultFetchTimeout
	}
	if s.recentLimit <= 0 {
		s.recentLimit = DefaultRecentLimit
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Query holds the raw filter values from a request.
type Query struct {
	StartDate string
	EndDate   string
	Category  string
}

func (s *Service) clock() time.Time {
	return s.now().In(s.loc)
}

// WithDefaults fills blank dates with the current month up to today. The
// category defaults to the "all" sentinel.
func (s *Service) WithDefaults(q Query) Query {
	today := s.clock()
	if strings.TrimSpace(q.StartDate) == "" {
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.loc)
		q.StartDate = first.Format(core.DateLayout)
	}
	if strings.TrimSpace(q.EndDate) == "" {
		q.EndDate = today.Format(core.DateLayout)
	}
	if strings.TrimSpace(q.Category) == "" {
		q.Category = AllCategories
	}
	return q
}

// fetch returns the user's records or, on failure, an empty set and false.
func (s *Service) fetch(ctx context.Context, userID string) ([]core.Transaction, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	records, err := s.reader.FetchAll(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to fetch transactions",
			"user_id", userID,
			"error", err)
		return []core.Transaction{}, false
	}
	return records, true
}

// Dashboard builds the full dashboard for userID. It never fails: a store
// error yields a zeroed Result with DataUnavailable set.
func (s *Service) Dashboard(ctx context.Context, userID string, q Query) Result {
	q = s.WithDefaults(q)
	records, ok := s.fetch(ctx, userID)

	res := NewBuilder(records, s.clock).
		WithFilters(ParseCriteria(q.StartDate, q.EndDate, q.Category)).
		WithBalance().
		WithRecent(s.recentLimit).
		WithCategorySummary().
		WithStats().
		WithCharts().
		Build()

	res.StartDate = q.StartDate
	res.EndDate = q.EndDate
	res.SelectedCategory = q.Category
	res.DataUnavailable = !ok

	slog.DebugContext(ctx, "Dashboard built",
		"user_id", userID,
		"records", len(records),
		"recent", len(res.Recent),
		"data_unavailable", res.DataUnavailable)
	return res
}

// EmptyDashboard is the zero dashboard with default filters, for error pages.
func (s *Service) EmptyDashboard() Result {
	q := s.WithDefaults(Query{})
	res := NewBuilder(nil, s.clock).Build()
	res.StartDate, res.EndDate, res.SelectedCategory = q.StartDate, q.EndDate, q.Category
	return res
}

// Summary is the all-time headline for a user.
type Summary struct {
	Balance      float64 `json:"balance"`
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
	IncomeCount  int     `json:"income_count"`
	ExpenseCount int     `json:"expense_count"`
}

func summaryOf(t Totals) Summary {
	return Summary{
		Balance:      core.DisplayValue(t.Balance()),
		TotalIncome:  core.DisplayValue(t.Income),
		TotalExpense: core.DisplayValue(t.Expense),
		IncomeCount:  t.IncomeCount,
		ExpenseCount: t.ExpenseCount,
	}
}

// Summary returns all-time totals. Unlike Dashboard it reports store errors.
func (s *Service) Summary(ctx context.Context, userID string) (Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	records, err := s.reader.FetchAll(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("fetch transactions: %w", err)
	}
	return summaryOf(ComputeTotals(records)), nil
}

// Balance returns the exact all-time balance.
func (s *Service) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	records, err := s.reader.FetchAll(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch transactions: %w", err)
	}
	return ComputeTotals(records).Balance(), nil
}

// Listing is every record of a user, newest first, with totals over the
// listed records.
type Listing struct {
	Transactions []Item  `json:"transactions"`
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
	Balance      float64 `json:"balance"`
	Count        int     `json:"count"`
}

// List returns all records of userID, or only those of kind when it is set.
func (s *Service) List(ctx context.Context, userID string, kind *core.Kind) (Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	records, err := s.reader.FetchAll(ctx, userID)
	if err != nil {
		return Listing{}, fmt.Errorf("fetch transactions: %w", err)
	}

	records = usable(records, "list")
	if kind != nil {
		kept := records[:0:0]
		for _, t := range records {
			if t.Kind == *kind {
				kept = append(kept, t)
			}
		}
		records = kept
	}

	items := make([]Item, 0, len(records))
	for _, t := range SortByRecency(records) {
		items = append(items, FormatItem(t))
	}
	totals := ComputeTotals(records)
	return Listing{
		Transactions: items,
		TotalIncome:  core.DisplayValue(totals.Income),
		TotalExpense: core.DisplayValue(totals.Expense),
		Balance:      core.DisplayValue(totals.Balance()),
		Count:        len(items),
	}, nil
}
