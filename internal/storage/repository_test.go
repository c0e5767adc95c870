package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRepository_SaveAndFetch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	incomeID, err := repo.Save(ctx, "alice", core.NewIncome(decimal.RequireFromString("1000.00"), at, "Salary", "Salary", "Checking"))
	require.NoError(t, err)
	assert.NotEmpty(t, incomeID)

	exp := core.NewExpense(decimal.RequireFromString("250.50"), at.AddDate(0, 0, 1), "Groceries", "Food", "Card", "Market")
	exp.ID = "fixed-id"
	expenseID, err := repo.Save(ctx, "alice", exp)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", expenseID)

	_, err = repo.Save(ctx, "bob", core.NewExpense(decimal.NewFromInt(1), at, "x", "Food", "Cash", "Kiosk"))
	require.NoError(t, err)

	got, err := repo.FetchAll(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "fixed-id", got[0].ID)
	assert.Equal(t, core.Expense, got[0].Kind)
	assert.True(t, decimal.RequireFromString("250.50").Equal(got[0].Amount))
	require.NotNil(t, got[0].Expense)
	assert.Equal(t, "Market", got[0].Expense.Merchant)
	assert.True(t, at.AddDate(0, 0, 1).Equal(got[0].OccurredAt))

	assert.Equal(t, incomeID, got[1].ID)
	require.NotNil(t, got[1].Income)
	assert.Equal(t, "Checking", got[1].Income.DestinationAccount)
	assert.Nil(t, got[1].Expense)
}

func TestSQLiteRepository_FetchUnknownUser(t *testing.T) {
	repo := newTestRepo(t)
	got, err := repo.FetchAll(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSQLiteRepository_RejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	bad := core.NewIncome(decimal.NewFromInt(5), time.Now(), "x", "c", "")
	_, err := repo.Save(context.Background(), "alice", bad)
	assert.ErrorIs(t, err, core.ErrMissingDestination)
}

func TestSQLiteRepository_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "again.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}

func TestRowRoundTrip(t *testing.T) {
	tx := core.NewExpense(decimal.RequireFromString("3.03"), time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), "d", "c", "Card", "M")
	row, err := NewRow("u", tx)
	require.NoError(t, err)
	assert.NotEmpty(t, row.ID)
	assert.Equal(t, "expense", row.Kind)
	assert.Empty(t, row.DestinationAccount)

	back, err := row.Transaction()
	require.NoError(t, err)
	assert.Equal(t, row.ID, back.ID)
	assert.True(t, tx.Amount.Equal(back.Amount))

	row.Kind = "transfer"
	_, err = row.Transaction()
	assert.ErrorIs(t, err, core.ErrInvalidKind)
}
