package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestStore_SaveAndFetchAreUserScoped(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	id, err := s.Save(ctx, "alice", core.NewIncome(decimal.NewFromInt(10), at, "d", "Salary", "Checking"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	_, err = s.Save(ctx, "bob", core.NewExpense(decimal.NewFromInt(3), at, "d", "Food", "Cash", "Kiosk"))
	require.NoError(t, err)

	alice, err := s.FetchAll(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 1)
	assert.Equal(t, id, alice[0].ID)

	none, err := s.FetchAll(ctx, "carol")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStore_FetchReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Save(ctx, "u", core.NewExpense(decimal.NewFromInt(3), time.Now(), "d", "Food", "Cash", "Kiosk"))
	require.NoError(t, err)

	first, _ := s.FetchAll(ctx, "u")
	first[0].Expense.Merchant = "mutated"
	first[0].Category = "mutated"

	second, _ := s.FetchAll(ctx, "u")
	assert.Equal(t, "Kiosk", second[0].Expense.Merchant)
	assert.Equal(t, "Food", second[0].Category)
}

func TestStore_FetchOrdersNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

	for _, tc := range []struct {
		desc string
		at   time.Time
	}{
		{"old", day(1)},
		{"first same day", day(5)},
		{"newest", day(9)},
		{"second same day", day(5)},
	} {
		_, err := s.Save(ctx, "u", core.NewExpense(decimal.NewFromInt(1), tc.at, tc.desc, "Food", "Cash", "Kiosk"))
		require.NoError(t, err)
	}

	all, err := s.FetchAll(ctx, "u")
	require.NoError(t, err)
	got := make([]string, 0, len(all))
	for _, tx := range all {
		got = append(got, tx.Description)
	}
	assert.Equal(t, []string{"newest", "second same day", "first same day", "old"}, got)
}

func TestStore_RejectsInvalid(t *testing.T) {
	_, err := New().Save(context.Background(), "u", core.NewExpense(decimal.NewFromInt(3), time.Now(), "d", "Food", "", "Kiosk"))
	assert.ErrorIs(t, err, core.ErrMissingPayment)
}

func TestStore_ConcurrentSaves(t *testing.T) {
	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Save(ctx, "u", core.NewIncome(decimal.NewFromInt(1), time.Now(), "d", "c", "a"))
			_, _ = s.FetchAll(ctx, "u")
		}()
	}
	wg.Wait()
	all, _ := s.FetchAll(ctx, "u")
	assert.Len(t, all, 50)
}

func TestNewFromDirSeeds(t *testing.T) {
	dir := t.TempDir()
	assert.NotNil(t, NewFromDir(dir), "missing seed file yields an empty store")

	content := "# user|kind|amount|date|description|category|account-or-method|merchant\n" +
		"alice|income|1000,00|2025-03-01|Salary|Salary|Checking\n" +
		"alice|expense|250.50|2025-03-02|Groceries|Food|Card|Market\n" +
		"alice|expense|oops|2025-03-02|Broken|Food|Card|Market\n" +
		"bob|expense|5|2025-03-02|Coffee|Food|Cash\n" +
		"short|line\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, SeedFile), []byte(content), 0o644))

	s := NewFromDir(dir)
	alice, _ := s.FetchAll(context.Background(), "alice")
	assert.Len(t, alice, 2)
	bob, _ := s.FetchAll(context.Background(), "bob")
	assert.Empty(t, bob, "expense without merchant is rejected")
}
