package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/dashboard"
	"fintrack/internal/storage/memory"
)

func memoryEnv(t *testing.T, seed string) {
	t.Helper()
	dir := t.TempDir()
	if seed != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, memory.SeedFile), []byte(seed), 0o600))
	}
	t.Setenv("BACKEND", "memory")
	t.Setenv("DATA_DIRECTORY", dir)
	t.Setenv("AMQP_URL", "")
	t.Setenv("TIMEZONE", "UTC")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const seed = `# user|kind|amount|date|description|category|account-or-method|merchant
alice|income|1000.00|2024-03-05|Salary|Salary|Checking|
alice|expense|250.50|2024-03-10|Groceries|Food|Card|Market
bob|expense|9.99|2024-03-11|Coffee|Food|Cash|Cafe
`

func TestDashboardCommand_JSON(t *testing.T) {
	memoryEnv(t, seed)

	out, err := run(t, "dashboard", "--user", "alice", "--start", "2024-03-01", "--end", "2024-03-31", "--json")
	require.NoError(t, err)

	var res dashboard.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 749.5, res.Balance)
	assert.Equal(t, 1000.0, res.TotalIncome)
	assert.Equal(t, 250.5, res.TotalExpense)
	assert.Len(t, res.Recent, 2)
}

func TestDashboardCommand_Text(t *testing.T) {
	memoryEnv(t, seed)

	out, err := run(t, "dashboard", "--user", "alice", "--start", "2024-03-01", "--end", "2024-03-31", "--category", "Food")
	require.NoError(t, err)
	assert.Contains(t, out, "Dashboard for alice (2024-03-01 to 2024-03-31, category Food)")
	assert.Contains(t, out, "Groceries")
	assert.NotContains(t, out, "Salary")
	assert.NotContains(t, out, "Coffee")
}

func TestDashboardCommand_RequiresUser(t *testing.T) {
	memoryEnv(t, "")

	_, err := run(t, "dashboard")
	assert.ErrorContains(t, err, `required flag(s) "user" not set`)
}

func TestAddCommand(t *testing.T) {
	memoryEnv(t, "")

	out, err := run(t, "add", "--user", "alice", "--kind", "income", "--amount", "1000",
		"--date", "2024-03-05", "--description", "Salary", "--category", "Salary", "--account", "Checking")
	require.NoError(t, err)
	assert.Contains(t, out, "Income of 1000.00 recorded successfully! Current balance: 1000.00")
	assert.Contains(t, out, "id: ")

	_, err = run(t, "add", "--user", "alice", "--kind", "expense", "--amount", "5",
		"--description", "Snack", "--category", "Food", "--method", "Cash")
	assert.ErrorContains(t, err, "field 'merchant' is required for expenses")
}

func TestMigrateCommand(t *testing.T) {
	memoryEnv(t, "")
	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to migrate for backend memory")

	t.Setenv("BACKEND", "sqlite")
	dbPath := filepath.Join(t.TempDir(), "fintrack.db")
	t.Setenv("SQLITE_DB_PATH", dbPath)
	out, err = run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite schema is up to date")
	_, statErr := os.Stat(dbPath)
	assert.NoError(t, statErr)
}
