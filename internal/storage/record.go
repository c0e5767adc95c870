package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Row is the flat column layout shared by the SQL stores. Columns that do
// not apply to a row's kind hold empty strings.
type Row struct {
	ID                 string
	UserID             string
	Kind               string
	Amount             string
	OccurredAt         time.Time
	Description        string
	Category           string
	DestinationAccount string
	PaymentMethod      string
	Merchant           string
}

// NewRow flattens t for userID, assigning a fresh ID when t has none.
func NewRow(userID string, t core.Transaction) (Row, error) {
	if err := t.Validate(); err != nil {
		return Row{}, fmt.Errorf("invalid transaction: %w", err)
	}
	r := Row{
		ID:          t.ID,
		UserID:      userID,
		Kind:        t.Kind.String(),
		Amount:      t.Amount.String(),
		OccurredAt:  t.OccurredAt.UTC(),
		Description: t.Description,
		Category:    t.Category,
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	switch t.Kind {
	case core.Income:
		r.DestinationAccount = t.Income.DestinationAccount
	case core.Expense:
		r.PaymentMethod = t.Expense.PaymentMethod
		r.Merchant = t.Expense.Merchant
	}
	return r, nil
}

// Transaction rebuilds the domain record. Rows that fail validation are
// reported so callers can skip them.
func (r Row) Transaction() (core.Transaction, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: parse amount %q: %w", r.ID, r.Amount, err)
	}

	var t core.Transaction
	switch core.Kind(r.Kind) {
	case core.Income:
		t = core.NewIncome(amount, r.OccurredAt, r.Description, r.Category, r.DestinationAccount)
	case core.Expense:
		t = core.NewExpense(amount, r.OccurredAt, r.Description, r.Category, r.PaymentMethod, r.Merchant)
	default:
		return core.Transaction{}, fmt.Errorf("row %s: %w: %q", r.ID, core.ErrInvalidKind, r.Kind)
	}
	t.ID = r.ID

	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", r.ID, err)
	}
	return t, nil
}
