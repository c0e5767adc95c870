package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// UncategorizedLabel groups records that reach aggregation without a category.
const UncategorizedLabel = "Uncategorized"

type (
	// Kind discriminates which details a Transaction carries.
	Kind string

	IncomeDetails struct {
		DestinationAccount string
	}

	ExpenseDetails struct {
		PaymentMethod string
		Merchant      string
	}

	// Transaction is one income or expense event. Exactly one of Income or
	// Expense is set, matching Kind.
	Transaction struct {
		ID          string
		Kind        Kind
		Amount      decimal.Decimal
		OccurredAt  time.Time
		Description string
		Category    string

		Income  *IncomeDetails
		Expense *ExpenseDetails
	}
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidKind        = errors.New("invalid kind")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrMissingDate        = errors.New("missing date")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyCategory      = errors.New("empty category")
	ErrMissingDestination = errors.New("missing destination account")
	ErrMissingPayment     = errors.New("missing payment method")
	ErrMissingMerchant    = errors.New("missing merchant")
	ErrDetailsMismatch    = errors.New("details do not match kind")
)

// ParseKind accepts the canonical names plus the Portuguese aliases used by
// older form posts.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "receita":
		return Income, nil
	case "expense", "despesa":
		return Expense, nil
	default:
		return "", fmt.Errorf("%w: %q (valid kinds: income, expense)", ErrInvalidKind, s)
	}
}

func (k Kind) Valid() bool {
	switch k {
	case Income, Expense:
		return true
	default:
		return false
	}
}

func (k Kind) String() string { return string(k) }

// Validate checks the record invariant: positive amount with at most
// MaxStoredPlaces decimals, a date, non-empty text fields and the details
// required by Kind.
func (t Transaction) Validate() error {
	if t.OccurredAt.IsZero() {
		return ErrMissingDate
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if err := t.ValidateDetails(); err != nil {
		return err
	}
	return checkPrecision(t.Amount)
}

// ValidateDetails checks the part of the invariant aggregation depends on:
// a positive amount and the details required by Kind. A blank category or
// description passes; such records are grouped as UncategorizedLabel.
func (t Transaction) ValidateDetails() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}

	switch t.Kind {
	case Income:
		if t.Income == nil || t.Expense != nil {
			return ErrDetailsMismatch
		}
		if strings.TrimSpace(t.Income.DestinationAccount) == "" {
			return ErrMissingDestination
		}
	case Expense:
		if t.Expense == nil || t.Income != nil {
			return ErrDetailsMismatch
		}
		if strings.TrimSpace(t.Expense.PaymentMethod) == "" {
			return ErrMissingPayment
		}
		if strings.TrimSpace(t.Expense.Merchant) == "" {
			return ErrMissingMerchant
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}
	return nil
}

// CategoryOrDefault returns the grouping label for the record.
func (t Transaction) CategoryOrDefault() string {
	if c := strings.TrimSpace(t.Category); c != "" {
		return c
	}
	return UncategorizedLabel
}

// NewIncome builds an income record. The result is not validated.
func NewIncome(amount decimal.Decimal, at time.Time, description, category, account string) Transaction {
	return Transaction{
		Kind:        Income,
		Amount:      amount,
		OccurredAt:  at,
		Description: description,
		Category:    category,
		Income:      &IncomeDetails{DestinationAccount: account},
	}
}

// NewExpense builds an expense record. The result is not validated.
func NewExpense(amount decimal.Decimal, at time.Time, description, category, method, merchant string) Transaction {
	return Transaction{
		Kind:        Expense,
		Amount:      amount,
		OccurredAt:  at,
		Description: description,
		Category:    category,
		Expense:     &ExpenseDetails{PaymentMethod: method, Merchant: merchant},
	}
}

// Clone returns a copy that shares no detail pointers with t.
func (t Transaction) Clone() Transaction {
	c := t
	if t.Income != nil {
		d := *t.Income
		c.Income = &d
	}
	if t.Expense != nil {
		d := *t.Expense
		c.Expense = &d
	}
	return c
}
