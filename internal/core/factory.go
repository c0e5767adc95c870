package core

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates in forms and queries.
const DateLayout = "2006-01-02"

// Form field names accepted by BuildTransaction.
const (
	FieldKind               = "kind"
	FieldAmount             = "amount"
	FieldDate               = "date"
	FieldDescription        = "description"
	FieldCategory           = "category"
	FieldDestinationAccount = "destination_account"
	FieldPaymentMethod      = "payment_method"
	FieldMerchant           = "merchant"
)

// ValidationError carries a reason suitable for showing to the user.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string, err error) error {
	return &ValidationError{Field: field, Reason: reason, Err: err}
}

// BuildTransaction classifies raw text fields into a validated Transaction.
// Every value is trimmed before use. The returned record has no ID.
func BuildTransaction(raw map[string]string) (Transaction, error) {
	get := func(k string) string { return strings.TrimSpace(raw[k]) }

	for _, f := range []string{FieldKind, FieldAmount, FieldDate, FieldDescription, FieldCategory} {
		if get(f) == "" {
			return Transaction{}, invalid(f, "field '"+f+"' is required", nil)
		}
	}

	kind, err := ParseKind(get(FieldKind))
	if err != nil {
		return Transaction{}, invalid(FieldKind, "invalid kind '"+get(FieldKind)+"': valid kinds are 'income' or 'expense'", err)
	}

	amount, err := ParseAmount(get(FieldAmount))
	if err != nil {
		return Transaction{}, invalid(FieldAmount, "invalid amount '"+get(FieldAmount)+"': use a positive number with at most 2 decimals (e.g. 100.50)", err)
	}

	at, err := time.Parse(DateLayout, get(FieldDate))
	if err != nil {
		return Transaction{}, invalid(FieldDate, "invalid date '"+get(FieldDate)+"': use YYYY-MM-DD (e.g. 2024-01-15)", err)
	}

	var t Transaction
	switch kind {
	case Income:
		if get(FieldDestinationAccount) == "" {
			return Transaction{}, invalid(FieldDestinationAccount, "field 'destination_account' is required for income", ErrMissingDestination)
		}
		t = NewIncome(amount, at, get(FieldDescription), get(FieldCategory), get(FieldDestinationAccount))
	case Expense:
		if get(FieldPaymentMethod) == "" {
			return Transaction{}, invalid(FieldPaymentMethod, "field 'payment_method' is required for expenses", ErrMissingPayment)
		}
		if get(FieldMerchant) == "" {
			return Transaction{}, invalid(FieldMerchant, "field 'merchant' is required for expenses", ErrMissingMerchant)
		}
		t = NewExpense(amount, at, get(FieldDescription), get(FieldCategory), get(FieldPaymentMethod), get(FieldMerchant))
	default:
		return Transaction{}, invalid(FieldKind, "unsupported kind", ErrInvalidKind)
	}

	if err := t.Validate(); err != nil {
		return Transaction{}, invalid("", err.Error(), err)
	}
	return t, nil
}

// IsValidation reports whether err is a user input problem.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
