package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// RoutingKeyPrefix precedes the transaction kind in the routing key, so a
// consumer interested in expenses only can bind "transaction.recorded.expense".
const RoutingKeyPrefix = "transaction.recorded."

// BindingKey matches every recorded transaction.
const BindingKey = RoutingKeyPrefix + "*"

// TransactionRecordedMessage carries a full copy of a saved transaction so
// consumers never need access to the store.
type TransactionRecordedMessage struct {
	UserID             string    `json:"user_id"`
	TransactionID      string    `json:"transaction_id"`
	Kind               string    `json:"kind"`
	Amount             string    `json:"amount"`
	Date               string    `json:"date"`
	Description        string    `json:"description"`
	Category           string    `json:"category"`
	DestinationAccount string    `json:"destination_account,omitempty"`
	PaymentMethod      string    `json:"payment_method,omitempty"`
	Merchant           string    `json:"merchant,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

func NewTransactionRecordedMessage(userID string, t core.Transaction) *TransactionRecordedMessage {
	msg := &TransactionRecordedMessage{
		UserID:        userID,
		TransactionID: t.ID,
		Kind:          t.Kind.String(),
		Amount:        core.FormatAmount(t.Amount),
		Date:          t.OccurredAt.Format(core.DateLayout),
		Description:   t.Description,
		Category:      t.Category,
		Timestamp:     time.Now().UTC(),
	}
	switch t.Kind {
	case core.Income:
		if t.Income != nil {
			msg.DestinationAccount = t.Income.DestinationAccount
		}
	case core.Expense:
		if t.Expense != nil {
			msg.PaymentMethod = t.Expense.PaymentMethod
			msg.Merchant = t.Expense.Merchant
		}
	}
	return msg
}

// RoutingKey is RoutingKeyPrefix plus the kind.
func (m *TransactionRecordedMessage) RoutingKey() string {
	return RoutingKeyPrefix + m.Kind
}

// Transaction rebuilds and validates the carried record.
func (m *TransactionRecordedMessage) Transaction() (core.Transaction, error) {
	kind, err := core.ParseKind(m.Kind)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: amount %q: %v", core.ErrInvalidAmount, m.Amount, err)
	}
	at, err := time.Parse(core.DateLayout, m.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: date %q", core.ErrMissingDate, m.Date)
	}

	var t core.Transaction
	switch kind {
	case core.Income:
		t = core.NewIncome(amount, at, m.Description, m.Category, m.DestinationAccount)
	case core.Expense:
		t = core.NewExpense(amount, at, m.Description, m.Category, m.PaymentMethod, m.Merchant)
	}
	t.ID = m.TransactionID
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" || msg.TransactionID == "" {
		return nil, fmt.Errorf("message missing user_id or transaction_id")
	}
	return &msg, nil
}
