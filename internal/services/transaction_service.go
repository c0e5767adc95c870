package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// BalanceReader returns a user's all-time balance.
type BalanceReader interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
}

// Created is the outcome of a successful Create.
type Created struct {
	Transaction core.Transaction
	Balance     decimal.Decimal
	// BalanceKnown is false when the balance lookup after saving failed.
	BalanceKnown bool
}

// Message is the confirmation shown to the user.
func (c Created) Message() string {
	kind := c.Transaction.Kind.String()
	msg := fmt.Sprintf("%s of %s recorded successfully!",
		strings.ToUpper(kind[:1])+kind[1:], core.FormatAmount(c.Transaction.Amount))
	if c.BalanceKnown {
		msg += " Current balance: " + core.FormatAmount(c.Balance)
	}
	return msg
}

// TransactionService records new transactions and announces them.
type TransactionService struct {
	store     ports.TransactionWriter
	balances  BalanceReader
	publisher ports.RecordPublisher
}

// NewTransactionService wires the intake path. publisher may be nil when no
// broker is configured.
func NewTransactionService(store ports.TransactionWriter, balances BalanceReader, publisher ports.RecordPublisher) *TransactionService {
	return &TransactionService{store: store, balances: balances, publisher: publisher}
}

// Create validates raw form fields, saves the record for userID and
// publishes it. Validation failures are returned as core.ValidationError;
// publish failures are logged and do not fail the call.
func (s *TransactionService) Create(ctx context.Context, userID string, raw map[string]string) (Created, error) {
	if userID == "" {
		return Created{}, fmt.Errorf("create transaction: missing user id")
	}

	t, err := core.BuildTransaction(raw)
	if err != nil {
		return Created{}, err
	}
	t.ID = uuid.NewString()

	id, err := s.store.Save(ctx, userID, t)
	if err != nil {
		return Created{}, fmt.Errorf("save transaction: %w", err)
	}
	t.ID = id

	slog.InfoContext(ctx, "Transaction recorded",
		"user_id", userID,
		"transaction_id", t.ID,
		"kind", t.Kind.String(),
		"amount", core.FormatAmount(t.Amount))

	s.publish(ctx, userID, t)

	out := Created{Transaction: t}
	if s.balances != nil {
		balance, err := s.balances.Balance(ctx, userID)
		if err != nil {
			slog.WarnContext(ctx, "Failed to compute balance after save", "user_id", userID, "error", err)
		} else {
			out.Balance, out.BalanceKnown = balance, true
		}
	}
	return out, nil
}

func (s *TransactionService) publish(ctx context.Context, userID string, t core.Transaction) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping recorded event", "transaction_id", t.ID)
		return
	}
	if err := s.publisher.PublishRecorded(ctx, userID, t); err != nil {
		slog.ErrorContext(ctx, "Failed to publish recorded event",
			"transaction_id", t.ID,
			"error", err)
	}
}
