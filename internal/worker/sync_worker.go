package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets/google"
)

// Appender writes one transaction to the mirror and returns a reference to
// where it landed.
type Appender interface {
	Append(ctx context.Context, userID string, t core.Transaction) (string, error)
}

// Consumer delivers messages until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// SyncWorker mirrors TransactionRecordedMessage deliveries into Google Sheets.
type SyncWorker struct {
	consumer Consumer
	sheets   Appender

	processed  int64
	duplicates int64
	failed     int64
}

func NewSyncWorker(consumer Consumer, sheets Appender) *SyncWorker {
	return &SyncWorker{consumer: consumer, sheets: sheets}
}

// Run consumes until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Sync worker started")
	err := w.consumer.Consume(ctx, w.HandleRecorded)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleRecorded appends the carried transaction. Malformed payloads and
// rows the sheet rejects are permanent; a redelivered duplicate is success.
func (w *SyncWorker) HandleRecorded(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"transaction_id", msg.TransactionID,
		"user_id", msg.UserID)

	t, err := msg.Transaction()
	if err != nil {
		atomic.AddInt64(&w.failed, 1)
		return fmt.Errorf("%w: decode transaction %s: %v", amqp.ErrPermanent, msg.TransactionID, err)
	}

	ref, err := w.sheets.Append(ctx, msg.UserID, t)
	switch {
	case errors.Is(err, google.ErrDuplicate):
		atomic.AddInt64(&w.duplicates, 1)
		slog.InfoContext(ctx, "Transaction already mirrored, skipping", "transaction_id", t.ID)
		return nil
	case err != nil && google.IsPermanent(err):
		atomic.AddInt64(&w.failed, 1)
		return fmt.Errorf("%w: %v", amqp.ErrPermanent, err)
	case err != nil:
		atomic.AddInt64(&w.failed, 1)
		return fmt.Errorf("sync transaction to sheets: %w", err)
	}

	atomic.AddInt64(&w.processed, 1)
	slog.InfoContext(ctx, "Successfully synced transaction",
		"transaction_id", t.ID,
		"sheets_ref", ref)
	return nil
}

// Stats counts handled messages since start.
type Stats struct {
	Processed  int64
	Duplicates int64
	Failed     int64
}

func (w *SyncWorker) Stats() Stats {
	return Stats{
		Processed:  atomic.LoadInt64(&w.processed),
		Duplicates: atomic.LoadInt64(&w.duplicates),
		Failed:     atomic.LoadInt64(&w.failed),
	}
}
