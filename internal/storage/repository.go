package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save implements ports.TransactionWriter
func (r *SQLiteRepository) Save(ctx context.Context, userID string, t core.Transaction) (string, error) {
	row, err := NewRow(userID, t)
	if err != nil {
		return "", err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, kind, amount, occurred_at, description, category,
			destination_account, payment_method, merchant
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.UserID, row.Kind, row.Amount, row.OccurredAt.Format(timeLayout),
		row.Description, row.Category,
		row.DestinationAccount, row.PaymentMethod, row.Merchant,
	)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"user_id", userID,
		"kind", row.Kind,
		"amount", row.Amount,
		"category", row.Category)

	return row.ID, nil
}

// FetchAll implements ports.TransactionReader
func (r *SQLiteRepository) FetchAll(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, amount, occurred_at, description, category,
		       destination_account, payment_method, merchant
		FROM transactions
		WHERE user_id = ?
		ORDER BY occurred_at DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		var (
			row        Row
			occurredAt string
		)
		if err := rows.Scan(&row.ID, &row.UserID, &row.Kind, &row.Amount, &occurredAt,
			&row.Description, &row.Category,
			&row.DestinationAccount, &row.PaymentMethod, &row.Merchant); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if row.OccurredAt, err = time.Parse(timeLayout, occurredAt); err != nil {
			slog.WarnContext(ctx, "Skipping transaction with bad date", "id", row.ID, "error", err)
			continue
		}
		t, err := row.Transaction()
		if err != nil {
			slog.WarnContext(ctx, "Skipping invalid stored transaction", "id", row.ID, "error", err)
			continue
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
