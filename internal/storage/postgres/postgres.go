// Package postgres stores transactions in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

// Config holds the pool settings. URL is a libpq connection string or URL.
type Config struct {
	URL         string
	MaxPoolSize int
}

// Store implements ports.TransactionStore on a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// ParseConfig validates cfg and returns the pool configuration it describes.
func ParseConfig(cfg Config) (*pgxpool.Config, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("missing postgres url")
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	return poolConfig, nil
}

// New connects, pings and applies the schema.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	poolConfig, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		"host", poolConfig.ConnConfig.Host,
		"database", poolConfig.ConnConfig.Database)

	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Save implements ports.TransactionWriter.
func (s *Store) Save(ctx context.Context, userID string, t core.Transaction) (string, error) {
	row, err := storage.NewRow(userID, t)
	if err != nil {
		return "", err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO transactions (
			id, user_id, kind, amount, occurred_at, description, category,
			destination_account, payment_method, merchant
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10)`,
		row.ID, row.UserID, row.Kind, row.Amount, row.OccurredAt,
		row.Description, row.Category,
		row.DestinationAccount, row.PaymentMethod, row.Merchant,
	)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction saved to PostgreSQL",
		"id", row.ID, "user_id", userID, "kind", row.Kind)
	return row.ID, nil
}

// FetchAll implements ports.TransactionReader.
func (s *Store) FetchAll(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, kind, amount::text, occurred_at, description, category,
		       destination_account, payment_method, merchant
		FROM transactions
		WHERE user_id = $1
		ORDER BY occurred_at DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		var row storage.Row
		if err := rows.Scan(&row.ID, &row.UserID, &row.Kind, &row.Amount, &row.OccurredAt,
			&row.Description, &row.Category,
			&row.DestinationAccount, &row.PaymentMethod, &row.Merchant); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t, err := row.Transaction()
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping invalid stored transaction", "id", row.ID, "error", err)
			continue
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
