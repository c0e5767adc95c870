package ports

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

// ErrStoreUnavailable is returned by stores that cannot reach their backend.
var ErrStoreUnavailable = errors.New("transaction store unavailable")

// Ports for outbound adapters.
type (
	// TransactionReader returns every record owned by one user. Implementations
	// must never return records of another user and must return a slice the
	// caller may keep.
	TransactionReader interface {
		FetchAll(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		// Save persists a validated record for userID and returns its ID.
		Save(ctx context.Context, userID string, t core.Transaction) (id string, err error)
	}

	TransactionStore interface {
		TransactionReader
		TransactionWriter
	}

	// Pinger reports whether the backend is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// RecordPublisher announces stored records to downstream consumers.
	RecordPublisher interface {
		PublishRecorded(ctx context.Context, userID string, t core.Transaction) error
	}
)
