package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// Gateway caches FetchAll results per user in front of a store. Concurrent
// misses for one user share a single store read. Every caller receives its
// own copy of the records.
type Gateway struct {
	store ports.TransactionStore
	cache *LRUCache[[]core.Transaction]
	group singleflight.Group

	mu  sync.Mutex
	gen map[string]uint64
}

var _ ports.TransactionStore = (*Gateway)(nil)

func NewGateway(store ports.TransactionStore, maxUsers int, ttl time.Duration) *Gateway {
	return &Gateway{
		store: store,
		cache: NewLRUCache[[]core.Transaction](maxUsers, ttl),
		gen:   make(map[string]uint64),
	}
}

func (g *Gateway) generation(userID string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen[userID]
}

func (g *Gateway) FetchAll(ctx context.Context, userID string) ([]core.Transaction, error) {
	if cached, ok := g.cache.Get(userID); ok {
		return cloneAll(cached), nil
	}

	v, err, shared := g.group.Do(userID, func() (any, error) {
		before := g.generation(userID)
		records, err := g.store.FetchAll(ctx, userID)
		if err != nil {
			return nil, err
		}
		// A Save that landed during the read makes this result stale.
		if g.generation(userID) == before {
			g.cache.Set(userID, cloneAll(records))
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.DebugContext(ctx, "Shared in-flight transaction fetch", "component", "cache", "user_id", userID)
	}
	return cloneAll(v.([]core.Transaction)), nil
}

// Save writes through and drops the user's cached records.
func (g *Gateway) Save(ctx context.Context, userID string, t core.Transaction) (string, error) {
	id, err := g.store.Save(ctx, userID, t)
	if err != nil {
		return "", err
	}
	g.Invalidate(userID)
	return id, nil
}

func (g *Gateway) Invalidate(userID string) {
	g.mu.Lock()
	g.gen[userID]++
	g.mu.Unlock()
	g.cache.Delete(userID)
	g.group.Forget(userID)
}

func (g *Gateway) Ping(ctx context.Context) error {
	if p, ok := g.store.(ports.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Cleaner exposes the underlying cache for a Manager.
func (g *Gateway) Cleaner() Cleaner { return g.cache }

func (g *Gateway) Stats() Stats { return g.cache.Stats() }

func cloneAll(in []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
