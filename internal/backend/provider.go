package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fintrack/internal/core"
)

// Provider creates the configured store on first use and shares it between
// callers. It satisfies Store itself, so it can be injected wherever a store
// is expected before the backend is reachable.
type Provider struct {
	factory Factory
	config  Config

	mu     sync.Mutex
	result *BackendResult
	closed bool
}

var _ Store = (*Provider)(nil)

func NewProvider(factory Factory, config Config) *Provider {
	return &Provider{factory: factory, config: config}
}

// Get returns the shared store, creating it on first use. Only a successful
// creation is kept; after a failure the next call tries again.
func (p *Provider) Get(ctx context.Context) (Store, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if p.result != nil {
		return p.result.Store, nil
	}
	result, err := p.factory.CreateBackend(ctx, p.config)
	if err != nil {
		return nil, fmt.Errorf("initialize %s backend: %w", p.config.Type, err)
	}
	p.result = result
	return p.result.Store, nil
}

func (p *Provider) FetchAll(ctx context.Context, userID string) ([]core.Transaction, error) {
	store, err := p.Get(ctx)
	if err != nil {
		return nil, err
	}
	return store.FetchAll(ctx, userID)
}

func (p *Provider) Save(ctx context.Context, userID string, t core.Transaction) (string, error) {
	store, err := p.Get(ctx)
	if err != nil {
		return "", err
	}
	return store.Save(ctx, userID, t)
}

func (p *Provider) Ping(ctx context.Context) error {
	store, err := p.Get(ctx)
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}

// ErrClosed is returned by Get once the provider is closed.
var ErrClosed = errors.New("backend provider closed")

// Close runs the backend cleanup if the store was ever created. Later calls
// to Get fail with ErrClosed.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.result == nil || p.result.Cleanup == nil {
		return nil
	}
	return p.result.Cleanup()
}
