package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
	"fintrack/internal/log"
)

func TestGracefulShutdown_ParentCancelRunsCleanup(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf})

	parent, cancel := context.WithCancel(context.Background())
	cleaned := make(chan time.Duration, 1)
	ctx, done := GracefulShutdown(parent, logger, time.Second, func(ctx context.Context) {
		if deadline, ok := ctx.Deadline(); ok {
			cleaned <- time.Until(deadline)
		}
	})

	cancel()
	WaitForShutdown(ctx, done)

	select {
	case left := <-cleaned:
		assert.LessOrEqual(t, left, time.Second)
	default:
		t.Fatal("cleanup did not run with a deadline")
	}
	assert.Contains(t, buf.String(), "Shutdown complete")
}

func TestGracefulShutdown_ReportsTimeout(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf})

	parent, cancel := context.WithCancel(context.Background())
	ctx, done := GracefulShutdown(parent, logger, 10*time.Millisecond, func(ctx context.Context) {
		<-ctx.Done()
	})
	cancel()
	WaitForShutdown(ctx, done)

	assert.Contains(t, buf.String(), "Shutdown timeout reached")
}

func TestNewBackendProvider(t *testing.T) {
	logger := log.New(log.Config{Output: &bytes.Buffer{}})

	cfg := config.Defaults()
	cfg.Backend = "memory"
	cfg.DataDirectory = t.TempDir()
	p, err := NewBackendProvider(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	require.NoError(t, p.Ping(context.Background()))
	records, err := p.FetchAll(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, records)

	cfg.Backend = "postgres"
	cfg.PostgresURL = ""
	_, err = NewBackendProvider(cfg, logger)
	assert.Error(t, err)

	cfg.Backend = "nope"
	_, err = NewBackendProvider(cfg, logger)
	assert.Error(t, err)
}
