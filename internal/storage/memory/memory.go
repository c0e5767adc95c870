package memory

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// SeedFile is read by NewFromDir when present.
const SeedFile = "seed_transactions.txt"

// Store keeps transactions in process memory, partitioned by user.
type Store struct {
	mu     sync.RWMutex
	byUser map[string][]core.Transaction
}

func New() *Store {
	return &Store{byUser: make(map[string][]core.Transaction)}
}

// NewFromDir returns a store seeded from base/seed_transactions.txt. Each
// non-comment line is
//
//	user|kind|amount|date|description|category|account-or-method|merchant
//
// Lines that do not build a valid transaction are logged and skipped.
func NewFromDir(base string) *Store {
	s := New()
	for i, line := range readLines(filepath.Join(base, SeedFile)) {
		userID, t, err := parseSeedLine(line)
		if err != nil {
			slog.Warn("Skipping seed line", "line", i+1, "error", err)
			continue
		}
		if _, err := s.Save(context.Background(), userID, t); err != nil {
			slog.Warn("Skipping seed line", "line", i+1, "error", err)
		}
	}
	return s
}

func parseSeedLine(line string) (string, core.Transaction, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 7 {
		return "", core.Transaction{}, fmt.Errorf("expected at least 7 fields, got %d", len(parts))
	}
	for len(parts) < 8 {
		parts = append(parts, "")
	}
	raw := map[string]string{
		core.FieldKind:        parts[1],
		core.FieldAmount:      parts[2],
		core.FieldDate:        parts[3],
		core.FieldDescription: parts[4],
		core.FieldCategory:    parts[5],
	}
	raw[core.FieldDestinationAccount] = parts[6]
	raw[core.FieldPaymentMethod] = parts[6]
	raw[core.FieldMerchant] = parts[7]

	t, err := core.BuildTransaction(raw)
	if err != nil {
		return "", core.Transaction{}, err
	}
	return strings.TrimSpace(parts[0]), t, nil
}

// Save implements ports.TransactionWriter.
func (s *Store) Save(_ context.Context, userID string, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	t = t.Clone()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userID] = append(s.byUser[userID], t)
	return t.ID, nil
}

// FetchAll implements ports.TransactionReader. The result is a deep copy
// ordered like the SQL stores: newest OccurredAt first, then most recently
// saved first.
func (s *Store) FetchAll(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.RLock()
	src := s.byUser[userID]
	out := make([]core.Transaction, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i].Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
