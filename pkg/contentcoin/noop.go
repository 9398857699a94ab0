package contentcoin

import (
	"context"
	"log/slog"
	"sync"
)

// NoopNotifier drops every event.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, event Event) {}

// LoggingNotifier logs events instead of delivering them. Useful in
// development when no bot credentials are configured.
type LoggingNotifier struct {
	Logger *slog.Logger
}

func (n LoggingNotifier) Notify(ctx context.Context, event Event) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := event.Coin()
	logger.Info("Coin event", "kind", event.Kind(), "name", c.Name, "symbol", c.Symbol, "contract", c.Contract)
}

// MemoryLedger is an in-process DeploymentLedger.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]*CoinRecord // nil value marks a pending claim
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]*CoinRecord)}
}

func (l *MemoryLedger) Reserve(ctx context.Context, key string) (*CoinRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	coin, ok := l.entries[key]
	switch {
	case !ok:
		l.entries[key] = nil
		return nil, nil
	case coin == nil:
		return nil, ErrRequestInProgress
	default:
		cp := *coin
		return &cp, nil
	}
}

func (l *MemoryLedger) Record(ctx context.Context, key string, coin *CoinRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing := l.entries[key]; existing != nil {
		return nil
	}
	cp := *coin
	l.entries[key] = &cp
	return nil
}

func (l *MemoryLedger) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if coin, ok := l.entries[key]; ok && coin == nil {
		delete(l.entries, key)
	}
	return nil
}
