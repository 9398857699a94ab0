// Package redis keeps deployment ledgers and live stats in Redis so they are
// shared between server replicas.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tendant/content-coin/pkg/contentcoin"
)

// Config holds Redis connection configuration.
type Config struct {
	URL    string
	Prefix string // key prefix, default "contentcoin"
}

// Client wraps the Redis connection.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// NewClient connects and pings Redis.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := strings.TrimSuffix(cfg.Prefix, ":")
	if prefix == "" {
		prefix = "contentcoin"
	}
	return &Client{rdb: rdb, prefix: prefix}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func (c *Client) ledgerKey(idempotencyKey string) string {
	return fmt.Sprintf("%s:deployment:%s", c.prefix, idempotencyKey)
}

func (c *Client) pendingKey(idempotencyKey string) string {
	return fmt.Sprintf("%s:deployment-pending:%s", c.prefix, idempotencyKey)
}

func (c *Client) statsKey(address string) string {
	return fmt.Sprintf("%s:stats:%s", c.prefix, strings.ToLower(address))
}

// DefaultPendingTTL bounds how long a crashed run can hold an idempotency key.
const DefaultPendingTTL = 10 * time.Minute

// Ledger implements contentcoin.DeploymentLedger. A claim is a pending key
// set with SETNX; a recorded deployment lives under its own key.
type Ledger struct {
	client     *Client
	ttl        time.Duration
	pendingTTL time.Duration
}

var _ contentcoin.DeploymentLedger = (*Ledger)(nil)

// NewLedger keeps entries for ttl; zero keeps them forever.
func NewLedger(client *Client, ttl time.Duration) *Ledger {
	return &Ledger{client: client, ttl: ttl, pendingTTL: DefaultPendingTTL}
}

// WithPendingTTL changes how long an unrecorded claim survives.
func (l *Ledger) WithPendingTTL(ttl time.Duration) *Ledger {
	if ttl > 0 {
		l.pendingTTL = ttl
	}
	return l
}

func (l *Ledger) Reserve(ctx context.Context, key string) (*contentcoin.CoinRecord, error) {
	coin, err := l.lookup(ctx, key)
	if err != nil || coin != nil {
		return coin, err
	}
	claimed, err := l.client.rdb.SetNX(ctx, l.client.pendingKey(key), "1", l.pendingTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("setnx failed: %w", err)
	}
	if claimed {
		return nil, nil
	}
	// The holder may have recorded between the lookup and the claim.
	coin, err = l.lookup(ctx, key)
	if err != nil || coin != nil {
		return coin, err
	}
	return nil, contentcoin.ErrRequestInProgress
}

func (l *Ledger) lookup(ctx context.Context, key string) (*contentcoin.CoinRecord, error) {
	data, err := l.client.rdb.Get(ctx, l.client.ledgerKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	var coin contentcoin.CoinRecord
	if err := json.Unmarshal(data, &coin); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger entry: %w", err)
	}
	return &coin, nil
}

// Record stores the deployment unless one is already recorded for key and
// drops the pending claim. The first deployment wins.
func (l *Ledger) Record(ctx context.Context, key string, coin *contentcoin.CoinRecord) error {
	data, err := json.Marshal(coin)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}
	if err := l.client.rdb.SetNX(ctx, l.client.ledgerKey(key), data, l.ttl).Err(); err != nil {
		return fmt.Errorf("setnx failed: %w", err)
	}
	if err := l.client.rdb.Del(ctx, l.client.pendingKey(key)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}

func (l *Ledger) Release(ctx context.Context, key string) error {
	if err := l.client.rdb.Del(ctx, l.client.pendingKey(key)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}

// StatsCache is a read-through cache in front of a StatsSource. Failed
// lookups are not cached.
type StatsCache struct {
	client *Client
	source contentcoin.StatsSource
	ttl    time.Duration
	logger *slog.Logger
}

var _ contentcoin.StatsSource = (*StatsCache)(nil)

func NewStatsCache(client *Client, source contentcoin.StatsSource, ttl time.Duration, logger *slog.Logger) *StatsCache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &StatsCache{client: client, source: source, ttl: ttl, logger: logger}
}

func (s *StatsCache) CoinStats(ctx context.Context, address string) (*contentcoin.LiveStats, error) {
	key := s.client.statsKey(address)
	data, err := s.client.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var stats contentcoin.LiveStats
		if jsonErr := json.Unmarshal(data, &stats); jsonErr == nil {
			return &stats, nil
		}
		s.logger.Warn("Discarding corrupt stats cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		// Fall through to the source.
		s.logger.Warn("Stats cache read failed", "key", key, "error", err)
	}

	stats, err := s.source.CoinStats(ctx, address)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(stats); err == nil {
		if err := s.client.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
			s.logger.Warn("Stats cache write failed", "key", key, "error", err)
		}
	}
	return stats, nil
}
