package contentcoin

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Catalog is the owner-facing side of the CatalogStore: ownership checks,
// trading refreshes and maintenance jobs.
type Catalog struct {
	store    CatalogStore
	notifier Notifier
	logger   *slog.Logger
	sleep    func(context.Context, time.Duration) error
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

func WithCatalogNotifier(n Notifier) CatalogOption {
	return func(c *Catalog) {
		c.notifier = n
	}
}

func WithCatalogLogger(l *slog.Logger) CatalogOption {
	return func(c *Catalog) {
		c.logger = l
	}
}

func NewCatalog(store CatalogStore, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		store:    store,
		notifier: NoopNotifier{},
		logger:   slog.Default(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store exposes the underlying CatalogStore for read-only callers.
func (c *Catalog) Store() CatalogStore {
	return c.store
}

// EnsureCreator lazily creates the creator on first visit.
func (c *Catalog) EnsureCreator(ctx context.Context, wallet, email string) (*CreatorRecord, error) {
	w, err := NormalizeAddress("wallet", wallet)
	if err != nil {
		return nil, err
	}
	return c.store.UpsertCreator(ctx, w, strings.TrimSpace(email))
}

func (c *Catalog) ListCoins(ctx context.Context, filter CoinFilter, limit, offset int) ([]*CoinRecord, error) {
	filter.CreatorWallet = strings.ToLower(strings.TrimSpace(filter.CreatorWallet))
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return c.store.ListCoins(ctx, filter, limit, offset)
}

func (c *Catalog) GetCoinByAddress(ctx context.Context, address string) (*CoinRecord, error) {
	return c.store.GetCoinByAddress(ctx, strings.ToLower(strings.TrimSpace(address)))
}

// DeleteCoin removes the coin from the catalog. The token stays live on-chain.
func (c *Catalog) DeleteCoin(ctx context.Context, id uuid.UUID, requesterWallet string) error {
	if strings.TrimSpace(requesterWallet) == "" {
		return &AuthorizationError{Requester: requesterWallet}
	}
	return c.store.DeleteCoin(ctx, id, requesterWallet)
}

// UpdateOwnedCoin applies an edit made by the coin's creator.
func (c *Catalog) UpdateOwnedCoin(ctx context.Context, id uuid.UUID, requesterWallet string, update CoinUpdate) (*CoinRecord, error) {
	coin, err := c.store.GetCoin(ctx, id)
	if err != nil {
		return nil, err
	}
	if !SameWallet(coin.CreatorWallet, requesterWallet) {
		return nil, &AuthorizationError{Requester: requesterWallet, Owner: coin.CreatorWallet}
	}
	if update.IsZero() {
		return coin, nil
	}
	return c.store.UpdateCoin(ctx, id, update)
}

// RecordTrading stores refreshed trading figures and announces them.
func (c *Catalog) RecordTrading(ctx context.Context, id uuid.UUID, update CoinUpdate) (*CoinRecord, error) {
	coin, err := c.store.UpdateCoin(ctx, id, update)
	if err != nil {
		return nil, err
	}
	c.notifier.Notify(ctx, TradingEvent{Snapshot: SnapshotFromCoin(coin)})
	return coin, nil
}

func (c *Catalog) Stats(ctx context.Context) (*CatalogStats, error) {
	coins, err := c.store.CountCoins(ctx, CoinFilter{})
	if err != nil {
		return nil, err
	}
	creators, err := c.store.CountCreators(ctx)
	if err != nil {
		return nil, err
	}
	return &CatalogStats{TotalCoins: coins, TotalCreators: creators}, nil
}

// CreatorCoinCount is the number of coins a wallet created.
func (c *Catalog) CreatorCoinCount(ctx context.Context, wallet string) (int64, error) {
	return c.store.CountCoins(ctx, CoinFilter{CreatorWallet: strings.ToLower(strings.TrimSpace(wallet))})
}

// InferKind guesses the kind of a coin catalogued before kinds were recorded:
// an image without audio is an image coin, anything else a blog.
func InferKind(m CoinMetadata) ContentKind {
	if m.Image != "" && m.Audio == "" {
		return KindImage
	}
	return KindBlog
}

// BackfillKinds sets the kind of every coin that has none and returns the
// number of coins updated. Failed updates are logged and skipped.
func (c *Catalog) BackfillKinds(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 200
	}
	updated := 0
	err := c.each(ctx, batchSize, 0, func(coin *CoinRecord) error {
		if coin.Metadata.Type != "" {
			return nil
		}
		kind := InferKind(coin.Metadata)
		if _, err := c.store.UpdateCoin(ctx, coin.ID, CoinUpdate{Kind: &kind}); err != nil {
			c.logger.Error("Failed to backfill coin kind", "coin_id", coin.ID, "error", err)
			return nil
		}
		updated++
		c.logger.Info("Backfilled coin kind", "coin_id", coin.ID, "kind", kind)
		return nil
	})
	return updated, err
}

// ReplayNewCoinEvents re-announces up to limit catalogued coins, newest first,
// pausing between sends to stay under channel rate limits.
func (c *Catalog) ReplayNewCoinEvents(ctx context.Context, limit int, delay time.Duration) (int, error) {
	sent := 0
	err := c.each(ctx, 100, limit, func(coin *CoinRecord) error {
		if sent > 0 && delay > 0 {
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
		}
		c.notifier.Notify(ctx, NewCoinEvent{Snapshot: SnapshotFromCoin(coin)})
		sent++
		return nil
	})
	return sent, err
}

// RefreshTrading pulls live figures for up to limit coins and records them.
// Coins the source cannot price are skipped. It returns the number of coins
// updated.
func (c *Catalog) RefreshTrading(ctx context.Context, source StatsSource, limit int) (int, error) {
	updated := 0
	err := c.each(ctx, 100, limit, func(coin *CoinRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		live, err := source.CoinStats(ctx, coin.CoinAddress)
		if err != nil {
			c.logger.Warn("Live stats unavailable", "coin_address", coin.CoinAddress, "error", err)
			return nil
		}
		holders := live.Holders
		update := CoinUpdate{
			MarketCap:   &live.MarketCap,
			Volume24h:   &live.Volume24h,
			TotalSupply: &live.TotalSupply,
			Holders:     &holders,
		}
		if _, err := c.RecordTrading(ctx, coin.ID, update); err != nil {
			c.logger.Error("Failed to record trading figures", "coin_id", coin.ID, "error", err)
			return nil
		}
		updated++
		return nil
	})
	return updated, err
}

// each visits every coin, newest first, stopping after limit coins when
// limit is positive.
func (c *Catalog) each(ctx context.Context, batchSize, limit int, fn func(*CoinRecord) error) error {
	// Collect first so updates made by fn cannot shift the pages.
	var all []*CoinRecord
	for offset := 0; ; offset += batchSize {
		page, err := c.store.ListCoins(ctx, CoinFilter{}, batchSize, offset)
		if err != nil {
			return err
		}
		all = append(all, page...)
		if len(page) < batchSize || (limit > 0 && len(all) >= limit) {
			break
		}
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	for _, coin := range all {
		if err := fn(coin); err != nil {
			return err
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
