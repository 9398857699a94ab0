package contentcoin

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/tendant/content-coin/pkg/contentcoin/metrics"
	"golang.org/x/sync/errgroup"
)

// RankedCoin is a catalogued coin joined with its live stats.
type RankedCoin struct {
	Coin *CoinRecord `json:"coin"`
	Live LiveStats   `json:"live"`
	// StatsAvailable is false when the lookup failed and Live holds zeros.
	StatsAvailable bool `json:"stats_available"`
}

// RankedCreator is a creator with its coins in rank order.
type RankedCreator struct {
	Rank    int            `json:"rank"`
	Wallet  string         `json:"wallet"`
	Creator *CreatorRecord `json:"creator,omitempty"`
	Coins   []RankedCoin   `json:"coins"`
}

// Top is the creator's best coin.
func (c RankedCreator) Top() RankedCoin {
	return c.Coins[0]
}

// Aggregator builds creator leaderboards from the catalog and live stats.
type Aggregator struct {
	store       CatalogStore
	stats       StatsSource
	concurrency int
	maxCoins    int
	pageSize    int
	logger      *slog.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithConcurrency bounds the number of in-flight stats lookups.
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithMaxCoins caps how many catalogued coins are ranked.
func WithMaxCoins(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxCoins = n
		}
	}
}

func WithAggregatorLogger(l *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		a.logger = l
	}
}

func NewAggregator(store CatalogStore, stats StatsSource, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		store:       store,
		stats:       stats,
		concurrency: 8,
		maxCoins:    1000,
		pageSize:    200,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RankCreators groups catalogued coins by creator, ranks each creator's
// coins and then ranks creators by their top coin.
//
// A failed stats lookup never fails the ranking; the coin is ranked with
// zero stats instead.
func (a *Aggregator) RankCreators(ctx context.Context) ([]RankedCreator, error) {
	coins, err := a.loadCoins(ctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedCoin, len(coins))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, coin := range coins {
		g.Go(func() error {
			ranked[i] = a.lookup(gctx, coin)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byWallet := make(map[string]*RankedCreator)
	var order []string
	for _, rc := range ranked {
		w := rc.Coin.CreatorWallet
		entry, ok := byWallet[w]
		if !ok {
			entry = &RankedCreator{Wallet: w}
			byWallet[w] = entry
			order = append(order, w)
		}
		entry.Coins = append(entry.Coins, rc)
	}

	creators := make([]RankedCreator, 0, len(order))
	for _, w := range order {
		entry := byWallet[w]
		SortCoins(entry.Coins)
		creator, err := a.store.GetCreator(ctx, w)
		switch {
		case err == nil:
			entry.Creator = creator
		case !errors.Is(err, ErrCreatorNotFound):
			a.logger.Warn("Failed to load creator", "wallet", w, "error", err)
		}
		creators = append(creators, *entry)
	}
	SortCreators(creators)
	for i := range creators {
		creators[i].Rank = i + 1
	}
	return creators, nil
}

func (a *Aggregator) loadCoins(ctx context.Context) ([]*CoinRecord, error) {
	var coins []*CoinRecord
	for offset := 0; len(coins) < a.maxCoins; offset += a.pageSize {
		limit := min(a.pageSize, a.maxCoins-len(coins))
		page, err := a.store.ListCoins(ctx, CoinFilter{}, limit, offset)
		if err != nil {
			return nil, err
		}
		coins = append(coins, page...)
		if len(page) < limit {
			break
		}
	}
	return coins, nil
}

func (a *Aggregator) lookup(ctx context.Context, coin *CoinRecord) RankedCoin {
	zero := RankedCoin{Coin: coin, Live: LiveStats{CreatedAt: coin.CreatedAt}}
	if a.stats == nil {
		return zero
	}
	live, err := a.stats.CoinStats(ctx, coin.CoinAddress)
	if err != nil || live == nil {
		metrics.StatsLookups.WithLabelValues("error").Inc()
		a.logger.Warn("Live stats unavailable", "address", coin.CoinAddress, "error", err)
		return zero
	}
	metrics.StatsLookups.WithLabelValues("ok").Inc()
	stats := *live
	if stats.CreatedAt.IsZero() {
		stats.CreatedAt = coin.CreatedAt
	}
	return RankedCoin{Coin: coin, Live: stats, StatsAvailable: true}
}

// SortCoins orders coins by market cap, price, holders and creation time,
// all descending.
func SortCoins(coins []RankedCoin) {
	sort.SliceStable(coins, func(i, j int) bool {
		return compareCoins(coins[i], coins[j]) < 0
	})
}

// SortCreators orders creators by their top coin under the coin ordering,
// then by wallet.
func SortCreators(creators []RankedCreator) {
	sort.SliceStable(creators, func(i, j int) bool {
		if c := compareCoins(creators[i].Top(), creators[j].Top()); c != 0 {
			return c < 0
		}
		return creators[i].Wallet < creators[j].Wallet
	})
}

// compareCoins returns a negative number when a ranks before b.
func compareCoins(a, b RankedCoin) int {
	if c := b.Live.MarketCap.Cmp(a.Live.MarketCap); c != 0 {
		return c
	}
	if c := b.Live.Price.Cmp(a.Live.Price); c != 0 {
		return c
	}
	if a.Live.Holders != b.Live.Holders {
		if a.Live.Holders > b.Live.Holders {
			return -1
		}
		return 1
	}
	switch {
	case a.Live.CreatedAt.After(b.Live.CreatedAt):
		return -1
	case a.Live.CreatedAt.Before(b.Live.CreatedAt):
		return 1
	}
	return 0
}
