package contentcoin

import (
	"context"

	"github.com/google/uuid"
)

// CatalogStore is the durable record of coins and creators.
//
// Wallets and addresses are compared case-insensitively; implementations
// store them lower-cased.
type CatalogStore interface {
	// UpsertCreator is idempotent on wallet. An empty email keeps the stored one.
	UpsertCreator(ctx context.Context, wallet, email string) (*CreatorRecord, error)
	GetCreator(ctx context.Context, wallet string) (*CreatorRecord, error)

	// InsertCoin fails with a DuplicateAddressError when the address is taken.
	InsertCoin(ctx context.Context, coin *CoinRecord) (*CoinRecord, error)
	GetCoin(ctx context.Context, id uuid.UUID) (*CoinRecord, error)
	GetCoinByAddress(ctx context.Context, address string) (*CoinRecord, error)
	// ListCoins orders by creation time, newest first.
	ListCoins(ctx context.Context, filter CoinFilter, limit, offset int) ([]*CoinRecord, error)
	UpdateCoin(ctx context.Context, id uuid.UUID, update CoinUpdate) (*CoinRecord, error)
	// DeleteCoin fails with an AuthorizationError unless requesterWallet is the creator.
	DeleteCoin(ctx context.Context, id uuid.UUID, requesterWallet string) error

	CountCoins(ctx context.Context, filter CoinFilter) (int64, error)
	// CountCreators is the number of distinct creator wallets across all coins.
	CountCreators(ctx context.Context) (int64, error)
}

// ContentStore is a content-addressed object store. Identical bytes always
// yield the same identifier.
type ContentStore interface {
	Put(ctx context.Context, blob Blob) (cid string, err error)
	GatewayURL(cid string) string
}

// ChainSession is a signing session bound to one chain.
type ChainSession interface {
	ChainID(ctx context.Context) (int64, error)
	// Account is the connected wallet, empty when disconnected.
	Account() string
	Deploy(ctx context.Context, params DeployParams) (*Deployment, error)
}

// StatsSource returns live market figures for a coin.
type StatsSource interface {
	CoinStats(ctx context.Context, address string) (*LiveStats, error)
}

// Notifier delivers events best-effort. It never reports failure.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Scraper extracts an article from a blog URL.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*ScrapedArticle, error)
}

// DeploymentLedger remembers deployed-but-maybe-not-catalogued coins by
// idempotency key.
//
// Reserve claims an unknown key for one run and returns nil, nil. For a key
// with a recorded deployment it returns that coin. For a key claimed by a run
// that has not recorded yet it returns ErrRequestInProgress. Record is
// first-wins. Release drops an unrecorded claim so the key can be retried.
type DeploymentLedger interface {
	Reserve(ctx context.Context, key string) (*CoinRecord, error)
	Record(ctx context.Context, key string, coin *CoinRecord) error
	Release(ctx context.Context, key string) error
}
