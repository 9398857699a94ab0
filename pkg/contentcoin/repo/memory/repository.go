package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/content-coin/pkg/contentcoin"
)

// Repository implements contentcoin.CatalogStore using in-memory storage
type Repository struct {
	mu        sync.RWMutex
	creators  map[string]*contentcoin.CreatorRecord // wallet -> creator
	coins     map[uuid.UUID]*contentcoin.CoinRecord
	byAddress map[string]uuid.UUID // coin_address -> coin id
	now       func() time.Time
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		creators:  make(map[string]*contentcoin.CreatorRecord),
		coins:     make(map[uuid.UUID]*contentcoin.CoinRecord),
		byAddress: make(map[string]uuid.UUID),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var _ contentcoin.CatalogStore = (*Repository)(nil)

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Creator operations

func (r *Repository) UpsertCreator(ctx context.Context, wallet, email string) (*contentcoin.CreatorRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := key(wallet)
	now := r.now()
	creator, exists := r.creators[w]
	if !exists {
		creator = &contentcoin.CreatorRecord{WalletAddress: w, CreatedAt: now}
		r.creators[w] = creator
	}
	if email != "" {
		creator.Email = email
	}
	creator.UpdatedAt = now

	out := *creator
	return &out, nil
}

func (r *Repository) GetCreator(ctx context.Context, wallet string) (*contentcoin.CreatorRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	creator, exists := r.creators[key(wallet)]
	if !exists {
		return nil, contentcoin.ErrCreatorNotFound
	}
	out := *creator
	return &out, nil
}

// Coin operations

func (r *Repository) InsertCoin(ctx context.Context, coin *contentcoin.CoinRecord) (*contentcoin.CoinRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := coin.Clone()
	stored.CoinAddress = key(coin.CoinAddress)
	stored.CreatorWallet = key(coin.CreatorWallet)
	if _, exists := r.byAddress[stored.CoinAddress]; exists {
		return nil, &contentcoin.DuplicateAddressError{Address: stored.CoinAddress}
	}
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := r.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}

	r.coins[stored.ID] = stored
	r.byAddress[stored.CoinAddress] = stored.ID
	return stored.Clone(), nil
}

func (r *Repository) GetCoin(ctx context.Context, id uuid.UUID) (*contentcoin.CoinRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	coin, exists := r.coins[id]
	if !exists {
		return nil, contentcoin.ErrCoinNotFound
	}
	return coin.Clone(), nil
}

func (r *Repository) GetCoinByAddress(ctx context.Context, address string) (*contentcoin.CoinRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byAddress[key(address)]
	if !exists {
		return nil, contentcoin.ErrCoinNotFound
	}
	return r.coins[id].Clone(), nil
}

func (r *Repository) ListCoins(ctx context.Context, filter contentcoin.CoinFilter, limit, offset int) ([]*contentcoin.CoinRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*contentcoin.CoinRecord
	for _, coin := range r.coins {
		if filter.Matches(coin) {
			matched = append(matched, coin)
		}
	}

	// Newest first, id breaks ties so paging is stable
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	if offset >= len(matched) {
		return []*contentcoin.CoinRecord{}, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	result := make([]*contentcoin.CoinRecord, 0, end-offset)
	for _, coin := range matched[offset:end] {
		result = append(result, coin.Clone())
	}
	return result, nil
}

func (r *Repository) UpdateCoin(ctx context.Context, id uuid.UUID, update contentcoin.CoinUpdate) (*contentcoin.CoinRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	coin, exists := r.coins[id]
	if !exists {
		return nil, contentcoin.ErrCoinNotFound
	}
	update.Apply(coin)
	coin.UpdatedAt = r.now()
	return coin.Clone(), nil
}

func (r *Repository) DeleteCoin(ctx context.Context, id uuid.UUID, requesterWallet string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	coin, exists := r.coins[id]
	if !exists {
		return contentcoin.ErrCoinNotFound
	}
	if !contentcoin.SameWallet(coin.CreatorWallet, requesterWallet) {
		return &contentcoin.AuthorizationError{Requester: requesterWallet, Owner: coin.CreatorWallet}
	}
	delete(r.coins, id)
	delete(r.byAddress, coin.CoinAddress)
	return nil
}

// Stats operations

func (r *Repository) CountCoins(ctx context.Context, filter contentcoin.CoinFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, coin := range r.coins {
		if filter.Matches(coin) {
			n++
		}
	}
	return n, nil
}

func (r *Repository) CountCreators(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wallets := make(map[string]struct{})
	for _, coin := range r.coins {
		wallets[coin.CreatorWallet] = struct{}{}
	}
	return int64(len(wallets)), nil
}
