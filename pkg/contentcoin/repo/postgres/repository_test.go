package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-coin/pkg/contentcoin"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container and applies the migrations.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "failed to create pool")
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	return pool
}

func newCoin(wallet, address, name string, createdAt time.Time) *contentcoin.CoinRecord {
	return &contentcoin.CoinRecord{
		ID:            uuid.New(),
		CreatorWallet: wallet,
		Name:          name,
		Symbol:        "SYM",
		CoinAddress:   address,
		IPFSURI:       "ipfs://bafy",
		Metadata:      contentcoin.CoinMetadata{Type: contentcoin.KindImage, Title: name, Image: "ipfs://img"},
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestPostgresRepository(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewWithPool(pool)
	ctx := context.Background()

	walletA := "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	walletB := "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("UpsertCreator is idempotent", func(t *testing.T) {
		first, err := repo.UpsertCreator(ctx, walletA, "a@example.com")
		require.NoError(t, err)
		second, err := repo.UpsertCreator(ctx, walletA, "")
		require.NoError(t, err)

		assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", second.WalletAddress)
		assert.Equal(t, "a@example.com", second.Email)
		assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

		got, err := repo.GetCreator(ctx, walletA)
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", got.Email)
	})

	t.Run("InsertCoin rejects duplicate address", func(t *testing.T) {
		_, err := repo.InsertCoin(ctx, newCoin(walletA, "0xC0FFEE0000000000000000000000000000000001", "First", base))
		require.NoError(t, err)

		_, err = repo.InsertCoin(ctx, newCoin(walletB, "0xc0ffee0000000000000000000000000000000001", "Second", base))
		assert.ErrorIs(t, err, contentcoin.ErrDuplicateAddress)
	})

	t.Run("GetCoinByAddress", func(t *testing.T) {
		coin, err := repo.GetCoinByAddress(ctx, "0xC0FFEE0000000000000000000000000000000001")
		require.NoError(t, err)
		assert.Equal(t, "First", coin.Name)
		assert.Equal(t, contentcoin.KindImage, coin.Metadata.Type)

		_, err = repo.GetCoinByAddress(ctx, "0x0000000000000000000000000000000000000000")
		assert.ErrorIs(t, err, contentcoin.ErrCoinNotFound)
	})

	t.Run("ListCoins newest first with filters", func(t *testing.T) {
		_, err := repo.InsertCoin(ctx, newCoin(walletB, "0xc0ffee0000000000000000000000000000000002", "Sunset", base.Add(time.Hour)))
		require.NoError(t, err)
		_, err = repo.InsertCoin(ctx, newCoin(walletB, "0xc0ffee0000000000000000000000000000000003", "Sunrise", base.Add(2*time.Hour)))
		require.NoError(t, err)

		all, err := repo.ListCoins(ctx, contentcoin.CoinFilter{}, 10, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Sunrise", all[0].Name)
		assert.Equal(t, "First", all[2].Name)

		page, err := repo.ListCoins(ctx, contentcoin.CoinFilter{}, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "Sunset", page[0].Name)

		mine, err := repo.ListCoins(ctx, contentcoin.CoinFilter{CreatorWallet: walletB}, 10, 0)
		require.NoError(t, err)
		assert.Len(t, mine, 2)

		found, err := repo.ListCoins(ctx, contentcoin.CoinFilter{Search: "sun"}, 10, 0)
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("stats use distinct creators", func(t *testing.T) {
		coins, err := repo.CountCoins(ctx, contentcoin.CoinFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), coins)

		creators, err := repo.CountCreators(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), creators)

		perWallet, err := repo.CountCoins(ctx, contentcoin.CoinFilter{CreatorWallet: walletB})
		require.NoError(t, err)
		assert.Equal(t, int64(2), perWallet)
	})

	t.Run("UpdateCoin merges trading fields", func(t *testing.T) {
		coin, err := repo.GetCoinByAddress(ctx, "0xc0ffee0000000000000000000000000000000002")
		require.NoError(t, err)

		mc := decimal.RequireFromString("1234.5")
		holders := int64(42)
		updated, err := repo.UpdateCoin(ctx, coin.ID, contentcoin.CoinUpdate{MarketCap: &mc, Holders: &holders})
		require.NoError(t, err)
		assert.True(t, updated.Metadata.MarketCap.Equal(mc))

		reloaded, err := repo.GetCoin(ctx, coin.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.Metadata.Holders)
		assert.Equal(t, int64(42), *reloaded.Metadata.Holders)
		assert.Equal(t, "Sunset", reloaded.Metadata.Title)
	})

	t.Run("DeleteCoin checks ownership", func(t *testing.T) {
		coin, err := repo.GetCoinByAddress(ctx, "0xc0ffee0000000000000000000000000000000003")
		require.NoError(t, err)

		err = repo.DeleteCoin(ctx, coin.ID, walletA)
		assert.ErrorIs(t, err, contentcoin.ErrUnauthorized)

		err = repo.DeleteCoin(ctx, coin.ID, "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
		require.NoError(t, err)

		_, err = repo.GetCoin(ctx, coin.ID)
		assert.ErrorIs(t, err, contentcoin.ErrCoinNotFound)
	})
}
