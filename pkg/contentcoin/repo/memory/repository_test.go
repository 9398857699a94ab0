package memory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-coin/pkg/contentcoin"
	"github.com/tendant/content-coin/pkg/contentcoin/repo/memory"
)

func coin(wallet, address, name string, kind contentcoin.ContentKind, createdAt time.Time) *contentcoin.CoinRecord {
	return &contentcoin.CoinRecord{
		ID:            uuid.New(),
		CreatorWallet: wallet,
		Name:          name,
		Symbol:        "TST",
		CoinAddress:   address,
		Metadata:      contentcoin.CoinMetadata{Type: kind, Title: name},
		CreatedAt:     createdAt,
	}
}

func TestMemoryRepository_Creators(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	first, err := repo.UpsertCreator(ctx, "0xABC", "me@example.com")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", first.WalletAddress)

	second, err := repo.UpsertCreator(ctx, "0xabc", "")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", second.Email)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	_, err = repo.GetCreator(ctx, "0xdef")
	assert.ErrorIs(t, err, contentcoin.ErrCreatorNotFound)
}

func TestMemoryRepository_CoinOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("InsertCoin normalizes and rejects duplicates", func(t *testing.T) {
		stored, err := repo.InsertCoin(ctx, coin("0xAAA", "0xCOIN1", "One", contentcoin.KindBlog, base))
		require.NoError(t, err)
		assert.Equal(t, "0xaaa", stored.CreatorWallet)
		assert.Equal(t, "0xcoin1", stored.CoinAddress)

		_, err = repo.InsertCoin(ctx, coin("0xbbb", "0xcoin1", "Other", contentcoin.KindBlog, base))
		var dup *contentcoin.DuplicateAddressError
		assert.ErrorAs(t, err, &dup)
		assert.ErrorIs(t, err, contentcoin.ErrDuplicateAddress)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		got, err := repo.GetCoinByAddress(ctx, "0xCOIN1")
		require.NoError(t, err)
		got.Name = "mutated"

		again, err := repo.GetCoinByAddress(ctx, "0xcoin1")
		require.NoError(t, err)
		assert.Equal(t, "One", again.Name)
	})

	t.Run("ListCoins orders newest first and paginates", func(t *testing.T) {
		_, err := repo.InsertCoin(ctx, coin("0xaaa", "0xcoin2", "Two", contentcoin.KindImage, base.Add(time.Minute)))
		require.NoError(t, err)
		_, err = repo.InsertCoin(ctx, coin("0xbbb", "0xcoin3", "Three", contentcoin.KindImage, base.Add(2*time.Minute)))
		require.NoError(t, err)

		all, err := repo.ListCoins(ctx, contentcoin.CoinFilter{}, 10, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"Three", "Two", "One"}, []string{all[0].Name, all[1].Name, all[2].Name})

		page, err := repo.ListCoins(ctx, contentcoin.CoinFilter{}, 2, 2)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "One", page[0].Name)

		empty, err := repo.ListCoins(ctx, contentcoin.CoinFilter{}, 2, 10)
		require.NoError(t, err)
		assert.Empty(t, empty)

		images, err := repo.ListCoins(ctx, contentcoin.CoinFilter{Kind: contentcoin.KindImage}, 10, 0)
		require.NoError(t, err)
		assert.Len(t, images, 2)

		byWallet, err := repo.ListCoins(ctx, contentcoin.CoinFilter{CreatorWallet: "0xAAA"}, 10, 0)
		require.NoError(t, err)
		assert.Len(t, byWallet, 2)

		search, err := repo.ListCoins(ctx, contentcoin.CoinFilter{Search: "thr"}, 10, 0)
		require.NoError(t, err)
		require.Len(t, search, 1)
		assert.Equal(t, "Three", search[0].Name)
	})

	t.Run("UpdateCoin", func(t *testing.T) {
		c, err := repo.GetCoinByAddress(ctx, "0xcoin2")
		require.NoError(t, err)

		mc := decimal.NewFromInt(500)
		name := "Two Renamed"
		updated, err := repo.UpdateCoin(ctx, c.ID, contentcoin.CoinUpdate{Name: &name, MarketCap: &mc})
		require.NoError(t, err)
		assert.Equal(t, "Two Renamed", updated.Name)
		assert.True(t, updated.Metadata.MarketCap.Equal(mc))
		assert.Equal(t, contentcoin.KindImage, updated.Metadata.Type)

		_, err = repo.UpdateCoin(ctx, uuid.New(), contentcoin.CoinUpdate{Name: &name})
		assert.ErrorIs(t, err, contentcoin.ErrCoinNotFound)
	})

	t.Run("DeleteCoin requires the creator", func(t *testing.T) {
		c, err := repo.GetCoinByAddress(ctx, "0xcoin3")
		require.NoError(t, err)

		err = repo.DeleteCoin(ctx, c.ID, "0xaaa")
		var authErr *contentcoin.AuthorizationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "0xbbb", authErr.Owner)

		require.NoError(t, repo.DeleteCoin(ctx, c.ID, "0xBBB"))
		_, err = repo.GetCoinByAddress(ctx, "0xcoin3")
		assert.ErrorIs(t, err, contentcoin.ErrCoinNotFound)
	})
}

func TestMemoryRepository_CountCreatorsIsDistinctAcrossAllCoins(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	for i := 0; i < 1500; i++ {
		wallet := fmt.Sprintf("0xcreator%d", i%7)
		_, err := repo.InsertCoin(ctx, coin(wallet, fmt.Sprintf("0xcoin%d", i), "c", contentcoin.KindBlog, time.Now()))
		require.NoError(t, err)
	}

	creators, err := repo.CountCreators(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), creators)

	coins, err := repo.CountCoins(ctx, contentcoin.CoinFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), coins)
}
