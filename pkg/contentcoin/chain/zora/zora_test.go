package zora

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-coin/pkg/contentcoin"
)

const sampleCoin = `{
  "zora20Token": {
    "address": "0xabc",
    "marketCap": "15234.56",
    "volume24h": "120.5",
    "totalSupply": "1000000000",
    "uniqueHolders": 17,
    "createdAt": "2025-05-01T10:00:00Z",
    "tokenPrice": {"priceInUsdc": "0.0000152"},
    "mediaContent": {"previewImage": {"small": "https://img/s.png", "medium": "https://img/m.png"}}
  }
}`

func TestClient_CoinStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coin", r.URL.Path)
		assert.Equal(t, "0xabc", r.URL.Query().Get("address"))
		assert.Equal(t, "8453", r.URL.Query().Get("chain"))
		assert.Equal(t, "key", r.Header.Get("api-key"))
		_, _ = w.Write([]byte(sampleCoin))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "key"})
	stats, err := client.CoinStats(context.Background(), "0xabc")
	require.NoError(t, err)

	assert.Equal(t, "15234.56", stats.MarketCap.String())
	assert.Equal(t, "120.5", stats.Volume24h.String())
	assert.Equal(t, "1000000000", stats.TotalSupply.String())
	assert.Equal(t, "0.0000152", stats.Price.String())
	assert.Equal(t, int64(17), stats.Holders)
	assert.Equal(t, "https://img/m.png", stats.Image)
	assert.Equal(t, time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC), stats.CreatedAt)
}

func TestClient_CoinStatsMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"zora20Token": {"marketCap": null, "uniqueHolders": 0}}`))
	}))
	defer server.Close()

	stats, err := New(Config{BaseURL: server.URL}).CoinStats(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.True(t, stats.MarketCap.IsZero())
	assert.True(t, stats.Price.IsZero())
	assert.True(t, stats.CreatedAt.IsZero())
}

func TestClient_CoinStatsNotIndexed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"zora20Token": null}`))
	}))
	defer server.Close()

	_, err := New(Config{BaseURL: server.URL}).CoinStats(context.Background(), "0xabc")
	assert.ErrorIs(t, err, contentcoin.ErrCoinNotFound)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleCoin))
	}))
	defer server.Close()

	stats, err := New(Config{BaseURL: server.URL, Retries: 2}).CoinStats(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, int64(17), stats.Holders)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ClientErrorsAreFinal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := New(Config{BaseURL: server.URL, Retries: 3}).CoinStats(context.Background(), "0xabc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), calls.Load())
}
