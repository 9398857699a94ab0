// Package zora reads live coin statistics from the Zora coins API.
package zora

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"github.com/tendant/content-coin/pkg/contentcoin"
)

const defaultBaseURL = "https://api-sdk.zora.engineering"

type Config struct {
	BaseURL string
	APIKey  string
	ChainID int64
	Timeout time.Duration
	// Retries bounds how often a 429 or 5xx answer is retried.
	Retries uint64
}

// Client implements contentcoin.StatsSource.
type Client struct {
	baseURL string
	apiKey  string
	chainID int64
	retries uint64
	http    *http.Client
}

var _ contentcoin.StatsSource = (*Client)(nil)

func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.ChainID == 0 {
		config.ChainID = contentcoin.BaseChainID
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		chainID: config.ChainID,
		retries: config.Retries,
		http:    &http.Client{Timeout: config.Timeout},
	}
}

type coinResponse struct {
	Zora20Token *token `json:"zora20Token"`
}

type token struct {
	Address       string              `json:"address"`
	MarketCap     decimal.NullDecimal `json:"marketCap"`
	Volume24h     decimal.NullDecimal `json:"volume24h"`
	TotalSupply   decimal.NullDecimal `json:"totalSupply"`
	UniqueHolders int64               `json:"uniqueHolders"`
	CreatedAt     string              `json:"createdAt"`
	TokenPrice    *struct {
		PriceInUsdc decimal.NullDecimal `json:"priceInUsdc"`
	} `json:"tokenPrice"`
	MediaContent *struct {
		PreviewImage *struct {
			Small  string `json:"small"`
			Medium string `json:"medium"`
		} `json:"previewImage"`
	} `json:"mediaContent"`
}

// CoinStats fetches the live figures of one coin. A coin the API does not
// know yields contentcoin.ErrCoinNotFound.
func (c *Client) CoinStats(ctx context.Context, address string) (*contentcoin.LiveStats, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("chain", strconv.FormatInt(c.chainID, 10))
	endpoint := c.baseURL + "/coin?" + q.Encode()

	var out coinResponse
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("api-key", c.apiKey)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", contentcoin.ErrCoinNotFound, address)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("zora api: status %d", resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("zora api: status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("zora api: decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Zora20Token == nil {
		return nil, fmt.Errorf("%w: %s", contentcoin.ErrCoinNotFound, address)
	}
	return out.Zora20Token.stats(), nil
}

func (t *token) stats() *contentcoin.LiveStats {
	s := &contentcoin.LiveStats{
		MarketCap:   t.MarketCap.Decimal,
		Volume24h:   t.Volume24h.Decimal,
		TotalSupply: t.TotalSupply.Decimal,
		Holders:     t.UniqueHolders,
	}
	if t.TokenPrice != nil {
		s.Price = t.TokenPrice.PriceInUsdc.Decimal
	}
	if t.MediaContent != nil && t.MediaContent.PreviewImage != nil {
		s.Image = t.MediaContent.PreviewImage.Medium
	}
	if created, err := time.Parse(time.RFC3339, t.CreatedAt); err == nil {
		s.CreatedAt = created.UTC()
	}
	return s
}
