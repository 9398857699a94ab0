package contentcoin

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContentKind discriminates the content a coin represents.
type ContentKind string

// Content kind constants (typed).
const (
	KindBlog  ContentKind = "blog"
	KindImage ContentKind = "image"
	KindMusic ContentKind = "music"
)

// Valid reports whether k is one of the known kinds.
func (k ContentKind) Valid() bool {
	switch k {
	case KindBlog, KindImage, KindMusic:
		return true
	}
	return false
}

// Attribute is a single trait in a metadata document.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// ContentRef points at the full content behind a coin.
type ContentRef struct {
	URI  string `json:"uri"`
	Mime string `json:"mime"`
}

// MetadataDocument is the JSON document a token's metadata URI resolves to.
// Field order here is the serialized order.
type MetadataDocument struct {
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Image        string      `json:"image"`
	ExternalURL  string      `json:"external_url"`
	AnimationURL string      `json:"animation_url,omitempty"`
	Type         ContentKind `json:"type"`
	Attributes   []Attribute `json:"attributes"`
	Content      *ContentRef `json:"content,omitempty"`
}

// Attribute returns the value of the named trait.
func (d MetadataDocument) Attribute(traitType string) (string, bool) {
	for _, a := range d.Attributes {
		if a.TraitType == traitType {
			return a.Value, true
		}
	}
	return "", false
}

// CoinMetadata is the typed payload stored with every CoinRecord.
//
// Content fields are written once at creation. Trading fields are refreshed
// by trading activity updates.
type CoinMetadata struct {
	Type        ContentKind `json:"type,omitempty"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Image       string      `json:"image,omitempty"`
	Audio       string      `json:"audio,omitempty"`
	OriginalURL string      `json:"originalUrl,omitempty"`
	Author      string      `json:"author,omitempty"`
	PublishDate string      `json:"publishDate,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Content     string      `json:"content,omitempty"`

	MarketCap   *decimal.Decimal `json:"marketCap,omitempty"`
	Volume24h   *decimal.Decimal `json:"volume24h,omitempty"`
	TotalSupply *decimal.Decimal `json:"totalSupply,omitempty"`
	Holders     *int64           `json:"holders,omitempty"`
}

// CoinRecord is a catalogued coin. CoinAddress is unique and never reassigned.
type CoinRecord struct {
	ID              uuid.UUID    `json:"id"`
	CreatorWallet   string       `json:"creator_wallet"`
	Name            string       `json:"name"`
	Symbol          string       `json:"symbol"`
	CoinAddress     string       `json:"coin_address"`
	TransactionHash string       `json:"transaction_hash,omitempty"`
	IPFSURI         string       `json:"ipfs_uri,omitempty"`
	IPFSHash        string       `json:"ipfs_hash,omitempty"`
	GatewayURL      string       `json:"gateway_url,omitempty"`
	Metadata        CoinMetadata `json:"metadata"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Clone returns a deep copy.
func (c *CoinRecord) Clone() *CoinRecord {
	cp := *c
	cp.Metadata.Tags = append([]string(nil), c.Metadata.Tags...)
	if c.Metadata.MarketCap != nil {
		v := *c.Metadata.MarketCap
		cp.Metadata.MarketCap = &v
	}
	if c.Metadata.Volume24h != nil {
		v := *c.Metadata.Volume24h
		cp.Metadata.Volume24h = &v
	}
	if c.Metadata.TotalSupply != nil {
		v := *c.Metadata.TotalSupply
		cp.Metadata.TotalSupply = &v
	}
	if c.Metadata.Holders != nil {
		v := *c.Metadata.Holders
		cp.Metadata.Holders = &v
	}
	return &cp
}

// CreatorRecord is a wallet that created or browsed coins.
type CreatorRecord struct {
	WalletAddress string    `json:"wallet_address"`
	Email         string    `json:"email,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CoinFilter narrows ListCoins and CountCoins. Zero values match everything.
type CoinFilter struct {
	CreatorWallet string
	Kind          ContentKind
	Search        string
}

// Matches reports whether coin passes the filter. Search is a
// case-insensitive substring match on name, symbol, title and description.
func (f CoinFilter) Matches(coin *CoinRecord) bool {
	if f.CreatorWallet != "" && !strings.EqualFold(f.CreatorWallet, coin.CreatorWallet) {
		return false
	}
	if f.Kind != "" && f.Kind != coin.Metadata.Type {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		for _, field := range []string{coin.Name, coin.Symbol, coin.Metadata.Title, coin.Metadata.Description} {
			if strings.Contains(strings.ToLower(field), q) {
				return true
			}
		}
		return false
	}
	return true
}

// CoinUpdate is a partial update. Nil fields are left untouched; trading
// fields are merged into the stored metadata.
type CoinUpdate struct {
	Name            *string
	Symbol          *string
	Description     *string
	TransactionHash *string
	Kind            *ContentKind

	MarketCap   *decimal.Decimal
	Volume24h   *decimal.Decimal
	TotalSupply *decimal.Decimal
	Holders     *int64
}

// IsZero reports whether the update changes nothing.
func (u CoinUpdate) IsZero() bool {
	return u.Name == nil && u.Symbol == nil && u.Description == nil &&
		u.TransactionHash == nil && u.Kind == nil && u.MarketCap == nil &&
		u.Volume24h == nil && u.TotalSupply == nil && u.Holders == nil
}

// Apply merges the update into coin. Stores call it so that memory and
// SQL backends agree on merge semantics.
func (u CoinUpdate) Apply(coin *CoinRecord) {
	if u.Name != nil {
		coin.Name = *u.Name
	}
	if u.Symbol != nil {
		coin.Symbol = *u.Symbol
	}
	if u.Description != nil {
		coin.Metadata.Description = *u.Description
	}
	if u.TransactionHash != nil {
		coin.TransactionHash = *u.TransactionHash
	}
	if u.Kind != nil {
		coin.Metadata.Type = *u.Kind
	}
	if u.MarketCap != nil {
		v := *u.MarketCap
		coin.Metadata.MarketCap = &v
	}
	if u.Volume24h != nil {
		v := *u.Volume24h
		coin.Metadata.Volume24h = &v
	}
	if u.TotalSupply != nil {
		v := *u.TotalSupply
		coin.Metadata.TotalSupply = &v
	}
	if u.Holders != nil {
		v := *u.Holders
		coin.Metadata.Holders = &v
	}
}

// CatalogStats holds catalog-wide counts.
type CatalogStats struct {
	TotalCoins    int64 `json:"total_coins"`
	TotalCreators int64 `json:"total_creators"`
}

// Blob is a binary to publish.
type Blob struct {
	Name     string
	MimeType string
	Data     []byte
}

// PublishedContent is what the Publisher hands to the deployer. It is never
// persisted on its own.
type PublishedContent struct {
	CID          string           `json:"cid"`
	URI          string           `json:"uri"`
	GatewayURL   string           `json:"gateway_url"`
	Metadata     MetadataDocument `json:"metadata"`
	MetadataJSON []byte           `json:"-"`
	BinaryCID    string           `json:"binary_cid,omitempty"`
}

// DeployParams are the arguments of a token deployment.
type DeployParams struct {
	Name             string
	Symbol           string
	URI              string
	// Owner controls the coin on-chain; the pipeline sets it to the creator.
	Owner            string
	PayoutRecipient  string
	PlatformReferrer string
	ChainID          int64
}

// Deployment is the on-chain result of a token deployment.
type Deployment struct {
	Address string `json:"address"`
	TxHash  string `json:"tx_hash,omitempty"`
	ChainID int64  `json:"chain_id"`
}

// LiveStats are market figures for a deployed coin.
type LiveStats struct {
	MarketCap   decimal.Decimal `json:"market_cap"`
	Price       decimal.Decimal `json:"price"`
	Volume24h   decimal.Decimal `json:"volume_24h"`
	TotalSupply decimal.Decimal `json:"total_supply"`
	Holders     int64           `json:"holders"`
	Image       string          `json:"image,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ScrapedArticle is what a Scraper extracts from a blog URL.
type ScrapedArticle struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	URL         string   `json:"url"`
	Author      string   `json:"author"`
	PublishDate string   `json:"publishDate"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags,omitempty"`
}
