package contentcoin

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind names a notification event.
type EventKind string

const (
	EventNewCoin EventKind = "NEW_COIN"
	EventTrading EventKind = "TRADING"
	EventBuy     EventKind = "BUY"
	EventSell    EventKind = "SELL"
)

// CoinSnapshot is the rendering payload shared by all events. Optional
// figures are nil when unknown.
type CoinSnapshot struct {
	Name        string
	Symbol      string
	Creator     string
	Contract    string
	Description string
	Image       string
	MarketCap   *decimal.Decimal
	Price       *decimal.Decimal
	TotalSupply *decimal.Decimal
	Volume24h   *decimal.Decimal
	Holders     *int64
	CreatedAt   time.Time
	ActivityAt  time.Time
}

// SnapshotFromCoin builds a snapshot from a catalogued coin.
func SnapshotFromCoin(coin *CoinRecord) CoinSnapshot {
	return CoinSnapshot{
		Name:        coin.Name,
		Symbol:      coin.Symbol,
		Creator:     coin.CreatorWallet,
		Contract:    coin.CoinAddress,
		Description: coin.Metadata.Description,
		Image:       coin.Metadata.Image,
		MarketCap:   coin.Metadata.MarketCap,
		TotalSupply: coin.Metadata.TotalSupply,
		Volume24h:   coin.Metadata.Volume24h,
		Holders:     coin.Metadata.Holders,
		CreatedAt:   coin.CreatedAt,
		ActivityAt:  coin.UpdatedAt,
	}
}

// Event is a closed set: NewCoinEvent, TradingEvent and TradeEvent.
type Event interface {
	Kind() EventKind
	Coin() CoinSnapshot
	event()
}

type NewCoinEvent struct{ Snapshot CoinSnapshot }

func (e NewCoinEvent) Kind() EventKind    { return EventNewCoin }
func (e NewCoinEvent) Coin() CoinSnapshot { return e.Snapshot }
func (NewCoinEvent) event()               {}

type TradingEvent struct{ Snapshot CoinSnapshot }

func (e TradingEvent) Kind() EventKind    { return EventTrading }
func (e TradingEvent) Coin() CoinSnapshot { return e.Snapshot }
func (TradingEvent) event()               {}

// TradeSide is buy or sell.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

type TradeEvent struct {
	Snapshot CoinSnapshot
	Side     TradeSide
}

func (e TradeEvent) Kind() EventKind {
	if e.Side == SideSell {
		return EventSell
	}
	return EventBuy
}
func (e TradeEvent) Coin() CoinSnapshot { return e.Snapshot }
func (TradeEvent) event()               {}
