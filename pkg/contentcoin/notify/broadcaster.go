// Package notify renders coin events and broadcasts them to a channel.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tendant/content-coin/pkg/contentcoin"
	"github.com/tendant/content-coin/pkg/contentcoin/metrics"
)

// ImageFallbackNote is appended when a photo could not be sent.
const ImageFallbackNote = "\n\n[Image could not be loaded]"

// Sender is a messaging channel with a text and a photo operation.
type Sender interface {
	SendMessage(ctx context.Context, text string) error
	SendPhoto(ctx context.Context, photoURL, caption string) error
}

// Broadcaster implements contentcoin.Notifier on top of a Sender.
type Broadcaster struct {
	sender  Sender
	channel string
	gateway string
	logger  *slog.Logger
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithChannelName labels logs and metrics.
func WithChannelName(name string) Option {
	return func(b *Broadcaster) {
		b.channel = name
	}
}

// WithGateway sets the prefix used to turn ipfs:// images into URLs the
// channel can fetch. An empty prefix keeps the default.
func WithGateway(prefix string) Option {
	return func(b *Broadcaster) {
		if prefix != "" {
			b.gateway = prefix
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Broadcaster) {
		b.logger = l
	}
}

func New(sender Sender, opts ...Option) (*Broadcaster, error) {
	if sender == nil {
		return nil, fmt.Errorf("%w: notification sender is not configured", contentcoin.ErrMissingCredentials)
	}
	b := &Broadcaster{
		sender:  sender,
		channel: "telegram",
		gateway: "https://ipfs.io/ipfs/",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

var _ contentcoin.Notifier = (*Broadcaster)(nil)

// Notify delivers event best-effort. Failures are logged and dropped.
func (b *Broadcaster) Notify(ctx context.Context, event contentcoin.Event) {
	if err := b.Dispatch(ctx, event); err != nil {
		b.logger.Error("Notification failed", "kind", event.Kind(), "contract", event.Coin().Contract, "error", err)
	}
}

// Dispatch delivers event and reports failure as a *contentcoin.NotificationError.
//
// When a photo is attached and cannot be sent the message is retried once as
// text with ImageFallbackNote appended.
func (b *Broadcaster) Dispatch(ctx context.Context, event contentcoin.Event) error {
	text, photo := Render(event)
	photo = b.resolveImage(photo)

	if photo == "" {
		if err := b.sender.SendMessage(ctx, text); err != nil {
			return b.failed(err)
		}
		metrics.Notifications.WithLabelValues(b.channel, "ok").Inc()
		return nil
	}

	photoErr := b.sender.SendPhoto(ctx, photo, text)
	if photoErr == nil {
		metrics.Notifications.WithLabelValues(b.channel, "ok").Inc()
		return nil
	}
	b.logger.Warn("Photo delivery failed, sending text", "image", photo, "error", photoErr)
	if err := b.sender.SendMessage(ctx, text+ImageFallbackNote); err != nil {
		return b.failed(errors.Join(photoErr, err))
	}
	metrics.Notifications.WithLabelValues(b.channel, "fallback").Inc()
	return nil
}

func (b *Broadcaster) failed(err error) error {
	metrics.Notifications.WithLabelValues(b.channel, "error").Inc()
	return &contentcoin.NotificationError{Channel: b.channel, Err: err}
}

func (b *Broadcaster) resolveImage(image string) string {
	if cid, ok := strings.CutPrefix(image, "ipfs://"); ok && cid != "" {
		return strings.TrimRight(b.gateway, "/") + "/" + cid
	}
	return image
}

// Render builds the HTML message for event and returns the image to attach,
// which is empty for text-only events.
func Render(event contentcoin.Event) (text string, photo string) {
	c := event.Coin()
	switch event.Kind() {
	case contentcoin.EventNewCoin:
		return renderNewCoin(c), c.Image
	case contentcoin.EventTrading:
		return renderActivity("🔄📊 <b>TRADING ACTIVITY</b>", c, true), ""
	case contentcoin.EventBuy:
		return renderActivity("🟢💰 BUY ACTIVITY", c, false), ""
	case contentcoin.EventSell:
		return renderActivity("🔴💸 SELL ACTIVITY", c, false), ""
	default:
		return fmt.Sprintf("%s: %s", event.Kind(), esc(orNA(c.Name))), ""
	}
}

// Field limits keep a new-coin message inside Telegram's 1024 character
// photo caption limit.
const (
	maxNameRunes        = 100
	maxSymbolRunes      = 20
	maxDescriptionRunes = 250
)

func renderNewCoin(c contentcoin.CoinSnapshot) string {
	var b strings.Builder
	b.WriteString("🆕🪙 <b>NEW CREATOR COIN CREATED</b>\n\n")
	fmt.Fprintf(&b, "📛 %s (%s)\n", esc(clip(orNA(c.Name), maxNameRunes)), esc(clip(orNA(c.Symbol), maxSymbolRunes)))
	fmt.Fprintf(&b, "💰 Market Cap: $%s\n", amount(c.MarketCap, "N/A"))
	fmt.Fprintf(&b, "💵 Price: $%s\n", amount(c.Price, "N/A"))
	fmt.Fprintf(&b, "📊 Total Supply: %s\n", amount(c.TotalSupply, "N/A"))
	b.WriteString(creatorLine(c.Creator))
	fmt.Fprintf(&b, "📅 Created: %s\n", timestamp(c.CreatedAt))
	fmt.Fprintf(&b, "📄 Contract: %s\n", esc(shortOrNA(c.Contract)))
	if d := strings.TrimSpace(c.Description); d != "" {
		fmt.Fprintf(&b, "📝 %s\n", esc(clip(d, maxDescriptionRunes)))
	}
	if links := Links(c.Contract); links != "" {
		fmt.Fprintf(&b, "\n🔗 %s", links)
	}
	return b.String()
}

func renderActivity(title string, c contentcoin.CoinSnapshot, withVolume bool) string {
	var b strings.Builder
	b.WriteString(title + "\n\n")
	fmt.Fprintf(&b, "📛 %s (%s)\n", esc(clip(orNA(c.Name), maxNameRunes)), esc(clip(orNA(c.Symbol), maxSymbolRunes)))
	fmt.Fprintf(&b, "💰 Market Cap: $%s\n", amount(c.MarketCap, "?"))
	if withVolume {
		fmt.Fprintf(&b, "📊 24h Volume: $%s\n", amount(c.Volume24h, "?"))
	}
	fmt.Fprintf(&b, "📊 Total Supply: %s\n", amount(c.TotalSupply, "?"))
	holders := "?"
	if c.Holders != nil {
		holders = fmt.Sprintf("%d", *c.Holders)
	}
	fmt.Fprintf(&b, "👥 Holders: %s\n", holders)
	b.WriteString(creatorLine(c.Creator))
	fmt.Fprintf(&b, "📄 Contract: %s\n", esc(shortOrNA(c.Contract)))
	fmt.Fprintf(&b, "📅 Created: %s\n", timestamp(c.CreatedAt))
	fmt.Fprintf(&b, "⏰ Activity: %s", timestamp(c.ActivityAt))
	if links := Links(c.Contract); links != "" {
		fmt.Fprintf(&b, "\n\n🔗 %s", links)
	}
	return b.String()
}

func creatorLine(creator string) string {
	if creator == "" {
		return "👤 N/A\n"
	}
	return fmt.Sprintf("👤 <a href=\"https://zora.co/profile/%s\">%s</a>\n", esc(creator), esc(contentcoin.ShortAddress(creator)))
}

// Links renders explorer links for a contract, or "" without a contract.
func Links(contract string) string {
	if contract == "" {
		return ""
	}
	c := esc(contract)
	return strings.Join([]string{
		fmt.Sprintf(`<a href="https://zora.co/coin/base:%s">View on Zora</a>`, c),
		fmt.Sprintf(`<a href="https://basescan.org/token/%s">BaseScan</a>`, c),
		fmt.Sprintf(`<a href="https://dexscreener.com/base/%s">DexScreener</a>`, c),
	}, " | ")
}

func amount(v *decimal.Decimal, placeholder string) string {
	if v == nil {
		return placeholder
	}
	return v.String()
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.UTC().Format(time.RFC3339)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func shortOrNA(address string) string {
	if address == "" {
		return "N/A"
	}
	return contentcoin.ShortAddress(address)
}

// clip shortens s to at most n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

func esc(s string) string {
	return html.EscapeString(s)
}
