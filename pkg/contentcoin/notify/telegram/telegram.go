// Package telegram sends messages to a channel through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/tendant/content-coin/pkg/contentcoin"
)

// Config holds the bot credential and destination channel.
type Config struct {
	BotToken  string
	ChannelID string
	// BaseURL overrides the Bot API server, mostly for tests.
	BaseURL string
	Timeout time.Duration
}

// Client posts HTML messages to one channel.
type Client struct {
	bot       *bot.Bot
	channelID string
}

// New fails with contentcoin.ErrMissingCredentials unless both the bot token
// and the channel id are set. It does not contact Telegram.
func New(config Config) (*Client, error) {
	if strings.TrimSpace(config.BotToken) == "" || strings.TrimSpace(config.ChannelID) == "" {
		return nil, fmt.Errorf("%w: telegram bot token and channel id are required", contentcoin.ErrMissingCredentials)
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}

	opts := []bot.Option{
		bot.WithSkipGetMe(),
		bot.WithHTTPClient(config.Timeout, &http.Client{Timeout: config.Timeout}),
	}
	if config.BaseURL != "" {
		opts = append(opts, bot.WithServerURL(strings.TrimRight(config.BaseURL, "/")))
	}
	b, err := bot.New(config.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", scrub(err))
	}
	return &Client{bot: b, channelID: config.ChannelID}, nil
}

// SendMessage posts a text message.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    c.channelID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", scrub(err))
	}
	return nil
}

// SendPhoto posts a photo by URL with an HTML caption.
func (c *Client) SendPhoto(ctx context.Context, photoURL, caption string) error {
	_, err := c.bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:    c.channelID,
		Photo:     &models.InputFileString{Data: photoURL},
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("telegram sendPhoto: %w", scrub(err))
	}
	return nil
}

// scrub drops the request URL from transport errors; it carries the bot token.
func scrub(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
