package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv reads every field from its environment variable. Unset variables
// fall back to their env-default tag.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
}

// WithFile reads a YAML file. Environment variables still override the
// values found in the file.
func WithFile(path string) Option {
	return func(c *ServerConfig) error {
		if path == "" {
			return nil
		}
		if err := cleanenv.ReadConfig(path, c); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}
}

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithDatabaseURL selects the catalog backend; see DatabaseType.
func WithDatabaseURL(url string) Option {
	return func(c *ServerConfig) error {
		c.DatabaseURL = url
		return nil
	}
}

// WithStorageBackend selects memory, s3 or pinata content storage.
func WithStorageBackend(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			return fmt.Errorf("storage backend cannot be empty")
		}
		c.StorageBackend = name
		return nil
	}
}

func WithRelayer(url, account, apiKey string) Option {
	return func(c *ServerConfig) error {
		c.Chain.RelayerURL = url
		c.Chain.RelayerAccount = account
		c.Chain.RelayerAPIKey = apiKey
		return nil
	}
}

func WithZora(apiURL, apiKey string) Option {
	return func(c *ServerConfig) error {
		c.Zora.APIURL = apiURL
		c.Zora.APIKey = apiKey
		return nil
	}
}

func WithRedis(url string) Option {
	return func(c *ServerConfig) error {
		c.Redis.URL = url
		return nil
	}
}

// WithTelegram enables notifications to a Telegram channel.
func WithTelegram(botToken, channelID string) Option {
	return func(c *ServerConfig) error {
		c.Notify.Enabled = true
		c.Notify.TelegramBotToken = botToken
		c.Notify.TelegramChannelID = channelID
		return nil
	}
}

func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.AuthJWTSecret = secret
		return nil
	}
}
