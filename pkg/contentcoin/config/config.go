package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tendant/content-coin/pkg/contentcoin"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:           "8080",
		Environment:    "development",
		LogLevel:       "info",
		DBMigrate:      true,
		StorageBackend: "memory",
		UploadRetries:  2,
		S3: S3Config{
			Region: "us-east-1",
		},
		Chain: ChainConfig{
			ChainID: contentcoin.BaseChainID,
		},
		Redis: RedisConfig{
			Prefix:        "contentcoin",
			StatsCacheTTL: time.Minute,
			LedgerTTL:     7 * 24 * time.Hour,
		},
		Aggregator: AggregatorConfig{
			Concurrency: 8,
			MaxCoins:    1000,
		},
	}
}

// ServerConfig is the configuration of the content-coin server and CLI.
// Fields carry cleanenv tags so the same struct reads from the environment
// or from a YAML file.
type ServerConfig struct {
	Port        string `yaml:"port" env:"PORT" env-default:"8080"`
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"development"` // development, production, testing
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// Database configuration. Empty or "memory" selects the in-memory catalog.
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
	DBMigrate   bool   `yaml:"db_migrate" env:"DB_MIGRATE" env-default:"true"`

	// Content storage
	StorageBackend string       `yaml:"storage_backend" env:"STORAGE_BACKEND" env-default:"memory"` // memory, s3, pinata
	GatewayURL     string       `yaml:"ipfs_gateway_url" env:"IPFS_GATEWAY_URL"`
	UploadRetries  uint64       `yaml:"upload_retries" env:"UPLOAD_RETRIES" env-default:"2"`
	S3             S3Config     `yaml:"s3"`
	Pinata         PinataConfig `yaml:"pinata"`

	Chain      ChainConfig      `yaml:"chain"`
	Zora       ZoraConfig       `yaml:"zora"`
	Redis      RedisConfig      `yaml:"redis"`
	Notify     NotifyConfig     `yaml:"notify"`
	Aggregator AggregatorConfig `yaml:"aggregator"`

	// AuthJWTSecret signs and verifies the HS256 tokens identifying wallets.
	AuthJWTSecret string `yaml:"auth_jwt_secret" env:"AUTH_JWT_SECRET"`
}

type S3Config struct {
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style" env:"S3_USE_PATH_STYLE"`
	Prefix          string `yaml:"prefix" env:"S3_PREFIX"`
}

type PinataConfig struct {
	JWT       string `yaml:"jwt" env:"PINATA_JWT"`
	UploadURL string `yaml:"upload_url" env:"PINATA_UPLOAD_URL"`
}

// ChainConfig selects the chain and the signing relayer. Without a relayer
// URL the server catalogs and ranks coins but cannot deploy them.
type ChainConfig struct {
	ChainID        int64  `yaml:"chain_id" env:"CHAIN_ID" env-default:"8453"`
	RelayerURL     string `yaml:"relayer_url" env:"RELAYER_URL"`
	RelayerAccount string `yaml:"relayer_account" env:"RELAYER_ACCOUNT"`
	RelayerAPIKey  string `yaml:"relayer_api_key" env:"RELAYER_API_KEY"`
}

type ZoraConfig struct {
	APIURL string `yaml:"api_url" env:"ZORA_API_URL"`
	APIKey string `yaml:"api_key" env:"ZORA_API_KEY"`
}

// RedisConfig is optional. Without a URL the deployment ledger is kept in
// process and live stats are not cached.
type RedisConfig struct {
	URL           string        `yaml:"url" env:"REDIS_URL"`
	Prefix        string        `yaml:"prefix" env:"REDIS_PREFIX" env-default:"contentcoin"`
	StatsCacheTTL time.Duration `yaml:"stats_cache_ttl" env:"STATS_CACHE_TTL" env-default:"1m"`
	LedgerTTL     time.Duration `yaml:"ledger_ttl" env:"LEDGER_TTL" env-default:"168h"`
}

type NotifyConfig struct {
	Enabled           bool   `yaml:"enabled" env:"NOTIFY_ENABLED" env-default:"false"`
	TelegramBotToken  string `yaml:"telegram_bot_token" env:"TELEGRAM_BOT_TOKEN"`
	TelegramChannelID string `yaml:"telegram_channel_id" env:"TELEGRAM_CHANNEL_ID"`
}

type AggregatorConfig struct {
	Concurrency int `yaml:"concurrency" env:"AGGREGATOR_CONCURRENCY" env-default:"8"`
	MaxCoins    int `yaml:"max_coins" env:"AGGREGATOR_MAX_COINS" env-default:"1000"`
}

// DatabaseType derives the catalog backend from DatabaseURL: "memory" or
// "postgres".
func (c *ServerConfig) DatabaseType() (string, error) {
	url := strings.TrimSpace(c.DatabaseURL)
	switch {
	case url == "" || url == "memory":
		return "memory", nil
	case strings.HasPrefix(url, "postgresql://"), strings.HasPrefix(url, "postgres://"):
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", url)
	}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if _, err := c.DatabaseType(); err != nil {
		return err
	}

	switch c.StorageBackend {
	case "memory":
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required when using s3 storage")
		}
		if c.S3.AccessKeyID == "" || c.S3.SecretAccessKey == "" {
			return fmt.Errorf("%w: S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required", contentcoin.ErrMissingCredentials)
		}
	case "pinata":
		if c.Pinata.JWT == "" {
			return fmt.Errorf("%w: PINATA_JWT is required", contentcoin.ErrMissingCredentials)
		}
	default:
		return fmt.Errorf("storage backend must be 'memory', 's3' or 'pinata', got: %s", c.StorageBackend)
	}

	if c.Chain.ChainID <= 0 {
		return errors.New("chain id must be positive")
	}
	if c.Chain.RelayerURL != "" {
		if _, err := contentcoin.NormalizeAddress("relayer_account", c.Chain.RelayerAccount); err != nil {
			return err
		}
	}

	if c.Notify.Enabled && (c.Notify.TelegramBotToken == "" || c.Notify.TelegramChannelID == "") {
		return fmt.Errorf("%w: TELEGRAM_BOT_TOKEN and TELEGRAM_CHANNEL_ID are required when notifications are enabled", contentcoin.ErrMissingCredentials)
	}

	if c.Environment == "production" && c.AuthJWTSecret == "" {
		return fmt.Errorf("%w: AUTH_JWT_SECRET is required in production", contentcoin.ErrMissingCredentials)
	}

	if c.Aggregator.Concurrency <= 0 {
		return errors.New("aggregator concurrency must be positive")
	}

	return nil
}
