package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-coin/pkg/contentcoin"
	rediscache "github.com/tendant/content-coin/pkg/contentcoin/cache/redis"
	"github.com/tendant/content-coin/pkg/contentcoin/chain/relayer"
	"github.com/tendant/content-coin/pkg/contentcoin/chain/zora"
	"github.com/tendant/content-coin/pkg/contentcoin/notify"
	"github.com/tendant/content-coin/pkg/contentcoin/notify/telegram"
	"github.com/tendant/content-coin/pkg/contentcoin/repo/memory"
	repopg "github.com/tendant/content-coin/pkg/contentcoin/repo/postgres"
	memorystorage "github.com/tendant/content-coin/pkg/contentcoin/storage/memory"
	"github.com/tendant/content-coin/pkg/contentcoin/storage/pinata"
	s3storage "github.com/tendant/content-coin/pkg/contentcoin/storage/s3"
)

// Services is the wired object graph of a server or CLI process.
type Services struct {
	Store      contentcoin.CatalogStore
	Catalog    *contentcoin.Catalog
	Content    contentcoin.ContentStore
	Publisher  *contentcoin.Publisher
	Pipeline   *contentcoin.Pipeline
	Aggregator *contentcoin.Aggregator
	Notifier   contentcoin.Notifier
	Stats      contentcoin.StatsSource
	// Broadcaster is nil unless notifications are enabled.
	Broadcaster *notify.Broadcaster
	// Session is nil when no relayer is configured.
	Session contentcoin.ChainSession
	// Pool is nil for the memory catalog.
	Pool *pgxpool.Pool

	closers []func()
}

// Close releases connections in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// BuildServices connects every backend the configuration names.
func (c *ServerConfig) BuildServices(ctx context.Context, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Services{}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	// Set up catalog
	store, pool, err := c.buildCatalogStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog store: %w", err)
	}
	s.Store, s.Pool = store, pool
	if pool != nil {
		s.closers = append(s.closers, pool.Close)
	}

	// Set up content storage
	content, err := c.buildContentStore()
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend %s: %w", c.StorageBackend, err)
	}
	s.Content = content

	// Set up notifications
	if c.Notify.Enabled {
		client, err := telegram.New(telegram.Config{
			BotToken:  c.Notify.TelegramBotToken,
			ChannelID: c.Notify.TelegramChannelID,
		})
		if err != nil {
			return nil, err
		}
		s.Broadcaster, err = notify.New(client,
			notify.WithChannelName("telegram"),
			notify.WithGateway(c.GatewayURL),
			notify.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		s.Notifier = s.Broadcaster
	} else {
		s.Notifier = contentcoin.LoggingNotifier{Logger: logger}
	}

	// Set up ledger and live stats
	var ledger contentcoin.DeploymentLedger = contentcoin.NewMemoryLedger()
	var stats contentcoin.StatsSource = zora.New(zora.Config{
		BaseURL: c.Zora.APIURL,
		APIKey:  c.Zora.APIKey,
		ChainID: c.Chain.ChainID,
		Retries: 2,
	})
	if c.Redis.URL != "" {
		rdb, err := rediscache.NewClient(ctx, rediscache.Config{URL: c.Redis.URL, Prefix: c.Redis.Prefix})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = rdb.Close() })
		ledger = rediscache.NewLedger(rdb, c.Redis.LedgerTTL)
		stats = rediscache.NewStatsCache(rdb, stats, c.Redis.StatsCacheTTL, logger)
	}
	s.Stats = stats

	// Set up signing session
	if c.Chain.RelayerURL != "" {
		session, err := relayer.New(ctx, relayer.Config{
			URL:     c.Chain.RelayerURL,
			Account: c.Chain.RelayerAccount,
			APIKey:  c.Chain.RelayerAPIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to relayer: %w", err)
		}
		s.closers = append(s.closers, session.Close)
		s.Session = session
	}

	s.Publisher, err = contentcoin.NewPublisher(content,
		contentcoin.WithUploadRetries(c.UploadRetries, 500*time.Millisecond),
		contentcoin.WithPublisherLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	s.Pipeline, err = contentcoin.NewPipeline(
		contentcoin.WithPublisher(s.Publisher),
		contentcoin.WithCatalogStore(store),
		contentcoin.WithNotifier(s.Notifier),
		contentcoin.WithLedger(ledger),
		contentcoin.WithChainID(c.Chain.ChainID),
		contentcoin.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	s.Catalog = contentcoin.NewCatalog(store,
		contentcoin.WithCatalogNotifier(s.Notifier),
		contentcoin.WithCatalogLogger(logger),
	)
	s.Aggregator = contentcoin.NewAggregator(store, stats,
		contentcoin.WithConcurrency(c.Aggregator.Concurrency),
		contentcoin.WithMaxCoins(c.Aggregator.MaxCoins),
		contentcoin.WithAggregatorLogger(logger),
	)

	ok = true
	return s, nil
}

// buildCatalogStore creates a CatalogStore based on DatabaseURL
func (c *ServerConfig) buildCatalogStore(ctx context.Context) (contentcoin.CatalogStore, *pgxpool.Pool, error) {
	dbType, err := c.DatabaseType()
	if err != nil {
		return nil, nil, err
	}
	switch dbType {
	case "memory":
		return memory.New(), nil, nil
	case "postgres":
		pool, err := OpenPostgres(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if c.DBMigrate {
			if err := repopg.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return repopg.NewWithPool(pool), pool, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// OpenPostgres creates a pool and verifies connectivity.
func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// buildContentStore creates the content-addressed store named by StorageBackend
func (c *ServerConfig) buildContentStore() (contentcoin.ContentStore, error) {
	switch c.StorageBackend {
	case "memory":
		return memorystorage.New(c.GatewayURL), nil

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:          c.S3.Region,
			Bucket:          c.S3.Bucket,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			Endpoint:        c.S3.Endpoint,
			UsePathStyle:    c.S3.UsePathStyle,
			Prefix:          c.S3.Prefix,
			Gateway:         c.GatewayURL,
		})

	case "pinata":
		return pinata.New(pinata.Config{
			JWT:       c.Pinata.JWT,
			UploadURL: c.Pinata.UploadURL,
			Gateway:   c.GatewayURL,
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.StorageBackend)
	}
}
