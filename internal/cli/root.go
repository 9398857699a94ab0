// Package cli implements coinctl, the operator tool for the coin catalog.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/tendant/content-coin/pkg/contentcoin/config"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "coinctl",
	Short: "Content coin maintenance tool",
	Long:  `coinctl runs migrations and one-off maintenance jobs against the coin catalog.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		level := slog.LevelInfo
		if isDebug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		})))
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func loadConfig() *config.ServerConfig {
	cfg, err := config.Load(config.WithFile(cfgPath), config.WithEnv())
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg
}

func mustServices(ctx context.Context) *config.Services {
	services, err := loadConfig().BuildServices(ctx, slog.Default())
	if err != nil {
		slog.Error("Failed to build services", "error", err)
		os.Exit(1)
	}
	return services
}
