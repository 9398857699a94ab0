package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/content-coin/pkg/contentcoin/api"
	"github.com/tendant/content-coin/pkg/contentcoin/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to an optional YAML configuration file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(config.WithFile(*configPath), config.WithEnv())
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      parseLevel(cfg.LogLevel),
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := cfg.BuildServices(ctx, logger)
	if err != nil {
		slog.Error("Failed to build services", "error", err)
		os.Exit(1)
	}
	defer services.Close()

	if cfg.AuthJWTSecret == "" {
		slog.Warn("AUTH_JWT_SECRET is not set, authenticated endpoints will reject every request")
	}
	if services.Session == nil {
		slog.Warn("RELAYER_URL is not set, coin creation is disabled")
	}

	r := api.NewRouter(api.RouterConfig{
		Pipeline:   services.Pipeline,
		Publisher:  services.Publisher,
		Catalog:    services.Catalog,
		Aggregator: services.Aggregator,
		Session:    services.Session,
		JWTSecret:  []byte(cfg.AuthJWTSecret),
		Logger:     logger,
	})
	r.With(middleware.NoCache).Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment, "storage", cfg.StorageBackend, "chain_id", cfg.Chain.ChainID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("Received signal, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	slog.Info("Server exiting")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
