// Package api exposes the coin pipeline and the catalog over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/content-coin/pkg/contentcoin"
)

// RouterConfig holds the services behind the HTTP API.
type RouterConfig struct {
	Pipeline   *contentcoin.Pipeline
	Publisher  *contentcoin.Publisher
	Normalizer *contentcoin.Normalizer
	Catalog    *contentcoin.Catalog
	Aggregator *contentcoin.Aggregator
	Session    contentcoin.ChainSession
	JWTSecret  []byte
	Logger     *slog.Logger
}

// NewRouter mounts every endpoint under /api/v1.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	auth := RequireWallet(cfg.JWTSecret)
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/metadata", NewMetadataHandler(cfg.Normalizer, cfg.Publisher).Routes())
		r.Mount("/coins", NewCoinsHandler(cfg.Pipeline, cfg.Catalog, cfg.Session).Routes(auth))
		r.Mount("/creators", NewCreatorsHandler(cfg.Catalog, cfg.Aggregator).Routes(auth))
		r.Get("/stats", CatalogStats(cfg.Catalog))
	})
	return r
}
