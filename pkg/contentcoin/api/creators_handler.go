package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/content-coin/pkg/contentcoin"
)

// CreatorsHandler serves the creator leaderboard and creator records.
type CreatorsHandler struct {
	catalog    *contentcoin.Catalog
	aggregator *contentcoin.Aggregator
}

func NewCreatorsHandler(catalog *contentcoin.Catalog, aggregator *contentcoin.Aggregator) *CreatorsHandler {
	return &CreatorsHandler{
		catalog:    catalog,
		aggregator: aggregator,
	}
}

// Routes returns the router for creator endpoints
func (h *CreatorsHandler) Routes(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.RankCreators)
	r.Get("/{wallet}/stats", h.CreatorStats)
	r.With(auth).Put("/me", h.UpsertMe)
	return r
}

type RankCreatorsResponse struct {
	Creators []contentcoin.RankedCreator `json:"creators"`
}

type UpsertCreatorRequest struct {
	Email string `json:"email"`
}

type CreatorStatsResponse struct {
	Wallet    string `json:"wallet"`
	CoinCount int64  `json:"coin_count"`
}

// RankCreators returns every creator ranked by their best coin.
func (h *CreatorsHandler) RankCreators(w http.ResponseWriter, r *http.Request) {
	creators, err := h.aggregator.RankCreators(r.Context())
	if err != nil {
		slog.Error("Failed to rank creators", "error", err)
		writeError(w, r, err)
		return
	}
	if creators == nil {
		creators = []contentcoin.RankedCreator{}
	}
	render.JSON(w, r, RankCreatorsResponse{Creators: creators})
}

// UpsertMe records the authenticated wallet as a creator.
func (h *CreatorsHandler) UpsertMe(w http.ResponseWriter, r *http.Request) {
	wallet, _ := WalletFromContext(r.Context())

	var req UpsertCreatorRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Error("Failed to decode request", "error", err)
			writeMessage(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	creator, err := h.catalog.EnsureCreator(r.Context(), wallet, req.Email)
	if err != nil {
		slog.Error("Failed to upsert creator", "wallet", wallet, "error", err)
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, creator)
}

// CreatorStats returns how many coins a wallet created.
func (h *CreatorsHandler) CreatorStats(w http.ResponseWriter, r *http.Request) {
	wallet, err := contentcoin.NormalizeAddress("wallet", chi.URLParam(r, "wallet"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	count, err := h.catalog.CreatorCoinCount(r.Context(), wallet)
	if err != nil {
		slog.Error("Failed to count creator coins", "wallet", wallet, "error", err)
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, CreatorStatsResponse{Wallet: wallet, CoinCount: count})
}

// CatalogStats returns the total number of coins and distinct creators.
func CatalogStats(catalog *contentcoin.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := catalog.Stats(r.Context())
		if err != nil {
			slog.Error("Failed to compute catalog stats", "error", err)
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, stats)
	}
}
