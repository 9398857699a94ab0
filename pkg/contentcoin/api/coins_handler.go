package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/content-coin/pkg/contentcoin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CoinsHandler creates coins through the pipeline and serves the catalog.
type CoinsHandler struct {
	pipeline *contentcoin.Pipeline
	catalog  *contentcoin.Catalog
	// session signs deployments; nil disables coin creation.
	session contentcoin.ChainSession
}

func NewCoinsHandler(pipeline *contentcoin.Pipeline, catalog *contentcoin.Catalog, session contentcoin.ChainSession) *CoinsHandler {
	return &CoinsHandler{
		pipeline: pipeline,
		catalog:  catalog,
		session:  session,
	}
}

// Routes returns the router for coin endpoints. Mutations go through auth.
func (h *CoinsHandler) Routes(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListCoins)
	r.Get("/{coin}", h.GetCoin)
	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/", h.CreateCoin)
		r.Patch("/{coin}", h.UpdateCoin)
		r.Delete("/{coin}", h.DeleteCoin)
	})
	return r
}

// CreateCoinResponse reports a pipeline run.
type CreateCoinResponse struct {
	Outcome    contentcoin.Outcome     `json:"outcome"`
	Stage      contentcoin.Stage       `json:"stage"`
	Coin       *contentcoin.CoinRecord `json:"coin,omitempty"`
	Deployment *contentcoin.Deployment `json:"deployment,omitempty"`
	IPFSURI    string                  `json:"ipfs_uri,omitempty"`
	Warnings   []string                `json:"warnings,omitempty"`
}

// ListCoinsResponse is one page of the catalog.
type ListCoinsResponse struct {
	Coins  []*contentcoin.CoinRecord `json:"coins"`
	Total  int64                     `json:"total"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

// UpdateCoinRequest changes the editable fields of a coin.
type UpdateCoinRequest struct {
	Name        *string `json:"name,omitempty"`
	Symbol      *string `json:"symbol,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CreateCoin runs the creation pipeline for the authenticated wallet.
// An Idempotency-Key header makes retries resume after the deployment.
func (h *CoinsHandler) CreateCoin(w http.ResponseWriter, r *http.Request) {
	wallet, _ := WalletFromContext(r.Context())
	if h.session == nil {
		writeError(w, r, contentcoin.ErrWalletNotConnected)
		return
	}

	form, err := parseCoinForm(w, r)
	if err != nil {
		slog.Error("Failed to parse coin request", "wallet", wallet, "error", err)
		writeError(w, r, err)
		return
	}

	req := contentcoin.CreateCoinRequest{
		Source:           form.Source,
		Name:             form.Name,
		Symbol:           form.Symbol,
		CreatorWallet:    wallet,
		Email:            form.Email,
		PayoutRecipient:  form.PayoutRecipient,
		PlatformReferrer: form.PlatformReferrer,
		Session:          h.session,
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		req.IdempotencyKey = wallet + ":" + key
	}

	result, err := h.pipeline.CreateCoin(r.Context(), req)
	if err != nil {
		slog.Error("Failed to create coin", "wallet", wallet, "error", err)
		writeError(w, r, err)
		return
	}

	resp := CreateCoinResponse{
		Outcome:    result.Outcome,
		Stage:      result.Stage,
		Coin:       result.Coin,
		Deployment: result.Deployment,
	}
	if result.Published != nil {
		resp.IPFSURI = result.Published.URI
	}
	for _, warning := range result.Warnings {
		resp.Warnings = append(resp.Warnings, warning.Error())
	}

	status := http.StatusCreated
	if result.Outcome == contentcoin.OutcomePartiallyCompleted {
		status = http.StatusAccepted
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

// ListCoins returns a page of coins, newest first. Filters: wallet, kind, q.
func (h *CoinsHandler) ListCoins(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := queryInt(query.Get("limit"), defaultPageSize)
	if err != nil || limit <= 0 {
		writeMessage(w, r, http.StatusBadRequest, "Invalid limit")
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err := queryInt(query.Get("offset"), 0)
	if err != nil || offset < 0 {
		writeMessage(w, r, http.StatusBadRequest, "Invalid offset")
		return
	}

	filter := contentcoin.CoinFilter{
		CreatorWallet: strings.ToLower(strings.TrimSpace(query.Get("wallet"))),
		Kind:          contentcoin.ContentKind(query.Get("kind")),
		Search:        query.Get("q"),
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		writeMessage(w, r, http.StatusBadRequest, "Invalid kind")
		return
	}

	coins, err := h.catalog.ListCoins(r.Context(), filter, limit, offset)
	if err != nil {
		slog.Error("Failed to list coins", "error", err)
		writeError(w, r, err)
		return
	}
	total, err := h.catalog.Store().CountCoins(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to count coins", "error", err)
		writeError(w, r, err)
		return
	}
	if coins == nil {
		coins = []*contentcoin.CoinRecord{}
	}

	render.JSON(w, r, ListCoinsResponse{Coins: coins, Total: total, Limit: limit, Offset: offset})
}

// GetCoin looks a coin up by id or by contract address.
func (h *CoinsHandler) GetCoin(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "coin")

	var (
		coin *contentcoin.CoinRecord
		err  error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		coin, err = h.catalog.Store().GetCoin(r.Context(), id)
	} else {
		coin, err = h.catalog.GetCoinByAddress(r.Context(), ref)
	}
	if err != nil {
		slog.Error("Failed to get coin", "coin", ref, "error", err)
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, coin)
}

// UpdateCoin edits a coin owned by the authenticated wallet.
func (h *CoinsHandler) UpdateCoin(w http.ResponseWriter, r *http.Request) {
	wallet, _ := WalletFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "coin"))
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, "Invalid coin ID")
		return
	}

	var req UpdateCoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request", "error", err)
		writeMessage(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	coin, err := h.catalog.UpdateOwnedCoin(r.Context(), id, wallet, contentcoin.CoinUpdate{
		Name:        req.Name,
		Symbol:      req.Symbol,
		Description: req.Description,
	})
	if err != nil {
		slog.Error("Failed to update coin", "coin_id", id, "wallet", wallet, "error", err)
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, coin)
}

// DeleteCoin removes a coin owned by the authenticated wallet.
func (h *CoinsHandler) DeleteCoin(w http.ResponseWriter, r *http.Request) {
	wallet, _ := WalletFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "coin"))
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, "Invalid coin ID")
		return
	}

	if err := h.catalog.DeleteCoin(r.Context(), id, wallet); err != nil {
		slog.Error("Failed to delete coin", "coin_id", id, "wallet", wallet, "error", err)
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
