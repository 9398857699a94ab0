package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/content-coin/pkg/contentcoin"
)

// MetadataHandler publishes metadata documents without deploying a coin, so
// clients can deploy from their own wallet.
type MetadataHandler struct {
	normalizer *contentcoin.Normalizer
	publisher  *contentcoin.Publisher
}

func NewMetadataHandler(normalizer *contentcoin.Normalizer, publisher *contentcoin.Publisher) *MetadataHandler {
	if normalizer == nil {
		normalizer = contentcoin.NewNormalizer()
	}
	return &MetadataHandler{
		normalizer: normalizer,
		publisher:  publisher,
	}
}

// Routes returns the router for metadata endpoints
func (h *MetadataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.UploadMetadata)
	return r
}

// MetadataResponse locates a published metadata document.
type MetadataResponse struct {
	IPFSHash   string                       `json:"ipfsHash"`
	IPFSURI    string                       `json:"ipfsUri"`
	GatewayURL string                       `json:"gatewayUrl"`
	Metadata   contentcoin.MetadataDocument `json:"metadata"`
}

// UploadMetadata normalizes an upload or a scraped blog post and publishes
// its metadata document.
func (h *MetadataHandler) UploadMetadata(w http.ResponseWriter, r *http.Request) {
	form, err := parseCoinForm(w, r)
	if err != nil {
		slog.Error("Failed to parse metadata request", "error", err)
		writeError(w, r, err)
		return
	}

	normalized, err := h.normalizer.Normalize(r.Context(), form.Source)
	if err != nil {
		slog.Error("Failed to normalize content", "kind", form.Source.Kind(), "error", err)
		writeError(w, r, err)
		return
	}

	published, err := h.publisher.Publish(r.Context(), normalized)
	if err != nil {
		slog.Error("Failed to upload to IPFS", "error", err)
		if errors.Is(err, contentcoin.ErrValidation) {
			writeError(w, r, err)
			return
		}
		writeMessage(w, r, http.StatusInternalServerError, "Failed to upload to IPFS: "+err.Error())
		return
	}

	render.JSON(w, r, MetadataResponse{
		IPFSHash:   published.CID,
		IPFSURI:    published.URI,
		GatewayURL: published.GatewayURL,
		Metadata:   published.Metadata,
	})
}
