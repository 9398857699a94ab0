package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/content-coin/pkg/contentcoin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error       string `json:"error"`
	Stage       string `json:"stage,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

// StatusFor maps an error to an HTTP status code.
func StatusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr), errors.Is(err, contentcoin.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, contentcoin.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, contentcoin.ErrCoinNotFound), errors.Is(err, contentcoin.ErrCreatorNotFound):
		return http.StatusNotFound
	case errors.Is(err, contentcoin.ErrDuplicateAddress), errors.Is(err, contentcoin.ErrChainMismatch),
		errors.Is(err, contentcoin.ErrRequestInProgress):
		return http.StatusConflict
	case errors.Is(err, contentcoin.ErrPublish), errors.Is(err, contentcoin.ErrDeployment):
		return http.StatusBadGateway
	case errors.Is(err, contentcoin.ErrWalletNotConnected):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Error: err.Error()}

	var stageErr *contentcoin.StageError
	if errors.As(err, &stageErr) {
		resp.Stage = string(stageErr.Stage)
	}
	var mismatch *contentcoin.ChainMismatchError
	if errors.As(err, &mismatch) {
		resp.Remediation = mismatch.Remediation()
	}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		resp.Error = "internal server error"
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg})
}
