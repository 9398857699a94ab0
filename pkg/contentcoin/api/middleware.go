package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tendant/content-coin/pkg/contentcoin"
)

// Context keys for middleware
type contextKey string

const WalletKey contextKey = "wallet"

// ErrInvalidToken is returned for missing, expired or forged tokens.
var ErrInvalidToken = errors.New("invalid token")

// WalletClaims identify a wallet. The subject is the lower-cased address.
type WalletClaims struct {
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for wallet.
func IssueToken(secret []byte, wallet string, validity time.Duration) (string, error) {
	addr, err := contentcoin.NormalizeAddress("wallet", wallet)
	if err != nil {
		return "", err
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, WalletClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   addr,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
	})
	return token.SignedString(secret)
}

// WalletFromToken verifies tokenString and returns its wallet.
func WalletFromToken(tokenString string, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrInvalidToken
	}
	claims := &WalletClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	wallet, err := contentcoin.NormalizeAddress("sub", claims.Subject)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	return wallet, nil
}

// RequireWallet rejects requests without a valid bearer token and stores
// the wallet in the request context.
func RequireWallet(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				writeMessage(w, r, http.StatusUnauthorized, "missing bearer token")
				return
			}
			wallet, err := WalletFromToken(tokenString, secret)
			if err != nil {
				slog.Warn("Rejected token", "path", r.URL.Path, "error", err)
				writeMessage(w, r, http.StatusUnauthorized, ErrInvalidToken.Error())
				return
			}
			ctx := context.WithValue(r.Context(), WalletKey, wallet)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WalletFromContext returns the wallet stored by RequireWallet.
func WalletFromContext(ctx context.Context) (string, bool) {
	wallet, ok := ctx.Value(WalletKey).(string)
	return wallet, ok && wallet != ""
}

// RequestLogger logs every request with its status and duration.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("HTTP request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
