package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tendant/content-coin/pkg/contentcoin"
	"github.com/tendant/content-coin/pkg/contentcoin/repo/memory"
	storagememory "github.com/tendant/content-coin/pkg/contentcoin/storage/memory"
)

const (
	testSecret     = "test-secret"
	creatorWallet  = "0x1111111111111111111111111111111111111111"
	otherWallet    = "0x3333333333333333333333333333333333333333"
	relayerAccount = "0x9999999999999999999999999999999999999999"
	testGateway    = "https://gw.test/ipfs/"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR fake image payload")

type fakeSession struct {
	mu      sync.Mutex
	chainID int64
	deploys int
}

func (s *fakeSession) ChainID(ctx context.Context) (int64, error) {
	return s.chainID, nil
}

func (s *fakeSession) Account() string {
	return relayerAccount
}

func (s *fakeSession) Deploy(ctx context.Context, params contentcoin.DeployParams) (*contentcoin.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deploys++
	return &contentcoin.Deployment{
		Address: fmt.Sprintf("0x%040x", 0xc0+s.deploys),
		TxHash:  "0x" + strings.Repeat("ab", 32),
		ChainID: params.ChainID,
	}, nil
}

func (s *fakeSession) deployCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deploys
}

type mapStats map[string]contentcoin.LiveStats

func (m mapStats) CoinStats(ctx context.Context, address string) (*contentcoin.LiveStats, error) {
	s, ok := m[address]
	if !ok {
		return nil, contentcoin.ErrCoinNotFound
	}
	return &s, nil
}

type apiTest struct {
	router  http.Handler
	repo    *memory.Repository
	content *storagememory.Backend
	session *fakeSession
	stats   mapStats
}

func setupAPITest(t *testing.T, configure ...func(*RouterConfig)) *apiTest {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := memory.New()
	content := storagememory.New(testGateway)
	session := &fakeSession{chainID: contentcoin.BaseChainID}
	stats := mapStats{}

	publisher, err := contentcoin.NewPublisher(content, contentcoin.WithPublisherLogger(logger))
	require.NoError(t, err)
	pipeline, err := contentcoin.NewPipeline(
		contentcoin.WithPublisher(publisher),
		contentcoin.WithCatalogStore(repo),
		contentcoin.WithLedger(contentcoin.NewMemoryLedger()),
		contentcoin.WithLogger(logger),
	)
	require.NoError(t, err)

	cfg := RouterConfig{
		Pipeline:   pipeline,
		Publisher:  publisher,
		Catalog:    contentcoin.NewCatalog(repo, contentcoin.WithCatalogLogger(logger)),
		Aggregator: contentcoin.NewAggregator(repo, stats, contentcoin.WithAggregatorLogger(logger)),
		Session:    session,
		JWTSecret:  []byte(testSecret),
		Logger:     logger,
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	return &apiTest{
		router:  NewRouter(cfg),
		repo:    repo,
		content: content,
		session: session,
		stats:   stats,
	}
}

func (a *apiTest) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, wallet string) string {
	t.Helper()
	token, err := IssueToken([]byte(testSecret), wallet, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// uploadRequest builds a multipart request. Files maps field names to
// contents.
func uploadRequest(t *testing.T, target string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, data := range files {
		fw, err := mw.CreateFormFile(field, field+".bin")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func blogBody(title string) BlogRequest {
	return BlogRequest{
		BlogData: &contentcoin.ScrapedArticle{
			Title: title,
			URL:   "https://medium.com/@x/" + strings.ToLower(title),
			Image: "https://img.test/" + strings.ToLower(title) + ".png",
		},
	}
}
