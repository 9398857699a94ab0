package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-coin/pkg/contentcoin"
	"github.com/tendant/content-coin/pkg/contentcoin/cid"
)

type downStore struct{}

func (downStore) Put(ctx context.Context, blob contentcoin.Blob) (string, error) {
	return "", errors.New("pinning service unavailable")
}

func (downStore) GatewayURL(id string) string { return testGateway + id }

func TestUploadMetadata_Image(t *testing.T) {
	a := setupAPITest(t)

	req := uploadRequest(t, "/api/v1/metadata",
		map[string]string{"symbol": "cat", "description": "A cat"},
		map[string][]byte{"image": pngBytes},
	)
	w := a.do(t, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[MetadataResponse](t, w)
	assert.Equal(t, "ipfs://"+resp.IPFSHash, resp.IPFSURI)
	assert.Equal(t, testGateway+resp.IPFSHash, resp.GatewayURL)
	assert.Equal(t, "Image Coin", resp.Metadata.Name)
	assert.Equal(t, "A cat", resp.Metadata.Description)
	assert.Equal(t, contentcoin.KindImage, resp.Metadata.Type)

	imageCID, err := cid.Sum(pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://"+imageCID, resp.Metadata.Image)

	obj, ok := a.content.Get(imageCID)
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.MimeType)
	_, ok = a.content.Get(resp.IPFSHash)
	assert.True(t, ok)
}

func TestUploadMetadata_Blog(t *testing.T) {
	a := setupAPITest(t)

	w := a.do(t, jsonRequest(t, http.MethodPost, "/api/v1/metadata", blogBody("Hello")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[MetadataResponse](t, w)
	assert.Equal(t, contentcoin.KindBlog, resp.Metadata.Type)
	assert.Equal(t, "https://img.test/hello.png", resp.Metadata.Image)
	source, ok := resp.Metadata.Attribute("Source")
	assert.True(t, ok)
	assert.Equal(t, "medium.com", source)
	assert.Equal(t, 1, a.content.Len())
}

func TestUploadMetadata_BadRequests(t *testing.T) {
	a := setupAPITest(t)

	tests := []struct {
		name    string
		req     *http.Request
		wantMsg string
	}{
		{
			name:    "missing image",
			req:     uploadRequest(t, "/api/v1/metadata", map[string]string{"name": "Cat"}, nil),
			wantMsg: "Image file is required",
		},
		{
			name:    "missing blog data",
			req:     jsonRequest(t, http.MethodPost, "/api/v1/metadata", map[string]string{}),
			wantMsg: "Blog data is required",
		},
		{
			name:    "music without audio",
			req:     uploadRequest(t, "/api/v1/metadata", map[string]string{"kind": "music"}, map[string][]byte{"cover": pngBytes}),
			wantMsg: "Audio file is required",
		},
		{
			name:    "music without cover",
			req:     uploadRequest(t, "/api/v1/metadata", map[string]string{"kind": "music"}, map[string][]byte{"audio": []byte("ID3 track")}),
			wantMsg: "cover",
		},
		{
			name:    "unknown kind",
			req:     uploadRequest(t, "/api/v1/metadata", map[string]string{"kind": "video"}, nil),
			wantMsg: "Unsupported content kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(t, tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decode[ErrorResponse](t, w)
			assert.Contains(t, resp.Error, tt.wantMsg)
		})
	}
	assert.Equal(t, 0, a.content.Len())
}

func TestUploadMetadata_Music(t *testing.T) {
	a := setupAPITest(t)

	req := uploadRequest(t, "/api/v1/metadata",
		map[string]string{"kind": "music", "name": "Night Drive"},
		map[string][]byte{"audio": []byte("ID3 track data"), "cover": pngBytes},
	)
	w := a.do(t, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[MetadataResponse](t, w)
	assert.Equal(t, contentcoin.KindMusic, resp.Metadata.Type)
	assert.True(t, strings.HasPrefix(resp.Metadata.AnimationURL, "ipfs://"))
	assert.Equal(t, 3, a.content.Len())
}

func TestUploadMetadata_StoreFailure(t *testing.T) {
	a := setupAPITest(t, func(cfg *RouterConfig) {
		publisher, err := contentcoin.NewPublisher(downStore{}, contentcoin.WithUploadRetries(0, time.Millisecond))
		require.NoError(t, err)
		cfg.Publisher = publisher
	})

	req := uploadRequest(t, "/api/v1/metadata", nil, map[string][]byte{"image": pngBytes})
	w := a.do(t, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.True(t, strings.HasPrefix(resp.Error, "Failed to upload to IPFS: "), resp.Error)
}
