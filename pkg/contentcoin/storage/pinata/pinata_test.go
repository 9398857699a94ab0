package pinata

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-coin/pkg/contentcoin"
)

func TestNew_RequiresJWT(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, contentcoin.ErrMissingCredentials)
}

func TestBackend_Put(t *testing.T) {
	var gotAuth, gotNetwork, gotFile, gotType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		gotNetwork = r.FormValue("network")
		f, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		data, _ := io.ReadAll(f)
		gotFile = string(data)
		gotType = header.Header.Get("Content-Type")

		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"id": "1", "cid": "bafytest"}})
	}))
	defer server.Close()

	backend, err := New(Config{JWT: "secret", UploadURL: server.URL, Gateway: "https://my.gateway/ipfs"})
	require.NoError(t, err)

	cid, err := backend.Put(context.Background(), contentcoin.Blob{Name: "metadata.json", MimeType: "application/json", Data: []byte(`{}`)})
	require.NoError(t, err)

	assert.Equal(t, "bafytest", cid)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "public", gotNetwork)
	assert.Equal(t, "{}", gotFile)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "https://my.gateway/ipfs/bafytest", backend.GatewayURL(cid))
}

func TestBackend_PutErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	backend, err := New(Config{JWT: "secret", UploadURL: server.URL})
	require.NoError(t, err)

	_, err = backend.Put(context.Background(), contentcoin.Blob{Data: []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
