package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-coin/pkg/contentcoin"
)

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{BotToken: "token"})
	assert.ErrorIs(t, err, contentcoin.ErrMissingCredentials)

	_, err = New(Config{ChannelID: "@channel"})
	assert.ErrorIs(t, err, contentcoin.ErrMissingCredentials)
}

type captured struct {
	path   string
	fields map[string]string
}

// botServer answers every Bot API call with body and records the form fields.
func botServer(t *testing.T, status int, body string) (*httptest.Server, func() []captured) {
	t.Helper()
	var mu sync.Mutex
	var calls []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fields := map[string]string{}
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				fields[k] = v[0]
			}
		}
		mu.Lock()
		calls = append(calls, captured{path: r.URL.Path, fields: fields})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), calls...)
	}
}

func TestClient_SendMessageAndPhoto(t *testing.T) {
	server, calls := botServer(t, http.StatusOK, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"channel"}}}`)

	client, err := New(Config{BotToken: "123:abc", ChannelID: "@coins", BaseURL: server.URL})
	require.NoError(t, err)

	require.NoError(t, client.SendMessage(context.Background(), "<b>hi</b>"))
	require.NoError(t, client.SendPhoto(context.Background(), "https://img.example/a.png", "caption"))

	got := calls()
	require.Len(t, got, 2)
	assert.True(t, strings.HasSuffix(got[0].path, "/bot123:abc/sendMessage"), got[0].path)
	assert.True(t, strings.HasSuffix(got[1].path, "/bot123:abc/sendPhoto"), got[1].path)
	assert.Contains(t, got[0].fields["chat_id"], "@coins")
	assert.Contains(t, got[0].fields["parse_mode"], "HTML")
	assert.Equal(t, "<b>hi</b>", got[0].fields["text"])
	assert.Equal(t, "https://img.example/a.png", got[1].fields["photo"])
	assert.Equal(t, "caption", got[1].fields["caption"])
}

func TestClient_APIError(t *testing.T) {
	server, _ := botServer(t, http.StatusBadRequest,
		`{"ok":false,"error_code":400,"description":"Bad Request: wrong file identifier/HTTP URL specified"}`)

	client, err := New(Config{BotToken: "t", ChannelID: "c", BaseURL: server.URL})
	require.NoError(t, err)

	err = client.SendPhoto(context.Background(), "https://unreachable.example/x.png", "caption")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sendPhoto")
}

func TestClient_TransportErrorHidesToken(t *testing.T) {
	server, _ := botServer(t, http.StatusOK, `{"ok":true}`)
	url := server.URL
	server.Close()

	client, err := New(Config{BotToken: "secret-token", ChannelID: "c", BaseURL: url})
	require.NoError(t, err)

	err = client.SendMessage(context.Background(), "hi")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}
