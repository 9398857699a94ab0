// Package pinata publishes content through the Pinata upload API.
package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/tendant/content-coin/pkg/contentcoin"
)

const (
	defaultUploadURL = "https://uploads.pinata.cloud/v3/files"
	defaultGateway   = "https://gateway.pinata.cloud/ipfs/"
)

// Config options for the Pinata backend
type Config struct {
	JWT       string // API key JWT
	UploadURL string // Override for the upload endpoint
	Gateway   string // Prefix of gateway URLs, usually a dedicated gateway domain
	Timeout   time.Duration
}

// Backend implements contentcoin.ContentStore on Pinata public uploads.
type Backend struct {
	jwt       string
	uploadURL string
	gateway   string
	client    *http.Client
}

// New fails with contentcoin.ErrMissingCredentials when no JWT is configured.
func New(config Config) (*Backend, error) {
	if strings.TrimSpace(config.JWT) == "" {
		return nil, fmt.Errorf("%w: pinata JWT is required", contentcoin.ErrMissingCredentials)
	}
	if config.UploadURL == "" {
		config.UploadURL = defaultUploadURL
	}
	if config.Gateway == "" {
		config.Gateway = defaultGateway
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &Backend{
		jwt:       config.JWT,
		uploadURL: config.UploadURL,
		gateway:   config.Gateway,
		client:    &http.Client{Timeout: config.Timeout},
	}, nil
}

var _ contentcoin.ContentStore = (*Backend)(nil)

type uploadResponse struct {
	Data struct {
		ID  string `json:"id"`
		CID string `json:"cid"`
	} `json:"data"`
}

// Put uploads blob as a public file and returns its CID.
func (b *Backend) Put(ctx context.Context, blob contentcoin.Blob) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if err := w.WriteField("network", "public"); err != nil {
		return "", err
	}
	if blob.Name != "" {
		if err := w.WriteField("name", blob.Name); err != nil {
			return "", err
		}
	}
	contentType := blob.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, orDefault(blob.Name, "file")))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(blob.Data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.uploadURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+b.jwt)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pinata upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("pinata upload: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode pinata response: %w", err)
	}
	if out.Data.CID == "" {
		return "", fmt.Errorf("pinata upload: response has no cid")
	}
	return out.Data.CID, nil
}

func (b *Backend) GatewayURL(cid string) string {
	return strings.TrimRight(b.gateway, "/") + "/" + cid
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
