package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/tendant/content-coin/pkg/contentcoin"
)

const (
	maxUploadSize   = 64 << 20
	maxMemoryUpload = 32 << 20
)

// requestError is a client mistake answered with 400 and its message.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// CoinForm is the content and the coin parameters of a request. Multipart
// requests carry an uploaded image or track; JSON requests a scraped blog
// post.
type CoinForm struct {
	Source           contentcoin.ContentSource
	Name             string
	Symbol           string
	Email            string
	PayoutRecipient  string
	PlatformReferrer string
}

// BlogRequest is the JSON body of blog coin requests.
type BlogRequest struct {
	BlogData         *contentcoin.ScrapedArticle `json:"blogData"`
	Name             string                      `json:"name,omitempty"`
	Symbol           string                      `json:"symbol,omitempty"`
	Email            string                      `json:"email,omitempty"`
	PayoutRecipient  string                      `json:"payoutRecipient,omitempty"`
	PlatformReferrer string                      `json:"platformReferrer,omitempty"`
}

func parseCoinForm(w http.ResponseWriter, r *http.Request) (*CoinForm, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return parseUploadForm(w, r)
	}

	var req BlogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, badRequest("Invalid request body")
	}
	if req.BlogData == nil {
		return nil, badRequest("Blog data is required")
	}
	return &CoinForm{
		Source:           contentcoin.BlogSource{Article: *req.BlogData},
		Name:             req.Name,
		Symbol:           req.Symbol,
		Email:            req.Email,
		PayoutRecipient:  req.PayoutRecipient,
		PlatformReferrer: req.PlatformReferrer,
	}, nil
}

func parseUploadForm(w http.ResponseWriter, r *http.Request) (*CoinForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxMemoryUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, badRequest("Upload exceeds %d bytes", tooLarge.Limit)
		}
		return nil, badRequest("Invalid multipart form")
	}

	form := &CoinForm{
		Name:             r.FormValue("name"),
		Symbol:           r.FormValue("symbol"),
		Email:            r.FormValue("email"),
		PayoutRecipient:  r.FormValue("payoutRecipient"),
		PlatformReferrer: r.FormValue("platformReferrer"),
	}
	description := r.FormValue("description")

	switch kind := contentcoin.ContentKind(strings.ToLower(r.FormValue("kind"))); kind {
	case "", contentcoin.KindImage:
		image, err := formFile(r, "image")
		if err != nil {
			return nil, err
		}
		if image == nil {
			return nil, badRequest("Image file is required")
		}
		form.Source = contentcoin.ImageSource{Name: form.Name, Symbol: form.Symbol, Description: description, File: image}
	case contentcoin.KindMusic:
		audio, err := formFile(r, "audio")
		if err != nil {
			return nil, err
		}
		if audio == nil {
			return nil, badRequest("Audio file is required")
		}
		cover, err := formFile(r, "cover")
		if err != nil {
			return nil, err
		}
		form.Source = contentcoin.MusicSource{Name: form.Name, Symbol: form.Symbol, Description: description, Audio: audio, Cover: cover}
	default:
		return nil, badRequest("Unsupported content kind %q", kind)
	}
	return form, nil
}

// formFile reads an uploaded file. A missing field yields nil, nil.
func formFile(r *http.Request, field string) (*contentcoin.Blob, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, badRequest("Invalid %s file", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return &contentcoin.Blob{Name: header.Filename, MimeType: mimeType, Data: data}, nil
}
