package contentcoin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

const metadataFilename = "metadata.json"

// IPFSURI renders the ipfs:// URI of a content identifier.
func IPFSURI(cid string) string {
	return "ipfs://" + cid
}

// Publisher uploads binaries and metadata documents to a ContentStore.
type Publisher struct {
	store      ContentStore
	maxRetries uint64
	baseDelay  time.Duration
	logger     *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithUploadRetries sets how often a failed upload is retried and the first
// backoff delay.
func WithUploadRetries(maxRetries uint64, baseDelay time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.maxRetries = maxRetries
		p.baseDelay = baseDelay
	}
}

// WithPublisherLogger sets the logger.
func WithPublisherLogger(l *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = l
	}
}

func NewPublisher(store ContentStore, opts ...PublisherOption) (*Publisher, error) {
	if store == nil {
		return nil, errors.New("content store is required")
	}
	p := &Publisher{
		store:      store,
		maxRetries: 3,
		baseDelay:  200 * time.Millisecond,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish uploads n's binaries first, points the document at them, then
// uploads the document itself. Nothing is returned unless every upload was
// accepted.
func (p *Publisher) Publish(ctx context.Context, n *Normalized) (*PublishedContent, error) {
	doc := n.Document
	doc.Attributes = append([]Attribute(nil), n.Document.Attributes...)
	var binaryCID string

	if n.Binary != nil {
		cid, err := p.put(ctx, "binary", *n.Binary)
		if err != nil {
			return nil, err
		}
		binaryCID = cid
		uri := IPFSURI(cid)
		if doc.Type == KindMusic {
			doc.AnimationURL = uri
			doc.Content = &ContentRef{URI: uri, Mime: n.Binary.MimeType}
		} else {
			doc.Image = uri
		}
	}
	if n.Cover != nil {
		cid, err := p.put(ctx, "cover", *n.Cover)
		if err != nil {
			return nil, err
		}
		doc.Image = IPFSURI(cid)
	}

	if doc.Name == "" || doc.Description == "" || !doc.Type.Valid() {
		return nil, &ValidationError{Field: "metadata", Reason: "name, description and type are required"}
	}
	if doc.Type != KindBlog && doc.Image == "" {
		return nil, &ValidationError{Field: "image", Reason: "is required"}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, &PublishError{Op: "encode metadata", Err: err}
	}
	cid, err := p.put(ctx, "metadata", Blob{Name: metadataFilename, MimeType: "application/json", Data: data})
	if err != nil {
		return nil, err
	}

	return &PublishedContent{
		CID:          cid,
		URI:          IPFSURI(cid),
		GatewayURL:   p.store.GatewayURL(cid),
		Metadata:     doc,
		MetadataJSON: data,
		BinaryCID:    binaryCID,
	}, nil
}

// put retries an upload with exponential backoff. Retrying is safe because
// the store deduplicates identical bytes.
func (p *Publisher) put(ctx context.Context, op string, blob Blob) (string, error) {
	var cid string
	backoff := retry.WithMaxRetries(p.maxRetries, retry.NewExponential(p.baseDelay))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		var err error
		cid, err = p.store.Put(ctx, blob)
		if err != nil {
			p.logger.Warn("Upload failed", "op", op, "name", blob.Name, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		if cid == "" {
			return errors.New("store returned an empty content identifier")
		}
		return nil
	})
	if err != nil {
		return "", &PublishError{Op: "upload " + op, Err: err}
	}
	return cid, nil
}
