package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/tendant/content-coin/pkg/contentcoin"
	"github.com/tendant/content-coin/pkg/contentcoin/cid"
)

// Object is a stored blob.
type Object struct {
	Name     string
	MimeType string
	Data     []byte
}

// Backend is an in-memory implementation of contentcoin.ContentStore
type Backend struct {
	mu      sync.RWMutex
	objects map[string]Object
	gateway string
}

// New creates a new in-memory content store. gateway is the prefix of
// gateway URLs, for example "https://ipfs.io/ipfs/".
func New(gateway string) *Backend {
	if gateway == "" {
		gateway = "https://ipfs.io/ipfs/"
	}
	return &Backend{
		objects: make(map[string]Object),
		gateway: gateway,
	}
}

var _ contentcoin.ContentStore = (*Backend)(nil)

// Put stores the blob under its content identifier.
func (b *Backend) Put(ctx context.Context, blob contentcoin.Blob) (string, error) {
	id, err := cid.Sum(blob.Data)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[id]; !exists {
		data := make([]byte, len(blob.Data))
		copy(data, blob.Data)
		b.objects[id] = Object{Name: blob.Name, MimeType: blob.MimeType, Data: data}
	}
	return id, nil
}

// Get returns a stored object.
func (b *Backend) Get(id string) (Object, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.objects[id]
	return obj, ok
}

// Len is the number of distinct objects stored.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

func (b *Backend) GatewayURL(id string) string {
	return gatewayURL(b.gateway, id)
}

func gatewayURL(prefix, id string) string {
	return strings.TrimRight(prefix, "/") + "/" + id
}
