package ipfsstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
)

// MemStore is the demo-mode surrogate for the IPFS adapter: the same
// contract, addressed by genuine CIDs, held in process memory only.
type MemStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	gateway string
}

func NewMemStore(gatewayURL string) *MemStore {
	if gatewayURL == "" {
		gatewayURL = DefaultGatewayURL
	}
	return &MemStore{
		objects: make(map[string][]byte),
		gateway: gatewayURL,
	}
}

func (m *MemStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemStore) Put(ctx context.Context, data []byte, contentTypeHint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}
	id, err := computeCID(data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[id] = stored
	return id, nil
}

func (m *MemStore) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemStore) GatewayURL(id string) string {
	return GatewayURL(m.gateway, id)
}

// Corrupt overwrites stored bytes in place, for tamper-detection tests.
func (m *MemStore) Corrupt(id string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[id] = data
}

func computeCID(data []byte) (string, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEncoding, err)
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}
