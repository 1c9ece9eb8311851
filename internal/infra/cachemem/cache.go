package cachemem

import (
	"context"
	"sync"
	"time"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
)

// VerificationCache is a mutex-guarded TTL map for verification results. It
// is explicitly non-durable: entries exist only for the process lifetime.
type VerificationCache struct {
	mu      sync.Mutex
	entries map[string]verificationEntry
}

type verificationEntry struct {
	value     domain.VerificationResult
	expiresAt time.Time
	hasExpiry bool
}

func NewVerificationCache() *VerificationCache {
	return &VerificationCache{
		entries: make(map[string]verificationEntry),
	}
}

func (c *VerificationCache) Get(ctx context.Context, key string) (*domain.VerificationResult, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if entry.hasExpiry && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	value := entry.value
	return &value, true, nil
}

func (c *VerificationCache) Put(ctx context.Context, key string, value domain.VerificationResult, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := verificationEntry{value: value}
	if ttl > 0 {
		entry.hasExpiry = true
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

// CertificateCache keeps the most recent Certificate per content id for fast
// lookups. The ledger remains the source of truth; this is best effort.
type CertificateCache struct {
	mu      sync.RWMutex
	entries map[string]domain.Certificate
}

func NewCertificateCache() *CertificateCache {
	return &CertificateCache{
		entries: make(map[string]domain.Certificate),
	}
}

func (c *CertificateCache) Get(contentID string) (domain.Certificate, bool) {
	if c == nil {
		return domain.Certificate{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	cert, ok := c.entries[contentID]
	return cert, ok
}

func (c *CertificateCache) Put(cert domain.Certificate) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cert.ContentID] = cert
}
