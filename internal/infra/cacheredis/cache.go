package cacheredis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
)

const keyPrefix = "nkwa:verification:"

// VerificationCache stores verification results in Redis with a TTL, so
// repeated verification queries for hot content skip the ledger and storage
// round trips. Cache misses and Redis failures both fall through to a full
// verification; the cache is never authoritative.
type VerificationCache struct {
	client *redis.Client
}

func New(addr, password string, db int) (*VerificationCache, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &VerificationCache{client: client}, nil
}

func (c *VerificationCache) Get(ctx context.Context, key string) (*domain.VerificationResult, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var value domain.VerificationResult
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, err
	}
	return &value, true, nil
}

func (c *VerificationCache) Put(ctx context.Context, key string, value domain.VerificationResult, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, raw, ttl).Err()
}

func (c *VerificationCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
