package usecase

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/retry"
)

// VerifyContent checks a piece of content against its ledger anchor and the
// stored metadata. The ledger is authoritative for authenticity; the
// content-addressed store is a secondary integrity witness that may be
// unreachable without making the answer wrong.
type VerifyContent struct {
	Store  ContentStore
	Ledger ledger.Ledger
	Cache  VerificationCache
	Retry  *retry.Executor
	Audit  AuditSink

	CacheTTL time.Duration
}

const defaultVerificationTTL = 5 * time.Minute

func (uc *VerifyContent) Execute(ctx context.Context, contentID string, expectedHash domain.ContentHash) (*domain.VerificationResult, error) {
	started := time.Now()
	result, err := uc.execute(ctx, contentID, expectedHash)
	if uc.Audit != nil {
		uc.Audit.Record("verify_content", err == nil, time.Since(started), map[string]any{
			"content_id": contentID,
		})
	}
	return result, err
}

func (uc *VerifyContent) execute(ctx context.Context, contentID string, expectedHash domain.ContentHash) (*domain.VerificationResult, error) {
	if contentID == "" {
		return nil, fmt.Errorf("%w: content id is required", domain.ErrValidation)
	}

	cacheKey := verificationKey(contentID, expectedHash)
	if uc.Cache != nil {
		if cached, ok, err := uc.Cache.Get(ctx, cacheKey); err != nil {
			log.Printf("verify: cache read for %s failed: %v", contentID, err)
		} else if ok {
			return cached, nil
		}
	}

	record, err := retry.Value(ctx, uc.Retry, "ledger.lookup", func(ctx context.Context) (ledger.Record, error) {
		return uc.Ledger.Lookup(ctx, contentID)
	})
	if err != nil {
		return nil, err
	}
	if !record.Exists {
		return nil, fmt.Errorf("%w: no certificate anchored for %q", domain.ErrNotFound, contentID)
	}

	integrity := uc.checkIntegrity(ctx, record)

	isAuthentic := record.ContentHash == expectedHash
	status := domain.VerificationTampered
	if isAuthentic && integrity == domain.IntegrityOK {
		status = domain.VerificationVerified
	}

	result := &domain.VerificationResult{
		ContentID:     contentID,
		IsAuthentic:   isAuthentic,
		IPFSIntegrity: integrity,
		Status:        status,
		LedgerHash:    record.ContentHash,
		CheckedAt:     time.Now().UTC(),
	}

	if uc.Cache != nil {
		ttl := uc.CacheTTL
		if ttl <= 0 {
			ttl = defaultVerificationTTL
		}
		if err := uc.Cache.Put(ctx, cacheKey, *result, ttl); err != nil {
			log.Printf("verify: cache write for %s failed: %v", contentID, err)
		}
	}
	return result, nil
}

// checkIntegrity fetches the anchored metadata, strips the embedded hash
// field, and recomputes the content hash over the rest. A store outage yields
// an unknown verdict rather than a false mismatch.
func (uc *VerifyContent) checkIntegrity(ctx context.Context, record ledger.Record) domain.IntegrityCheck {
	if record.MetadataCID == "" {
		return domain.IntegrityUnknown
	}
	metadataBytes, err := retry.Value(ctx, uc.Retry, "storage.get_metadata", func(ctx context.Context) ([]byte, error) {
		return uc.Store.Get(ctx, record.MetadataCID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// The CID is anchored but the bytes are gone or were
			// never pinned; that is a mismatch, not an outage.
			return domain.IntegrityMismatch
		}
		return domain.IntegrityUnknown
	}
	recomputed, err := RecomputeStoredHash(metadataBytes)
	if err != nil {
		return domain.IntegrityMismatch
	}
	if recomputed != record.ContentHash {
		return domain.IntegrityMismatch
	}
	return domain.IntegrityOK
}

func verificationKey(contentID string, expectedHash domain.ContentHash) string {
	return contentID + ":" + hex.EncodeToString(expectedHash[:])
}
