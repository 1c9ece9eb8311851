package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/retry"
)

// CertificateQuery answers read-only certificate questions. It prefers the
// local cache and repository and falls back to the ledger, so lookups still
// work on a fresh process that has certified nothing itself.
type CertificateQuery struct {
	Ledger       ledger.Ledger
	Certificates CertificateRepository
	Cache        CertificateCache
	Retry        *retry.Executor
}

func (q *CertificateQuery) Latest(ctx context.Context, contentID string) (*domain.Certificate, error) {
	if contentID == "" {
		return nil, fmt.Errorf("%w: content id is required", domain.ErrValidation)
	}
	if q.Cache != nil {
		if cert, ok := q.Cache.Get(contentID); ok {
			return &cert, nil
		}
	}
	if q.Certificates != nil {
		cert, err := q.Certificates.Latest(ctx, contentID)
		if err == nil {
			if q.Cache != nil {
				q.Cache.Put(*cert)
			}
			return cert, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	record, err := retry.Value(ctx, q.Retry, "ledger.lookup", func(ctx context.Context) (ledger.Record, error) {
		return q.Ledger.Lookup(ctx, contentID)
	})
	if err != nil {
		return nil, err
	}
	if !record.Exists {
		return nil, fmt.Errorf("%w: no certificate for %q", domain.ErrNotFound, contentID)
	}
	cert := certificateFromRecord(record, q.Ledger.Mode())
	if q.Cache != nil {
		q.Cache.Put(cert)
	}
	return &cert, nil
}

func (q *CertificateQuery) History(ctx context.Context, contentID string) ([]domain.Certificate, error) {
	if contentID == "" {
		return nil, fmt.Errorf("%w: content id is required", domain.ErrValidation)
	}
	if q.Certificates == nil {
		return nil, fmt.Errorf("%w: certificate history requires a repository", domain.ErrNotFound)
	}
	return q.Certificates.History(ctx, contentID)
}

func (q *CertificateQuery) ListByContributor(ctx context.Context, contributor string) ([]domain.Certificate, error) {
	if contributor == "" {
		return nil, fmt.Errorf("%w: contributor is required", domain.ErrValidation)
	}
	if q.Certificates == nil {
		return nil, nil
	}
	return q.Certificates.ListByContributor(ctx, contributor)
}

// certificateFromRecord rebuilds the externally visible certificate from the
// ledger's record. Ledger records do not carry the tx ref of the original
// anchoring, so the rebuilt certificate reports what the ledger knows.
func certificateFromRecord(record ledger.Record, mode domain.Mode) domain.Certificate {
	return domain.Certificate{
		ContentID:   record.ContentID,
		ContentHash: record.ContentHash,
		MetadataCID: record.MetadataCID,
		ContentType: record.ContentType,
		License:     record.License,
		Contributor: record.Contributor,
		Status:      domain.StatusCertified,
		Mode:        mode,
		Timestamp:   record.Timestamp,
	}
}
