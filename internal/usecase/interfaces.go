package usecase

import (
	"context"
	"time"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
)

// ContentStore pins bytes to a content-addressed store and retrieves them by
// CID. Put is idempotent in effect: identical bytes yield identical CIDs.
type ContentStore interface {
	Put(ctx context.Context, data []byte, contentTypeHint string) (string, error)
	Get(ctx context.Context, cid string) ([]byte, error)
	GatewayURL(cid string) string
}

type CertificateRepository interface {
	Append(ctx context.Context, cert domain.Certificate) error
	Latest(ctx context.Context, contentID string) (*domain.Certificate, error)
	History(ctx context.Context, contentID string) ([]domain.Certificate, error)
	ListByContributor(ctx context.Context, contributor string) ([]domain.Certificate, error)
}

type RewardRepository interface {
	Append(ctx context.Context, record domain.RewardRecord) (domain.RewardRecord, error)
	ListByContributor(ctx context.Context, contributor string) ([]domain.RewardRecord, error)
	SumPoints(ctx context.Context, contributor string) (int64, error)
}

type CertificateCache interface {
	Get(contentID string) (domain.Certificate, bool)
	Put(cert domain.Certificate)
}

type VerificationCache interface {
	Get(ctx context.Context, key string) (*domain.VerificationResult, bool, error)
	Put(ctx context.Context, key string, value domain.VerificationResult, ttl time.Duration) error
}

// SubmissionGate rejects submissions the vault's policy does not accept.
// A denial surfaces as a validation error, never as an outage.
type SubmissionGate interface {
	Check(ctx context.Context, sub domain.ContentSubmission) error
}

// AuditSink accepts structured operation events for observability.
type AuditSink interface {
	Record(operation string, success bool, duration time.Duration, metadata map[string]any)
}
