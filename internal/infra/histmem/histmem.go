package histmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
)

// In-process history repositories for deployments without postgres. Same
// append-only semantics as the relational ones, explicitly non-durable.

type CertificateRepository struct {
	mu      sync.Mutex
	history map[string][]domain.Certificate
}

func NewCertificateRepository() *CertificateRepository {
	return &CertificateRepository{
		history: make(map[string][]domain.Certificate),
	}
}

func (r *CertificateRepository) Append(ctx context.Context, cert domain.Certificate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[cert.ContentID] = append(r.history[cert.ContentID], cert)
	return nil
}

func (r *CertificateRepository) Latest(ctx context.Context, contentID string) (*domain.Certificate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.history[contentID]
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, contentID)
	}
	cert := entries[len(entries)-1]
	return &cert, nil
}

func (r *CertificateRepository) History(ctx context.Context, contentID string) ([]domain.Certificate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.history[contentID]
	out := make([]domain.Certificate, len(entries))
	copy(out, entries)
	return out, nil
}

func (r *CertificateRepository) ListByContributor(ctx context.Context, contributor string) ([]domain.Certificate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Certificate
	for _, entries := range r.history {
		for _, cert := range entries {
			if cert.Contributor == contributor {
				out = append(out, cert)
			}
		}
	}
	return out, nil
}

type RewardRepository struct {
	mu      sync.Mutex
	records []domain.RewardRecord
}

func NewRewardRepository() *RewardRepository {
	return &RewardRepository{}
}

func (r *RewardRepository) Append(ctx context.Context, record domain.RewardRecord) (domain.RewardRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.RewardRecord{}, err
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return record, nil
}

func (r *RewardRepository) ListByContributor(ctx context.Context, contributor string) ([]domain.RewardRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.RewardRecord
	for _, record := range r.records {
		if record.Contributor == contributor {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *RewardRepository) SumPoints(ctx context.Context, contributor string) (int64, error) {
	records, err := r.ListByContributor(ctx, contributor)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, record := range records {
		total += record.Points
	}
	return total, nil
}
