package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
)

// RewardRepository persists reward events append-only. Balances are always
// recomputed by summation; no counter column exists to drift.
type RewardRepository struct {
	db *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

func (r *RewardRepository) Append(ctx context.Context, record domain.RewardRecord) (domain.RewardRecord, error) {
	if r.db == nil {
		return domain.RewardRecord{}, errDBUnavailable
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	record.Timestamp = record.Timestamp.UTC().Truncate(time.Microsecond)

	var metadataJSON []byte
	if len(record.Metadata) > 0 {
		encoded, err := json.Marshal(record.Metadata)
		if err != nil {
			return domain.RewardRecord{}, err
		}
		metadataJSON = encoded
	}
	model := RewardEventModel{
		ID:          record.ID,
		Contributor: record.Contributor,
		Points:      record.Points,
		Reason:      string(record.Reason),
		Metadata:    metadataJSON,
		LedgerTxRef: record.LedgerTxRef,
		Mode:        string(record.Mode),
		CreatedAt:   record.Timestamp,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.RewardRecord{}, err
	}
	return record, nil
}

func (r *RewardRepository) ListByContributor(ctx context.Context, contributor string) ([]domain.RewardRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []RewardEventModel
	if err := r.db.WithContext(ctx).
		Where("contributor = ?", contributor).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.RewardRecord, 0, len(models))
	for _, model := range models {
		record := domain.RewardRecord{
			ID:          model.ID,
			Contributor: model.Contributor,
			Points:      model.Points,
			Reason:      domain.ContributionType(model.Reason),
			LedgerTxRef: model.LedgerTxRef,
			Mode:        domain.Mode(model.Mode),
			Timestamp:   model.CreatedAt.UTC(),
		}
		if len(model.Metadata) > 0 {
			if err := json.Unmarshal(model.Metadata, &record.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, record)
	}
	return out, nil
}

// SumPoints computes the balance directly in the database. It must agree
// with summing ListByContributor; both read the same append-only rows.
func (r *RewardRepository) SumPoints(ctx context.Context, contributor string) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	var total int64
	err := r.db.WithContext(ctx).
		Model(&RewardEventModel{}).
		Where("contributor = ?", contributor).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
