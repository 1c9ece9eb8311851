package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/retry"
)

// RewardService grants points for contributions and answers balance and level
// queries. Grants are anchored on the ledger first and projected into the
// repository second; the repository is the queryable source for balances.
type RewardService struct {
	Ledger  ledger.Ledger
	Rewards RewardRepository
	Retry   *retry.Executor
	Audit   AuditSink
}

// AwardRequest describes one contribution to reward. Metadata travels with
// the record; a "quality" entry between 1 and 3 scales the base rate.
type AwardRequest struct {
	Contributor string
	Reason      domain.ContributionType
	Metadata    map[string]any
}

func (s *RewardService) Award(ctx context.Context, req AwardRequest) (*domain.RewardRecord, error) {
	started := time.Now()
	record, err := s.award(ctx, req)
	if s.Audit != nil {
		s.Audit.Record("award_reward", err == nil, time.Since(started), map[string]any{
			"contributor": req.Contributor,
			"reason":      string(req.Reason),
		})
	}
	return record, err
}

func (s *RewardService) award(ctx context.Context, req AwardRequest) (*domain.RewardRecord, error) {
	if req.Contributor == "" {
		return nil, fmt.Errorf("%w: contributor is required", domain.ErrValidation)
	}
	rate, ok := domain.RewardRates[req.Reason]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownContributionType, req.Reason)
	}

	points := int64(math.Floor(float64(rate) * qualityMultiplier(req.Metadata)))
	if points <= 0 {
		return nil, fmt.Errorf("%w: computed reward for %q is not positive", domain.ErrValidation, req.Reason)
	}

	result, err := retry.Value(ctx, s.Retry, "ledger.record_reward", func(ctx context.Context) (ledger.RewardResult, error) {
		return s.Ledger.RecordReward(ctx, req.Contributor, points, string(req.Reason))
	})
	if err != nil {
		return nil, err
	}

	record := domain.RewardRecord{
		Contributor: req.Contributor,
		Points:      points,
		Reason:      req.Reason,
		Metadata:    req.Metadata,
		LedgerTxRef: result.TxRef,
		Mode:        s.Ledger.Mode(),
		Timestamp:   time.Now().UTC(),
	}
	stored, err := s.Rewards.Append(ctx, record)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// BalanceOf sums a contributor's append-only reward records.
func (s *RewardService) BalanceOf(ctx context.Context, contributor string) (int64, error) {
	if contributor == "" {
		return 0, fmt.Errorf("%w: contributor is required", domain.ErrValidation)
	}
	return s.Rewards.SumPoints(ctx, contributor)
}

// StandingOf reports the contributor's level derived from their balance.
func (s *RewardService) StandingOf(ctx context.Context, contributor string) (*domain.LevelStanding, error) {
	balance, err := s.BalanceOf(ctx, contributor)
	if err != nil {
		return nil, err
	}
	standing := domain.LevelOf(balance)
	return &standing, nil
}

func (s *RewardService) History(ctx context.Context, contributor string) ([]domain.RewardRecord, error) {
	if contributor == "" {
		return nil, fmt.Errorf("%w: contributor is required", domain.ErrValidation)
	}
	return s.Rewards.ListByContributor(ctx, contributor)
}

// qualityMultiplier reads an optional "quality" metadata entry. Values below
// 1 and non-numeric values fall back to 1; values above the cap clamp to it.
func qualityMultiplier(metadata map[string]any) float64 {
	raw, ok := metadata["quality"]
	if !ok {
		return 1
	}
	var quality float64
	switch v := raw.(type) {
	case float64:
		quality = v
	case int:
		quality = float64(v)
	case int64:
		quality = float64(v)
	default:
		return 1
	}
	if quality < 1 || math.IsNaN(quality) {
		return 1
	}
	if quality > domain.MaxQualityMultiplier {
		return domain.MaxQualityMultiplier
	}
	return quality
}
