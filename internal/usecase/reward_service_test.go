package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/histmem"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger/demo"
)

const contributor = "0x2222222222222222222222222222222222222222"

func newRewardService() *RewardService {
	return &RewardService{
		Ledger:  demo.New(),
		Rewards: histmem.NewRewardRepository(),
		Retry:   fastRetry(),
	}
}

func TestRewardServiceQualityScaling(t *testing.T) {
	cases := []struct {
		name    string
		reason  domain.ContributionType
		quality any
		want    int64
	}{
		{"upload base rate", domain.ContributionUpload, nil, 10},
		{"upload quality 3", domain.ContributionUpload, 3.0, 30},
		{"upload quality clamped", domain.ContributionUpload, 5.0, 30},
		{"upload quality below floor", domain.ContributionUpload, 0.2, 10},
		{"upload fractional floors", domain.ContributionUpload, 1.55, 15},
		{"verification base rate", domain.ContributionVerification, nil, 5},
		{"translation quality 2", domain.ContributionTranslation, 2, 30},
		{"curation base rate", domain.ContributionCuration, nil, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newRewardService()
			req := AwardRequest{Contributor: contributor, Reason: tc.reason}
			if tc.quality != nil {
				req.Metadata = map[string]any{"quality": tc.quality}
			}
			record, err := svc.Award(context.Background(), req)
			if err != nil {
				t.Fatalf("award: %v", err)
			}
			if record.Points != tc.want {
				t.Fatalf("points = %d, want %d", record.Points, tc.want)
			}
			if record.LedgerTxRef == "" {
				t.Fatal("reward was not anchored")
			}
			if record.Mode != domain.ModeDemo {
				t.Fatalf("mode = %s", record.Mode)
			}
		})
	}
}

func TestRewardServiceUnknownContribution(t *testing.T) {
	svc := newRewardService()
	_, err := svc.Award(context.Background(), AwardRequest{
		Contributor: contributor,
		Reason:      domain.ContributionType("CONTENT_DANCE"),
	})
	if !errors.Is(err, domain.ErrUnknownContributionType) {
		t.Fatalf("err = %v, want unknown contribution type", err)
	}
}

func TestRewardServiceRequiresContributor(t *testing.T) {
	svc := newRewardService()
	if _, err := svc.Award(context.Background(), AwardRequest{Reason: domain.ContributionUpload}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("award err = %v, want validation", err)
	}
	if _, err := svc.BalanceOf(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("balance err = %v, want validation", err)
	}
}

func TestRewardServiceBalanceAccumulates(t *testing.T) {
	svc := newRewardService()

	awards := []AwardRequest{
		{Contributor: contributor, Reason: domain.ContributionUpload},
		{Contributor: contributor, Reason: domain.ContributionCuration, Metadata: map[string]any{"quality": 3.0}},
		{Contributor: contributor, Reason: domain.ContributionVerification},
	}
	var previous int64
	for _, req := range awards {
		if _, err := svc.Award(context.Background(), req); err != nil {
			t.Fatalf("award: %v", err)
		}
		balance, err := svc.BalanceOf(context.Background(), contributor)
		if err != nil {
			t.Fatalf("balance: %v", err)
		}
		if balance <= previous {
			t.Fatalf("balance did not grow: %d -> %d", previous, balance)
		}
		previous = balance
	}
	if previous != 10+60+5 {
		t.Fatalf("final balance = %d, want 75", previous)
	}

	history, err := svc.History(context.Background(), contributor)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
}

func TestRewardServiceStanding(t *testing.T) {
	svc := newRewardService()

	standing, err := svc.StandingOf(context.Background(), contributor)
	if err != nil {
		t.Fatalf("standing: %v", err)
	}
	if standing.Current != "Apprentice" || standing.Next != "Storyteller" {
		t.Fatalf("fresh contributor standing = %+v", standing)
	}
	if standing.ProgressPercent != 0 {
		t.Fatalf("progress = %v, want 0", standing.ProgressPercent)
	}

	// Five max-quality curations put the contributor exactly at Storyteller.
	for i := 0; i < 5; i++ {
		if _, err := svc.Award(context.Background(), AwardRequest{
			Contributor: contributor,
			Reason:      domain.ContributionCuration,
			Metadata:    map[string]any{"quality": 3.0},
		}); err != nil {
			t.Fatalf("award %d: %v", i, err)
		}
	}
	standing, err = svc.StandingOf(context.Background(), contributor)
	if err != nil {
		t.Fatalf("standing: %v", err)
	}
	if standing.Points != 300 {
		t.Fatalf("points = %d, want 300", standing.Points)
	}
	if standing.Current != "Storyteller" || standing.Next != "Griot" {
		t.Fatalf("standing = %+v", standing)
	}
	if standing.ProgressPercent != 50 {
		t.Fatalf("progress = %v, want 50", standing.ProgressPercent)
	}
}

func TestLevelOfTopLevelClamped(t *testing.T) {
	standing := domain.LevelOf(10000)
	if standing.Current != "Elder" {
		t.Fatalf("current = %s, want Elder", standing.Current)
	}
	if standing.Next != "" {
		t.Fatalf("next = %s, want none", standing.Next)
	}
	if standing.ProgressPercent != 100 {
		t.Fatalf("progress = %v, want 100", standing.ProgressPercent)
	}
}
