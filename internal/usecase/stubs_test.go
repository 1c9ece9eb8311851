package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger/demo"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/retry"
)

func fastRetry() *retry.Executor {
	return retry.NewExecutor(3, time.Millisecond, 2*time.Millisecond)
}

// flakyStore fails the first failPuts Put calls with a transient error, then
// delegates to the wrapped store.
type flakyStore struct {
	inner    ContentStore
	mu       sync.Mutex
	failPuts int
	failGets int
	puts     int
	gets     int
}

func (s *flakyStore) Put(ctx context.Context, data []byte, hint string) (string, error) {
	s.mu.Lock()
	s.puts++
	fail := s.failPuts > 0
	if fail {
		s.failPuts--
	}
	s.mu.Unlock()
	if fail {
		return "", fmt.Errorf("%w: injected put failure", domain.ErrStorageUnavailable)
	}
	return s.inner.Put(ctx, data, hint)
}

func (s *flakyStore) Get(ctx context.Context, cid string) ([]byte, error) {
	s.mu.Lock()
	s.gets++
	fail := s.failGets > 0
	if fail {
		s.failGets--
	}
	s.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("%w: injected get failure", domain.ErrStorageUnavailable)
	}
	return s.inner.Get(ctx, cid)
}

func (s *flakyStore) GatewayURL(cid string) string {
	return s.inner.GatewayURL(cid)
}

// countingLedger tracks calls into a wrapped ledger.
type countingLedger struct {
	inner   ledger.Ledger
	mu      sync.Mutex
	lookups int
}

func (l *countingLedger) Mode() domain.Mode { return l.inner.Mode() }

func (l *countingLedger) Certify(ctx context.Context, req ledger.CertifyRequest) (ledger.CertifyResult, error) {
	return l.inner.Certify(ctx, req)
}

func (l *countingLedger) Recertify(ctx context.Context, req ledger.CertifyRequest) (ledger.CertifyResult, error) {
	return l.inner.Recertify(ctx, req)
}

func (l *countingLedger) Lookup(ctx context.Context, contentID string) (ledger.Record, error) {
	l.mu.Lock()
	l.lookups++
	l.mu.Unlock()
	return l.inner.Lookup(ctx, contentID)
}

func (l *countingLedger) RecordReward(ctx context.Context, contributor string, points int64, reason string) (ledger.RewardResult, error) {
	return l.inner.RecordReward(ctx, contributor, points, reason)
}

func (l *countingLedger) lookupCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lookups
}

// liveStub replays the demo ledger's semantics while presenting itself as a
// live backend with its own tx ref scheme.
type liveStub struct {
	inner *demo.Ledger
}

func newLiveStub() *liveStub {
	return &liveStub{inner: demo.New()}
}

func (l *liveStub) Mode() domain.Mode { return domain.ModeLive }

func (l *liveStub) Certify(ctx context.Context, req ledger.CertifyRequest) (ledger.CertifyResult, error) {
	result, err := l.inner.Certify(ctx, req)
	result.TxRef = rebrandTxRef(result.TxRef)
	return result, err
}

func (l *liveStub) Recertify(ctx context.Context, req ledger.CertifyRequest) (ledger.CertifyResult, error) {
	result, err := l.inner.Recertify(ctx, req)
	result.TxRef = rebrandTxRef(result.TxRef)
	return result, err
}

func (l *liveStub) Lookup(ctx context.Context, contentID string) (ledger.Record, error) {
	return l.inner.Lookup(ctx, contentID)
}

func (l *liveStub) RecordReward(ctx context.Context, contributor string, points int64, reason string) (ledger.RewardResult, error) {
	result, err := l.inner.RecordReward(ctx, contributor, points, reason)
	result.TxRef = rebrandTxRef(result.TxRef)
	return result, err
}

func rebrandTxRef(ref string) string {
	return "0xlive" + strings.TrimPrefix(ref, "demo-")
}

// denyAllGate rejects every submission.
type denyAllGate struct{}

func (denyAllGate) Check(ctx context.Context, sub domain.ContentSubmission) error {
	return fmt.Errorf("%w: submission rejected by policy", domain.ErrValidation)
}

func conteSubmission() domain.ContentSubmission {
	return domain.ContentSubmission{
		ID:          "conte_001",
		Title:       "Le lievre et la hyene",
		Content:     "Un conte traditionnel du Senegal sur la ruse du lievre.",
		ContentType: "conte",
		Language:    "wolof",
		Origin:      "Senegal",
		License:     "CC-BY-4.0",
		Contributor: "0x1111111111111111111111111111111111111111",
	}
}
