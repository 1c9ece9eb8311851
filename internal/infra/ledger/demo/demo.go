package demo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger"
)

// Ledger is the in-process surrogate used when no live backend is
// configured. It satisfies the exact same contract, including the duplicate
// certify rejection, but its state is ephemeral: nothing survives a restart.
type Ledger struct {
	mu      sync.Mutex
	seq     int64
	records map[string][]ledger.Record
	rewards []rewardEntry
	now     func() time.Time
}

type rewardEntry struct {
	Contributor string
	Points      int64
	Reason      string
	TxRef       string
	Timestamp   time.Time
}

func New() *Ledger {
	return &Ledger{
		records: make(map[string][]ledger.Record),
		now:     time.Now,
	}
}

// NewAtTime pins the clock, for deterministic tests.
func NewAtTime(now func() time.Time) *Ledger {
	l := New()
	if now != nil {
		l.now = now
	}
	return l
}

func (l *Ledger) Mode() domain.Mode {
	return domain.ModeDemo
}

func (l *Ledger) Certify(ctx context.Context, req ledger.CertifyRequest) (ledger.CertifyResult, error) {
	if err := ctx.Err(); err != nil {
		return ledger.CertifyResult{}, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records[req.ContentID]) > 0 {
		return ledger.CertifyResult{}, fmt.Errorf("%w: %s", domain.ErrAlreadyCertified, req.ContentID)
	}
	return l.append(req), nil
}

func (l *Ledger) Recertify(ctx context.Context, req ledger.CertifyRequest) (ledger.CertifyResult, error) {
	if err := ctx.Err(); err != nil {
		return ledger.CertifyResult{}, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.append(req), nil
}

// append adds a new history entry; callers hold l.mu.
func (l *Ledger) append(req ledger.CertifyRequest) ledger.CertifyResult {
	l.seq++
	ts := l.now().UTC()
	record := ledger.Record{
		ContentID:   req.ContentID,
		ContentHash: req.ContentHash,
		MetadataCID: req.MetadataCID,
		ContentType: req.ContentType,
		License:     req.License,
		Contributor: req.Contributor,
		Timestamp:   ts,
		Exists:      true,
	}
	l.records[req.ContentID] = append(l.records[req.ContentID], record)
	return ledger.CertifyResult{
		TxRef:    ledger.PseudoTxRef(req.ContentID, req.ContentHash, ts),
		Sequence: l.seq,
	}
}

// Lookup returns the latest history entry for the content id.
func (l *Ledger) Lookup(ctx context.Context, contentID string) (ledger.Record, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Record{}, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	history := l.records[contentID]
	if len(history) == 0 {
		return ledger.Record{Exists: false}, nil
	}
	return history[len(history)-1], nil
}

// History returns every anchored entry for the content id, oldest first.
// Prior certificates are never deleted by recertification.
func (l *Ledger) History(ctx context.Context, contentID string) ([]ledger.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	history := l.records[contentID]
	out := make([]ledger.Record, len(history))
	copy(out, history)
	return out, nil
}

func (l *Ledger) RecordReward(ctx context.Context, contributor string, points int64, reason string) (ledger.RewardResult, error) {
	if err := ctx.Err(); err != nil {
		return ledger.RewardResult{}, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	ts := l.now().UTC()
	txRef := ledger.PseudoTxRef(fmt.Sprintf("%s/%s/%d", contributor, reason, l.seq), domain.ContentHash{}, ts)
	l.rewards = append(l.rewards, rewardEntry{
		Contributor: contributor,
		Points:      points,
		Reason:      reason,
		TxRef:       txRef,
		Timestamp:   ts,
	})
	return ledger.RewardResult{TxRef: txRef}, nil
}

var _ ledger.Ledger = (*Ledger)(nil)
