package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
)

// CertifyRequest carries everything a backend needs to anchor one
// certification of a piece of content.
type CertifyRequest struct {
	ContentID   string
	ContentHash domain.ContentHash
	MetadataCID string
	ContentType string
	License     string
	Contributor string
}

// CertifyResult identifies the backend-level record that was created.
// Sequence is the topic sequence number for the consensus backend and the
// block number for the registry backend.
type CertifyResult struct {
	TxRef    string
	Sequence int64
}

// Record is the ledger's view of a certified content id. Absence is reported
// through Exists, not through an error.
type Record struct {
	ContentID   string
	ContentHash domain.ContentHash
	MetadataCID string
	ContentType string
	License     string
	Contributor string
	Timestamp   time.Time
	Exists      bool
}

type RewardResult struct {
	TxRef string
}

// Ledger is the capability contract shared by both backends and the demo
// surrogate. Certify fails with domain.ErrAlreadyCertified when the content
// id is already anchored; Recertify always appends a fresh record for an
// existing id. Neither ever mutates a prior on-ledger entry.
type Ledger interface {
	Mode() domain.Mode
	Certify(ctx context.Context, req CertifyRequest) (CertifyResult, error)
	Recertify(ctx context.Context, req CertifyRequest) (CertifyResult, error)
	Lookup(ctx context.Context, contentID string) (Record, error)
	RecordReward(ctx context.Context, contributor string, points int64, reason string) (RewardResult, error)
}

// PseudoTxRef derives the deterministic transaction reference demo mode uses
// in place of a real ledger receipt.
func PseudoTxRef(contentID string, contentHash domain.ContentHash, ts time.Time) string {
	h := sha256.New()
	h.Write([]byte(contentID))
	h.Write(contentHash[:])
	h.Write([]byte(strconv.FormatInt(ts.UTC().Unix(), 10)))
	return "demo-" + hex.EncodeToString(h.Sum(nil))[:40]
}
