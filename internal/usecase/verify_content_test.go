package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/cachemem"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ipfsstore"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger/demo"
)

type verifyFixture struct {
	certify *CertifyContent
	verify  *VerifyContent
	store   *ipfsstore.MemStore
	ledger  *countingLedger
}

func newVerifyFixture() *verifyFixture {
	store := ipfsstore.NewMemStore("")
	counted := &countingLedger{inner: demo.New()}
	certify := &CertifyContent{
		Store:  store,
		Ledger: counted,
		Retry:  fastRetry(),
	}
	verify := &VerifyContent{
		Store:    store,
		Ledger:   counted,
		Cache:    cachemem.NewVerificationCache(),
		Retry:    fastRetry(),
		CacheTTL: time.Minute,
	}
	return &verifyFixture{certify: certify, verify: verify, store: store, ledger: counted}
}

func (f *verifyFixture) certified(t *testing.T) domain.Certificate {
	t.Helper()
	outcome, err := f.certify.Execute(context.Background(), conteSubmission())
	if err != nil {
		t.Fatalf("certify: %v", err)
	}
	return outcome.Certificate
}

func TestVerifyContentAuthentic(t *testing.T) {
	f := newVerifyFixture()
	cert := f.certified(t)

	result, err := f.verify.Execute(context.Background(), cert.ContentID, cert.ContentHash)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.IsAuthentic {
		t.Fatal("authentic content reported as not authentic")
	}
	if result.IPFSIntegrity != domain.IntegrityOK {
		t.Fatalf("integrity = %s, want ok", result.IPFSIntegrity)
	}
	if result.Status != domain.VerificationVerified {
		t.Fatalf("status = %s, want VERIFIED", result.Status)
	}
	if result.LedgerHash != cert.ContentHash {
		t.Fatal("ledger hash mismatch in result")
	}
}

func TestVerifyContentHashMismatch(t *testing.T) {
	f := newVerifyFixture()
	cert := f.certified(t)

	wrong := cert.ContentHash
	wrong[0] ^= 0xff
	result, err := f.verify.Execute(context.Background(), cert.ContentID, wrong)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.IsAuthentic {
		t.Fatal("mismatched hash reported authentic")
	}
	if result.Status != domain.VerificationTampered {
		t.Fatalf("status = %s, want TAMPERED", result.Status)
	}
	// The stored bytes themselves are intact.
	if result.IPFSIntegrity != domain.IntegrityOK {
		t.Fatalf("integrity = %s, want ok", result.IPFSIntegrity)
	}
}

func TestVerifyContentTamperedStorage(t *testing.T) {
	f := newVerifyFixture()
	cert := f.certified(t)

	f.store.Corrupt(cert.MetadataCID, []byte(`{"id":"conte_001","title":"alterec"}`))

	result, err := f.verify.Execute(context.Background(), cert.ContentID, cert.ContentHash)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.IPFSIntegrity != domain.IntegrityMismatch {
		t.Fatalf("integrity = %s, want mismatch", result.IPFSIntegrity)
	}
	if result.Status != domain.VerificationTampered {
		t.Fatalf("status = %s, want TAMPERED", result.Status)
	}
	if !result.IsAuthentic {
		t.Fatal("ledger hash still matches; authenticity should hold")
	}
}

func TestVerifyContentStorageUnreachable(t *testing.T) {
	f := newVerifyFixture()
	cert := f.certified(t)

	f.verify.Store = &flakyStore{inner: f.store, failGets: f.verify.Retry.MaxAttempts}

	result, err := f.verify.Execute(context.Background(), cert.ContentID, cert.ContentHash)
	if err != nil {
		t.Fatalf("verify should not fail on a store outage: %v", err)
	}
	if result.IPFSIntegrity != domain.IntegrityUnknown {
		t.Fatalf("integrity = %s, want unknown", result.IPFSIntegrity)
	}
	if result.Status != domain.VerificationTampered {
		t.Fatalf("status = %s, want TAMPERED when integrity is unproven", result.Status)
	}
	if !result.IsAuthentic {
		t.Fatal("authenticity comes from the ledger alone")
	}
}

func TestVerifyContentUnknownID(t *testing.T) {
	f := newVerifyFixture()

	_, err := f.verify.Execute(context.Background(), "conte_missing", domain.ContentHash{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestVerifyContentCachedResult(t *testing.T) {
	f := newVerifyFixture()
	cert := f.certified(t)

	if _, err := f.verify.Execute(context.Background(), cert.ContentID, cert.ContentHash); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	before := f.ledger.lookupCount()
	result, err := f.verify.Execute(context.Background(), cert.ContentID, cert.ContentHash)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if f.ledger.lookupCount() != before {
		t.Fatal("cached verification still consulted the ledger")
	}
	if result.Status != domain.VerificationVerified {
		t.Fatalf("cached status = %s", result.Status)
	}

	// A different expected hash is a different question and misses the cache.
	other := cert.ContentHash
	other[31] ^= 0x01
	if _, err := f.verify.Execute(context.Background(), cert.ContentID, other); err != nil {
		t.Fatalf("verify with other hash: %v", err)
	}
	if f.ledger.lookupCount() != before+1 {
		t.Fatal("distinct expected hash should bypass the cached entry")
	}
}
