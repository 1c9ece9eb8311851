package usecase

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/cachemem"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/histmem"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ipfsstore"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger/demo"
)

func newCertifyFixture() (*CertifyContent, *ipfsstore.MemStore, *demo.Ledger, *histmem.CertificateRepository) {
	store := ipfsstore.NewMemStore("")
	dl := demo.New()
	repo := histmem.NewCertificateRepository()
	uc := &CertifyContent{
		Store:        store,
		Ledger:       dl,
		Certificates: repo,
		Cache:        cachemem.NewCertificateCache(),
		Retry:        fastRetry(),
	}
	return uc, store, dl, repo
}

func TestCertifyContentRoundTrip(t *testing.T) {
	uc, store, _, repo := newCertifyFixture()

	outcome, err := uc.Execute(context.Background(), conteSubmission())
	if err != nil {
		t.Fatalf("certify: %v", err)
	}
	cert := outcome.Certificate
	if cert.Status != domain.StatusCertified {
		t.Fatalf("status = %s, want CERTIFIED", cert.Status)
	}
	if cert.Mode != domain.ModeDemo {
		t.Fatalf("mode = %s, want demo", cert.Mode)
	}
	if cert.MetadataCID == "" || cert.LedgerTxRef == "" {
		t.Fatalf("incomplete certificate: %+v", cert)
	}
	if !strings.HasPrefix(cert.LedgerTxRef, "demo-") {
		t.Fatalf("demo tx ref = %q", cert.LedgerTxRef)
	}
	if len(outcome.MediaFailures) != 0 {
		t.Fatalf("unexpected media failures: %v", outcome.MediaFailures)
	}

	metadataBytes, err := store.Get(context.Background(), cert.MetadataCID)
	if err != nil {
		t.Fatalf("fetch metadata: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(metadataBytes, &doc); err != nil {
		t.Fatalf("metadata is not JSON: %v", err)
	}
	if got := doc["content_hash"]; got != hex.EncodeToString(cert.ContentHash[:]) {
		t.Fatalf("embedded hash = %v, want %s", got, hex.EncodeToString(cert.ContentHash[:]))
	}
	recomputed, err := RecomputeStoredHash(metadataBytes)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if recomputed != cert.ContentHash {
		t.Fatal("recomputed hash does not match certificate")
	}

	latest, err := repo.Latest(context.Background(), cert.ContentID)
	if err != nil {
		t.Fatalf("history latest: %v", err)
	}
	if latest.LedgerTxRef != cert.LedgerTxRef {
		t.Fatal("repository did not record the certificate")
	}
}

func TestCertifyContentDeterministicHash(t *testing.T) {
	first, _, _, _ := newCertifyFixture()
	second, _, _, _ := newCertifyFixture()

	a, err := first.Execute(context.Background(), conteSubmission())
	if err != nil {
		t.Fatalf("first certify: %v", err)
	}
	b, err := second.Execute(context.Background(), conteSubmission())
	if err != nil {
		t.Fatalf("second certify: %v", err)
	}
	if a.Certificate.ContentHash != b.Certificate.ContentHash {
		t.Fatal("identical submissions produced different hashes")
	}
}

func TestCertifyContentRecertifies(t *testing.T) {
	uc, _, dl, repo := newCertifyFixture()

	first, err := uc.Execute(context.Background(), conteSubmission())
	if err != nil {
		t.Fatalf("first certify: %v", err)
	}

	updated := conteSubmission()
	updated.Content = "Version corrigee apres relecture par un ancien."
	second, err := uc.Execute(context.Background(), updated)
	if err != nil {
		t.Fatalf("recertify: %v", err)
	}
	if second.Certificate.Status != domain.StatusRecertified {
		t.Fatalf("status = %s, want RECERTIFIED", second.Certificate.Status)
	}
	if second.Certificate.ContentHash == first.Certificate.ContentHash {
		t.Fatal("recertification kept the stale hash")
	}

	record, err := dl.Lookup(context.Background(), "conte_001")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if record.ContentHash != second.Certificate.ContentHash {
		t.Fatal("ledger does not reflect the latest certification")
	}
	history, err := repo.History(context.Background(), "conte_001")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
}

func TestCertifyContentMediaFailureIsolated(t *testing.T) {
	uc, _, _, _ := newCertifyFixture()
	flaky := &flakyStore{inner: ipfsstore.NewMemStore(""), failPuts: uc.Retry.MaxAttempts}
	uc.Store = flaky

	sub := conteSubmission()
	sub.Media = []domain.MediaFile{
		{Filename: "griot.mp3", MimeType: "audio/mpeg", Bytes: []byte("audio payload")},
	}

	outcome, err := uc.Execute(context.Background(), sub)
	if err != nil {
		t.Fatalf("certify should survive a media failure: %v", err)
	}
	if len(outcome.MediaFailures) != 1 || outcome.MediaFailures[0].Filename != "griot.mp3" {
		t.Fatalf("media failures = %v", outcome.MediaFailures)
	}
	if !errors.Is(outcome.MediaFailures[0].Err, domain.ErrStorageUnavailable) {
		t.Fatalf("failure cause = %v", outcome.MediaFailures[0].Err)
	}
	if len(outcome.Certificate.MediaCIDs) != 0 {
		t.Fatalf("media cids = %v, want none", outcome.Certificate.MediaCIDs)
	}
	if outcome.Certificate.MetadataCID == "" {
		t.Fatal("metadata was not pinned")
	}
}

func TestCertifyContentMetadataFailureFatal(t *testing.T) {
	uc, _, _, _ := newCertifyFixture()
	uc.Store = &flakyStore{inner: ipfsstore.NewMemStore(""), failPuts: uc.Retry.MaxAttempts}

	// No media: the only Put is the metadata document.
	_, err := uc.Execute(context.Background(), conteSubmission())
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("err = %v, want storage unavailable", err)
	}
}

func TestCertifyContentTransientStoreRecovers(t *testing.T) {
	uc, _, _, _ := newCertifyFixture()
	flaky := &flakyStore{inner: ipfsstore.NewMemStore(""), failPuts: 2}
	uc.Store = flaky

	outcome, err := uc.Execute(context.Background(), conteSubmission())
	if err != nil {
		t.Fatalf("certify: %v", err)
	}
	if outcome.Certificate.MetadataCID == "" {
		t.Fatal("metadata missing after retried put")
	}
	if flaky.puts != 3 {
		t.Fatalf("put attempts = %d, want 3", flaky.puts)
	}
}

func TestCertifyContentRejectsInvalidSubmission(t *testing.T) {
	uc, _, _, _ := newCertifyFixture()

	sub := conteSubmission()
	sub.Title = ""
	if _, err := uc.Execute(context.Background(), sub); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestCertifyContentGateDenies(t *testing.T) {
	uc, _, dl, _ := newCertifyFixture()
	uc.Gate = denyAllGate{}

	if _, err := uc.Execute(context.Background(), conteSubmission()); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	record, err := dl.Lookup(context.Background(), "conte_001")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if record.Exists {
		t.Fatal("denied submission reached the ledger")
	}
}

func TestCertifyContentDemoLiveParity(t *testing.T) {
	demoUC, _, _, _ := newCertifyFixture()
	liveUC, _, _, _ := newCertifyFixture()
	liveUC.Ledger = newLiveStub()

	demoOut, err := demoUC.Execute(context.Background(), conteSubmission())
	if err != nil {
		t.Fatalf("demo certify: %v", err)
	}
	liveOut, err := liveUC.Execute(context.Background(), conteSubmission())
	if err != nil {
		t.Fatalf("live certify: %v", err)
	}

	d, l := demoOut.Certificate, liveOut.Certificate
	if d.Mode != domain.ModeDemo || l.Mode != domain.ModeLive {
		t.Fatalf("modes = %s / %s", d.Mode, l.Mode)
	}
	if d.LedgerTxRef == l.LedgerTxRef {
		t.Fatal("tx refs should differ across backends")
	}
	// Everything else is identical.
	if d.ContentHash != l.ContentHash || d.MetadataCID != l.MetadataCID ||
		d.ContentID != l.ContentID || d.Status != l.Status ||
		d.ContentType != l.ContentType || d.License != l.License ||
		d.Contributor != l.Contributor {
		t.Fatalf("certificates diverge beyond mode and tx ref:\n%+v\n%+v", d, l)
	}
}

func TestCertifyContentConcurrentSameID(t *testing.T) {
	uc, _, _, repo := newCertifyFixture()

	const workers = 8
	var wg sync.WaitGroup
	outcomes := make([]*CertifyOutcome, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = uc.Execute(context.Background(), conteSubmission())
		}(i)
	}
	wg.Wait()

	certified := 0
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if outcomes[i].Certificate.Status == domain.StatusCertified {
			certified++
		}
	}
	if certified != 1 {
		t.Fatalf("first certifications = %d, want exactly 1", certified)
	}
	history, err := repo.History(context.Background(), "conte_001")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != workers {
		t.Fatalf("history length = %d, want %d", len(history), workers)
	}
}

func TestCertifyContentReleasesKeyLocks(t *testing.T) {
	uc, _, _, _ := newCertifyFixture()

	ids := []string{"conte_001", "conte_002", "conte_003"}
	var wg sync.WaitGroup
	for _, id := range ids {
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				sub := conteSubmission()
				sub.ID = id
				if _, err := uc.Execute(context.Background(), sub); err != nil {
					t.Errorf("certify %s: %v", id, err)
				}
			}(id)
		}
	}
	wg.Wait()

	uc.mu.Lock()
	remaining := len(uc.keyLocks)
	uc.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("key lock entries remaining = %d, want 0", remaining)
	}
}
