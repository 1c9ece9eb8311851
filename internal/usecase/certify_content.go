package usecase

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/canonical"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/retry"
)

// CertifyContent drives one certification through hash, store, and anchor in
// that strict order, then records the resulting certificate. A prior
// certification for the same content id turns the anchor step into a
// recertification, so the caller sees upsert semantics over an append-only
// ledger.
type CertifyContent struct {
	Store        ContentStore
	Ledger       ledger.Ledger
	Certificates CertificateRepository
	Cache        CertificateCache
	Gate         SubmissionGate
	Retry        *retry.Executor
	Audit        AuditSink

	mu       sync.Mutex
	keyLocks map[string]*contentLock
}

type contentLock struct {
	mu   sync.Mutex
	refs int
}

// MediaFailure reports one media attachment that could not be pinned. Media
// failures are isolated: the certification proceeds without the failed item.
type MediaFailure struct {
	Filename string
	Err      error
}

type CertifyOutcome struct {
	Certificate   domain.Certificate
	MediaFailures []MediaFailure
}

func (uc *CertifyContent) Execute(ctx context.Context, sub domain.ContentSubmission) (*CertifyOutcome, error) {
	started := time.Now()
	outcome, err := uc.execute(ctx, sub)
	if uc.Audit != nil {
		uc.Audit.Record("certify_content", err == nil, time.Since(started), map[string]any{
			"content_id": sub.ID,
		})
	}
	return outcome, err
}

func (uc *CertifyContent) execute(ctx context.Context, sub domain.ContentSubmission) (*CertifyOutcome, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if uc.Gate != nil {
		if err := uc.Gate.Check(ctx, sub); err != nil {
			return nil, err
		}
	}

	// Serialize concurrent certifications of the same content id. The
	// ledger's uniqueness constraint is the backstop for anything that
	// races past process boundaries.
	unlock := uc.lockContent(sub.ID)
	defer unlock()

	mediaCIDs, mediaFailures, err := uc.uploadMedia(ctx, sub.Media)
	if err != nil {
		return nil, err
	}

	core := contentDocument(sub, mediaCIDs)
	contentHash, err := canonical.HashContent(core)
	if err != nil {
		return nil, err
	}

	metadataDoc := make(map[string]any, len(core)+1)
	for k, v := range core {
		metadataDoc[k] = v
	}
	metadataDoc[hashField] = hex.EncodeToString(contentHash[:])
	metadataBytes, err := canonical.MarshalAny(metadataDoc)
	if err != nil {
		return nil, err
	}

	metadataCID, err := retry.Value(ctx, uc.Retry, "storage.put_metadata", func(ctx context.Context) (string, error) {
		return uc.Store.Put(ctx, metadataBytes, "application/json")
	})
	if err != nil {
		return nil, err
	}

	req := ledger.CertifyRequest{
		ContentID:   sub.ID,
		ContentHash: contentHash,
		MetadataCID: metadataCID,
		ContentType: sub.ContentType,
		License:     sub.License,
		Contributor: sub.Contributor,
	}
	result, status, err := uc.anchor(ctx, req)
	if err != nil {
		return nil, err
	}

	cert := domain.Certificate{
		ContentID:   sub.ID,
		ContentHash: contentHash,
		MetadataCID: metadataCID,
		MediaCIDs:   mediaCIDs,
		ContentType: sub.ContentType,
		License:     sub.License,
		Contributor: sub.Contributor,
		LedgerTxRef: result.TxRef,
		Sequence:    result.Sequence,
		Status:      status,
		Mode:        uc.Ledger.Mode(),
		Timestamp:   time.Now().UTC(),
	}
	if uc.Cache != nil {
		uc.Cache.Put(cert)
	}
	if uc.Certificates != nil {
		// The repository is a queryable projection; the ledger already
		// holds the authoritative anchor, so a projection failure does
		// not fail the certification.
		if err := uc.Certificates.Append(ctx, cert); err != nil {
			log.Printf("certify: recording certificate history for %s failed: %v", sub.ID, err)
		}
	}
	return &CertifyOutcome{Certificate: cert, MediaFailures: mediaFailures}, nil
}

// anchor performs certify with transparent fallback to recertify when the
// content id is already anchored, including when this call lost a race for
// the first certification.
func (uc *CertifyContent) anchor(ctx context.Context, req ledger.CertifyRequest) (ledger.CertifyResult, domain.CertificateStatus, error) {
	result, err := retry.Value(ctx, uc.Retry, "ledger.certify", func(ctx context.Context) (ledger.CertifyResult, error) {
		return uc.Ledger.Certify(ctx, req)
	})
	if err == nil {
		return result, domain.StatusCertified, nil
	}
	if !errors.Is(err, domain.ErrAlreadyCertified) {
		return ledger.CertifyResult{}, "", err
	}
	result, err = retry.Value(ctx, uc.Retry, "ledger.recertify", func(ctx context.Context) (ledger.CertifyResult, error) {
		return uc.Ledger.Recertify(ctx, req)
	})
	if err != nil {
		return ledger.CertifyResult{}, "", err
	}
	return result, domain.StatusRecertified, nil
}

// uploadMedia pins attachments concurrently. Individual failures are
// reported per item and do not block the others; the set of successful CIDs
// keeps submission order.
func (uc *CertifyContent) uploadMedia(ctx context.Context, media []domain.MediaFile) ([]string, []MediaFailure, error) {
	if len(media) == 0 {
		return nil, nil, nil
	}
	type uploadResult struct {
		index int
		cid   string
		err   error
	}
	results := make(chan uploadResult, len(media))
	var wg sync.WaitGroup
	for i, file := range media {
		wg.Add(1)
		go func(index int, file domain.MediaFile) {
			defer wg.Done()
			cid, err := retry.Value(ctx, uc.Retry, "storage.put_media", func(ctx context.Context) (string, error) {
				return uc.Store.Put(ctx, file.Bytes, file.MimeType)
			})
			results <- uploadResult{index: index, cid: cid, err: err}
		}(i, file)
	}
	wg.Wait()
	close(results)

	cids := make([]string, len(media))
	var failures []MediaFailure
	for result := range results {
		if result.err != nil {
			if errors.Is(result.err, domain.ErrCancelled) {
				return nil, nil, result.err
			}
			failures = append(failures, MediaFailure{
				Filename: media[result.index].Filename,
				Err:      result.err,
			})
			continue
		}
		cids[result.index] = result.cid
	}
	compacted := cids[:0]
	for _, cid := range cids {
		if cid != "" {
			compacted = append(compacted, cid)
		}
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].Filename < failures[j].Filename })
	return compacted, failures, nil
}

// lockContent takes the per-content-id lock. Entries are reference counted
// and removed once the last holder releases, so the map stays bounded by the
// number of in-flight certifications rather than by distinct ids seen.
func (uc *CertifyContent) lockContent(contentID string) func() {
	uc.mu.Lock()
	if uc.keyLocks == nil {
		uc.keyLocks = make(map[string]*contentLock)
	}
	lock, ok := uc.keyLocks[contentID]
	if !ok {
		lock = &contentLock{}
		uc.keyLocks[contentID] = lock
	}
	lock.refs++
	uc.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		uc.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(uc.keyLocks, contentID)
		}
		uc.mu.Unlock()
	}
}

const hashField = "content_hash"

// contentDocument is the canonicalizable core the content hash covers. The
// stored metadata is this document plus the hash itself; verification strips
// the hash field and recomputes over the rest.
func contentDocument(sub domain.ContentSubmission, mediaCIDs []string) map[string]any {
	media := make([]any, 0, len(mediaCIDs))
	for _, cid := range mediaCIDs {
		media = append(media, cid)
	}
	return map[string]any{
		"id":           sub.ID,
		"title":        sub.Title,
		"content":      sub.Content,
		"content_type": sub.ContentType,
		"language":     sub.Language,
		"origin":       sub.Origin,
		"license":      sub.License,
		"contributor":  sub.Contributor,
		"media_cids":   media,
	}
}

// RecomputeStoredHash parses stored metadata bytes, strips the embedded hash
// field, and rehashes the remainder. Used by verification.
func RecomputeStoredHash(metadataBytes []byte) (domain.ContentHash, error) {
	canonicalBytes, err := canonical.MarshalJSON(metadataBytes)
	if err != nil {
		return domain.ContentHash{}, err
	}
	var doc map[string]any
	if err := json.Unmarshal(canonicalBytes, &doc); err != nil {
		return domain.ContentHash{}, fmt.Errorf("%w: stored metadata is not a JSON object: %v", domain.ErrEncoding, err)
	}
	delete(doc, hashField)
	return canonical.HashContent(doc)
}
