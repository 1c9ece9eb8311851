package domain

import "time"

// Mode labels which kind of anchor backs a record: a live external ledger or
// the in-process demo surrogate. It is always recorded on the Certificate so
// consumers know the trust level of the anchor.
type Mode string

const (
	ModeLive Mode = "live"
	ModeDemo Mode = "demo"
)

type CertificateStatus string

const (
	StatusPending     CertificateStatus = "PENDING"
	StatusCertified   CertificateStatus = "CERTIFIED"
	StatusRecertified CertificateStatus = "RECERTIFIED"
)

// HashSize is the length in bytes of a content hash.
const HashSize = 32

// ContentHash is a digest over the canonical serialization of content fields.
// Identical logical content always yields the identical hash.
type ContentHash [HashSize]byte

// Certificate is the durable record of a certification act. Once anchored it
// is never mutated; superseding content appends a new anchored record for the
// same ContentID.
type Certificate struct {
	ContentID   string
	ContentHash ContentHash
	MetadataCID string
	MediaCIDs   []string
	ContentType string
	License     string
	Contributor string
	LedgerTxRef string
	Sequence    int64
	Status      CertificateStatus
	Mode        Mode
	Timestamp   time.Time
}

type VerificationStatus string

const (
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationTampered VerificationStatus = "TAMPERED"
)

// IntegrityCheck distinguishes a proven mismatch from a check that could not
// be carried out (storage unreachable).
type IntegrityCheck string

const (
	IntegrityOK       IntegrityCheck = "ok"
	IntegrityMismatch IntegrityCheck = "mismatch"
	IntegrityUnknown  IntegrityCheck = "unknown"
)

// VerificationResult is a successful answer to a verification query,
// including when the answer is "tampered". Tampering is a result value, not
// an error.
type VerificationResult struct {
	ContentID     string
	IsAuthentic   bool
	IPFSIntegrity IntegrityCheck
	Status        VerificationStatus
	LedgerHash    ContentHash
	CheckedAt     time.Time
}
