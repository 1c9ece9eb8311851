package domain

import "errors"

var (
	ErrValidation              = errors.New("validation failed")
	ErrStorageUnavailable      = errors.New("storage unavailable")
	ErrLedgerUnavailable       = errors.New("ledger unavailable")
	ErrAlreadyCertified        = errors.New("already certified")
	ErrNotFound                = errors.New("not found")
	ErrUnknownContributionType = errors.New("unknown contribution type")
	ErrCancelled               = errors.New("cancelled")
	ErrEncoding                = errors.New("encoding failed")
)

// IsTransient reports whether an error is worth retrying. Business-rule
// rejections and caller mistakes are final on first observation.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrLedgerUnavailable)
}

func IsBusinessRule(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAlreadyCertified) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnknownContributionType) ||
		errors.Is(err, ErrNotFound)
}
