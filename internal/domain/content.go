package domain

import (
	"fmt"
	"strings"
)

const maxContentIDLen = 64

// ContentSubmission is the caller-supplied payload for a certification
// request. ID is the caller's stable identifier for the logical content;
// a second submission under the same ID supersedes the first on the ledger.
type ContentSubmission struct {
	ID          string
	Title       string
	Content     string
	ContentType string
	Language    string
	Origin      string
	License     string
	Contributor string
	Media       []MediaFile
}

type MediaFile struct {
	Filename string
	MimeType string
	Bytes    []byte
}

func (c ContentSubmission) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: content id is required", ErrValidation)
	}
	if len(c.ID) > maxContentIDLen {
		return fmt.Errorf("%w: content id exceeds %d chars", ErrValidation, maxContentIDLen)
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(c.Contributor) == "" {
		return fmt.Errorf("%w: contributor address is required", ErrValidation)
	}
	return nil
}
