package faa

import (
	"errors"
	"fmt"
)

var (
	// ErrArchiveNotFound is returned when a landing page carries no archive link.
	ErrArchiveNotFound = errors.New("faa: archive link not found")

	// ErrMemberMissing is returned when a required file is absent from an archive.
	ErrMemberMissing = errors.New("faa: archive member missing")
)

// DownloadError describes a failed request to the publisher: a transport
// failure, a timeout, or a non-2xx response.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("faa: download %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("faa: download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Temporary reports whether retrying the request could succeed.
func (e *DownloadError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// ArchiveFormatError is returned when a downloaded payload is not a readable zip.
type ArchiveFormatError struct {
	URL string
	Err error
}

func (e *ArchiveFormatError) Error() string {
	return fmt.Sprintf("faa: corrupt archive %s: %v", e.URL, e.Err)
}

func (e *ArchiveFormatError) Unwrap() error { return e.Err }
