package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds the pipeline can report to users.
// None of them is retriable; retries live inside the Grok client only.
var (
	ErrValidation        = errors.New("invalid argument")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrFileNotFound      = errors.New("file not found")
	ErrDownload          = errors.New("image download failed")
	ErrIO                = errors.New("image save failed")
)

// APIError reports a Grok API call that was rejected outright or failed
// after the retry budget was exhausted.
type APIError struct {
	Status   int    // last observed HTTP status, 0 for network-level failure
	Message  string // last observed error message
	Attempts int    // total attempts made
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("grok api error (HTTP %d) after %d attempt(s): %s", e.Status, e.Attempts, e.Message)
	}
	return fmt.Sprintf("grok api error after %d attempt(s): %s", e.Attempts, e.Message)
}

// Kind names for user-facing error reporting.
const (
	KindValidation        = "ValidationError"
	KindUnsupportedFormat = "UnsupportedFormat"
	KindFileNotFound      = "FileNotFoundError"
	KindAPI               = "APIError"
	KindDownload          = "DownloadError"
	KindIO                = "IOError"
	KindInternal          = "InternalError"
)

// Kind classifies any pipeline error into one of the reportable kinds.
func Kind(err error) string {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrFileNotFound):
		return KindFileNotFound
	case errors.As(err, &apiErr):
		return KindAPI
	case errors.Is(err, ErrDownload):
		return KindDownload
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindInternal
	}
}
