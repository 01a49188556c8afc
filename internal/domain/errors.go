package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrCacheMiss indicates a cache miss
	ErrCacheMiss = errors.New("cache miss")

	// ErrRateLimited indicates rate limiting was encountered
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates a timeout occurred
	ErrTimeout = errors.New("timeout")

	// ErrNoCategory indicates a public id without a Photos/<category>/ segment
	ErrNoCategory = errors.New("public id has no Photos/<category>/ segment")

	// ErrInvalidVersion indicates a resource version that is not a number
	ErrInvalidVersion = errors.New("invalid resource version")

	// ErrMissingResources indicates a listing without a resources array
	ErrMissingResources = errors.New("listing has no resources array")

	// ErrMissingCredentials indicates the cloud name, key or secret is unset
	ErrMissingCredentials = errors.New("cloudinary credentials are not configured")

	// ErrNoTags indicates an empty category tag list
	ErrNoTags = errors.New("no category tags configured")

	// ErrNoListings indicates that no listing could be fetched at all
	ErrNoListings = errors.New("no listings fetched")

	// ErrWriteFailed indicates writing output failed
	ErrWriteFailed = errors.New("write failed")
)

// FetchError represents an error while retrieving one tag's listing
type FetchError struct {
	Tag        string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	subject := e.URL
	if e.Tag != "" {
		subject = "tag " + e.Tag
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s: status %d: %v", subject, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", subject, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError
func NewFetchError(url string, statusCode int, err error) *FetchError {
	return &FetchError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// RetryableError indicates an error that can be retried
type RetryableError struct {
	Err        error
	RetryAfter int // Seconds to wait before retry, 0 if unknown
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("retryable error (retry after %ds): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		switch fetchErr.StatusCode {
		case 429, 503, 502, 504:
			return true
		}
	}

	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}

// ParseError reports a listing file that is not a valid listing
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExtractionError reports a resource whose category cannot be derived
type ExtractionError struct {
	PublicID string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("cannot extract category from %q: %v", e.PublicID, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// WriteError reports a filesystem failure while producing output
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write error for %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// NewWriteError creates a new WriteError wrapping ErrWriteFailed
func NewWriteError(path string, err error) *WriteError {
	return &WriteError{Path: path, Err: errors.Join(ErrWriteFailed, err)}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
