package manifest

import "errors"

// Sentinel errors for the manifest package
var (
	// ErrInvalidFormat indicates the manifest file is not valid JSON
	ErrInvalidFormat = errors.New("manifest must be valid JSON")

	// ErrFileNotFound indicates the manifest file does not exist
	ErrFileNotFound = errors.New("manifest file not found")

	// ErrUnsupportedExt indicates an unsupported file extension
	ErrUnsupportedExt = errors.New("unsupported file extension (use .json)")

	// ErrDuplicateCategory indicates a category listed more than once
	ErrDuplicateCategory = errors.New("duplicate category")

	// ErrUnlistedCategory indicates a bundle whose category is not listed
	ErrUnlistedCategory = errors.New("bundle category not listed")

	// ErrInconsistentBundle indicates a bundle whose variants disagree on
	// category or carry the wrong widths
	ErrInconsistentBundle = errors.New("inconsistent bundle")
)
