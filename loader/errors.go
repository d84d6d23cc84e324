package loader

import "errors"

var (
	// ErrEmptyPath is returned when Load is called without a path.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrUnsupportedKind is returned for files whose extension has no kind.
	ErrUnsupportedKind = errors.New("unsupported document kind")

	// ErrInvalidJSON is returned when a .json file does not parse.
	ErrInvalidJSON = errors.New("invalid JSON document")

	// ErrInvalidEncoding is returned for files that are not valid UTF-8.
	ErrInvalidEncoding = errors.New("document is not valid UTF-8")
)
