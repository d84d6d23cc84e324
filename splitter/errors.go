package splitter

import "errors"

var (
	// ErrNoSplitter is returned when no splitter is registered for a kind.
	ErrNoSplitter = errors.New("no splitter registered for kind")

	// ErrInvalidJSON is returned when JSON input cannot be decoded.
	ErrInvalidJSON = errors.New("invalid json")
)
