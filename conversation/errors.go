package conversation

import "errors"

var (
	// ErrSessionNotFound indicates the session id is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptySessionID indicates a blank session id was supplied.
	ErrEmptySessionID = errors.New("session id cannot be empty")

	// ErrRepositoryRequired indicates persistence was requested without a repository.
	ErrRepositoryRequired = errors.New("session repository is required")

	// ErrStoreRequired indicates a nil store was supplied.
	ErrStoreRequired = errors.New("store is required")
)
