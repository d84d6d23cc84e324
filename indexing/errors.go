package indexing

import "errors"

var (
	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrLoaderRequired is returned when a document loader is not provided.
	ErrLoaderRequired = errors.New("loader required")

	// ErrRegistryRequired is returned when WithRegistry is given nil.
	ErrRegistryRequired = errors.New("splitter registry required")

	// ErrEmbeddingCount is returned when the embedder returns the wrong
	// number of vectors for a document.
	ErrEmbeddingCount = errors.New("embedding count mismatch")
)
