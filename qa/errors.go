package qa

import "errors"

// ApologyMessage is the answer returned for any failed query.
const ApologyMessage = "Sorry, an error occurred while processing your question, please try again later."

var (
	// ErrRetrieverRequired indicates a nil retriever was supplied.
	ErrRetrieverRequired = errors.New("retriever is required")

	// ErrGeneratorRequired indicates a nil generator was supplied.
	ErrGeneratorRequired = errors.New("generator is required")
)
