// Package indexing builds the vector index from source documents.
//
// The Indexer workflow for each build:
//   - Optionally clears the index
//   - Loads every path concurrently on a worker pool
//   - Splits each document when the selector asks for it
//   - Embeds all chunks of a document in one batch, truncating oversized text
//   - Upserts the chunks with lineage metadata
//
// Failures are isolated per path and per document. A failed document is
// logged and skipped; the build continues with the next one.
package indexing
