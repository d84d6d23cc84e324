// Package splitter turns documents into retrieval-sized chunks.
//
// A Selector decides whether a document needs chunking at all. When it does,
// a Registry maps the document's core.Kind to one of the Splitter
// implementations:
//
//   - Markdown: header sections, then paragraphs, then character windows
//   - JSON: structural partitioning of objects and arrays
//   - Window: fixed-size character windows with overlap
//
// Chunk sizes are measured in runes. Every chunk satisfies
// len([]rune(Content)) <= ChunkSize except a JSON scalar that alone exceeds
// the limit, which is emitted whole.
package splitter
