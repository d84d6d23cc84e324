// Package loader reads documents from the filesystem.
//
// FileLoader maps file extensions to a core.Kind:
//   - .txt, .text: plain text
//   - .md, .markdown: markdown
//   - .json: JSON, validated before it is returned
//
// Newlines are normalized to "\n" and surrounding whitespace is trimmed.
// Each file becomes one document whose metadata records its source, filename,
// file type and size.
package loader
