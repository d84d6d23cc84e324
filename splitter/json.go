package splitter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docqa/core"
)

// JSON split methods recorded under the json_method metadata key.
const (
	MethodJSONWhole     = "whole"
	MethodJSONStructure = "structure_split"
	MethodJSONFallback  = "text_fallback"
)

// bracketOverhead is the size of the enclosing {} or [] of a container chunk.
const bracketOverhead = 2

// JSONSplitter partitions JSON structurally. Object entries and array items
// are packed into chunks whose compact encoding fits ChunkSize. Entries too
// large to fit are descended into. Invalid JSON is split as plain text.
type JSONSplitter struct {
	fallback *WindowSplitter
}

var _ Splitter = (*JSONSplitter)(nil)

// NewJSONSplitter creates a JSON splitter.
func NewJSONSplitter() *JSONSplitter {
	return &JSONSplitter{fallback: NewWindowSplitter()}
}

// Split implements Splitter.
func (j *JSONSplitter) Split(doc core.Document, cfg core.SplitConfig) ([]core.DocumentChunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root, err := parseJSON(doc.Content)
	if err != nil {
		chunks, ferr := j.fallback.Split(doc, cfg)
		if ferr != nil {
			return nil, ferr
		}
		for i := range chunks {
			chunks[i].Metadata["json_method"] = MethodJSONFallback
		}
		return chunks, nil
	}

	method := MethodJSONStructure
	if root.size <= cfg.ChunkSize {
		method = MethodJSONWhole
	}

	b := newChunkBuilder(doc, cfg)
	offset := 0
	for _, piece := range splitJSON(root, "$", cfg.ChunkSize, nil) {
		content := piece.node.encode()
		meta := map[string]any{
			"json_method": method,
			"json_type":   piece.node.kind.String(),
			"json_path":   piece.path,
		}
		if piece.node.kind == jsonObject {
			meta["json_keys"] = strings.Join(piece.node.keys, ",")
		}
		b.add(content, offset, 0, meta)
		offset += piece.node.size
	}
	return b.result(), nil
}

type jsonKind int

const (
	jsonScalar jsonKind = iota
	jsonObject
	jsonArray
)

func (k jsonKind) String() string {
	switch k {
	case jsonObject:
		return "object"
	case jsonArray:
		return "array"
	default:
		return "scalar"
	}
}

// jsonNode is an order-preserving JSON value. size is the rune length of
// the compact encoding.
type jsonNode struct {
	kind  jsonKind
	keys  []string // object keys, parallel to items
	items []*jsonNode
	raw   string // scalar encoding
	size  int
}

// jsonPiece is one emitted chunk and the path of the value it was cut from.
type jsonPiece struct {
	node *jsonNode
	path string
}

// jsonAcc is the fold state while packing a container's entries.
type jsonAcc struct {
	pieces    []jsonPiece
	current   *jsonNode
	remaining int
}

// splitJSON appends the pieces of n to pieces. A value that fits in limit,
// or a scalar, becomes a single piece.
func splitJSON(n *jsonNode, path string, limit int, pieces []jsonPiece) []jsonPiece {
	if n.size <= limit || n.kind == jsonScalar || len(n.items) == 0 {
		return append(pieces, jsonPiece{node: n, path: path})
	}

	acc := jsonAcc{pieces: pieces, current: n.empty(), remaining: limit - bracketOverhead}
	for i, child := range n.items {
		key := ""
		childPath := path + "[" + strconv.Itoa(i) + "]"
		if n.kind == jsonObject {
			key = n.keys[i]
			childPath = path + "." + key
		}
		acc = packEntry(acc, n, key, child, childPath, path, limit)
	}
	return flushAcc(acc, n, path, limit).pieces
}

// packEntry adds one entry to the running chunk. When it does not fit the
// running chunk is flushed. An entry that cannot fit an empty chunk either
// is split recursively.
func packEntry(acc jsonAcc, parent *jsonNode, key string, child *jsonNode, childPath, path string, limit int) jsonAcc {
	cost := entrySize(parent.kind, key, child)
	sep := 0
	if len(acc.current.items) > 0 {
		sep = 1
	}
	if cost+sep <= acc.remaining {
		acc.current.push(key, child, cost+sep)
		acc.remaining -= cost + sep
		return acc
	}

	acc = flushAcc(acc, parent, path, limit)
	if cost > limit-bracketOverhead {
		acc.pieces = splitJSON(child, childPath, limit, acc.pieces)
		return acc
	}
	acc.current.push(key, child, cost)
	acc.remaining -= cost
	return acc
}

func flushAcc(acc jsonAcc, parent *jsonNode, path string, limit int) jsonAcc {
	if len(acc.current.items) > 0 {
		acc.pieces = append(acc.pieces, jsonPiece{node: acc.current, path: path})
	}
	return jsonAcc{pieces: acc.pieces, current: parent.empty(), remaining: limit - bracketOverhead}
}

func entrySize(kind jsonKind, key string, child *jsonNode) int {
	if kind == jsonObject {
		return utf8.RuneCountInString(quoteJSON(key)) + 1 + child.size
	}
	return child.size
}

// empty returns a container of the same kind with no entries.
func (n *jsonNode) empty() *jsonNode {
	return &jsonNode{kind: n.kind, size: bracketOverhead}
}

func (n *jsonNode) push(key string, child *jsonNode, cost int) {
	if n.kind == jsonObject {
		n.keys = append(n.keys, key)
	}
	n.items = append(n.items, child)
	n.size += cost
}

func (n *jsonNode) encode() string {
	var sb strings.Builder
	n.writeTo(&sb)
	return sb.String()
}

func (n *jsonNode) writeTo(sb *strings.Builder) {
	switch n.kind {
	case jsonScalar:
		sb.WriteString(n.raw)
	case jsonObject:
		sb.WriteByte('{')
		for i, item := range n.items {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(quoteJSON(n.keys[i]))
			sb.WriteByte(':')
			item.writeTo(sb)
		}
		sb.WriteByte('}')
	case jsonArray:
		sb.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				sb.WriteByte(',')
			}
			item.writeTo(sb)
		}
		sb.WriteByte(']')
	}
}

// parseJSON decodes text into an order-preserving tree.
func parseJSON(text string) (*jsonNode, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	root, err := decodeNode(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidJSON)
	}
	return root, nil
}

func decodeNode(dec *json.Decoder) (*jsonNode, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		raw := encodeScalar(tok)
		return &jsonNode{kind: jsonScalar, raw: raw, size: utf8.RuneCountInString(raw)}, nil
	}

	var n *jsonNode
	switch delim {
	case '{':
		n = &jsonNode{kind: jsonObject, size: bracketOverhead}
	case '[':
		n = &jsonNode{kind: jsonArray, size: bracketOverhead}
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}

	for dec.More() {
		key := ""
		if n.kind == jsonObject {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok = keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
		}
		child, err := decodeNode(dec)
		if err != nil {
			return nil, err
		}
		cost := entrySize(n.kind, key, child)
		if len(n.items) > 0 {
			cost++
		}
		n.push(key, child, cost)
	}

	// closing delimiter
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return n, nil
}

func encodeScalar(tok json.Token) string {
	switch v := tok.(type) {
	case string:
		return quoteJSON(v)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return "null"
	}
}

func quoteJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
