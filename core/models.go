package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"fmt"
	"maps"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID as fixed-width hex.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// Document is a unit of source content. Documents are treated as immutable
// once they have been indexed.
type Document struct {
	ID        string
	Content   string
	Kind      Kind
	Source    string
	Metadata  map[string]any
	CreatedAt time.Time
}

// DocumentID derives the ID of a document from its source and content.
func DocumentID(source, content string) string {
	return IDFromContent(source + "\x00" + content).String()
}

// NewDocument builds a document with a content-derived ID.
// The metadata map is copied.
func NewDocument(content string, kind Kind, source string, metadata map[string]any) Document {
	return Document{
		ID:        DocumentID(source, content),
		Content:   content,
		Kind:      kind,
		Source:    source,
		Metadata:  CloneMetadata(metadata),
		CreatedAt: time.Now().UTC(),
	}
}

// DocumentChunk is a bounded slice of a parent document.
//
// Invariants:
//   - Size equals the rune length of Content
//   - EndOffset - StartOffset == Size when offsets are tracked
//   - Index is strictly increasing within one parent
type DocumentChunk struct {
	ChunkID     string
	ParentID    string
	Content     string
	Index       int
	StartOffset int
	EndOffset   int
	Size        int
	OverlapSize int
	Metadata    map[string]any
}

// ChunkID returns the identifier of the chunk at index within parentID.
func ChunkID(parentID string, index int) string {
	return fmt.Sprintf("%s-%d", parentID, index)
}

// SearchResult is a retrieved document with its relevance score.
// Higher scores are more relevant.
type SearchResult struct {
	Document Document
	Score    float32
	Metadata map[string]any
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single conversation turn.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
	Metadata  map[string]any
}

// Citation references a source passage backing an answer.
type Citation struct {
	Source  string `json:"source"`
	Snippet string `json:"snippet"`
}

// StructuredFormat is the format tag the answer contract requires.
const StructuredFormat = "structured_v1"

// StructuredAnswer is the normalized form of a generated answer.
type StructuredAnswer struct {
	Format    string     `json:"format"`
	Summary   string     `json:"summary"`
	KeyPoints []string   `json:"key_points"`
	Citations []Citation `json:"citations"`
	Raw       string     `json:"raw"`
	Question  string     `json:"question"`
}

// IndexRecord is the persisted form of one indexed chunk.
// Metadata is carried as JSON text.
type IndexRecord struct {
	ID        string
	Text      string
	Vector    []float32
	Metadata  string
	IndexedAt time.Time
}

// MessageRecord is the persisted form of a Message.
type MessageRecord struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// SessionRecord is the persisted form of a conversation session.
// Context is carried as JSON text.
type SessionRecord struct {
	SessionID    string
	UserID       string
	Messages     []MessageRecord
	Context      string
	CreatedAt    time.Time
	LastActivity time.Time
}

// CloneMetadata returns a shallow copy of m. A nil map yields an empty map.
func CloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	maps.Copy(out, m)
	return out
}
