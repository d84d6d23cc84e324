package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "test content",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
		{
			name:     "long content",
			content:  "This is a much longer piece of content that should still hash consistently",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestID_String(t *testing.T) {
	if got := ID(255).String(); got != "00000000000000ff" {
		t.Errorf("String() = %q", got)
	}
}

func TestNewDocument(t *testing.T) {
	meta := map[string]any{"filename": "a.md"}
	doc := NewDocument("# Title", KindMarkdown, "docs/a.md", meta)

	if doc.ID == "" {
		t.Fatal("NewDocument() left ID empty")
	}
	if doc.ID != NewDocument("# Title", KindMarkdown, "docs/a.md", nil).ID {
		t.Error("NewDocument() IDs differ for the same source and content")
	}
	if doc.ID != DocumentID("docs/a.md", "# Title") {
		t.Error("NewDocument() ID differs from DocumentID()")
	}
	if doc.ID == NewDocument("# Title", KindMarkdown, "docs/b.md", nil).ID {
		t.Error("NewDocument() IDs collide across sources")
	}

	meta["filename"] = "changed"
	if doc.Metadata["filename"] != "a.md" {
		t.Error("NewDocument() must copy metadata")
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		tag  string
		want Kind
	}{
		{"md", KindMarkdown},
		{".MD", KindMarkdown},
		{"markdown", KindMarkdown},
		{"json", KindJSON},
		{".json", KindJSON},
		{"txt", KindText},
		{"", KindText},
		{"pdf", KindText},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			if got := ParseKind(tt.tag); got != tt.want {
				t.Errorf("ParseKind(%q) = %v, want %v", tt.tag, got, tt.want)
			}
		})
	}
}

func TestSplitConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SplitConfig
		wantErr bool
	}{
		{"default", DefaultSplitConfig(), false},
		{"no overlap", SplitConfig{ChunkSize: 10}, false},
		{"zero size", SplitConfig{ChunkSize: 0}, true},
		{"negative overlap", SplitConfig{ChunkSize: 10, ChunkOverlap: -1}, true},
		{"overlap equals size", SplitConfig{ChunkSize: 10, ChunkOverlap: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
