package core

import "strings"

// Kind tags the content type of a document. It drives splitter and loader
// selection.
type Kind int

const (
	// KindText is plain text and the fallback for unknown tags.
	KindText Kind = iota
	// KindMarkdown is Markdown.
	KindMarkdown
	// KindJSON is a JSON document.
	KindJSON
)

var kindNames = [...]string{
	KindText:     "text",
	KindMarkdown: "markdown",
	KindJSON:     "json",
}

// String returns the canonical tag for the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{KindText, KindMarkdown, KindJSON}
}

// ParseKind maps a type tag or file extension to a Kind.
// Anything unrecognized is treated as text.
func ParseKind(tag string) Kind {
	tag = strings.ToLower(strings.TrimSpace(tag))
	tag = strings.TrimPrefix(tag, ".")
	switch tag {
	case "md", "markdown":
		return KindMarkdown
	case "json":
		return KindJSON
	default:
		return KindText
	}
}
