package splitter

import (
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docqa/core"
)

const (
	// DefaultThreshold is the rune length above which a document is split.
	DefaultThreshold = 1000

	maxParagraphs = 5
	maxListLines  = 3
)

// Selector decides whether a document needs splitting.
type Selector struct {
	// Threshold is the rune length above which a document is always split.
	Threshold int
}

// NewSelector returns a selector with the given length threshold.
// A non-positive threshold selects DefaultThreshold.
func NewSelector(threshold int) Selector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Selector{Threshold: threshold}
}

// ShouldSplit reports whether doc is long or structurally complex. A document
// is complex when it has more than 5 blank-line separated paragraphs or more
// than 3 list-like lines.
func (s Selector) ShouldSplit(doc core.Document) bool {
	if utf8.RuneCountInString(doc.Content) > s.Threshold {
		return true
	}
	return hasComplexStructure(doc.Content)
}

func hasComplexStructure(content string) bool {
	if len(strings.Split(content, "\n\n")) > maxParagraphs {
		return true
	}

	listLines := 0
	for _, line := range strings.Split(content, "\n") {
		if isListLine(strings.TrimSpace(line)) {
			listLines++
		}
	}
	return listLines > maxListLines
}

// isListLine matches numbered ("12.") and bulleted ("-", "*", "•") lines.
func isListLine(line string) bool {
	for _, bullet := range []string{"-", "*", "•"} {
		if strings.HasPrefix(line, bullet) {
			return true
		}
	}
	digits := 0
	for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}
	return digits > 0 && digits < len(line) && line[digits] == '.'
}
