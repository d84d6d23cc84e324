package core

import "fmt"

// SplitConfig bounds the chunks a splitter produces.
type SplitConfig struct {
	// ChunkSize is the maximum chunk length in runes. Must be positive.
	ChunkSize int
	// ChunkOverlap is the number of runes shared by adjacent windows.
	// Must satisfy 0 <= ChunkOverlap < ChunkSize.
	ChunkOverlap int
	// Separators are tried in order when a splitter looks for a boundary.
	Separators []string
	// KeepSeparator retains the separator at the end of the preceding piece.
	KeepSeparator bool
	// StripWhitespace trims each emitted chunk.
	StripWhitespace bool
}

// DefaultSplitConfig returns 1000-rune chunks with a 200-rune overlap.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		ChunkSize:       1000,
		ChunkOverlap:    200,
		Separators:      []string{"\n\n", "\n", " ", ""},
		KeepSeparator:   true,
		StripWhitespace: true,
	}
}

// Validate reports whether the config is usable.
func (c SplitConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidSplitConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidSplitConfig, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// Step is the distance between the starts of consecutive windows.
func (c SplitConfig) Step() int {
	return max(c.ChunkSize-c.ChunkOverlap, 1)
}
