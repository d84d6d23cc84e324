package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/core"
)

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate and GenerateStream if set.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	// ChatFunc is called by Chat if set.
	ChatFunc func(ctx context.Context, messages []core.Message) (string, error)

	// StreamChunkSize is the fragment length, in runes, used by GenerateStream.
	StreamChunkSize int

	mu        sync.Mutex
	callCount int
	prompts   []string
}

var _ ai.Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a generator that answers every prompt with a
// fixed structured answer.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{StreamChunkSize: 8}
}

// Generate returns GenerateFunc's result or DefaultAnswer.
func (m *MockGenerator) Generate(ctx context.Context, prompt string, _ ...ai.GenerateOption) (string, error) {
	m.record(prompt)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return DefaultAnswer(), nil
}

// GenerateStream splits the Generate result into fragments.
func (m *MockGenerator) GenerateStream(ctx context.Context, prompt string, fn func(fragment string) error, opts ...ai.GenerateOption) error {
	text, err := m.Generate(ctx, prompt, opts...)
	if err != nil {
		return err
	}

	size := max(m.StreamChunkSize, 1)
	runes := []rune(text)
	for start := 0; start < len(runes); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+size, len(runes))
		if err := fn(string(runes[start:end])); err != nil {
			return err
		}
	}
	return nil
}

// Chat returns ChatFunc's result or DefaultAnswer.
func (m *MockGenerator) Chat(ctx context.Context, messages []core.Message, _ ...ai.GenerateOption) (string, error) {
	parts := make([]string, len(messages))
	for i, msg := range messages {
		parts[i] = msg.Content
	}
	m.record(strings.Join(parts, "\n"))

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages)
	}
	return DefaultAnswer(), nil
}

func (m *MockGenerator) record(prompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.prompts = append(m.prompts, prompt)
}

// CallCount returns the number of generation calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPrompt returns the most recent prompt, or "" if none.
func (m *MockGenerator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// Reset clears recorded calls and injected behavior.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.prompts = nil
	m.GenerateFunc = nil
	m.ChatFunc = nil
}

// DefaultAnswer is a well-formed structured_v1 answer.
func DefaultAnswer() string {
	return `{"format":"structured_v1","summary":"Mock summary","key_points":["Mock point"],"citations":[{"source":"mock","snippet":"mock snippet"}]}`
}
