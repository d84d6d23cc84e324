package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/answer"
	"github.com/poiesic/docqa/conversation"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/retrieval"
)

// previewLength is the rune length of a source preview.
const previewLength = 200

// LastQueryKey is the session context key holding the latest query snapshot.
const LastQueryKey = "last_query"

// Retriever finds the chunks relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, topK int) ([]core.SearchResult, error)
}

var _ Retriever = (*retrieval.Retriever)(nil)

// Service runs the question answering flow.
type Service struct {
	retriever     Retriever
	generator     ai.Generator
	sessions      *conversation.Store
	historyWindow int
	genOpts       []ai.GenerateOption
	monitor       Monitor
	logger        *slog.Logger
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "qa-service")
		return nil
	}
}

// WithSessions enables conversation history. Without a store, session ids
// are echoed back but nothing is remembered.
func WithSessions(store *conversation.Store) Option {
	return func(s *Service) error {
		s.sessions = store
		return nil
	}
}

// WithHistoryWindow sets how many prior messages are rendered into the
// prompt. Negative disables history.
// Default is retrieval.DefaultHistoryWindow.
func WithHistoryWindow(n int) Option {
	return func(s *Service) error {
		s.historyWindow = n
		return nil
	}
}

// WithGenerateOptions sets per-request generation options.
func WithGenerateOptions(opts ...ai.GenerateOption) Option {
	return func(s *Service) error {
		s.genOpts = opts
		return nil
	}
}

// WithMonitor sets the query monitor.
func WithMonitor(monitor Monitor) Option {
	return func(s *Service) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// WithClock replaces time.Now for timestamps and timings.
func WithClock(now func() time.Time) Option {
	return func(s *Service) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// NewService creates a query service.
func NewService(retriever Retriever, generator ai.Generator, opts ...Option) (*Service, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	s := &Service{
		retriever:     retriever,
		generator:     generator,
		historyWindow: retrieval.DefaultHistoryWindow,
		monitor:       &noopMonitor{},
		logger:        slog.Default().With("component", "qa-service"),
		now:           time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Query answers a question. A request without a session id is given a
// fresh one, returned in the result.
func (s *Service) Query(ctx context.Context, req Request) Result {
	return s.run(ctx, req, func(prompt string) (string, error) {
		return s.generator.Generate(ctx, prompt, s.genOpts...)
	})
}

// QueryStream answers a question, delivering raw generation fragments to fn
// as they arrive. The returned Result is built from the full text. An error
// from fn fails the query.
func (s *Service) QueryStream(ctx context.Context, req Request, fn func(fragment string) error) Result {
	return s.run(ctx, req, func(prompt string) (string, error) {
		var sb strings.Builder
		err := s.generator.GenerateStream(ctx, prompt, func(fragment string) error {
			sb.WriteString(fragment)
			if fn == nil {
				return nil
			}
			return fn(fragment)
		}, s.genOpts...)
		return sb.String(), err
	})
}

func (s *Service) run(ctx context.Context, req Request, generate func(prompt string) (string, error)) Result {
	start := s.now()
	if req.SessionID == "" {
		req.SessionID = conversation.NewSessionID()
	}
	logger := s.logger.With("session_id", req.SessionID)

	if errs := req.Validate(); errs != nil {
		return s.fail(req, start, ValidationError{Errors: errs})
	}

	logger.Info("processing query", "question", req.Question)

	if req.SessionID != "" && s.sessions != nil {
		if err := s.sessions.AddMessage(req.SessionID, core.RoleUser, req.Question, req.Profile, nil); err != nil {
			return s.fail(req, start, err)
		}
	}

	results, err := s.retriever.Retrieve(ctx, req.Question, req.TopK)
	if err != nil {
		return s.fail(req, start, fmt.Errorf("retrieval failed: %w", err))
	}

	prompt := retrieval.AssemblePrompt(retrieval.PromptInput{
		Question:      req.Question,
		Results:       results,
		History:       s.history(req.SessionID),
		Profile:       req.Profile,
		HistoryWindow: s.historyWindow,
	})

	raw, err := generate(prompt)
	if err != nil {
		return s.fail(req, start, fmt.Errorf("generation failed: %w", err))
	}

	processed := answer.Process(raw, req.Question)
	if !processed.Parsed {
		logger.Debug("answer was not structured, used heuristic extraction")
	}

	if req.SessionID != "" && s.sessions != nil {
		if err := s.sessions.AddMessage(req.SessionID, core.RoleAssistant, processed.Answer, nil, nil); err != nil {
			logger.Warn("failed to record answer", "err", err)
		}
	}

	finished := s.now()
	result := Result{
		Success:        true,
		Answer:         processed.Answer,
		Structured:     &processed.Structured,
		Sources:        sources(results),
		SessionID:      req.SessionID,
		ProcessingTime: finished.Sub(start),
		Timestamp:      finished,
	}
	s.recordLastQuery(req, result)
	s.monitor.QueryCompleted(true, result.ProcessingTime)

	logger.Info("query completed", "sources", len(result.Sources), "elapsed", result.ProcessingTime)
	return result
}

// history returns the window of prior messages plus the in-flight question,
// which the prompt renderer drops.
func (s *Service) history(sessionID string) []core.Message {
	if sessionID == "" || s.sessions == nil || s.historyWindow < 0 {
		return nil
	}
	window := s.historyWindow
	if window == 0 {
		window = retrieval.DefaultHistoryWindow
	}
	return s.sessions.History(sessionID, window+1)
}

func (s *Service) recordLastQuery(req Request, result Result) {
	if req.SessionID == "" || s.sessions == nil {
		return
	}
	snapshot := map[string]any{
		"question":  req.Question,
		"success":   result.Success,
		"answer":    result.Answer,
		"sources":   len(result.Sources),
		"timestamp": result.Timestamp.Format(time.RFC3339),
	}
	if err := s.sessions.UpdateContext(req.SessionID, LastQueryKey, snapshot); err != nil {
		s.logger.Warn("failed to record query snapshot", "session_id", req.SessionID, "err", err)
	}
}

func (s *Service) fail(req Request, start time.Time, err error) Result {
	s.logger.Error("query failed", "session_id", req.SessionID, "err", err)
	finished := s.now()
	elapsed := finished.Sub(start)
	s.monitor.QueryCompleted(false, elapsed)
	return Result{
		Success:        false,
		Answer:         ApologyMessage,
		SessionID:      req.SessionID,
		ProcessingTime: elapsed,
		Timestamp:      finished,
		Error:          err.Error(),
	}
}

func sources(results []core.SearchResult) []Source {
	out := make([]Source, len(results))
	for i, r := range results {
		out[i] = Source{
			ID:       r.Document.ID,
			Content:  preview(r.Document.Content),
			Score:    r.Score,
			Metadata: r.Document.Metadata,
		}
	}
	return out
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "..."
}
