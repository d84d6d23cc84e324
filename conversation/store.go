package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

// Store holds live conversation sessions keyed by session id.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	repo        storage.SessionRepository
	maxMessages int
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "conversation-store")
		return nil
	}
}

// WithClock replaces time.Now for activity tracking.
func WithClock(now func() time.Time) Option {
	return func(s *Store) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// WithMaxMessages overrides the per-session history cap.
// Default is MaxMessages.
func WithMaxMessages(n int) Option {
	return func(s *Store) error {
		if n < 1 {
			return fmt.Errorf("max messages must be positive, got %d", n)
		}
		s.maxMessages = n
		return nil
	}
}

// WithRepository enables Snapshot and Restore.
func WithRepository(repo storage.SessionRepository) Option {
	return func(s *Store) error {
		if repo == nil {
			return ErrRepositoryRequired
		}
		s.repo = repo
		return nil
	}
}

// NewStore creates an empty session store.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		sessions:    make(map[string]*Session),
		maxMessages: MaxMessages,
		now:         time.Now,
		logger:      slog.Default().With("component", "conversation-store"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// CreateSession creates, or replaces, the session with the given id.
func (s *Store) CreateSession(sessionID string, profile core.UserProfile) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrEmptySessionID
	}
	if profile.UserID == "" {
		profile.UserID = defaultUserID(sessionID)
	}
	session := newSession(sessionID, profile, s.now, s.maxMessages)

	s.mu.Lock()
	s.sessions[sessionID] = session
	s.mu.Unlock()

	s.logger.Debug("session created", "session_id", sessionID, "user_id", profile.UserID)
	return session, nil
}

// Session returns the session with the given id.
func (s *Store) Session(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

// GetOrCreate returns the existing session or creates one with profile.
func (s *Store) GetOrCreate(sessionID string, profile *core.UserProfile) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrEmptySessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(sessionID, profile), nil
}

// getOrCreateLocked must be called with s.mu held for writing.
func (s *Store) getOrCreateLocked(sessionID string, profile *core.UserProfile) *Session {
	if session, ok := s.sessions[sessionID]; ok {
		return session
	}

	p := core.UserProfile{UserID: defaultUserID(sessionID)}
	if profile != nil {
		p = *profile
		if p.UserID == "" {
			p.UserID = defaultUserID(sessionID)
		}
	}
	session := newSession(sessionID, p, s.now, s.maxMessages)
	s.sessions[sessionID] = session
	return session
}

// AddMessage appends a message to a session, creating the session when it
// does not exist yet. The profile is only used on creation. The store lock
// is held across the append so a concurrent cleanup cannot evict the
// session in between.
func (s *Store) AddMessage(sessionID string, role core.Role, content string, profile *core.UserProfile, metadata map[string]any) error {
	if err := core.ValidateRole(role); err != nil {
		return err
	}
	if strings.TrimSpace(sessionID) == "" {
		return ErrEmptySessionID
	}
	msg := core.Message{
		Role:     role,
		Content:  content,
		Metadata: core.CloneMetadata(metadata),
	}

	s.mu.RLock()
	if session, ok := s.sessions[sessionID]; ok {
		msg.Timestamp = s.now()
		session.addMessage(msg)
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.getOrCreateLocked(sessionID, profile)
	msg.Timestamp = s.now()
	session.addMessage(msg)
	return nil
}

// UpdateContext stores a context value on an existing session.
func (s *Store) UpdateContext(sessionID, key string, value any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	session.UpdateContext(key, value)
	return nil
}

// History returns up to limit of the newest messages of a session.
// Unknown sessions yield nil. A limit of zero or less returns everything.
func (s *Store) History(sessionID string, limit int) []core.Message {
	session, ok := s.Session(sessionID)
	if !ok {
		return nil
	}
	return session.Recent(limit)
}

// ClearSession removes a session and reports whether it existed.
func (s *Store) ClearSession(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

// CleanupInactiveSessions removes every session idle for at least timeout
// and returns how many were removed.
func (s *Store) CleanupInactiveSessions(timeout time.Duration) int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if !session.IsActive(now, timeout) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("removed inactive sessions", "count", removed, "remaining", len(s.sessions))
	}
	return removed
}

// ActiveSessionCount returns the number of sessions active within timeout.
func (s *Store) ActiveSessionCount(timeout time.Duration) int {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, session := range s.sessions {
		if session.IsActive(now, timeout) {
			count++
		}
	}
	return count
}

// Len returns the number of held sessions, active or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Snapshot writes every session to the repository. Stored sessions that no
// longer exist in memory are deleted.
func (s *Store) Snapshot(ctx context.Context) error {
	if s.repo == nil {
		return ErrRepositoryRequired
	}

	s.mu.RLock()
	live := maps.Clone(s.sessions)
	s.mu.RUnlock()

	stored, err := s.repo.LoadSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stored sessions: %w", err)
	}
	for _, rec := range stored {
		if _, ok := live[rec.SessionID]; ok {
			continue
		}
		if err := s.repo.DeleteSession(ctx, rec.SessionID); err != nil {
			return fmt.Errorf("failed to delete stale session %s: %w", rec.SessionID, err)
		}
	}

	records := make([]*core.SessionRecord, 0, len(live))
	for _, session := range live {
		rec, err := toRecord(session)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	if err := s.repo.SaveSessions(ctx, records...); err != nil {
		return fmt.Errorf("failed to save sessions: %w", err)
	}

	s.logger.Info("sessions saved", "count", len(records))
	return nil
}

// Restore loads every stored session into memory, replacing sessions with
// the same id. It returns the number of sessions loaded.
func (s *Store) Restore(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, ErrRepositoryRequired
	}

	records, err := s.repo.LoadSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load sessions: %w", err)
	}

	restored := make([]*Session, 0, len(records))
	for _, rec := range records {
		session, err := fromRecord(rec, s.now, s.maxMessages)
		if err != nil {
			s.logger.Warn("skipping unreadable session", "session_id", rec.SessionID, "err", err)
			continue
		}
		restored = append(restored, session)
	}

	s.mu.Lock()
	for _, session := range restored {
		s.sessions[session.id] = session
	}
	s.mu.Unlock()

	s.logger.Info("sessions restored", "count", len(restored))
	return len(restored), nil
}

func defaultUserID(sessionID string) string {
	return "user_" + sessionID
}

func toRecord(session *Session) (*core.SessionRecord, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	contextText, err := storage.EncodeMetadata(session.contextData)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", session.id, err)
	}
	messages := make([]core.MessageRecord, len(session.messages))
	for i, m := range session.messages {
		messages[i] = core.MessageRecord{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp}
	}
	return &core.SessionRecord{
		SessionID:    session.id,
		UserID:       session.profile.UserID,
		Messages:     messages,
		Context:      contextText,
		CreatedAt:    session.createdAt,
		LastActivity: session.lastActivity,
	}, nil
}

func fromRecord(rec *core.SessionRecord, now func() time.Time, maxMessages int) (*Session, error) {
	contextData, err := storage.DecodeMetadata(rec.Context)
	if err != nil {
		return nil, err
	}
	session := newSession(rec.SessionID, core.UserProfile{UserID: rec.UserID}, now, maxMessages)
	session.contextData = contextData
	session.createdAt = rec.CreatedAt
	for _, m := range rec.Messages {
		session.messages = append(session.messages, core.Message{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Metadata:  map[string]any{},
		})
	}
	if over := len(session.messages) - maxMessages; over > 0 {
		session.messages = session.messages[over:]
	}
	session.lastActivity = rec.LastActivity
	return session, nil
}
