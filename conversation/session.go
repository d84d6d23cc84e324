package conversation

import (
	"maps"
	"sync"
	"time"

	"github.com/poiesic/docqa/core"
)

// MaxMessages is the default per-session history cap.
const MaxMessages = 50

// DefaultSessionTimeout is how long a session may sit idle before it is
// considered inactive.
const DefaultSessionTimeout = 30 * time.Minute

// Intent describes the most recent user request in a session.
type Intent struct {
	Query     string
	Timestamp time.Time
}

// Session is one conversation. It is safe for concurrent use.
type Session struct {
	mu           sync.Mutex
	id           string
	profile      core.UserProfile
	messages     []core.Message
	contextData  map[string]any
	createdAt    time.Time
	lastActivity time.Time
	maxMessages  int
	now          func() time.Time
}

func newSession(id string, profile core.UserProfile, now func() time.Time, maxMessages int) *Session {
	created := now()
	return &Session{
		id:           id,
		profile:      profile,
		contextData:  map[string]any{},
		createdAt:    created,
		lastActivity: created,
		maxMessages:  maxMessages,
		now:          now,
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Profile returns the profile the session was created with.
func (s *Session) Profile() core.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

func (s *Session) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createdAt
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// MessageCount returns the number of retained messages.
func (s *Session) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *Session) addMessage(msg core.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	if over := len(s.messages) - s.maxMessages; over > 0 {
		s.messages = append(s.messages[:0:0], s.messages[over:]...)
	}
	s.lastActivity = msg.Timestamp
}

// Recent returns up to count of the newest messages in chronological order.
// A count of zero or less returns every message.
func (s *Session) Recent(count int) []core.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages
	if count > 0 && len(msgs) > count {
		msgs = msgs[len(msgs)-count:]
	}
	out := make([]core.Message, len(msgs))
	copy(out, msgs)
	return out
}

// UpdateContext stores value under key and marks the session active.
func (s *Session) UpdateContext(key string, value any) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextData[key] = value
	s.lastActivity = now
}

// Context returns the context value stored under key.
func (s *Session) Context(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.contextData[key]
	return v, ok
}

// ContextData returns a copy of all context values.
func (s *Session) ContextData() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.contextData)
}

// LastUserIntent returns the newest user message as an Intent.
// The boolean is false when the session has no user messages.
func (s *Session) LastUserIntent() (Intent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if m := s.messages[i]; m.Role == core.RoleUser {
			return Intent{Query: m.Content, Timestamp: m.Timestamp}, true
		}
	}
	return Intent{}, false
}

// IsActive reports whether the session saw activity within timeout of now.
func (s *Session) IsActive(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivity()) < timeout
}
