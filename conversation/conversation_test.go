package conversation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, clock *fakeClock, opts ...Option) *Store {
	t.Helper()
	store, err := NewStore(append([]Option{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return store
}

func TestAddMessage(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)

	t.Run("creates the session implicitly", func(t *testing.T) {
		require.NoError(t, store.AddMessage("s1", core.RoleUser, "hello", nil, map[string]any{"k": "v"}))
		session, ok := store.Session("s1")
		require.True(t, ok)
		assert.Equal(t, "user_s1", session.Profile().UserID)
		assert.Equal(t, 1, session.MessageCount())
	})

	t.Run("profile is used on creation", func(t *testing.T) {
		profile := &core.UserProfile{UserID: "alice", Language: "English"}
		require.NoError(t, store.AddMessage("s2", core.RoleUser, "hi", profile, nil))
		session, ok := store.Session("s2")
		require.True(t, ok)
		assert.Equal(t, *profile, session.Profile())
	})

	t.Run("invalid role", func(t *testing.T) {
		err := store.AddMessage("s1", core.Role("bot"), "x", nil, nil)
		assert.ErrorIs(t, err, core.ErrInvalidRole)
	})

	t.Run("empty session id", func(t *testing.T) {
		err := store.AddMessage(" ", core.RoleUser, "x", nil, nil)
		assert.ErrorIs(t, err, ErrEmptySessionID)
	})
}

func TestMessageCap(t *testing.T) {
	store := newTestStore(t, newFakeClock())
	for i := range 120 {
		require.NoError(t, store.AddMessage("s", core.RoleUser, fmt.Sprintf("m%d", i), nil, nil))
	}

	history := store.History("s", 0)
	require.Len(t, history, MaxMessages)
	assert.Equal(t, "m70", history[0].Content)
	assert.Equal(t, "m119", history[len(history)-1].Content)
}

func TestMessageCap_Concurrent(t *testing.T) {
	store := newTestStore(t, newFakeClock(), WithMaxMessages(10))

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 25 {
				_ = store.AddMessage("shared", core.RoleUser, fmt.Sprintf("%d-%d", w, i), nil, nil)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, store.History("shared", 0), 10)
	assert.Equal(t, 1, store.Len())
}

func TestAddMessage_RacingCleanup(t *testing.T) {
	clock := newFakeClock()
	var (
		armed   atomic.Bool
		cleanup sync.WaitGroup
		store   *Store
	)
	// The armed clock read starts a cleanup and stalls, so the cleanup
	// runs while AddMessage is between finding the session and appending.
	now := func() time.Time {
		if armed.CompareAndSwap(true, false) {
			cleanup.Add(1)
			go func() {
				defer cleanup.Done()
				store.CleanupInactiveSessions(DefaultSessionTimeout)
			}()
			time.Sleep(50 * time.Millisecond)
		}
		return clock.Now()
	}
	store, err := NewStore(WithClock(now))
	require.NoError(t, err)

	require.NoError(t, store.AddMessage("s1", core.RoleUser, "first", nil, nil))
	clock.Advance(time.Hour)
	armed.Store(true)
	require.NoError(t, store.AddMessage("s1", core.RoleAssistant, "second", nil, nil))
	cleanup.Wait()

	session, ok := store.Session("s1")
	require.True(t, ok, "session with a fresh message was evicted")
	assert.Equal(t, 2, session.MessageCount())
}

func TestHistory(t *testing.T) {
	store := newTestStore(t, newFakeClock())
	for _, c := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.AddMessage("s", core.RoleUser, c, nil, nil))
	}

	recent := store.History("s", 2)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].Content)
	assert.Equal(t, "d", recent[1].Content)

	assert.Nil(t, store.History("missing", 2))

	recent[0].Content = "changed"
	assert.Equal(t, "c", store.History("s", 2)[0].Content)
}

func TestCleanupInactiveSessions(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)

	require.NoError(t, store.AddMessage("old", core.RoleUser, "x", nil, nil))
	clock.Advance(10 * time.Minute)
	require.NoError(t, store.AddMessage("edge", core.RoleUser, "x", nil, nil))
	clock.Advance(20 * time.Minute)
	require.NoError(t, store.AddMessage("fresh", core.RoleUser, "x", nil, nil))
	clock.Advance(time.Minute)

	// old: 31m idle, edge: 21m idle, fresh: 1m idle
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, 2, store.ActiveSessionCount(DefaultSessionTimeout))

	removed := store.CleanupInactiveSessions(DefaultSessionTimeout)
	assert.Equal(t, 1, removed)
	_, ok := store.Session("old")
	assert.False(t, ok)
	_, ok = store.Session("edge")
	assert.True(t, ok)
	_, ok = store.Session("fresh")
	assert.True(t, ok)

	clock.Advance(9 * time.Minute)
	assert.Equal(t, 1, store.CleanupInactiveSessions(DefaultSessionTimeout))
	assert.Equal(t, 1, store.Len())
}

func TestSessionIsActive(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)
	session, err := store.CreateSession("s", core.UserProfile{})
	require.NoError(t, err)

	now := clock.Now()
	assert.True(t, session.IsActive(now.Add(29*time.Minute), DefaultSessionTimeout))
	assert.False(t, session.IsActive(now.Add(30*time.Minute), DefaultSessionTimeout))
}

func TestContextAndIntent(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)

	session, err := store.GetOrCreate("s", nil)
	require.NoError(t, err)
	_, ok := session.LastUserIntent()
	assert.False(t, ok)

	require.NoError(t, store.AddMessage("s", core.RoleUser, "first", nil, nil))
	clock.Advance(time.Second)
	require.NoError(t, store.AddMessage("s", core.RoleAssistant, "reply", nil, nil))

	intent, ok := session.LastUserIntent()
	require.True(t, ok)
	assert.Equal(t, "first", intent.Query)

	clock.Advance(time.Minute)
	require.NoError(t, store.UpdateContext("s", "topic", "billing"))
	v, ok := session.Context("topic")
	require.True(t, ok)
	assert.Equal(t, "billing", v)
	assert.Equal(t, clock.Now(), session.LastActivity())

	assert.ErrorIs(t, store.UpdateContext("missing", "k", 1), ErrSessionNotFound)

	again, err := store.GetOrCreate("s", &core.UserProfile{UserID: "other"})
	require.NoError(t, err)
	assert.Same(t, session, again)
}

func TestClearSession(t *testing.T) {
	store := newTestStore(t, newFakeClock())
	require.NoError(t, store.AddMessage("s", core.RoleUser, "x", nil, nil))
	assert.True(t, store.ClearSession("s"))
	assert.False(t, store.ClearSession("s"))
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	_, repo, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	clock := newFakeClock()
	store := newTestStore(t, clock, WithRepository(repo))
	require.NoError(t, store.AddMessage("keep", core.RoleUser, "question", nil, nil))
	require.NoError(t, store.AddMessage("keep", core.RoleAssistant, "answer", nil, nil))
	require.NoError(t, store.UpdateContext("keep", "last_query", map[string]any{"success": true}))
	require.NoError(t, store.AddMessage("drop", core.RoleUser, "x", nil, nil))
	require.NoError(t, store.Snapshot(ctx))

	store.ClearSession("drop")
	require.NoError(t, store.Snapshot(ctx))

	restored := newTestStore(t, clock, WithRepository(repo))
	n, err := restored.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	session, ok := restored.Session("keep")
	require.True(t, ok)
	assert.Equal(t, "user_keep", session.Profile().UserID)
	history := restored.History("keep", 0)
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleAssistant, history[1].Role)
	assert.Equal(t, "answer", history[1].Content)
	v, ok := session.Context("last_query")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"success": true}, v)
	assert.True(t, session.LastActivity().Equal(clock.Now()))

	_, ok = restored.Session("drop")
	assert.False(t, ok)
}

func TestPersistenceRequiresRepository(t *testing.T) {
	store := newTestStore(t, newFakeClock())
	assert.ErrorIs(t, store.Snapshot(context.Background()), ErrRepositoryRequired)
	_, err := store.Restore(context.Background())
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	_, err = NewStore(WithRepository(nil))
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}

func TestSweeper(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)
	require.NoError(t, store.AddMessage("s", core.RoleUser, "x", nil, nil))
	clock.Advance(time.Hour)

	sweeper, err := NewSweeper(store, 5*time.Millisecond, DefaultSessionTimeout, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	_, err = NewSweeper(nil, time.Second, time.Second, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)
	_, err = NewSweeper(store, 0, time.Second, nil)
	assert.Error(t, err)
}
