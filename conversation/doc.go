// Package conversation keeps per-session message history and context data
// for multi-turn question answering.
//
// A Store holds every live session in memory. Sessions are created
// implicitly by AddMessage and hold at most MaxMessages messages, oldest
// first out. Inactive sessions are evicted with CleanupInactiveSessions,
// usually from a Sweeper running in the background:
//
//	store, _ := conversation.NewStore()
//	sweeper, _ := conversation.NewSweeper(store, time.Minute, conversation.DefaultSessionTimeout)
//	go sweeper.Run(ctx)
//
// When a storage.SessionRepository is configured, Snapshot and Restore move
// the sessions to and from durable storage.
package conversation
