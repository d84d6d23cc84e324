// Package watch re-indexes documents as they change on disk.
//
// A Watcher follows one or more directory trees with fsnotify. Creates and
// writes of supported files are re-indexed, removals and renames delete the
// file's chunks. Events are coalesced per path for a short debounce window
// and applied on a small worker pool.
package watch
