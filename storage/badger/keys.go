package badger

import "fmt"

// Key prefixes for different data types
const (
	indexRecordPrefix = "docidx"
	sessionPrefix     = "sess"
)

// makeIndexKey generates a key for an index entry by ID.
func makeIndexKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", indexRecordPrefix, id))
}

// makeSessionKey generates a key for a session by ID.
func makeSessionKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", sessionPrefix, id))
}

// scanPrefix is the iteration prefix for all keys of one type.
func scanPrefix(prefix string) []byte {
	return []byte(prefix + ":")
}
