// Package cache holds read snapshots between store round trips. Entries
// carry an explicit staleness flag: an entry is stale once its TTL passes or
// once a writer marks it, and a stale entry is still returned so callers can
// decide between reloading and serving it flagged.
package cache

// State describes what Get found.
type State int

const (
	Miss State = iota
	Fresh
	Stale
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "miss"
	}
}

// Cache is implemented by LRUCache.
type Cache[T any] interface {
	Get(key string) (T, State)
	Set(key string, data T)
	MarkStale(key string)
	MarkAllStale()
	Delete(key string)
	Size() int
}
