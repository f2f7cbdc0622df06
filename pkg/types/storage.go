package types

// Storage is a scoped key-value port backing the snapshot caches. Its
// lifetime is a session: implementations may discard contents between
// runs.
type Storage interface {
	// Get returns the value stored under key, reporting presence.
	Get(key string) ([]byte, bool)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Remove deletes the value under key. Removing an absent key is
	// not an error.
	Remove(key string)
}
