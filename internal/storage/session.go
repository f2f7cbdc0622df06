package storage

import (
	"github.com/peterbourgon/diskv/v3"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

// Compile-time interface check.
var _ types.Storage = (*Session)(nil)

// Session is a diskv-backed Storage rooted at a session directory.
// Cache keys are flat and filesystem-safe (resource name plus list id),
// so they map straight to file names.
type Session struct {
	d *diskv.Diskv
}

// NewSession opens (creating if needed) the session store under baseDir.
func NewSession(baseDir string) *Session {
	return &Session{d: diskv.New(diskv.Options{
		BasePath:     baseDir,
		CacheSizeMax: 1024 * 1024, // 1MB
	})}
}

// Get returns the value stored under key.
func (s *Session) Get(key string) ([]byte, bool) {
	value, err := s.d.Read(key)
	if err != nil {
		return nil, false
	}
	return value, true
}

// Set stores value under key.
func (s *Session) Set(key string, value []byte) error {
	return s.d.Write(key, value)
}

// Remove deletes the value under key.
func (s *Session) Remove(key string) {
	_ = s.d.Erase(key)
}

// Dir returns the session base directory, for use with Watch.
func (s *Session) Dir() string {
	return s.d.BasePath
}
