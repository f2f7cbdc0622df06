package types

import (
	"errors"
	"time"
)

// Config holds backend selection and parameters for attaching the
// daybook storage.
type Config struct {
	Backend  string        `json:"backend" yaml:"backend"`
	DataDir  string        `json:"data_dir" yaml:"data_dir"`
	CacheDir string        `json:"cache_dir" yaml:"cache_dir"`
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
	Timezone string        `json:"timezone" yaml:"timezone"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Config validation errors. A missing or unknown backend indicates a
// deployment error and aborts startup.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrCacheTTL       = errors.New("cache TTL must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed, returning a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.CacheTTL < 0 {
		return ErrCacheTTL
	}
	return nil
}
