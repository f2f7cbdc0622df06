// Package store implements the cached collection stores at the heart of
// daybook: each store owns an in-memory collection for one resource,
// transparently backed by a TTL snapshot cache, and mutates it
// optimistically against the remote Resource with rollback on failure.
package store

import (
	"encoding/json"
	"time"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

// DefaultCacheTTL is how long a cached snapshot stays valid.
const DefaultCacheTTL = time.Hour

// cacheEnvelope is the stored form of a snapshot: the full collection
// plus the write instant, in unix milliseconds.
type cacheEnvelope[T any] struct {
	Data      []T   `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// snapshotCache persists full-collection snapshots under one key of the
// scoped Storage. An entry older than the TTL is treated as absent.
type snapshotCache[T any] struct {
	storage types.Storage
	key     string
	ttl     time.Duration
	now     func() time.Time
}

func newSnapshotCache[T any](storage types.Storage, key string, ttl time.Duration, now func() time.Time) *snapshotCache[T] {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &snapshotCache[T]{storage: storage, key: key, ttl: ttl, now: now}
}

// Load returns the cached snapshot if a fresh entry exists. Expired or
// unreadable entries are removed and reported absent.
func (c *snapshotCache[T]) Load() ([]T, bool) {
	if c.storage == nil {
		return nil, false
	}
	raw, ok := c.storage.Get(c.key)
	if !ok {
		return nil, false
	}

	var envelope cacheEnvelope[T]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.storage.Remove(c.key)
		return nil, false
	}
	age := c.now().UnixMilli() - envelope.Timestamp
	if age > c.ttl.Milliseconds() {
		c.storage.Remove(c.key)
		return nil, false
	}
	return envelope.Data, true
}

// Store writes a full-state snapshot. Cache writes are best effort: a
// failing Storage never fails the mutation that triggered the write.
func (c *snapshotCache[T]) Store(data []T) {
	if c.storage == nil {
		return
	}
	raw, err := json.Marshal(cacheEnvelope[T]{Data: data, Timestamp: c.now().UnixMilli()})
	if err != nil {
		return
	}
	_ = c.storage.Set(c.key, raw)
}

// Clear drops the cached snapshot.
func (c *snapshotCache[T]) Clear() {
	if c.storage != nil {
		c.storage.Remove(c.key)
	}
}
