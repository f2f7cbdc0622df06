// Package tracker maintains the habit completion index: a derived view
// of the authoritative activity collection with session overrides
// layered on top and a denormalized completion counter per
// (habit, scope) pair.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mesh-intelligence/daybook/pkg/period"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

// Override states for one bucket key.
const (
	OverrideDone   = "done"
	OverrideUndone = "undone"
)

// Persister confirms a toggle against the remote store. The activity
// store satisfies it.
type Persister interface {
	Toggle(ctx context.Context, habitID string, scope period.Scope, periodKey string) error
}

// Index is the completion index. Bucket keys that existed in the
// authoritative collection at build time are "seeds": toggling a seed
// back to its original state deletes its override instead of keeping a
// no-op correction, so overrides never diverge from authoritative truth
// needlessly.
type Index struct {
	mu      sync.Mutex
	persist Persister

	present   map[string]bool
	counts    map[string]int
	seeds     map[string]bool
	overrides map[string]string
}

// New builds an Index over the given authoritative activities. persist
// may be nil for a purely local index.
func New(activities []types.Activity, persist Persister) *Index {
	x := &Index{
		persist:   persist,
		overrides: make(map[string]string),
	}
	x.rebuildLocked(activities)
	return x
}

// Rebuild re-derives the index, seed set, and counters from the
// authoritative collection. Session overrides survive a rebuild.
func (x *Index) Rebuild(activities []types.Activity) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.rebuildLocked(activities)
}

// Reset clears all session overrides and rebuilds. Used for session
// teardown and test isolation.
func (x *Index) Reset(activities []types.Activity) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.overrides = make(map[string]string)
	x.rebuildLocked(activities)
}

func (x *Index) rebuildLocked(activities []types.Activity) {
	x.present = make(map[string]bool)
	x.counts = make(map[string]int)
	x.seeds = make(map[string]bool)
	for _, activity := range activities {
		key := bucketKey(activity.HabitID, activity.Scope, activity.PeriodKey)
		if x.present[key] {
			continue
		}
		x.present[key] = true
		x.seeds[key] = true
		x.counts[countKey(activity.HabitID, activity.Scope)]++
	}
}

// IsDone reports the completion of one bucket, overrides first.
func (x *Index) IsDone(habitID string, scope period.Scope, periodKey string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.isDoneLocked(habitID, scope, periodKey)
}

func (x *Index) isDoneLocked(habitID string, scope period.Scope, periodKey string) bool {
	key := bucketKey(habitID, scope, periodKey)
	if state, ok := x.overrides[key]; ok {
		return state == OverrideDone
	}
	return x.present[key]
}

// Toggle flips one bucket, adjusting the index, the counter, and the
// override for the key, then confirms through the Persister. The
// index and counter bookkeeping is purely local and cannot fail; if
// the remote confirmation fails, the speculative adjustments are
// reverted and the error returned.
func (x *Index) Toggle(ctx context.Context, habitID string, scope period.Scope, periodKey string) error {
	key := bucketKey(habitID, scope, periodKey)
	ck := countKey(habitID, scope)

	x.mu.Lock()
	undo := x.snapshotLocked(key, ck)
	next := !x.isDoneLocked(habitID, scope, periodKey)

	if next {
		if !x.present[key] {
			x.present[key] = true
			x.counts[ck]++
		}
		if x.seeds[key] {
			delete(x.overrides, key)
		} else {
			x.overrides[key] = OverrideDone
		}
	} else {
		if x.present[key] {
			delete(x.present, key)
			if x.counts[ck] > 0 {
				x.counts[ck]--
			}
		}
		if x.seeds[key] {
			x.overrides[key] = OverrideUndone
		} else {
			delete(x.overrides, key)
		}
	}
	x.mu.Unlock()

	if x.persist == nil {
		return nil
	}
	if err := x.persist.Toggle(ctx, habitID, scope, periodKey); err != nil {
		x.mu.Lock()
		x.restoreLocked(key, ck, undo)
		x.mu.Unlock()
		return err
	}
	return nil
}

// Count returns the maintained counter for one (habit, scope) pair.
func (x *Index) Count(habitID string, scope period.Scope) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.counts[countKey(habitID, scope)]
}

// ComputeCount returns the effective completion count: the maintained
// counter corrected by overrides not yet reflected in the index — plus
// one per done override missing from the index, minus one per undone
// override still present in it.
func (x *Index) ComputeCount(habitID string, scope period.Scope) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	count := x.counts[countKey(habitID, scope)]
	for key, state := range x.overrides {
		overrideHabit, overrideScope, _, ok := splitKey(key)
		if !ok || overrideHabit != habitID || overrideScope != scope {
			continue
		}
		inIndex := x.present[key]
		if state == OverrideDone && !inIndex {
			count++
		} else if state == OverrideUndone && inIndex {
			count--
		}
	}
	return count
}

// SetOverride installs a session override directly.
func (x *Index) SetOverride(habitID string, scope period.Scope, periodKey, state string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.overrides[bucketKey(habitID, scope, periodKey)] = state
}

// DeleteOverride removes a session override directly.
func (x *Index) DeleteOverride(habitID string, scope period.Scope, periodKey string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.overrides, bucketKey(habitID, scope, periodKey))
}

// Overrides returns a copy of the active session overrides.
func (x *Index) Overrides() map[string]string {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make(map[string]string, len(x.overrides))
	for k, v := range x.overrides {
		out[k] = v
	}
	return out
}

// undoState captures everything a toggle may change for one key.
type undoState struct {
	present     bool
	count       int
	override    string
	hasOverride bool
}

func (x *Index) snapshotLocked(key, ck string) undoState {
	override, hasOverride := x.overrides[key]
	return undoState{
		present:     x.present[key],
		count:       x.counts[ck],
		override:    override,
		hasOverride: hasOverride,
	}
}

func (x *Index) restoreLocked(key, ck string, undo undoState) {
	if undo.present {
		x.present[key] = true
	} else {
		delete(x.present, key)
	}
	x.counts[ck] = undo.count
	if undo.hasOverride {
		x.overrides[key] = undo.override
	} else {
		delete(x.overrides, key)
	}
}

func bucketKey(habitID string, scope period.Scope, periodKey string) string {
	return fmt.Sprintf("%s|%s|%s", habitID, scope, periodKey)
}

func countKey(habitID string, scope period.Scope) string {
	return fmt.Sprintf("%s|%s", habitID, scope)
}

func splitKey(key string) (habitID string, scope period.Scope, periodKey string, ok bool) {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], period.Scope(parts[1]), parts[2], true
}
