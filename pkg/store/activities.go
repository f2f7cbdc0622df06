package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/mesh-intelligence/daybook/pkg/period"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

// Override states for a habit-activity key.
const (
	OverrideDone   = "done"
	OverrideUndone = "undone"
)

// OverrideKey builds the composite session-override key for one habit
// period bucket.
func OverrideKey(habitID string, scope period.Scope, periodKey string) string {
	return fmt.Sprintf("%s|%s|%s", habitID, scope, periodKey)
}

// Activities owns the habit-activity collection: one row per completed
// (habit, scope, period) bucket. Toggles write a session override
// first, so reads reflect the change while the remote call is in
// flight; the override is cleared once the call settles either way,
// leaving either the updated collection or the reverted one as truth.
type Activities struct {
	mu       sync.Mutex
	resource types.Resource
	cache    *snapshotCache[types.Activity]

	controller *Controller

	items     []types.Activity
	overrides map[string]string
	loading   bool
	lastErr   error
}

// NewActivities builds the activity store. storage may be nil to
// disable caching.
func NewActivities(resource types.Resource, storage types.Storage, opts ...Option) *Activities {
	o := buildOptions(opts)
	s := &Activities{
		resource:  resource,
		cache:     newSnapshotCache[types.Activity](storage, "habit_activities", o.ttl, o.now),
		overrides: make(map[string]string),
	}
	s.controller = NewController(resource, types.TableActivities, s.Load, s.ApplyChange)
	return s
}

// Initialize loads the collection and subscribes to remote changes.
func (s *Activities) Initialize(ctx context.Context) error {
	return s.controller.Initialize(ctx)
}

// Cleanup closes the subscription and clears all session overrides.
func (s *Activities) Cleanup() {
	s.controller.Cleanup()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = make(map[string]string)
}

// Loading reports whether a load is in flight.
func (s *Activities) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last operation error.
func (s *Activities) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Load populates the collection, cache first, ordered by period key.
// Single-flight: calls while a load is running no-op.
func (s *Activities) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil
	}
	if cached, ok := s.cache.Load(); ok {
		s.items = cached
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()

	rows, err := s.resource.Select(ctx, types.TableActivities, nil,
		[]types.Order{{Column: "period_key"}},
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err
		return err
	}

	items := make([]types.Activity, 0, len(rows))
	for _, row := range rows {
		items = append(items, types.ActivityFromRow(row))
	}
	s.items = items
	s.cache.Store(s.items)
	return nil
}

// Toggle flips the completion of one habit period bucket. The session
// override makes the flip visible immediately; the matching insert or
// delete confirms it remotely. The override is cleared on both
// outcomes: on success the collection already reflects the new state,
// on failure the old collection state stands again.
func (s *Activities) Toggle(ctx context.Context, habitID string, scope period.Scope, periodKey string) error {
	key := OverrideKey(habitID, scope, periodKey)

	s.mu.Lock()
	create := !s.isDoneLocked(habitID, scope, periodKey)
	if create {
		s.overrides[key] = OverrideDone
	} else {
		s.overrides[key] = OverrideUndone
	}
	s.lastErr = nil
	s.mu.Unlock()

	var err error
	if create {
		_, err = s.resource.Insert(ctx, types.TableActivities, []types.Row{{
			"habit_id":   habitID,
			"scope":      string(scope),
			"period_key": periodKey,
		}})
	} else {
		err = s.resource.Delete(ctx, types.TableActivities, []types.Filter{
			types.Eq("habit_id", habitID),
			types.Eq("scope", string(scope)),
			types.Eq("period_key", periodKey),
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, key)
	if err != nil {
		s.lastErr = err
		return err
	}

	if create {
		s.insertLocked(types.Activity{HabitID: habitID, Scope: scope, PeriodKey: periodKey})
	} else {
		s.removeLocked(habitID, scope, periodKey)
	}
	s.cache.Store(s.items)
	return nil
}

// Upsert forces the bucket to the given state, toggling only when the
// current state differs.
func (s *Activities) Upsert(ctx context.Context, habitID string, scope period.Scope, periodKey string, done bool) error {
	if s.IsDone(habitID, scope, periodKey) == done {
		return nil
	}
	return s.Toggle(ctx, habitID, scope, periodKey)
}

// IsDone reports the completion of one bucket, consulting session
// overrides before the authoritative collection.
func (s *Activities) IsDone(habitID string, scope period.Scope, periodKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isDoneLocked(habitID, scope, periodKey)
}

// KeysForHabit returns the completed period keys of one habit and
// scope, with session overrides applied. Used for streak calculation.
func (s *Activities) KeysForHabit(habitID string, scope period.Scope) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for _, activity := range s.items {
		if activity.HabitID == habitID && activity.Scope == scope {
			keys = append(keys, activity.PeriodKey)
		}
	}

	for key, state := range s.overrides {
		habit, overrideScope, periodKey, ok := splitOverrideKey(key)
		if !ok || habit != habitID || overrideScope != scope {
			continue
		}
		switch state {
		case OverrideDone:
			if !slices.Contains(keys, periodKey) {
				keys = append(keys, periodKey)
			}
		case OverrideUndone:
			keys = removeString(keys, periodKey)
		}
	}
	return keys
}

// All returns a copy of the authoritative collection.
func (s *Activities) All() []types.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Activity, len(s.items))
	copy(out, s.items)
	return out
}

// Overrides returns a copy of the active session overrides.
func (s *Activities) Overrides() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.overrides))
	for k, v := range s.overrides {
		out[k] = v
	}
	return out
}

// ApplyChange merges one remote change event idempotently: an insert
// for a present bucket and a delete for an absent one are ignored.
func (s *Activities) ApplyChange(event types.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case types.ChangeInsert:
		s.insertLocked(types.ActivityFromRow(event.New))
	case types.ChangeDelete:
		old := types.ActivityFromRow(event.Old)
		s.removeLocked(old.HabitID, old.Scope, old.PeriodKey)
	}
}

// ClearCache drops the activity snapshot.
func (s *Activities) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Clear()
}

func (s *Activities) isDoneLocked(habitID string, scope period.Scope, periodKey string) bool {
	if state, ok := s.overrides[OverrideKey(habitID, scope, periodKey)]; ok {
		return state == OverrideDone
	}
	return s.indexOfLocked(habitID, scope, periodKey) >= 0
}

func (s *Activities) indexOfLocked(habitID string, scope period.Scope, periodKey string) int {
	for i, activity := range s.items {
		if activity.HabitID == habitID && activity.Scope == scope && activity.PeriodKey == periodKey {
			return i
		}
	}
	return -1
}

func (s *Activities) insertLocked(activity types.Activity) {
	if s.indexOfLocked(activity.HabitID, activity.Scope, activity.PeriodKey) >= 0 {
		return
	}
	s.items = append(s.items, activity)
}

func (s *Activities) removeLocked(habitID string, scope period.Scope, periodKey string) {
	if i := s.indexOfLocked(habitID, scope, periodKey); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
}

func splitOverrideKey(key string) (habitID string, scope period.Scope, periodKey string, ok bool) {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], period.Scope(parts[1]), parts[2], true
}

func removeString(list []string, s string) []string {
	if i := slices.Index(list, s); i >= 0 {
		return append(list[:i], list[i+1:]...)
	}
	return list
}
