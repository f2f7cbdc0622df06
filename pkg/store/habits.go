package store

import (
	"context"
	"strings"
	"sync"

	"github.com/mesh-intelligence/daybook/pkg/period"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

// Habits owns the in-memory habit collection. Habits are few and cheap
// to load, so the store keeps no snapshot cache; it still follows the
// same single-flight load and last-error surface as the other stores.
type Habits struct {
	mu       sync.Mutex
	resource types.Resource

	controller *Controller

	items   []*types.Habit
	loading bool
	lastErr error
}

// NewHabits builds the habit store.
func NewHabits(resource types.Resource) *Habits {
	s := &Habits{resource: resource}
	s.controller = NewController(resource, types.TableHabits, s.Load, s.ApplyChange)
	return s
}

// Initialize loads the collection and subscribes to remote changes.
func (s *Habits) Initialize(ctx context.Context) error {
	return s.controller.Initialize(ctx)
}

// Cleanup closes the change subscription. Idempotent.
func (s *Habits) Cleanup() {
	s.controller.Cleanup()
}

// Loading reports whether a load is in flight.
func (s *Habits) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last operation error.
func (s *Habits) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Load selects all habits ordered by scope, category, and name.
// Single-flight: calls while a load is running no-op.
func (s *Habits) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()

	rows, err := s.resource.Select(ctx, types.TableHabits, nil,
		[]types.Order{{Column: "scope"}, {Column: "category"}, {Column: "name"}},
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err
		return err
	}

	items := make([]*types.Habit, 0, len(rows))
	for _, row := range rows {
		habit := types.HabitFromRow(row)
		items = append(items, &habit)
	}
	s.items = items
	return nil
}

// Create inserts a new habit. A blank name is a validation no-op.
func (s *Habits) Create(ctx context.Context, name string, scope period.Scope, category string) (*types.Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	s.mu.Lock()
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()

	inserted, err := s.resource.Insert(ctx, types.TableHabits, []types.Row{{
		"name":     name,
		"scope":    string(scope),
		"category": category,
		"archived": false,
	}})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err
		return nil, err
	}
	if len(inserted) == 0 {
		return nil, nil
	}

	habit := types.HabitFromRow(inserted[0])
	s.items = append(s.items, &habit)
	return &habit, nil
}

// Update applies a column patch to one habit remotely, then mirrors it
// into the local collection.
func (s *Habits) Update(ctx context.Context, id string, patch types.Row) error {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()

	err := s.resource.Update(ctx, types.TableHabits, patch,
		[]types.Filter{types.Eq("id", id)},
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err
		return err
	}
	if habit := s.findLocked(id); habit != nil {
		applyHabitPatch(habit, patch)
	}
	return nil
}

// Archive hides a habit from trackers without deleting its history.
func (s *Habits) Archive(ctx context.Context, id string) error {
	return s.Update(ctx, id, types.Row{"archived": true})
}

// Get returns a copy of the habit with the given id.
func (s *Habits) Get(id string) (types.Habit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if habit := s.findLocked(id); habit != nil {
		return *habit, true
	}
	return types.Habit{}, false
}

// All returns a copy of the collection, optionally including archived
// habits.
func (s *Habits) All(includeArchived bool) []types.Habit {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Habit, 0, len(s.items))
	for _, habit := range s.items {
		if habit.Archived && !includeArchived {
			continue
		}
		out = append(out, *habit)
	}
	return out
}

// ApplyChange merges one remote change event idempotently.
func (s *Habits) ApplyChange(event types.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case types.ChangeInsert:
		incoming := types.HabitFromRow(event.New)
		if s.findLocked(incoming.ID) != nil {
			return
		}
		s.items = append(s.items, &incoming)

	case types.ChangeUpdate:
		incoming := types.HabitFromRow(event.New)
		if habit := s.findLocked(incoming.ID); habit != nil {
			habit.Name = incoming.Name
			habit.Scope = incoming.Scope
			habit.Category = incoming.Category
			habit.Archived = incoming.Archived
		}

	case types.ChangeDelete:
		id := event.Old.String("id")
		for i, habit := range s.items {
			if habit.ID == id {
				s.items = append(s.items[:i], s.items[i+1:]...)
				return
			}
		}
	}
}

func (s *Habits) findLocked(id string) *types.Habit {
	for _, habit := range s.items {
		if habit.ID == id {
			return habit
		}
	}
	return nil
}

func applyHabitPatch(habit *types.Habit, patch types.Row) {
	if v, ok := patch["name"]; ok {
		habit.Name, _ = v.(string)
	}
	if v, ok := patch["scope"]; ok {
		if scope, ok := v.(string); ok {
			habit.Scope = period.Scope(scope)
		}
	}
	if v, ok := patch["category"]; ok {
		habit.Category, _ = v.(string)
	}
	if v, ok := patch["archived"]; ok {
		habit.Archived, _ = v.(bool)
	}
}
