package store

import (
	"sync"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

// Registry hands out exactly one store instance per (resource, list)
// pair. Each store owns an independent copy of its collection, so a
// second instance for the same pair would diverge from the first.
type Registry struct {
	mu       sync.Mutex
	resource types.Resource
	storage  types.Storage
	opts     []Option

	actions    map[string]*Actions
	habits     *Habits
	activities *Activities
}

// NewRegistry builds a Registry over one resource and one scoped
// storage.
func NewRegistry(resource types.Resource, storage types.Storage, opts ...Option) *Registry {
	return &Registry{
		resource: resource,
		storage:  storage,
		opts:     opts,
		actions:  make(map[string]*Actions),
	}
}

// Actions returns the action store for listID, creating it on first
// use.
func (r *Registry) Actions(listID string) *Actions {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.actions[listID]; ok {
		return s
	}
	s := NewActions(r.resource, r.storage, listID, r.opts...)
	r.actions[listID] = s
	return s
}

// Habits returns the habit store, creating it on first use.
func (r *Registry) Habits() *Habits {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.habits == nil {
		r.habits = NewHabits(r.resource)
	}
	return r.habits
}

// Activities returns the activity store, creating it on first use.
func (r *Registry) Activities() *Activities {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activities == nil {
		r.activities = NewActivities(r.resource, r.storage, r.opts...)
	}
	return r.activities
}

// Cleanup tears down every store the registry handed out.
func (r *Registry) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.actions {
		s.Cleanup()
	}
	if r.habits != nil {
		r.habits.Cleanup()
	}
	if r.activities != nil {
		r.activities.Cleanup()
	}
}
