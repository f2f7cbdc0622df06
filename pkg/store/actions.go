package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

// Actions owns the in-memory action collection for one list, backed by
// a TTL snapshot cache. Mutations are optimistic: the local collection
// changes immediately, the remote call confirms it, and a failed call
// rolls the change back and records the error.
//
// Construct exactly one Actions per (resource, list) pair; two
// instances for the same list would each own an independent copy and
// diverge. The Registry enforces this.
type Actions struct {
	mu       sync.Mutex
	resource types.Resource
	cache    *snapshotCache[types.Action]
	now      func() time.Time
	listID   string

	controller *Controller

	items   []*types.Action
	pending pendingSet
	loading bool
	lastErr error

	draft     string
	subDrafts map[string]string
	editingID string
}

// NewActions builds the action store for listID. storage may be nil to
// disable caching.
func NewActions(resource types.Resource, storage types.Storage, listID string, opts ...Option) *Actions {
	o := buildOptions(opts)
	s := &Actions{
		resource:  resource,
		cache:     newSnapshotCache[types.Action](storage, "actions_"+listID, o.ttl, o.now),
		now:       o.now,
		listID:    listID,
		pending:   make(pendingSet),
		subDrafts: make(map[string]string),
	}
	s.controller = NewController(resource, types.TableActions, s.Load, s.ApplyChange)
	return s
}

// Initialize loads the collection and subscribes to remote changes.
func (s *Actions) Initialize(ctx context.Context) error {
	return s.controller.Initialize(ctx)
}

// Cleanup closes the change subscription. Idempotent.
func (s *Actions) Cleanup() {
	s.controller.Cleanup()
}

// ListID returns the list this store owns.
func (s *Actions) ListID() string { return s.listID }

// Loading reports whether a load is in flight.
func (s *Actions) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last operation error, overwritten by each operation.
func (s *Actions) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Pending reports whether an optimistic mutation is in flight for id.
func (s *Actions) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.has(id)
}

// Load populates the collection. A fresh cache entry is adopted without
// a remote call; otherwise the list is selected from the resource,
// newest first, excluding soft-deleted rows, and a new snapshot is
// written. Load is single-flight: calls while a load is running no-op.
func (s *Actions) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil
	}
	if cached, ok := s.cache.Load(); ok {
		s.adoptLocked(cached)
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()

	rows, err := s.resource.Select(ctx, types.TableActions,
		[]types.Filter{
			types.Eq("list_id", s.listID),
			types.IsNull("deleted_at"),
		},
		[]types.Order{{Column: "created_at", Descending: true}},
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err
		return err
	}

	items := make([]*types.Action, 0, len(rows))
	for _, row := range rows {
		action := types.ActionFromRow(row)
		items = append(items, &action)
	}
	s.items = items
	s.writeCacheLocked()
	return nil
}

// SetDraft stages the text for the next root action.
func (s *Actions) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

// SetSubDraft stages the text for the next sub-action of parentID.
func (s *Actions) SetSubDraft(parentID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subDrafts[parentID] = text
}

// Create inserts a new action from the staged draft (the root draft, or
// the parent's sub-draft when parentID is set). A blank draft is a
// validation no-op. On success the returned row joins the front of the
// collection, the cache is rewritten, and the draft is cleared; on
// failure the collection is untouched, since nothing was added yet.
func (s *Actions) Create(ctx context.Context, parentID string) (*types.Action, error) {
	s.mu.Lock()
	text := s.draft
	if parentID != "" {
		text = s.subDrafts[parentID]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.mu.Unlock()
		return nil, nil
	}
	// The in-flight create is tracked under a synthetic client-side
	// key; the authoritative id exists only once the insert returns.
	clientKey := uuid.NewString()
	s.pending.track(clientKey, fieldCreate, nil)
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()

	row := types.Row{
		"list_id":     s.listID,
		"description": text,
		"status":      false,
		"priority":    int(types.PriorityLow),
	}
	if parentID != "" {
		row["parent_id"] = parentID
	}
	inserted, err := s.resource.Insert(ctx, types.TableActions, []types.Row{row})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.pending.clear(clientKey)
	if err != nil {
		s.lastErr = err
		return nil, err
	}
	if len(inserted) == 0 {
		return nil, nil
	}

	action := types.ActionFromRow(inserted[0])
	s.items = append([]*types.Action{&action}, s.items...)
	if parentID != "" {
		delete(s.subDrafts, parentID)
	} else {
		s.draft = ""
	}
	s.writeCacheLocked()
	return &action, nil
}

// SetStatus flips an action's completion flag optimistically and
// confirms it remotely. Completing an action cascades to its
// currently-incomplete descendants in one batched call; parent and
// descendants form one logical mutation and revert together on
// failure. Un-completing never cascades: descendants keep their own
// status.
func (s *Actions) SetStatus(ctx context.Context, id string, value bool) error {
	s.mu.Lock()
	item := s.findLocked(id)
	if item == nil {
		s.mu.Unlock()
		return types.ErrNotFound
	}
	s.pending.track(id, fieldStatus, item.Status)
	item.Status = value
	s.lastErr = nil
	s.mu.Unlock()

	err := s.resource.Update(ctx, types.TableActions,
		types.Row{"status": value},
		[]types.Filter{types.Eq("id", id)},
	)
	if err != nil {
		s.rollbackStatus(id, err)
		return err
	}

	if value {
		return s.cascadeComplete(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.clear(id)
	s.writeCacheLocked()
	return nil
}

// cascadeComplete marks every incomplete descendant of id complete in a
// single batched remote call.
func (s *Actions) cascadeComplete(ctx context.Context, id string) error {
	s.mu.Lock()
	descendants := s.descendantsLocked(id, func(a *types.Action) bool { return !a.Status })
	if len(descendants) == 0 {
		s.pending.clear(id)
		s.writeCacheLocked()
		s.mu.Unlock()
		return nil
	}
	ids := make([]any, 0, len(descendants))
	for _, d := range descendants {
		d.Status = true
		ids = append(ids, d.ID)
	}
	s.mu.Unlock()

	err := s.resource.Update(ctx, types.TableActions,
		types.Row{"status": true},
		[]types.Filter{types.In("id", ids...)},
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		for _, d := range descendants {
			d.Status = false
		}
		if record, ok := s.pending.take(id, fieldStatus); ok {
			if parent := s.findLocked(id); parent != nil {
				parent.Status = record.original.(bool)
			}
		}
		s.lastErr = err
		return err
	}
	s.pending.clear(id)
	s.writeCacheLocked()
	return nil
}

func (s *Actions) rollbackStatus(id string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.pending.take(id, fieldStatus); ok {
		if item := s.findLocked(id); item != nil {
			item.Status = record.original.(bool)
		}
	}
	s.lastErr = cause
}

// SetPriority changes an action's priority optimistically, reverting on
// remote failure.
func (s *Actions) SetPriority(ctx context.Context, id string, priority types.Priority) error {
	s.mu.Lock()
	item := s.findLocked(id)
	if item == nil {
		s.mu.Unlock()
		return types.ErrNotFound
	}
	s.pending.track(id, fieldPriority, item.Priority)
	item.Priority = priority
	s.lastErr = nil
	s.mu.Unlock()

	err := s.resource.Update(ctx, types.TableActions,
		types.Row{"priority": int(priority)},
		[]types.Filter{types.Eq("id", id)},
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if record, ok := s.pending.take(id, fieldPriority); ok {
			if item := s.findLocked(id); item != nil {
				item.Priority = record.original.(types.Priority)
			}
		}
		s.lastErr = err
		return err
	}
	s.pending.clear(id)
	s.writeCacheLocked()
	return nil
}

// UpdateDescription rewrites an action's text. Blank or identical text
// is a validation no-op. The remote update runs first; the local value
// changes only after it succeeds. The editing marker is cleared on
// every outcome.
func (s *Actions) UpdateDescription(ctx context.Context, id, text string) error {
	defer s.CancelEditing()

	s.mu.Lock()
	item := s.findLocked(id)
	if item == nil {
		s.mu.Unlock()
		return types.ErrNotFound
	}
	text = strings.TrimSpace(text)
	if text == "" || text == item.Description {
		s.mu.Unlock()
		return nil
	}
	s.lastErr = nil
	s.mu.Unlock()

	err := s.resource.Update(ctx, types.TableActions,
		types.Row{"description": text},
		[]types.Filter{types.Eq("id", id)},
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err
		return err
	}
	if item := s.findLocked(id); item != nil {
		item.Description = text
	}
	s.writeCacheLocked()
	return nil
}

// StartEditing marks id as the action currently being edited.
func (s *Actions) StartEditing(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingID = id
}

// CancelEditing clears the editing marker.
func (s *Actions) CancelEditing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingID = ""
}

// EditingID returns the id of the action being edited, if any.
func (s *Actions) EditingID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editingID
}

// Remove soft-deletes an action and its whole subtree in one batched
// remote call. On success the subtree leaves the local collection and
// the cache is rewritten; on failure the collection stays untouched.
func (s *Actions) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.findLocked(id) == nil {
		s.mu.Unlock()
		return types.ErrNotFound
	}
	doomed := map[string]bool{id: true}
	ids := []any{id}
	for _, d := range s.descendantsLocked(id, nil) {
		doomed[d.ID] = true
		ids = append(ids, d.ID)
	}
	s.lastErr = nil
	s.mu.Unlock()

	err := s.resource.Update(ctx, types.TableActions,
		types.Row{"deleted_at": s.now().UTC()},
		[]types.Filter{types.In("id", ids...)},
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err
		return err
	}
	kept := s.items[:0]
	for _, item := range s.items {
		if !doomed[item.ID] {
			kept = append(kept, item)
		}
	}
	s.items = kept
	s.writeCacheLocked()
	return nil
}

// Get returns a copy of the action with the given id.
func (s *Actions) Get(id string) (types.Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item := s.findLocked(id); item != nil {
		return *item, true
	}
	return types.Action{}, false
}

// All returns a copy of the collection in storage order.
func (s *Actions) All() []types.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Action, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, *item)
	}
	return out
}

// Roots returns the top-level actions: incomplete before complete,
// ascending creation time within each group.
func (s *Actions) Roots() []types.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Action
	for _, item := range s.items {
		if item.ParentID == "" {
			out = append(out, *item)
		}
	}
	sortActions(out)
	return out
}

// SubActions returns the direct children of parentID, incomplete before
// complete, ascending creation time within each group.
func (s *Actions) SubActions(parentID string) []types.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Action
	for _, item := range s.items {
		if item.ParentID == parentID {
			out = append(out, *item)
		}
	}
	sortActions(out)
	return out
}

// ApplyChange merges one remote change event into the collection,
// idempotently: an insert for a present id and a delete for an absent
// id are both ignored. An update that sets deleted_at removes the row.
func (s *Actions) ApplyChange(event types.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case types.ChangeInsert:
		incoming := types.ActionFromRow(event.New)
		if incoming.ListID != s.listID || incoming.DeletedAt != nil {
			return
		}
		if s.findLocked(incoming.ID) != nil {
			return
		}
		s.items = append([]*types.Action{&incoming}, s.items...)

	case types.ChangeUpdate:
		incoming := types.ActionFromRow(event.New)
		item := s.findLocked(incoming.ID)
		if item == nil {
			return
		}
		if incoming.DeletedAt != nil {
			s.removeLocked(incoming.ID)
			return
		}
		item.Description = incoming.Description
		item.Status = incoming.Status
		item.Priority = incoming.Priority
		item.ParentID = incoming.ParentID

	case types.ChangeDelete:
		s.removeLocked(event.Old.String("id"))
	}
}

// ClearCache drops the snapshot for this list.
func (s *Actions) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Clear()
}

func (s *Actions) adoptLocked(data []types.Action) {
	items := make([]*types.Action, 0, len(data))
	for i := range data {
		action := data[i]
		items = append(items, &action)
	}
	s.items = items
}

func (s *Actions) writeCacheLocked() {
	snapshot := make([]types.Action, 0, len(s.items))
	for _, item := range s.items {
		snapshot = append(snapshot, *item)
	}
	s.cache.Store(snapshot)
}

func (s *Actions) findLocked(id string) *types.Action {
	for _, item := range s.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (s *Actions) removeLocked(id string) {
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// descendantsLocked collects the transitive descendants of id, in
// breadth-first order, optionally filtered.
func (s *Actions) descendantsLocked(id string, keep func(*types.Action) bool) []*types.Action {
	children := make(map[string][]*types.Action)
	for _, item := range s.items {
		if item.ParentID != "" {
			children[item.ParentID] = append(children[item.ParentID], item)
		}
	}

	var out []*types.Action
	queue := []string{id}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, child := range children[parent] {
			queue = append(queue, child.ID)
			if keep == nil || keep(child) {
				out = append(out, child)
			}
		}
	}
	return out
}

// sortActions orders incomplete before complete, ties by ascending
// creation time.
func sortActions(actions []types.Action) {
	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].Status != actions[j].Status {
			return !actions[i].Status
		}
		return actions[i].CreatedAt.Before(actions[j].CreatedAt)
	})
}
