package store

import (
	"context"
	"sync"
	"time"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

// fakeResource is an in-test Resource that records every call and can
// be scripted to fail, so the tests can assert both the remote traffic
// a store produces and how it recovers when that traffic fails.
type fakeResource struct {
	mu sync.Mutex

	selectRows []types.Row
	selectErr  error
	insertErr  error
	updateErr  error
	// failOnUpdateCall makes only the n-th Update call (1-based) return
	// updateErr; zero fails every call once updateErr is set.
	failOnUpdateCall int
	deleteErr        error
	subscribeErr     error

	selectCalls    int
	insertCalls    int
	updateCalls    int
	deleteCalls    int
	subscribeCalls int
	unsubscribes   int

	inserts  [][]types.Row
	updates  []updateCall
	deletes  [][]types.Filter
	handlers map[string]types.ChangeHandler

	idSeq int
}

type updateCall struct {
	table   string
	patch   types.Row
	filters []types.Filter
}

var fakeEpoch = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func newFakeResource(rows ...types.Row) *fakeResource {
	return &fakeResource{
		selectRows: rows,
		handlers:   make(map[string]types.ChangeHandler),
	}
}

func (f *fakeResource) Select(ctx context.Context, table string, filters []types.Filter, order []types.Order) ([]types.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectCalls++
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	out := make([]types.Row, len(f.selectRows))
	copy(out, f.selectRows)
	return out, nil
}

func (f *fakeResource) Insert(ctx context.Context, table string, rows []types.Row) ([]types.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.inserts = append(f.inserts, rows)

	out := make([]types.Row, 0, len(rows))
	for _, row := range rows {
		completed := types.Row{}
		for k, v := range row {
			completed[k] = v
		}
		f.idSeq++
		completed["id"] = fakeID(f.idSeq)
		completed["created_at"] = fakeEpoch.Add(time.Duration(f.idSeq) * time.Minute)
		out = append(out, completed)
	}
	return out, nil
}

func (f *fakeResource) Update(ctx context.Context, table string, patch types.Row, filters []types.Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil && (f.failOnUpdateCall == 0 || f.failOnUpdateCall == f.updateCalls) {
		return f.updateErr
	}
	f.updates = append(f.updates, updateCall{table: table, patch: patch, filters: filters})
	return nil
}

func (f *fakeResource) Delete(ctx context.Context, table string, filters []types.Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, filters)
	return nil
}

func (f *fakeResource) Subscribe(table string, handler types.ChangeHandler) (types.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeCalls++
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.handlers[table] = handler
	return &fakeSubscription{resource: f}, nil
}

type fakeSubscription struct {
	resource *fakeResource
	once     sync.Once
}

func (s *fakeSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.resource.mu.Lock()
		defer s.resource.mu.Unlock()
		s.resource.unsubscribes++
	})
}

func fakeID(seq int) string {
	return string(rune('a'+seq-1)) + "1"
}

// actionRow builds a stored action row the way the backend would return
// it from a select.
func actionRow(id, listID, parentID string, status bool, created time.Time) types.Row {
	row := types.Row{
		"id":          id,
		"list_id":     listID,
		"description": "action " + id,
		"status":      status,
		"priority":    int(types.PriorityLow),
		"created_at":  created,
	}
	if parentID != "" {
		row["parent_id"] = parentID
	}
	return row
}

// filterValues extracts the value list of the first filter on column,
// for asserting batched IN calls.
func filterValues(filters []types.Filter, column string) []any {
	for _, f := range filters {
		if f.Column == column {
			return f.Values
		}
	}
	return nil
}
