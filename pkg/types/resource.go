package types

import (
	"context"
	"errors"
	"time"
)

// Row is one record of a named table, keyed by column name. Values are
// plain Go types: string, bool, int64, time.Time, or nil.
type Row map[string]any

// Filter selects rows of a table. A filter with one value is an
// equality match, one with several values an IN match, and one with
// Null set matches rows where the column is NULL.
type Filter struct {
	Column string
	Values []any
	Null   bool
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Values: []any{value}}
}

// In builds a membership filter over a list of values.
func In(column string, values ...any) Filter {
	return Filter{Column: column, Values: values}
}

// IsNull builds a NULL-column filter.
func IsNull(column string) Filter {
	return Filter{Column: column, Null: true}
}

// Order names a column to sort a selection by.
type Order struct {
	Column     string
	Descending bool
}

// ChangeType classifies a change notification.
type ChangeType string

// Change notification types.
const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent notifies a subscriber of one row-level change. New holds
// the row after the change (insert, update) and Old the row before it
// (update, delete).
type ChangeEvent struct {
	Type  ChangeType
	Table string
	New   Row
	Old   Row
}

// Subscription is an open change-notification channel for one table.
type Subscription interface {
	// Unsubscribe closes the channel. Idempotent.
	Unsubscribe()
}

// ChangeHandler receives change events for a subscribed table.
type ChangeHandler func(ChangeEvent)

// Resource is the narrow surface the stores require of a persistent
// backend: filtered selection, insertion with server-assigned fields,
// batched update and delete, and change subscriptions.
type Resource interface {
	// Select returns the rows of table matching every filter, sorted by
	// order. A nil filter list selects the whole table.
	Select(ctx context.Context, table string, filters []Filter, order []Order) ([]Row, error)

	// Insert stores the given rows and returns them completed with
	// server-assigned fields (id, created_at).
	Insert(ctx context.Context, table string, rows []Row) ([]Row, error)

	// Update applies patch to every row matching the filters.
	Update(ctx context.Context, table string, patch Row, filters []Filter) error

	// Delete removes every row matching the filters.
	Delete(ctx context.Context, table string, filters []Filter) error

	// Subscribe registers handler for change events on table until the
	// returned Subscription is closed.
	Subscribe(table string, handler ChangeHandler) (Subscription, error)
}

// Resource operation errors.
var (
	ErrNotFound      = errors.New("row not found")
	ErrUnknownTable  = errors.New("unknown table")
	ErrInvalidFilter = errors.New("invalid filter column")
	ErrInvalidColumn = errors.New("invalid column")
	ErrDetached      = errors.New("backend is detached")
	ErrAttached      = errors.New("backend is already attached")
)

// Standard table names.
const (
	TableActions    = "actions"
	TableHabits     = "habits"
	TableActivities = "habit_activities"
)

// String reads a string column, tolerating absence and NULL.
func (r Row) String(column string) string {
	v, ok := r[column].(string)
	if !ok {
		return ""
	}
	return v
}

// Bool reads a bool column. Integer 0/1 values are accepted, since
// SQL backends round-trip booleans through integers.
func (r Row) Bool(column string) bool {
	switch v := r[column].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// Int reads an integer column.
func (r Row) Int(column string) int {
	switch v := r[column].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Time reads a timestamp column. RFC 3339 strings are accepted.
func (r Row) Time(column string) time.Time {
	switch v := r[column].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err == nil {
			return t
		}
	}
	return time.Time{}
}
