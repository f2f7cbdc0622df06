package types

import (
	"time"
)

// Priority orders actions by urgency.
type Priority int

// Priority levels.
const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// String returns the display label for a priority.
func (p Priority) String() string {
	switch p {
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	default:
		return "Low"
	}
}

// Action is a todo item in a named list. Actions form a forest: an
// action with a ParentID is a sub-action of another action in the same
// list. A non-nil DeletedAt marks a soft-deleted action, excluded from
// loads.
type Action struct {
	ID          string
	ListID      string
	ParentID    string
	Description string
	Status      bool
	Priority    Priority
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

// ActionFromRow hydrates an Action from a table row.
func ActionFromRow(row Row) Action {
	a := Action{
		ID:          row.String("id"),
		ListID:      row.String("list_id"),
		ParentID:    row.String("parent_id"),
		Description: row.String("description"),
		Status:      row.Bool("status"),
		Priority:    Priority(row.Int("priority")),
		CreatedAt:   row.Time("created_at"),
	}
	if _, ok := row["deleted_at"]; ok {
		if t := row.Time("deleted_at"); !t.IsZero() {
			a.DeletedAt = &t
		}
	}
	return a
}

// ToRow dehydrates an Action into a table row. Server-assigned fields
// (ID, CreatedAt) are included only when set.
func (a Action) ToRow() Row {
	row := Row{
		"list_id":     a.ListID,
		"description": a.Description,
		"status":      a.Status,
		"priority":    int(a.Priority),
	}
	if a.ID != "" {
		row["id"] = a.ID
	}
	if a.ParentID != "" {
		row["parent_id"] = a.ParentID
	}
	if !a.CreatedAt.IsZero() {
		row["created_at"] = a.CreatedAt
	}
	if a.DeletedAt != nil {
		row["deleted_at"] = *a.DeletedAt
	}
	return row
}
