package types

import (
	"time"

	"github.com/mesh-intelligence/daybook/pkg/period"
)

// Habit is a recurring practice tracked per period bucket of its scope.
type Habit struct {
	ID        string
	Name      string
	Scope     period.Scope
	Category  string
	Archived  bool
	CreatedAt time.Time
}

// HabitFromRow hydrates a Habit from a table row.
func HabitFromRow(row Row) Habit {
	return Habit{
		ID:        row.String("id"),
		Name:      row.String("name"),
		Scope:     period.Scope(row.String("scope")),
		Category:  row.String("category"),
		Archived:  row.Bool("archived"),
		CreatedAt: row.Time("created_at"),
	}
}

// ToRow dehydrates a Habit into a table row.
func (h Habit) ToRow() Row {
	row := Row{
		"name":     h.Name,
		"scope":    string(h.Scope),
		"category": h.Category,
		"archived": h.Archived,
	}
	if h.ID != "" {
		row["id"] = h.ID
	}
	if !h.CreatedAt.IsZero() {
		row["created_at"] = h.CreatedAt
	}
	return row
}

// Activity records that a habit was completed in one period bucket.
type Activity struct {
	HabitID   string
	Scope     period.Scope
	PeriodKey string
}

// ActivityFromRow hydrates an Activity from a table row.
func ActivityFromRow(row Row) Activity {
	return Activity{
		HabitID:   row.String("habit_id"),
		Scope:     period.Scope(row.String("scope")),
		PeriodKey: row.String("period_key"),
	}
}

// ToRow dehydrates an Activity into a table row.
func (a Activity) ToRow() Row {
	return Row{
		"habit_id":   a.HabitID,
		"scope":      string(a.Scope),
		"period_key": a.PeriodKey,
	}
}
