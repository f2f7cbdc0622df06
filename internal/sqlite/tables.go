package sqlite

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

// tableSchemas whitelists the columns of every table; query building
// only ever interpolates names found here.
var tableSchemas = map[string][]string{
	types.TableActions:    {"id", "list_id", "parent_id", "description", "status", "priority", "created_at", "deleted_at"},
	types.TableHabits:     {"id", "name", "scope", "category", "archived", "created_at"},
	types.TableActivities: {"habit_id", "scope", "period_key", "created_at"},
}

// boolColumns and timeColumns drive row hydration: SQLite stores these
// as integers and RFC 3339 strings respectively.
var (
	boolColumns = map[string]bool{"status": true, "archived": true}
	timeColumns = map[string]bool{"created_at": true, "deleted_at": true}
)

func tableColumns(table string) ([]string, error) {
	columns, ok := tableSchemas[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownTable, table)
	}
	return columns, nil
}

func hasColumn(table, column string) bool {
	for _, col := range tableSchemas[table] {
		if col == column {
			return true
		}
	}
	return false
}

func validateColumns(table string, row types.Row) error {
	if _, err := tableColumns(table); err != nil {
		return err
	}
	for col := range row {
		if !hasColumn(table, col) {
			return fmt.Errorf("%w: %s.%s", types.ErrInvalidColumn, table, col)
		}
	}
	return nil
}

// toStorable converts a row value into its SQLite representation.
func toStorable(v any) any {
	switch value := v.(type) {
	case bool:
		if value {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return value.UTC().Format(time.RFC3339Nano)
	case types.Priority:
		return int64(value)
	default:
		return v
	}
}

// fromStorable converts a scanned SQLite value back into the row
// representation. NULL maps to an absent value.
func fromStorable(table, column string, v any) any {
	if v == nil {
		return nil
	}
	switch {
	case boolColumns[column]:
		if n, ok := v.(int64); ok {
			return n != 0
		}
	case timeColumns[column]:
		if s, ok := v.(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t
			}
		}
	}
	switch value := v.(type) {
	case []byte:
		return string(value)
	default:
		return v
	}
}
