// Package sqlite implements the daybook Resource contract over an
// embedded SQLite database, standing in for the hosted backend: rows
// get server-assigned ids and timestamps on insert, and every mutation
// fans change events out to the table's subscribers.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// Compile-time interface check: Backend must implement Resource.
var _ types.Resource = (*Backend)(nil)

// Backend implements the Resource contract using SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	db       *sql.DB
	notifier *notifier
	now      func() time.Time
}

// NewBackend creates an unattached backend; call Attach with a Config
// to open the database.
func NewBackend() *Backend {
	return &Backend{
		notifier: newNotifier(),
		now:      time.Now,
	}
}

// Attach opens the database under config.DataDir (or in memory when
// the dir is empty) and bootstraps the schema. Returns ErrAttached if
// called while already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dsn := ":memory:"
	if config.DataDir != "" {
		if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		dsn = filepath.Join(config.DataDir, "daybook.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("bootstrapping schema: %w", err)
	}

	b.db = db
	b.attached = true
	return nil
}

// Detach closes the database and all subscriptions. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.notifier.closeAll()
	err := b.db.Close()
	b.db = nil
	b.attached = false
	return err
}

// Select returns the rows of table matching every filter, sorted by
// order.
func (b *Backend) Select(ctx context.Context, table string, filters []types.Filter, order []types.Order) ([]types.Row, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}
	return b.selectLocked(ctx, table, filters, order)
}

// Insert stores the rows, assigning a UUID v7 id and a creation
// timestamp where the table defines them, and returns the completed
// rows. Subscribers receive one INSERT event per row.
func (b *Backend) Insert(ctx context.Context, table string, rows []types.Row) ([]types.Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return nil, types.ErrDetached
	}
	columns, err := tableColumns(table)
	if err != nil {
		return nil, err
	}

	inserted := make([]types.Row, 0, len(rows))
	for _, row := range rows {
		completed, err := b.completeRow(table, row)
		if err != nil {
			return nil, err
		}

		cols := make([]string, 0, len(completed))
		placeholders := make([]string, 0, len(completed))
		args := make([]any, 0, len(completed))
		for _, col := range columns {
			v, ok := completed[col]
			if !ok {
				continue
			}
			cols = append(cols, col)
			placeholders = append(placeholders, "?")
			args = append(args, toStorable(v))
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
		if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("inserting into %s: %w", table, err)
		}
		inserted = append(inserted, completed)
	}

	for _, row := range inserted {
		b.notifier.publish(types.ChangeEvent{Type: types.ChangeInsert, Table: table, New: row})
	}
	return inserted, nil
}

// Update applies patch to every row matching the filters. Subscribers
// receive one UPDATE event per affected row, carrying the row before
// and after the patch.
func (b *Backend) Update(ctx context.Context, table string, patch types.Row, filters []types.Filter) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}
	if err := validateColumns(table, patch); err != nil {
		return err
	}

	olds, err := b.selectLocked(ctx, table, filters, nil)
	if err != nil {
		return err
	}

	columns, _ := tableColumns(table)
	sets := make([]string, 0, len(patch))
	args := make([]any, 0, len(patch))
	for _, col := range columns {
		v, ok := patch[col]
		if !ok {
			continue
		}
		sets = append(sets, col+" = ?")
		args = append(args, toStorable(v))
	}
	if len(sets) == 0 {
		return nil
	}

	where, whereArgs, err := buildWhere(table, filters)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), where)
	if _, err := b.db.ExecContext(ctx, query, append(args, whereArgs...)...); err != nil {
		return fmt.Errorf("updating %s: %w", table, err)
	}

	for _, old := range olds {
		updated := make(types.Row, len(old))
		for k, v := range old {
			updated[k] = v
		}
		for k, v := range patch {
			updated[k] = v
		}
		b.notifier.publish(types.ChangeEvent{Type: types.ChangeUpdate, Table: table, New: updated, Old: old})
	}
	return nil
}

// Delete removes every row matching the filters. Subscribers receive
// one DELETE event per removed row.
func (b *Backend) Delete(ctx context.Context, table string, filters []types.Filter) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	olds, err := b.selectLocked(ctx, table, filters, nil)
	if err != nil {
		return err
	}

	where, whereArgs, err := buildWhere(table, filters)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s%s", table, where)
	if _, err := b.db.ExecContext(ctx, query, whereArgs...); err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}

	for _, old := range olds {
		b.notifier.publish(types.ChangeEvent{Type: types.ChangeDelete, Table: table, Old: old})
	}
	return nil
}

// Subscribe registers handler for change events on table. Events are
// delivered on a dedicated goroutine per subscription.
func (b *Backend) Subscribe(table string, handler types.ChangeHandler) (types.Subscription, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}
	if _, err := tableColumns(table); err != nil {
		return nil, err
	}
	return b.notifier.subscribe(table, handler), nil
}

func (b *Backend) selectLocked(ctx context.Context, table string, filters []types.Filter, order []types.Order) ([]types.Row, error) {
	columns, err := tableColumns(table)
	if err != nil {
		return nil, err
	}

	where, args, err := buildWhere(table, filters)
	if err != nil {
		return nil, err
	}
	orderBy, err := buildOrder(table, order)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s%s", strings.Join(columns, ", "), table, where, orderBy)
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting from %s: %w", table, err)
	}
	defer rows.Close()

	var out []types.Row
	for rows.Next() {
		values := make([]any, len(columns))
		scan := make([]any, len(columns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}

		row := make(types.Row, len(columns))
		for i, col := range columns {
			v := fromStorable(table, col, values[i])
			if v != nil {
				row[col] = v
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// completeRow fills server-assigned fields on an incoming insert row.
func (b *Backend) completeRow(table string, row types.Row) (types.Row, error) {
	if err := validateColumns(table, row); err != nil {
		return nil, err
	}
	completed := make(types.Row, len(row)+2)
	for k, v := range row {
		completed[k] = v
	}
	if hasColumn(table, "id") && completed.String("id") == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generating id: %w", err)
		}
		completed["id"] = id.String()
	}
	if hasColumn(table, "created_at") {
		if _, ok := completed["created_at"]; !ok {
			completed["created_at"] = b.now().UTC().Truncate(time.Millisecond)
		}
	}
	return completed, nil
}

func buildWhere(table string, filters []types.Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	clauses := make([]string, 0, len(filters))
	var args []any
	for _, f := range filters {
		if !hasColumn(table, f.Column) {
			return "", nil, fmt.Errorf("%w: %s.%s", types.ErrInvalidFilter, table, f.Column)
		}
		switch {
		case f.Null:
			clauses = append(clauses, f.Column+" IS NULL")
		case len(f.Values) == 1:
			clauses = append(clauses, f.Column+" = ?")
			args = append(args, toStorable(f.Values[0]))
		case len(f.Values) > 1:
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.Values)), ", ")
			clauses = append(clauses, f.Column+" IN ("+placeholders+")")
			for _, v := range f.Values {
				args = append(args, toStorable(v))
			}
		default:
			return "", nil, fmt.Errorf("%w: %s has no values", types.ErrInvalidFilter, f.Column)
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func buildOrder(table string, order []types.Order) (string, error) {
	if len(order) == 0 {
		return "", nil
	}
	terms := make([]string, 0, len(order))
	for _, o := range order {
		if !hasColumn(table, o.Column) {
			return "", fmt.Errorf("%w: %s.%s", types.ErrInvalidColumn, table, o.Column)
		}
		term := o.Column
		if o.Descending {
			term += " DESC"
		}
		terms = append(terms, term)
	}
	return " ORDER BY " + strings.Join(terms, ", "), nil
}
