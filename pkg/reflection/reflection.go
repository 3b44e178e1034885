// Package reflection exposes table and column metadata of the backing
// store.
package reflection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrTableNotFound is returned when a described table does not exist.
var ErrTableNotFound = errors.New("table not found")

// ColumnInfo describes one column of a table. Type and Default are absent
// when the backing store does not report them.
type ColumnInfo struct {
	Name     string  `json:"name"`
	Type     *string `json:"type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default"`
}

// Inspector reads schema metadata from the backing store.
type Inspector interface {
	// ListTables returns table names in the backing store's native order.
	ListTables(ctx context.Context) ([]string, error)

	// DescribeTable returns the columns of the named table, or
	// ErrTableNotFound.
	DescribeTable(ctx context.Context, name string) ([]ColumnInfo, error)
}

// New returns the inspector for the given backing store driver.
func New(db *sql.DB, driver string) (Inspector, error) {
	switch driver {
	case "sqlite3":
		return &sqliteInspector{db: db}, nil
	case "postgres":
		return &postgresInspector{db: db}, nil
	default:
		return nil, fmt.Errorf("no inspector for driver %q", driver)
	}
}
