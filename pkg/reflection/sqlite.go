package reflection

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// sqliteInspector reads schema metadata from sqlite_master and the
// table_info pragma.
type sqliteInspector struct {
	db *sql.DB
}

func (i *sqliteInspector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tables: %w", err)
	}
	return names, nil
}

func (i *sqliteInspector) DescribeTable(ctx context.Context, name string) ([]ColumnInfo, error) {
	// PRAGMA arguments cannot be bound, so the identifier is quoted
	// inline.
	rows, err := i.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name)))
	if err != nil {
		return nil, fmt.Errorf("describing table %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]ColumnInfo, 0)
	for rows.Next() {
		var (
			cid     int
			colName string
			colType sql.NullString
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scanning column info: %w", err)
		}
		col := ColumnInfo{Name: colName, Nullable: notNull == 0}
		if colType.Valid && colType.String != "" {
			col.Type = &colType.String
		}
		if dflt.Valid {
			col.Default = &dflt.String
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns: %w", err)
	}

	// The pragma returns no rows for a missing table instead of erroring.
	if len(columns) == 0 {
		return nil, ErrTableNotFound
	}
	return columns, nil
}

// quoteIdent double-quotes an identifier, escaping embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Verify interface compliance.
var _ Inspector = (*sqliteInspector)(nil)
