package reflection

import (
	"context"
	"database/sql"
	"fmt"
)

// postgresInspector reads schema metadata from information_schema,
// limited to the public schema.
type postgresInspector struct {
	db *sql.DB
}

func (i *postgresInspector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`)
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

func (i *postgresInspector) DescribeTable(ctx context.Context, name string) ([]ColumnInfo, error) {
	rows, err := i.db.QueryContext(ctx,
		`SELECT column_name, data_type, is_nullable, column_default
		 FROM information_schema.columns
		 WHERE table_schema = 'public' AND table_name = $1
		 ORDER BY ordinal_position`, name)
	if err != nil {
		return nil, fmt.Errorf("describing table %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]ColumnInfo, 0)
	for rows.Next() {
		var (
			colName  string
			colType  sql.NullString
			nullable string
			dflt     sql.NullString
		)
		if err := rows.Scan(&colName, &colType, &nullable, &dflt); err != nil {
			return nil, fmt.Errorf("scanning column info: %w", err)
		}
		col := ColumnInfo{Name: colName, Nullable: nullable == "YES"}
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

	if len(columns) == 0 {
		return nil, ErrTableNotFound
	}
	return columns, nil
}

// Verify interface compliance.
var _ Inspector = (*postgresInspector)(nil)
