// Package engine executes transpiled statement batches against the backing
// store and captures per-statement column metadata and rows.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Column describes one result column. Type is absent when the backing
// store reports no type name, as for non-row-returning statements.
type Column struct {
	Name string  `json:"name"`
	Type *string `json:"type"`
}

// StatementResult captures the outcome of one executed statement.
type StatementResult struct {
	Statement string   `json:"statement"`
	Columns   []Column `json:"columns"`
	Rows      [][]any  `json:"rows"`
}

// ExecutionError reports the statement whose failure aborted a batch.
type ExecutionError struct {
	Statement string
	Err       error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("executing %q: %v", e.Statement, e.Err)
}

// Unwrap returns the backing store's error.
func (e *ExecutionError) Unwrap() error { return e.Err }

// IsExecutionError reports whether err is a statement execution failure.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}

// Config locates the backing store.
type Config struct {
	Driver string
	DSN    string
}

// Executor runs statement batches against the backing store. Each batch
// opens its own connection; nothing is shared between batches.
type Executor struct {
	cfg Config
}

// New creates an executor for the given backing store.
func New(cfg Config) (*Executor, error) {
	if cfg.Driver == "" {
		cfg.Driver = "sqlite3"
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("backing store DSN is required")
	}
	return &Executor{cfg: cfg}, nil
}

// Execute runs the statements strictly in order over a single connection
// and captures columns and rows for each. The first failure aborts the
// batch: no partial results are returned. There is no retry.
func (e *Executor) Execute(ctx context.Context, statements []string) ([]StatementResult, error) {
	db, err := sql.Open(e.cfg.Driver, e.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening backing store: %w", err)
	}
	defer func() { _ = db.Close() }()

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to backing store: %w", err)
	}
	defer func() { _ = conn.Close() }()

	results := make([]StatementResult, 0, len(statements))
	for _, statement := range statements {
		result, err := runStatement(ctx, conn, statement)
		if err != nil {
			return nil, &ExecutionError{Statement: statement, Err: err}
		}
		results = append(results, result)
	}
	return results, nil
}

func runStatement(ctx context.Context, conn *sql.Conn, statement string) (StatementResult, error) {
	rows, err := conn.QueryContext(ctx, statement)
	if err != nil {
		return StatementResult{}, err
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return StatementResult{}, fmt.Errorf("reading column metadata: %w", err)
	}

	columns := make([]Column, len(types))
	for i, ct := range types {
		columns[i] = Column{Name: ct.Name()}
		if name := ct.DatabaseTypeName(); name != "" {
			columns[i].Type = &name
		}
	}

	captured := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return StatementResult{}, fmt.Errorf("scanning row: %w", err)
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = normalizeValue(v)
		}
		captured = append(captured, row)
	}
	if err := rows.Err(); err != nil {
		return StatementResult{}, err
	}

	return StatementResult{Statement: statement, Columns: columns, Rows: captured}, nil
}

// normalizeValue reduces driver-specific scan types to the scalar set the
// record store round-trips through JSON: nil, bool, int64, float64, string.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, int64, float64, string:
		return val
	case []byte:
		return string(val)
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}
