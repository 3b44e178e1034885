// Package pipeline orchestrates the life of a submitted query: dialect
// tagging, transpilation, execution, result capture, state transition and
// the audit write. Each submission produces exactly one terminal record.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/omnidb-project/omnidb/pkg/dialect"
	"github.com/omnidb-project/omnidb/pkg/engine"
	"github.com/omnidb-project/omnidb/pkg/record"
	"github.com/omnidb-project/omnidb/pkg/transpile"
)

// Transpiler rewrites SQL from the read dialect into the write dialect.
type Transpiler func(sql string, read, write dialect.Dialect) ([]string, error)

// Executor runs a statement batch against the backing store.
type Executor interface {
	Execute(ctx context.Context, statements []string) ([]engine.StatementResult, error)
}

// Store appends completed records to the audit trail.
type Store interface {
	Append(ctx context.Context, rec record.Record) error
}

// PersistError reports that a query ran but its audit record could not be
// written. The record itself is still returned to the caller.
type PersistError struct {
	Err error
}

// Error implements the error interface.
func (e *PersistError) Error() string { return "saving query record: " + e.Err.Error() }

// Unwrap returns the store's error.
func (e *PersistError) Unwrap() error { return e.Err }

// Config assembles a pipeline. All fields except Transpiler and Logger are
// required; the config is read-only after construction.
type Config struct {
	WriteDialect dialect.Dialect
	Transpiler   Transpiler
	Executor     Executor
	Store        Store
	Logger       *slog.Logger
}

// Pipeline owns the ACCEPTED -> FINISHED | FAILED state machine.
type Pipeline struct {
	write      dialect.Dialect
	transpiler Transpiler
	executor   Executor
	store      Store
	logger     *slog.Logger
}

// New creates a pipeline from the given configuration.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("pipeline executor is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("pipeline store is required")
	}
	if cfg.WriteDialect == "" {
		cfg.WriteDialect = dialect.SQLite
	}
	if cfg.Transpiler == nil {
		cfg.Transpiler = transpile.Transpile
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		write:      cfg.WriteDialect,
		transpiler: cfg.Transpiler,
		executor:   cfg.Executor,
		store:      cfg.Store,
		logger:     cfg.Logger,
	}, nil
}

// Submit runs one query to its terminal state and appends the audit
// record. A transpilation or execution failure yields a FAILED record with
// empty results, not an error; the returned error is non-nil only when the
// audit write fails, and the record is returned either way.
func (p *Pipeline) Submit(ctx context.Context, q record.Query) (record.Record, error) {
	rec := record.Record{
		RecordID: uuid.NewString(),
		Query:    q,
		Results:  []engine.StatementResult{},
		Started:  time.Now().UTC(),
		State:    record.StateAccepted,
	}

	statements, err := p.transpiler(q.SubmittedSQL, q.Dialect, p.write)
	if err != nil {
		p.logger.Warn("transpilation failed",
			"record_id", rec.RecordID, "dialect", q.Dialect, "error", err)
		statements = nil
		rec.State = record.StateFailed
	}

	if len(statements) > 0 {
		results, err := p.executor.Execute(ctx, statements)
		if err != nil {
			// Batch-atomic visibility: results from statements that
			// succeeded before the failure are discarded.
			p.logger.Warn("execution failed",
				"record_id", rec.RecordID, "statements", len(statements), "error", err)
			rec.State = record.StateFailed
		} else {
			rec.Results = results
			rec.State = record.StateFinished
		}
	} else if rec.State != record.StateFailed {
		// Transpilation can legitimately yield zero statements, e.g. for
		// blank input. Treat that as a finished query with no results.
		rec.State = record.StateFinished
	}

	rec.Finished = time.Now().UTC()
	rec.ExecutedSQL = joinStatements(statements)

	if err := p.store.Append(ctx, rec); err != nil {
		return rec, &PersistError{Err: err}
	}

	p.logger.Info("query recorded",
		"record_id", rec.RecordID, "dialect", q.Dialect,
		"state", rec.State, "statements", len(statements))
	return rec, nil
}

// joinStatements renders the executed SQL as one terminated statement per
// line.
func joinStatements(statements []string) string {
	if len(statements) == 0 {
		return ""
	}
	parts := make([]string, len(statements))
	for i, s := range statements {
		parts[i] = s + ";"
	}
	return strings.Join(parts, "\n")
}

// Verify interface compliance.
var (
	_ Executor = (*engine.Executor)(nil)
	_ Store    = (*record.Store)(nil)
)
