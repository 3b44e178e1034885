// Package record persists the gateway's append-only query audit trail.
package record

import (
	"time"

	"github.com/omnidb-project/omnidb/pkg/dialect"
	"github.com/omnidb-project/omnidb/pkg/engine"
)

// State is the terminal disposition of a submitted query.
type State string

const (
	// StateAccepted marks a query that has not finished executing. It is
	// never persisted; every stored record is FINISHED or FAILED.
	StateAccepted State = "ACCEPTED"

	// StateFinished marks a query whose transpilation and execution both
	// succeeded, including the zero-statement case.
	StateFinished State = "FINISHED"

	// StateFailed marks a query that failed to transpile or execute.
	StateFailed State = "FAILED"
)

// Query is a submitted query before execution. Immutable once created.
type Query struct {
	Dialect      dialect.Dialect `json:"dialect"`
	SubmittedSQL string          `json:"submitted_sql"`
}

// Record is the durable outcome of one submitted query. It is fully
// populated before being written and never mutated afterwards.
type Record struct {
	// ID is assigned by the store on append.
	ID int64 `json:"id,omitempty"`

	// RecordID correlates log lines with the persisted row.
	RecordID string `json:"record_id"`

	Query

	ExecutedSQL string                   `json:"executed_sql"`
	Results     []engine.StatementResult `json:"results"`
	Started     time.Time                `json:"started"`
	Finished    time.Time                `json:"finished"`
	State       State                    `json:"state"`
}
