package record

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/omnidb-project/omnidb/pkg/dialect"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// timeLayout is the stored timestamp rendering. The fractional second is
// padded to a fixed nine digits so that lexicographic order of the TEXT
// column matches chronological order, which ListAll's ORDER BY depends on.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// queryColumns lists columns returned by SELECT queries, in scan order.
var queryColumns = []string{
	"id", "record_id", "started", "finished", "state",
	"dialect", "submitted_sql", "executed_sql", "results",
}

// Store appends query records to the queries table in the backing store.
// Rows are never updated or deleted.
type Store struct {
	db     *sql.DB
	driver string
	sb     sq.StatementBuilderType
}

// New creates a store over the given backing store handle. The driver name
// selects placeholder style and migration set.
func New(db *sql.DB, driver string) *Store {
	sb := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if driver == "postgres" {
		sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return &Store{db: db, driver: driver, sb: sb}
}

// EnsureSchema creates the queries table if absent. It is idempotent:
// already applied migrations are skipped.
func (s *Store) EnsureSchema() error {
	var driver database.Driver
	var err error
	switch s.driver {
	case "postgres":
		driver, err = migratepg.WithInstance(s.db, &migratepg.Config{})
	case "sqlite3":
		driver, err = migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	default:
		return fmt.Errorf("no migrations for driver %q", s.driver)
	}
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	source, err := iofs.New(migrations, "migrations/"+migrationDir(s.driver))
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, s.driver, driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	slog.Info("audit schema ready", "driver", s.driver)
	return nil
}

func migrationDir(driver string) string {
	if driver == "postgres" {
		return "postgres"
	}
	return "sqlite"
}

// Append inserts a completed record. It never updates existing rows.
func (s *Store) Append(ctx context.Context, rec Record) error {
	results, err := encodeResults(rec)
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}

	query, args, err := s.sb.Insert("queries").
		Columns("record_id", "started", "finished", "state", "dialect",
			"submitted_sql", "executed_sql", "results").
		Values(rec.RecordID,
			formatTime(rec.Started),
			formatTime(rec.Finished),
			string(rec.State),
			string(rec.Dialect),
			rec.SubmittedSQL,
			rec.ExecutedSQL,
			results).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting query record: %w", err)
	}
	return nil
}

// ListAll returns the full audit history, most recently finished first.
func (s *Store) ListAll(ctx context.Context) ([]Record, error) {
	query, args, err := s.sb.Select(queryColumns...).
		From("queries").
		OrderBy("finished DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var started, finished, state, d string
	var results []byte

	err := rows.Scan(&rec.ID, &rec.RecordID, &started, &finished, &state,
		&d, &rec.SubmittedSQL, &rec.ExecutedSQL, &results)
	if err != nil {
		return rec, fmt.Errorf("scanning query record: %w", err)
	}

	rec.State = State(state)
	rec.Dialect = dialect.Dialect(d)

	if rec.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return rec, fmt.Errorf("parsing started timestamp: %w", err)
	}
	if rec.Finished, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return rec, fmt.Errorf("parsing finished timestamp: %w", err)
	}
	if rec.Results, err = decodeResults(results); err != nil {
		return rec, fmt.Errorf("decoding results: %w", err)
	}
	return rec, nil
}
