// Package dialect enumerates the SQL dialects the gateway understands and
// maps client-side backend names onto them.
package dialect

import (
	"fmt"
	"strings"
)

// Dialect identifies a SQL dialect understood by the transpiler.
type Dialect string

const (
	// Generic is the ANSI fallback used when a backend name is unknown.
	Generic Dialect = "generic"

	// Postgres is the PostgreSQL dialect.
	Postgres Dialect = "postgres"

	// TSQL is the Microsoft SQL Server dialect.
	TSQL Dialect = "tsql"

	// MySQL is the MySQL dialect.
	MySQL Dialect = "mysql"

	// Oracle is the Oracle dialect.
	Oracle Dialect = "oracle"

	// SQLite is the SQLite dialect.
	SQLite Dialect = "sqlite"
)

// All lists the dialects accepted in submitted queries.
var All = []Dialect{Postgres, TSQL, MySQL, Oracle, SQLite, Generic}

// Parse validates a dialect name supplied by a client.
func Parse(s string) (Dialect, error) {
	d := Dialect(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown dialect %q", s)
}

// backendDialects maps toolkit backend names to transpiler dialects.
var backendDialects = map[string]Dialect{
	"postgresql": Postgres,
	"postgres":   Postgres,
	"mssql":      TSQL,
	"mysql":      MySQL,
	"oracle":     Oracle,
	"sqlite":     SQLite,
}

// FromBackend resolves a toolkit backend name to a transpiler dialect,
// falling back to the generic dialect when the backend is unknown.
func FromBackend(backend string) Dialect {
	if d, ok := backendDialects[strings.ToLower(backend)]; ok {
		return d
	}
	return Generic
}

// ForDriver returns the write dialect of a database/sql driver.
func ForDriver(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3":
		return SQLite, nil
	case "postgres":
		return Postgres, nil
	default:
		return "", fmt.Errorf("no dialect for driver %q", driver)
	}
}
