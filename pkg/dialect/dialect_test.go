package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Dialect
	}{
		{name: "postgres", input: "postgres", want: Postgres},
		{name: "uppercase", input: "TSQL", want: TSQL},
		{name: "whitespace", input: " mysql ", want: MySQL},
		{name: "generic", input: "generic", want: Generic},
		{name: "sqlite", input: "sqlite", want: SQLite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Unknown(t *testing.T) {
	_, err := Parse("duckdb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duckdb")
}

func TestFromBackend(t *testing.T) {
	tests := []struct {
		backend string
		want    Dialect
	}{
		{backend: "postgresql", want: Postgres},
		{backend: "postgres", want: Postgres},
		{backend: "mssql", want: TSQL},
		{backend: "mysql", want: MySQL},
		{backend: "oracle", want: Oracle},
		{backend: "sqlite", want: SQLite},
		{backend: "MySQL", want: MySQL},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			assert.Equal(t, tt.want, FromBackend(tt.backend))
		})
	}
}

func TestFromBackend_UnknownFallsBackToGeneric(t *testing.T) {
	assert.Equal(t, Generic, FromBackend("druid"))
	assert.Equal(t, Generic, FromBackend(""))
}

func TestForDriver(t *testing.T) {
	d, err := ForDriver("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)

	d, err = ForDriver("postgres")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	_, err = ForDriver("mysql")
	require.Error(t, err)
}
