package client

import "strings"

// Type is the toolkit-side representation of a column type.
type Type int

const (
	// TypeUnknown is used when the wire type name is absent or
	// unrecognized.
	TypeUnknown Type = iota
	TypeInteger
	TypeReal
	TypeNumeric
	TypeText
	TypeBlob
	TypeBoolean
	TypeTimestamp
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	case TypeNumeric:
		return "NUMERIC"
	case TypeText:
		return "TEXT"
	case TypeBlob:
		return "BLOB"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "UNKNOWN"
	}
}

// ColumnDef is a column in the toolkit's native shape.
type ColumnDef struct {
	Name     string
	Type     Type
	Nullable bool
	Default  *string
}

// Constraint describes a key or index. Only the shape is defined; the
// gateway protocol does not expose constraints, so instances are empty.
type Constraint struct {
	Name    *string
	Columns []string
}

// wireColumn is a column as the reflection endpoint returns it.
type wireColumn struct {
	Name     string  `json:"name"`
	Type     *string `json:"type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default"`
}

// typeFor maps a wire type name onto the toolkit type.
func typeFor(name *string) Type {
	if name == nil {
		return TypeUnknown
	}
	upper := strings.ToUpper(*name)
	// Strip length/precision suffixes like VARCHAR(255).
	if i := strings.IndexByte(upper, '('); i >= 0 {
		upper = strings.TrimSpace(upper[:i])
	}

	switch upper {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT", "INT2", "INT4", "INT8", "SERIAL", "BIGSERIAL":
		return TypeInteger
	case "REAL", "FLOAT", "DOUBLE", "DOUBLE PRECISION":
		return TypeReal
	case "NUMERIC", "DECIMAL":
		return TypeNumeric
	case "TEXT", "VARCHAR", "CHAR", "CHARACTER", "CHARACTER VARYING", "CLOB", "NVARCHAR", "NCHAR", "STRING":
		return TypeText
	case "BLOB", "BYTEA", "BINARY", "VARBINARY":
		return TypeBlob
	case "BOOL", "BOOLEAN":
		return TypeBoolean
	case "DATE", "TIME", "DATETIME", "TIMESTAMP", "TIMESTAMP WITH TIME ZONE", "TIMESTAMP WITHOUT TIME ZONE", "TIMESTAMPTZ":
		return TypeTimestamp
	default:
		return TypeUnknown
	}
}
