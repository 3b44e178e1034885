// Package transpile rewrites SQL text from a source dialect into the
// backing store's dialect. It is a pure function over the submitted text:
// the input is split into statements, each statement is parsed, and the
// result is re-rendered with the write dialect's identifier quoting.
package transpile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/omnidb-project/omnidb/pkg/dialect"
)

// Error reports a statement that could not be rewritten into the write
// dialect.
type Error struct {
	Read      dialect.Dialect
	Write     dialect.Dialect
	Statement string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("transpiling %s to %s: %v", e.Read, e.Write, e.Err)
}

// Unwrap returns the underlying parse error.
func (e *Error) Unwrap() error { return e.Err }

// IsTranspileError reports whether err is a transpilation failure.
func IsTranspileError(err error) bool {
	var te *Error
	return errors.As(err, &te)
}

// Transpile rewrites sql from the read dialect into the write dialect and
// returns one string per statement, in submission order. A failure on any
// statement fails the whole batch. Blank input yields zero statements and
// no error.
func Transpile(sql string, read, write dialect.Dialect) ([]string, error) {
	blob := preprocess(sql, read)

	var statements []string
	for blob != "" {
		piece, rest, err := sqlparser.SplitStatement(blob)
		if err != nil {
			return nil, &Error{Read: read, Write: write, Statement: blob, Err: err}
		}
		blob = strings.TrimSpace(rest)

		piece = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(piece), ";"))
		if piece == "" {
			continue
		}

		stmt, err := sqlparser.Parse(piece)
		if err != nil {
			return nil, &Error{Read: read, Write: write, Statement: piece, Err: err}
		}
		statements = append(statements, render(stmt, piece, write))
	}
	return statements, nil
}

// render turns a parsed statement back into SQL for the write dialect.
// DDL passes through as submitted: the parser's AST does not retain the
// full column specification, and identifier quoting is the only rewrite
// DDL needs here.
func render(stmt sqlparser.Statement, original string, write dialect.Dialect) string {
	if _, ok := stmt.(*sqlparser.DDL); ok {
		return convertQuoting(original, write)
	}
	return convertQuoting(stripDual(sqlparser.String(stmt), write), write)
}

// stripDual removes the synthetic "from dual" the parser appends to
// table-less selects. Only MySQL and Oracle accept it.
func stripDual(sql string, write dialect.Dialect) string {
	if write == dialect.MySQL || write == dialect.Oracle {
		return sql
	}
	return strings.TrimSuffix(sql, " from dual")
}

// preprocess applies read-dialect lexical cleanup before parsing. For
// T-SQL that means dropping GO batch separator lines, which are
// client-side syntax rather than SQL, and rewriting bracket identifiers
// into the backtick quoting the parser understands.
func preprocess(sql string, read dialect.Dialect) string {
	if read != dialect.TSQL {
		return strings.TrimSpace(sql)
	}
	lines := strings.Split(sql, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line), "go") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(rewriteBrackets(strings.Join(kept, "\n")))
}

// convertQuoting rewrites identifier quoting for the write dialect:
// backticks become double quotes unless writing MySQL.
func convertQuoting(sql string, write dialect.Dialect) string {
	if write == dialect.MySQL {
		return sql
	}
	return rewriteQuoting(sql, isBacktick, '"')
}

func isBacktick(c byte) bool { return c == '`' }

// rewriteBrackets converts bracket-quoted identifiers into backtick
// quoting. A doubled closing bracket inside an identifier is an escaped
// bracket and stays a literal one. Single-quoted string literals pass
// through untouched.
func rewriteBrackets(sql string) string {
	var out strings.Builder
	out.Grow(len(sql))
	inString := false
	inIdent := false
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'' && !inIdent:
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				out.WriteString("''")
				i++
				continue
			}
			inString = !inString
			out.WriteByte(c)
		case inString:
			out.WriteByte(c)
		case c == '[' && !inIdent:
			inIdent = true
			out.WriteByte('`')
		case c == ']' && inIdent:
			if i+1 < len(sql) && sql[i+1] == ']' {
				out.WriteByte(']')
				i++
				continue
			}
			inIdent = false
			out.WriteByte('`')
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

// rewriteQuoting replaces identifier quote characters outside of
// single-quoted string literals.
func rewriteQuoting(sql string, isQuote func(byte) bool, replacement byte) string {
	var out strings.Builder
	out.Grow(len(sql))
	inString := false
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'':
			// A doubled quote inside a literal is an escaped quote.
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				out.WriteString("''")
				i++
				continue
			}
			inString = !inString
			out.WriteByte(c)
		case inString:
			out.WriteByte(c)
		case isQuote(c):
			out.WriteByte(replacement)
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}
