package drivers

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"query-gateway/internal/model"
)

// Dialect captures everything that differs between SQL families when
// generating and running a statement.
type Dialect interface {
	Name() model.DialectFamily

	// QuoteIdentifier quotes a single identifier, escaping the quote character.
	QuoteIdentifier(name string) string

	// QualifiedTable returns the quoted table reference, schema-qualified when
	// schema is not empty.
	QualifiedTable(schema, table string) string

	// RewriteParams turns a `?` statement into what the native driver expects.
	RewriteParams(query string, params []interface{}) (string, []interface{}, error)

	// PaginationClause returns the clause appended after ORDER BY and the
	// parameters it binds, in order.
	PaginationClause(page, pageSize int) (string, []interface{})

	// RequiresOrderByForPagination reports whether PaginationClause is only
	// valid after an ORDER BY.
	RequiresOrderByForPagination() bool
}

// DialectFor returns the dialect of a family.
func DialectFor(family model.DialectFamily) (Dialect, error) {
	switch family {
	case model.DialectFamilyMySQL:
		return MySQLDialect{}, nil
	case model.DialectFamilyMSSQL:
		return SQLServerDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", family)
	}
}

func pageOffset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

// MySQLDialect covers MySQL and MariaDB.
type MySQLDialect struct{}

func (MySQLDialect) Name() model.DialectFamily { return model.DialectFamilyMySQL }

func (MySQLDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d MySQLDialect) QualifiedTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

// RewriteParams is a no-op: go-sql-driver/mysql binds `?` positionally.
func (MySQLDialect) RewriteParams(query string, params []interface{}) (string, []interface{}, error) {
	return query, params, nil
}

func (MySQLDialect) PaginationClause(page, pageSize int) (string, []interface{}) {
	return "LIMIT ? OFFSET ?", []interface{}{pageSize, pageOffset(page, pageSize)}
}

func (MySQLDialect) RequiresOrderByForPagination() bool { return false }

// SQLServerDialect covers Microsoft SQL Server.
type SQLServerDialect struct{}

func (SQLServerDialect) Name() model.DialectFamily { return model.DialectFamilyMSSQL }

func (SQLServerDialect) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d SQLServerDialect) QualifiedTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

// RewriteParams replaces each `?` outside quoted text with @p1..@pN and binds
// the values as named parameters for go-mssqldb.
func (SQLServerDialect) RewriteParams(query string, params []interface{}) (string, []interface{}, error) {
	var (
		b     strings.Builder
		n     int
		quote byte
	)
	b.Grow(len(query) + len(params)*3)

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				// A doubled closing character is an escape and stays quoted.
				if i+1 < len(query) && query[i+1] == quote {
					b.WriteByte(c)
					i++
				} else {
					quote = 0
				}
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[':
			quote = ']'
		case c == '?':
			n++
			b.WriteString("@p")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}

	if n != len(params) {
		return "", nil, fmt.Errorf("statement has %d placeholders but %d parameters were given", n, len(params))
	}

	named := make([]interface{}, len(params))
	for i, p := range params {
		named[i] = sql.Named("p"+strconv.Itoa(i+1), p)
	}
	return b.String(), named, nil
}

// PaginationClause inlines the offsets: they are computed integers, never
// request text.
func (SQLServerDialect) PaginationClause(page, pageSize int) (string, []interface{}) {
	return fmt.Sprintf("OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", pageOffset(page, pageSize), pageSize), nil
}

func (SQLServerDialect) RequiresOrderByForPagination() bool { return true }
