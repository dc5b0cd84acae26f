package security

import (
	"errors"
	"fmt"
	"strings"

	"vitess.io/vitess/go/vt/sqlparser"

	"query-gateway/internal/model"
)

var (
	ErrNotSelectQuery  = errors.New("only SELECT queries are allowed")
	ErrSQLSyntaxError  = errors.New("SQL syntax error")
	ErrEmptyQuery      = errors.New("query cannot be empty")
	ErrQueryTooLong    = errors.New("query exceeds maximum length")
	ErrMultipleTables  = errors.New("query must read exactly one table")
	ErrSubqueryPresent = errors.New("subqueries are not allowed")
	ErrTableMismatch   = errors.New("query reads an unexpected table")
)

const mysqlServerVersion = "8.0.30"

// SQLValidator is the last check on generated SQL before it reaches a target
// database: one plain SELECT over one table, nothing else.
type SQLValidator struct {
	maxQueryLength int
	parser         *sqlparser.Parser
}

// NewSQLValidator creates a new SQLValidator instance
func NewSQLValidator(maxQueryLength int) (*SQLValidator, error) {
	if maxQueryLength <= 0 {
		maxQueryLength = 10000 // Default max query length
	}
	parser, err := sqlparser.New(sqlparser.Options{MySQLServerVersion: mysqlServerVersion})
	if err != nil {
		return nil, fmt.Errorf("failed to create SQL parser: %w", err)
	}
	return &SQLValidator{
		maxQueryLength: maxQueryLength,
		parser:         parser,
	}, nil
}

// ValidateGenerated checks a compiled statement for the given dialect family.
// MySQL-family SQL is fully parsed and must select from table only; MSSQL SQL,
// which the parser does not understand, gets the structural checks alone.
// Compiled SQL grows with the column list, so the length cap does not apply.
func (sv *SQLValidator) ValidateGenerated(family model.DialectFamily, sql, table string) error {
	if strings.TrimSpace(sql) == "" {
		return ErrEmptyQuery
	}

	if family != model.DialectFamilyMySQL {
		if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "SELECT ") {
			return ErrNotSelectQuery
		}
		return nil
	}

	if err := sv.checkStatement(sql); err != nil {
		return err
	}

	name, err := sv.GetTableName(sql)
	if err != nil {
		return err
	}
	if !strings.EqualFold(name, table) {
		return fmt.Errorf("%w: %s", ErrTableMismatch, name)
	}
	return nil
}

// ValidateStatement validates that the SQL statement is a single SELECT over a
// single table without subqueries.
func (sv *SQLValidator) ValidateStatement(sql string) error {
	if err := sv.basicValidation(sql); err != nil {
		return err
	}
	return sv.checkStatement(sql)
}

func (sv *SQLValidator) checkStatement(sql string) error {
	stmt, err := sv.parser.Parse(sql)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSQLSyntaxError, err)
	}

	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return ErrNotSelectQuery
	}

	if len(sel.From) != 1 {
		return ErrMultipleTables
	}
	if _, ok := sel.From[0].(*sqlparser.AliasedTableExpr); !ok {
		return ErrMultipleTables
	}

	subquery := false
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if _, ok := node.(*sqlparser.Subquery); ok {
			subquery = true
			return false, nil
		}
		return true, nil
	}, sel)
	if subquery {
		return ErrSubqueryPresent
	}

	return nil
}

// GetTableName extracts table name from SELECT statement
func (sv *SQLValidator) GetTableName(sql string) (string, error) {
	stmt, err := sv.parser.Parse(sql)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSQLSyntaxError, err)
	}

	selectStmt, ok := stmt.(*sqlparser.Select)
	if !ok {
		return "", ErrNotSelectQuery
	}

	if len(selectStmt.From) > 0 {
		if tableExpr, ok := selectStmt.From[0].(*sqlparser.AliasedTableExpr); ok {
			if tableName, ok := tableExpr.Expr.(sqlparser.TableName); ok {
				return tableName.Name.String(), nil
			}
		}
	}

	return "", fmt.Errorf("table name not found")
}

func (sv *SQLValidator) basicValidation(sql string) error {
	if strings.TrimSpace(sql) == "" {
		return ErrEmptyQuery
	}
	if len(sql) > sv.maxQueryLength {
		return ErrQueryTooLong
	}
	return nil
}
