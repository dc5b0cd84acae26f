// Package compiler turns a structured table query into dialect-specific,
// parameterized SQL. Identifiers are quoted by the dialect; values are always
// bound as parameters except the MSSQL page offsets, which are computed
// integers.
package compiler

import (
	"fmt"
	"math"
	"strings"

	"query-gateway/internal/database/drivers"
	"query-gateway/internal/model"
	"query-gateway/internal/utils"
)

// Input describes one table query.
type Input struct {
	Schema   string
	Table    string
	Columns  []string
	Filters  model.FilterSpec
	Sort     *model.SortSpec
	Page     int
	PageSize int
	NoLimit  bool
}

// Statement is the compiled pair of data and count queries. Both share the
// same WHERE clause and Params.
type Statement struct {
	DataSQL    string
	CountSQL   string
	Where      string
	Params     []interface{}
	PageParams []interface{}
}

// DataParams returns the parameters for DataSQL: filters first, then paging.
func (s *Statement) DataParams() []interface{} {
	params := make([]interface{}, 0, len(s.Params)+len(s.PageParams))
	params = append(params, s.Params...)
	return append(params, s.PageParams...)
}

// Compile builds the statements for in using dialect.
func Compile(dialect drivers.Dialect, in Input) (*Statement, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	from := dialect.QualifiedTable(in.Schema, in.Table)
	tableRef := dialect.QuoteIdentifier(in.Table)

	selectList := make([]string, len(in.Columns))
	for i, col := range in.Columns {
		selectList[i] = tableRef + "." + dialect.QuoteIdentifier(col)
	}

	where, params, err := compileFilters(dialect, in.Filters)
	if err != nil {
		return nil, err
	}

	orderBy, err := compileOrderBy(dialect, in)
	if err != nil {
		return nil, err
	}

	var data strings.Builder
	data.WriteString("SELECT ")
	data.WriteString(strings.Join(selectList, ", "))
	data.WriteString(" FROM ")
	data.WriteString(from)
	if where != "" {
		data.WriteString(" WHERE ")
		data.WriteString(where)
	}
	if orderBy != "" {
		data.WriteString(" ORDER BY ")
		data.WriteString(orderBy)
	}

	var pageParams []interface{}
	if !in.NoLimit {
		clause, p := dialect.PaginationClause(in.Page, in.PageSize)
		data.WriteString(" ")
		data.WriteString(clause)
		pageParams = p
	}

	count := "SELECT COUNT(*) AS total FROM " + from
	if where != "" {
		count += " WHERE " + where
	}

	return &Statement{
		DataSQL:    data.String(),
		CountSQL:   count,
		Where:      where,
		Params:     params,
		PageParams: pageParams,
	}, nil
}

func validate(in Input) error {
	if in.Table == "" {
		return utils.NewValidationError("Invalid query", "table name is required")
	}
	if len(in.Columns) == 0 {
		return utils.NewValidationError("Invalid query", "at least one column is required")
	}
	for i, col := range in.Columns {
		if col == "" {
			return utils.NewValidationError("Invalid query", fmt.Sprintf("column %d has an empty name", i))
		}
	}
	if !in.NoLimit && (in.Page < 1 || in.PageSize < 1) {
		return utils.NewValidationError("Invalid query", "page and pageSize must be at least 1")
	}
	if !in.NoLimit && in.Page-1 > math.MaxInt/in.PageSize {
		return utils.NewValidationError("Invalid query",
			fmt.Sprintf("page %d with pageSize %d is past any addressable row", in.Page, in.PageSize))
	}
	return nil
}

func compileFilters(dialect drivers.Dialect, filters model.FilterSpec) (string, []interface{}, error) {
	active := filters.Active()
	if len(active) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(active))
	params := make([]interface{}, 0, len(active))
	for _, f := range active {
		col := dialect.QuoteIdentifier(f.Column)
		switch f.Operator {
		case model.FilterEquals:
			clauses = append(clauses, col+" = ?")
			params = append(params, f.Value)
		case model.FilterContains:
			clauses = append(clauses, col+" LIKE ?")
			params = append(params, "%"+f.Value+"%")
		case model.FilterStartsWith:
			clauses = append(clauses, col+" LIKE ?")
			params = append(params, f.Value+"%")
		case model.FilterEndsWith:
			clauses = append(clauses, col+" LIKE ?")
			params = append(params, "%"+f.Value)
		case model.FilterGreaterThan:
			clauses = append(clauses, col+" > ?")
			params = append(params, f.Value)
		case model.FilterLessThan:
			clauses = append(clauses, col+" < ?")
			params = append(params, f.Value)
		default:
			return "", nil, &utils.InvalidOperatorError{Column: f.Column, Operator: string(f.Operator)}
		}
	}

	return strings.Join(clauses, " AND "), params, nil
}

func compileOrderBy(dialect drivers.Dialect, in Input) (string, error) {
	if in.Sort != nil && in.Sort.Column != "" {
		var dir string
		switch model.SortDirection(strings.ToLower(string(in.Sort.Direction))) {
		case model.SortAsc, "":
			dir = "ASC"
		case model.SortDesc:
			dir = "DESC"
		default:
			return "", utils.NewValidationError("Invalid sort direction",
				fmt.Sprintf("%q is not asc or desc", in.Sort.Direction))
		}
		return dialect.QuoteIdentifier(in.Sort.Column) + " " + dir, nil
	}

	// OFFSET ... FETCH is only valid after an ORDER BY
	if !in.NoLimit && dialect.RequiresOrderByForPagination() {
		return dialect.QuoteIdentifier(in.Columns[0]), nil
	}
	return "", nil
}
