package controller

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"query-gateway/internal/model"
	"query-gateway/internal/utils"
)

// parseQueryParams builds a QueryRequest from the GET /query string. Filters
// arrive as filter[<column>][value] and filter[<column>][operator]; a filter
// without an operator compares for equality.
func parseQueryParams(rawQuery string, defaultPageSize int) (*model.QueryRequest, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, utils.NewValidationError("Invalid query string", err.Error())
	}

	req := &model.QueryRequest{
		DataSourceID:  values.Get("dataSourceId"),
		TableName:     values.Get("tableName"),
		Columns:       splitColumns(values["columns"]),
		SortColumn:    values.Get("sortColumn"),
		SortDirection: model.SortDirection(values.Get("sortDirection")),
	}

	if req.Page, err = intParam(values, "page", 1); err != nil {
		return nil, err
	}
	if req.PageSize, err = intParam(values, "pageSize", defaultPageSize); err != nil {
		return nil, err
	}
	if s := values.Get("noLimit"); s != "" {
		if req.NoLimit, err = strconv.ParseBool(s); err != nil {
			return nil, utils.NewValidationError("Invalid noLimit", s)
		}
	}

	if req.Filters, err = parseFilterParams(rawQuery); err != nil {
		return nil, err
	}
	return req, nil
}

func intParam(values url.Values, key string, fallback int) (int, error) {
	s := values.Get(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, utils.NewValidationError("Invalid "+key, fmt.Sprintf("%q must be a positive integer", s))
	}
	return n, nil
}

// splitColumns accepts repeated and comma-separated column parameters.
func splitColumns(raw []string) []string {
	var columns []string
	for _, entry := range raw {
		for _, col := range strings.Split(entry, ",") {
			if col = strings.TrimSpace(col); col != "" {
				columns = append(columns, col)
			}
		}
	}
	return columns
}

// parseFilterParams walks the raw query so filters keep the order their
// columns first appear in.
func parseFilterParams(rawQuery string) (model.FilterSpec, error) {
	type pending struct {
		value    string
		operator string
	}
	var (
		order   []string
		filters = make(map[string]*pending)
	)

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, utils.NewValidationError("Invalid filter parameter", rawKey)
		}
		if !strings.HasPrefix(key, "filter[") {
			continue
		}

		column, field, ok := splitFilterKey(key)
		if !ok {
			return nil, utils.NewValidationError("Invalid filter parameter", key)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, utils.NewValidationError("Invalid filter value", rawValue)
		}

		f, seen := filters[column]
		if !seen {
			f = &pending{}
			filters[column] = f
			order = append(order, column)
		}
		switch field {
		case "value":
			f.value = value
		case "operator":
			f.operator = value
		default:
			return nil, utils.NewValidationError("Invalid filter parameter", key)
		}
	}

	var spec model.FilterSpec
	for _, column := range order {
		f := filters[column]
		op := model.FilterOperator(f.operator)
		if op == "" {
			op = model.FilterEquals
		}
		spec.Set(column, op, f.value)
	}
	return spec, nil
}

// splitFilterKey splits "filter[col][field]" into col and field.
func splitFilterKey(key string) (string, string, bool) {
	rest := strings.TrimPrefix(key, "filter[")
	column, rest, ok := strings.Cut(rest, "][")
	if !ok || column == "" || !strings.HasSuffix(rest, "]") {
		return "", "", false
	}
	return column, strings.TrimSuffix(rest, "]"), true
}
