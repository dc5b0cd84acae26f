package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FilterOperator is a comparison applied by a single filter.
type FilterOperator string

const (
	FilterEquals      FilterOperator = "equals"
	FilterContains    FilterOperator = "contains"
	FilterStartsWith  FilterOperator = "startsWith"
	FilterEndsWith    FilterOperator = "endsWith"
	FilterGreaterThan FilterOperator = "greaterThan"
	FilterLessThan    FilterOperator = "lessThan"
)

// Filter is one column condition.
type Filter struct {
	Column   string         `json:"column"`
	Value    string         `json:"value"`
	Operator FilterOperator `json:"operator"`
}

// FilterSpec is an ordered set of filters keyed by column. Setting a column
// twice keeps its first position and the last value.
type FilterSpec []Filter

// Set adds or replaces the filter for column.
func (fs *FilterSpec) Set(column string, op FilterOperator, value string) {
	for i := range *fs {
		if (*fs)[i].Column == column {
			(*fs)[i].Operator = op
			(*fs)[i].Value = value
			return
		}
	}
	*fs = append(*fs, Filter{Column: column, Value: value, Operator: op})
}

// Active returns the filters that carry a non-empty value, in order.
func (fs FilterSpec) Active() []Filter {
	active := make([]Filter, 0, len(fs))
	for _, f := range fs {
		if f.Value != "" {
			active = append(active, f)
		}
	}
	return active
}

type filterCondition struct {
	Value    interface{}    `json:"value"`
	Operator FilterOperator `json:"operator"`
}

func (c filterCondition) stringValue() string {
	if c.Value == nil {
		return ""
	}
	if s, ok := c.Value.(string); ok {
		return s
	}
	return fmt.Sprint(c.Value)
}

// UnmarshalJSON accepts either {"col": {"value": ..., "operator": ...}} or a
// list of Filter objects. Object keys keep the order they appear in.
func (fs *FilterSpec) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*fs = nil
		return nil
	}

	var out FilterSpec
	if trimmed[0] == '[' {
		var entries []struct {
			Column string `json:"column"`
			filterCondition
		}
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return fmt.Errorf("filters: %w", err)
		}
		for _, e := range entries {
			out.Set(e.Column, e.Operator, e.stringValue())
		}
		*fs = out
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("filters: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("filters: expected object or array")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("filters: %w", err)
		}
		column, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("filters: unexpected key %v", keyTok)
		}

		var cond filterCondition
		if err := dec.Decode(&cond); err != nil {
			return fmt.Errorf("filters[%s]: %w", column, err)
		}
		out.Set(column, cond.Operator, cond.stringValue())
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("filters: %w", err)
	}

	*fs = out
	return nil
}

// MarshalJSON writes the object form, preserving filter order.
func (fs FilterSpec) MarshalJSON() ([]byte, error) {
	if fs == nil {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Column)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(filterCondition{Value: f.Value, Operator: f.Operator})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec orders the result by a single column.
type SortSpec struct {
	Column    string        `json:"column"`
	Direction SortDirection `json:"direction"`
}

// QueryRequest asks for one page of rows from a single table.
type QueryRequest struct {
	DataSourceID  string        `json:"dataSourceId" validate:"required"`
	TableName     string        `json:"tableName" validate:"required"`
	Columns       []string      `json:"columns" validate:"required,min=1,dive,required"`
	Page          int           `json:"page" validate:"omitempty,min=1"`
	PageSize      int           `json:"pageSize" validate:"omitempty,min=1"`
	Filters       FilterSpec    `json:"filters,omitempty"`
	SortColumn    string        `json:"sortColumn,omitempty"`
	SortDirection SortDirection `json:"sortDirection,omitempty"`
	NoLimit       bool          `json:"noLimit,omitempty"`
}

// Sort returns the requested sort, or nil when no sort column was given.
// A missing direction sorts ascending.
func (qr *QueryRequest) Sort() *SortSpec {
	if qr.SortColumn == "" {
		return nil
	}
	dir := SortDirection(strings.ToLower(string(qr.SortDirection)))
	if dir == "" {
		dir = SortAsc
	}
	return &SortSpec{Column: qr.SortColumn, Direction: dir}
}

// ApplyDefaults fills in paging defaults and clamps the page size.
func (qr *QueryRequest) ApplyDefaults(defaultPageSize, maxPageSize int) {
	if qr.Page < 1 {
		qr.Page = 1
	}
	if qr.PageSize < 1 {
		qr.PageSize = defaultPageSize
	}
	if maxPageSize > 0 && qr.PageSize > maxPageSize {
		qr.PageSize = maxPageSize
	}
}

// QueryResult is one page of rows plus the filtered total.
type QueryResult struct {
	Columns    []string                 `json:"columns"`
	Rows       []map[string]interface{} `json:"rows"`
	TotalRows  int64                    `json:"totalRows"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"pageSize"`
	TotalPages int                      `json:"totalPages"`
}

// Pagination is the paging block of a QueryResponse.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalRows  int64 `json:"totalRows"`
	TotalPages int   `json:"totalPages"`
}

// QueryResponse is the body returned for POST queries.
type QueryResponse struct {
	Columns    []string                 `json:"columns"`
	Rows       []map[string]interface{} `json:"rows"`
	Pagination Pagination               `json:"pagination"`
}

func NewQueryResponse(result *QueryResult) *QueryResponse {
	return &QueryResponse{
		Columns: result.Columns,
		Rows:    result.Rows,
		Pagination: Pagination{
			Page:       result.Page,
			PageSize:   result.PageSize,
			TotalRows:  result.TotalRows,
			TotalPages: result.TotalPages,
		},
	}
}

// TotalPages is ceil(totalRows/pageSize); zero rows means zero pages.
func TotalPages(totalRows int64, pageSize int) int {
	if totalRows <= 0 || pageSize <= 0 {
		return 0
	}
	size := int64(pageSize)
	return int((totalRows + size - 1) / size)
}

// QueryStats represents query execution statistics
type QueryStats struct {
	TotalQueries      int64            `json:"totalQueries"`
	SuccessfulQueries int64            `json:"successfulQueries"`
	FailedQueries     int64            `json:"failedQueries"`
	AvgExecutionTime  float64          `json:"avgExecutionTime"`
	LastQueryTime     time.Time        `json:"lastQueryTime"`
	QueriesByType     map[string]int64 `json:"queriesByType"`
}
