package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"query-gateway/internal/model"
)

func newTablesCmd(configPath *string) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "tables <data-source-id>",
		Short: "List the tables and columns of a data source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			tables, err := a.tables.ListTables(cmd.Context(), args[0], refresh)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), tables)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the schema cache")
	return cmd
}

type queryFlags struct {
	dataSourceID  string
	table         string
	columns       []string
	filters       []string
	sortColumn    string
	sortDirection string
	page          int
	pageSize      int
	noLimit       bool
}

func newQueryCmd(configPath *string) *cobra.Command {
	var f queryFlags

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a paginated table query and print the result as JSON",
		Example: `  query-gateway query --datasource 6f1c... --table users --columns id,name \
    --filter name:contains:ann --sort id --sort-direction desc --page 2 --page-size 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request()
			if err != nil {
				return err
			}

			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.queries.ExecuteQuery(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), model.NewQueryResponse(result))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.dataSourceID, "datasource", "", "Data source ID")
	flags.StringVar(&f.table, "table", "", "Table name")
	flags.StringSliceVar(&f.columns, "columns", nil, "Columns to select")
	flags.StringArrayVar(&f.filters, "filter", nil, "Filter as column:operator:value (repeatable)")
	flags.StringVar(&f.sortColumn, "sort", "", "Sort column")
	flags.StringVar(&f.sortDirection, "sort-direction", "asc", "Sort direction (asc or desc)")
	flags.IntVar(&f.page, "page", 1, "Page number")
	flags.IntVar(&f.pageSize, "page-size", 0, "Rows per page (default from config)")
	flags.BoolVar(&f.noLimit, "no-limit", false, "Return every matching row")
	_ = cmd.MarkFlagRequired("datasource")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("columns")

	return cmd
}

func (f *queryFlags) request() (*model.QueryRequest, error) {
	req := &model.QueryRequest{
		DataSourceID: f.dataSourceID,
		TableName:    f.table,
		Columns:      f.columns,
		Page:         f.page,
		PageSize:     f.pageSize,
		SortColumn:   f.sortColumn,
		NoLimit:      f.noLimit,
	}
	if f.sortColumn != "" {
		req.SortDirection = model.SortDirection(f.sortDirection)
	}

	for _, raw := range f.filters {
		column, op, value, err := parseFilterFlag(raw)
		if err != nil {
			return nil, err
		}
		req.Filters.Set(column, op, value)
	}
	return req, nil
}

// parseFilterFlag splits column:operator:value. The value may itself contain
// colons. column:value is shorthand for equals.
func parseFilterFlag(raw string) (string, model.FilterOperator, string, error) {
	parts := strings.SplitN(raw, ":", 3)
	switch {
	case len(parts) == 2 && parts[0] != "":
		return parts[0], model.FilterEquals, parts[1], nil
	case len(parts) == 3 && parts[0] != "" && parts[1] != "":
		return parts[0], model.FilterOperator(parts[1]), parts[2], nil
	default:
		return "", "", "", fmt.Errorf("invalid --filter %q: expected column:operator:value", raw)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
