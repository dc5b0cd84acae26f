package metadata

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-gateway/internal/database/drivers"
	"query-gateway/internal/model"
	"query-gateway/internal/utils"
)

type queryCall struct {
	query  string
	params []interface{}
}

// scriptedConn answers catalog queries from a handler and records every call.
type scriptedConn struct {
	mu      sync.Mutex
	calls   []queryCall
	handler func(query string, params []interface{}) ([]drivers.Row, error)
}

func (c *scriptedConn) Query(_ context.Context, query string, params []interface{}) ([]drivers.Row, error) {
	c.mu.Lock()
	c.calls = append(c.calls, queryCall{query: query, params: params})
	c.mu.Unlock()
	return c.handler(query, params)
}

func (c *scriptedConn) Ping(context.Context) error { return nil }
func (c *scriptedConn) Close() error              { return nil }

func (c *scriptedConn) callsMatching(fragment string) []queryCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []queryCall
	for _, call := range c.calls {
		if strings.Contains(call.query, fragment) {
			out = append(out, call)
		}
	}
	return out
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func mysqlCatalog(countErr map[string]error, estimateErr error) func(string, []interface{}) ([]drivers.Row, error) {
	columns := map[string][]drivers.Row{
		"orders": {
			{"name": "id", "data_type": "int", "is_nullable": "NO", "column_key": "PRI"},
			{"name": "total", "data_type": "decimal", "is_nullable": "YES", "column_key": ""},
			{"name": "placed_at", "data_type": "datetime", "is_nullable": "NO", "column_key": ""},
		},
		"users": {
			{"name": "id", "data_type": "bigint", "is_nullable": "NO", "column_key": "PRI"},
			{"name": "name", "data_type": "varchar", "is_nullable": "YES", "column_key": ""},
			{"name": "active", "data_type": "tinyint", "is_nullable": "NO", "column_key": ""},
		},
	}
	counts := map[string]int64{"orders": 12, "users": 25}

	return func(query string, params []interface{}) ([]drivers.Row, error) {
		switch {
		case strings.HasPrefix(query, "SELECT COUNT(*)"):
			for table, n := range counts {
				if strings.Contains(query, "`"+table+"`") {
					if err := countErr[table]; err != nil {
						return nil, err
					}
					return []drivers.Row{{"row_count": n}}, nil
				}
			}
			return nil, errors.New("unknown table")
		case strings.Contains(query, "information_schema.columns"):
			return columns[params[1].(string)], nil
		case strings.Contains(query, "table_rows"):
			if estimateErr != nil {
				return nil, estimateErr
			}
			return []drivers.Row{{"row_count": uint64(40)}}, nil
		case strings.Contains(query, "information_schema.tables"):
			return []drivers.Row{
				{"name": "orders", "table_schema": "shop"},
				{"name": "users", "table_schema": "shop"},
			}, nil
		}
		return nil, errors.New("unexpected query: " + query)
	}
}

func TestListTables_MySQL(t *testing.T) {
	conn := &scriptedConn{handler: mysqlCatalog(nil, nil)}
	extractor := NewMetadataExtractor(quietLogger())

	tables, err := extractor.ListTables(context.Background(), conn, drivers.MySQLDialect{}, "shop", "")
	require.NoError(t, err)
	require.Len(t, tables, 2)

	orders, users := tables[0], tables[1]
	assert.Equal(t, "orders", orders.Name)
	assert.Equal(t, "shop", orders.Schema)
	assert.Equal(t, int64(12), orders.RowCount)
	assert.True(t, orders.RowCountExact)

	require.Len(t, orders.Columns, 3)
	assert.Equal(t, model.ColumnDescriptor{
		Name: "id", DataType: "int", FriendlyType: model.FriendlyNumber, Nullable: false, IsPrimaryKey: true,
	}, orders.Columns[0])
	assert.Equal(t, model.FriendlyCurrency, orders.Columns[1].FriendlyType)
	assert.True(t, orders.Columns[1].Nullable)
	assert.Equal(t, model.FriendlyDateTime, orders.Columns[2].FriendlyType)

	assert.Equal(t, "users", users.Name)
	assert.Equal(t, int64(25), users.RowCount)
	assert.Equal(t, []string{"id", "name", "active"}, columnNames(users))
	assert.Equal(t, model.FriendlyYesNo, users.Columns[2].FriendlyType)

	tableCalls := conn.callsMatching("information_schema.tables\nWHERE table_schema = ?\nORDER BY")
	require.Len(t, tableCalls, 1)
	assert.Equal(t, []interface{}{"shop"}, tableCalls[0].params)
	assert.Len(t, conn.callsMatching("SELECT COUNT(*) AS row_count FROM `shop`."), 2)
}

func TestListTables_CountFallsBackToEstimate(t *testing.T) {
	conn := &scriptedConn{handler: mysqlCatalog(map[string]error{"users": errors.New("SELECT command denied")}, nil)}
	extractor := NewMetadataExtractor(quietLogger())

	tables, err := extractor.ListTables(context.Background(), conn, drivers.MySQLDialect{}, "shop", "")
	require.NoError(t, err)

	users, ok := model.FindTable(tables, "users")
	require.True(t, ok)
	assert.Equal(t, int64(40), users.RowCount)
	assert.False(t, users.RowCountExact)

	orders, _ := model.FindTable(tables, "orders")
	assert.Equal(t, int64(12), orders.RowCount)
	assert.True(t, orders.RowCountExact)
}

func TestListTables_EstimateFailureReportsZero(t *testing.T) {
	conn := &scriptedConn{handler: mysqlCatalog(
		map[string]error{"orders": errors.New("timeout")},
		errors.New("information_schema unavailable"),
	)}
	extractor := NewMetadataExtractor(quietLogger())

	tables, err := extractor.ListTables(context.Background(), conn, drivers.MySQLDialect{}, "shop", "")
	require.NoError(t, err)

	orders, _ := model.FindTable(tables, "orders")
	assert.Equal(t, int64(0), orders.RowCount)
	assert.False(t, orders.RowCountExact)
}

func TestListTables_ColumnFailureAborts(t *testing.T) {
	base := mysqlCatalog(nil, nil)
	conn := &scriptedConn{handler: func(query string, params []interface{}) ([]drivers.Row, error) {
		if strings.Contains(query, "information_schema.columns") && params[1] == "users" {
			return nil, utils.NewQueryError(query, errors.New("access denied"))
		}
		return base(query, params)
	}}
	extractor := NewMetadataExtractor(quietLogger())

	_, err := extractor.ListTables(context.Background(), conn, drivers.MySQLDialect{}, "shop", "")
	var queryErr *utils.QueryError
	require.True(t, errors.As(err, &queryErr))
}

func TestListTables_SQLServerUsesSchema(t *testing.T) {
	conn := &scriptedConn{handler: func(query string, params []interface{}) ([]drivers.Row, error) {
		switch {
		case strings.Contains(query, "FROM sys.tables t\nINNER JOIN sys.schemas s ON s.schema_id = t.schema_id\nWHERE s.name = ?\nORDER BY"):
			return []drivers.Row{{"name": "customers", "table_schema": "dbo"}}, nil
		case strings.Contains(query, "sys.columns"):
			return []drivers.Row{
				{"name": "id", "data_type": "int", "is_nullable": "NO", "column_key": "PRI"},
				{"name": "email", "data_type": "nvarchar", "is_nullable": "YES", "column_key": ""},
				{"name": "vip", "data_type": "bit", "is_nullable": "NO", "column_key": ""},
			}, nil
		case strings.HasPrefix(query, "SELECT COUNT(*)"):
			return nil, errors.New("lock timeout")
		case strings.Contains(query, "sys.partitions"):
			return []drivers.Row{{"row_count": int64(1500)}}, nil
		}
		return nil, errors.New("unexpected query: " + query)
	}}
	extractor := NewMetadataExtractor(quietLogger())

	tables, err := extractor.ListTables(context.Background(), conn, drivers.SQLServerDialect{}, "sales", "")
	require.NoError(t, err)
	require.Len(t, tables, 1)

	customers := tables[0]
	assert.Equal(t, "dbo", customers.Schema)
	assert.Equal(t, int64(1500), customers.RowCount)
	assert.False(t, customers.RowCountExact)
	assert.True(t, customers.Columns[0].IsPrimaryKey)
	assert.Equal(t, model.FriendlyText, customers.Columns[1].FriendlyType)
	assert.Equal(t, model.FriendlyYesNo, customers.Columns[2].FriendlyType)

	countCalls := conn.callsMatching("SELECT COUNT(*) AS row_count FROM [dbo].[customers]")
	assert.Len(t, countCalls, 1)
	estimateCalls := conn.callsMatching("sys.partitions")
	require.Len(t, estimateCalls, 1)
	assert.Equal(t, []interface{}{"dbo", "customers"}, estimateCalls[0].params)
}

func TestListTables_EmptyDatabaseIsNotFound(t *testing.T) {
	conn := &scriptedConn{handler: mysqlCatalog(nil, nil)}
	extractor := NewMetadataExtractor(quietLogger())

	_, err := extractor.ListTables(context.Background(), conn, drivers.MySQLDialect{}, "", "")
	var notFound *utils.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Empty(t, conn.calls)
}

func TestListTables_OverSQLConnection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	conn := drivers.NewSQLConnection(db, drivers.MySQLDialect{})

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables\nWHERE table_schema = ?\nORDER BY table_name")).
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{"name", "table_schema"}).AddRow("users", "shop"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns")).
		WithArgs("shop", "users").
		WillReturnRows(sqlmock.NewRows([]string{"name", "data_type", "is_nullable", "column_key"}).
			AddRow("id", "int", "NO", "PRI").
			AddRow("bio", "text", "YES", ""))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS row_count FROM `shop`.`users`")).
		WillReturnRows(sqlmock.NewRows([]string{"row_count"}).AddRow(int64(7)))

	tables, err := NewMetadataExtractor(quietLogger()).ListTables(context.Background(), conn, drivers.MySQLDialect{}, "shop", "")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, int64(7), tables[0].RowCount)
	assert.Equal(t, model.FriendlyLongText, tables[0].Columns[1].FriendlyType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func columnNames(t model.TableDescriptor) []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
