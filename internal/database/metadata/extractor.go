package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"query-gateway/internal/database/drivers"
	"query-gateway/internal/model"
	"query-gateway/internal/utils"
)

var rowCountFallbacks = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "query_gateway_row_count_fallback_total",
		Help: "Exact row counts that fell back to catalog estimates",
	},
	[]string{"dialect", "source"},
)

// catalogQueries holds the catalog statements for one dialect family. Each
// takes the scope (database for MySQL, schema for MSSQL) and, except for
// tables, the table name.
type catalogQueries struct {
	tables   string
	columns  string
	estimate string
}

var catalogs = map[model.DialectFamily]catalogQueries{
	model.DialectFamilyMySQL: {
		tables: `SELECT table_name AS name, table_schema AS table_schema
FROM information_schema.tables
WHERE table_schema = ?
ORDER BY table_name`,
		columns: `SELECT column_name AS name, data_type AS data_type, is_nullable AS is_nullable, column_key AS column_key
FROM information_schema.columns
WHERE table_schema = ? AND table_name = ?
ORDER BY ordinal_position`,
		estimate: `SELECT table_rows AS row_count
FROM information_schema.tables
WHERE table_schema = ? AND table_name = ?`,
	},
	model.DialectFamilyMSSQL: {
		tables: `SELECT t.name AS name, s.name AS table_schema
FROM sys.tables t
INNER JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE s.name = ?
ORDER BY t.name`,
		columns: `SELECT c.name AS name, ty.name AS data_type,
CASE WHEN c.is_nullable = 1 THEN 'YES' ELSE 'NO' END AS is_nullable,
CASE WHEN pk.column_id IS NOT NULL THEN 'PRI' ELSE '' END AS column_key
FROM sys.columns c
INNER JOIN sys.tables t ON t.object_id = c.object_id
INNER JOIN sys.schemas s ON s.schema_id = t.schema_id
INNER JOIN sys.types ty ON ty.user_type_id = c.user_type_id
LEFT JOIN (
SELECT ic.object_id, ic.column_id
FROM sys.index_columns ic
INNER JOIN sys.indexes i ON i.object_id = ic.object_id AND i.index_id = ic.index_id
WHERE i.is_primary_key = 1
) pk ON pk.object_id = c.object_id AND pk.column_id = c.column_id
WHERE s.name = ? AND t.name = ?
ORDER BY c.column_id`,
		estimate: `SELECT SUM(p.rows) AS row_count
FROM sys.partitions p
INNER JOIN sys.tables t ON t.object_id = p.object_id
INNER JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE s.name = ? AND t.name = ? AND p.index_id IN (0, 1)`,
	},
}

// MetadataExtractor lists tables, columns and row counts from a live
// connection's catalog.
type MetadataExtractor struct {
	mapper *utils.DataTypeMapper
	logger *logrus.Logger
}

// NewMetadataExtractor creates a new metadata extractor
func NewMetadataExtractor(logger *logrus.Logger) *MetadataExtractor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MetadataExtractor{
		mapper: utils.NewDataTypeMapper(),
		logger: logger,
	}
}

// ListTables describes every table in databaseName (MySQL family) or
// schema (MSSQL family). Tables are introspected concurrently. A failed exact
// row count falls back to the catalog estimate and then to zero; a failed
// column listing aborts the whole call.
func (e *MetadataExtractor) ListTables(ctx context.Context, conn drivers.Connection, dialect drivers.Dialect, databaseName, schema string) ([]model.TableDescriptor, error) {
	queries, ok := catalogs[dialect.Name()]
	if !ok {
		return nil, fmt.Errorf("schema discovery not supported for %s", dialect.Name())
	}

	scope := databaseName
	if dialect.Name() == model.DialectFamilyMSSQL {
		scope = schema
		if scope == "" {
			scope = model.DefaultMSSQLSchema
		}
	}
	if scope == "" {
		return nil, utils.NewNotFoundError("database", "")
	}

	tableRows, err := conn.Query(ctx, queries.tables, []interface{}{scope})
	if err != nil {
		return nil, err
	}

	tables := make([]model.TableDescriptor, len(tableRows))
	for i, row := range tableRows {
		tables[i] = model.TableDescriptor{
			Name:   utils.ToString(row["name"]),
			Schema: utils.ToString(row["table_schema"]),
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range tables {
		table := &tables[i]
		g.Go(func() error {
			columns, err := e.listColumns(gctx, conn, queries, scope, table.Name)
			if err != nil {
				return err
			}
			table.Columns = columns
			table.RowCount, table.RowCountExact = e.rowCount(gctx, conn, dialect, queries, scope, table.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return tables, nil
}

func (e *MetadataExtractor) listColumns(ctx context.Context, conn drivers.Connection, queries catalogQueries, scope, table string) ([]model.ColumnDescriptor, error) {
	rows, err := conn.Query(ctx, queries.columns, []interface{}{scope, table})
	if err != nil {
		return nil, err
	}

	columns := make([]model.ColumnDescriptor, 0, len(rows))
	for _, row := range rows {
		dataType := utils.ToString(row["data_type"])
		columns = append(columns, model.ColumnDescriptor{
			Name:         utils.ToString(row["name"]),
			DataType:     dataType,
			FriendlyType: e.mapper.MapToFriendlyType(dataType),
			Nullable:     strings.EqualFold(utils.ToString(row["is_nullable"]), "YES"),
			IsPrimaryKey: strings.EqualFold(utils.ToString(row["column_key"]), "PRI"),
		})
	}
	return columns, nil
}

// rowCount returns the row count and whether it is exact.
func (e *MetadataExtractor) rowCount(ctx context.Context, conn drivers.Connection, dialect drivers.Dialect, queries catalogQueries, scope, table string) (int64, bool) {
	countSQL := "SELECT COUNT(*) AS row_count FROM " + dialect.QualifiedTable(scope, table)
	rows, err := conn.Query(ctx, countSQL, nil)
	if err == nil && len(rows) > 0 {
		return utils.ToInt64(rows[0]["row_count"]), true
	}

	log := e.logger.WithFields(logrus.Fields{"table": table, "scope": scope})
	log.WithError(err).Warn("exact row count failed, using catalog estimate")
	rowCountFallbacks.WithLabelValues(string(dialect.Name()), "estimate").Inc()

	rows, err = conn.Query(ctx, queries.estimate, []interface{}{scope, table})
	if err != nil || len(rows) == 0 {
		log.WithError(err).Warn("catalog row estimate unavailable, reporting 0")
		rowCountFallbacks.WithLabelValues(string(dialect.Name()), "zero").Inc()
		return 0, false
	}
	return utils.ToInt64(rows[0]["row_count"]), false
}
