package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"query-gateway/internal/database"
	"query-gateway/internal/database/drivers"
	"query-gateway/internal/database/metadata"
	"query-gateway/internal/middleware"
	"query-gateway/internal/model"
	"query-gateway/internal/utils"
)

// SchemaIntrospector lists the tables reachable over an open connection.
type SchemaIntrospector interface {
	ListTables(ctx context.Context, conn drivers.Connection, dialect drivers.Dialect, databaseName, schema string) ([]model.TableDescriptor, error)
}

// SchemaSource returns the tables of a resolved data source.
type SchemaSource interface {
	TablesFor(ctx context.Context, dataSource *model.DataSource, refresh bool) ([]model.TableDescriptor, error)
}

// TableService serves table listings, from the schema cache when possible.
// Concurrent misses for the same data source share one introspection.
type TableService struct {
	resolver      DataSourceResolver
	opener        database.ConnectionOpener
	introspector  SchemaIntrospector
	cache         *metadata.SchemaCache
	defaultSchema string
	logger        *logrus.Logger
	group         singleflight.Group
}

func NewTableService(
	resolver DataSourceResolver,
	opener database.ConnectionOpener,
	introspector SchemaIntrospector,
	cache *metadata.SchemaCache,
	defaultSchema string,
	logger *logrus.Logger,
) *TableService {
	if cache == nil {
		cache = metadata.NewSchemaCache(0, 0)
	}
	if defaultSchema == "" {
		defaultSchema = model.DefaultMSSQLSchema
	}
	return &TableService{
		resolver:      resolver,
		opener:        opener,
		introspector:  introspector,
		cache:         cache,
		defaultSchema: defaultSchema,
		logger:        logger,
	}
}

// ListTables describes every table of the data source. refresh skips the
// cache and replaces its entry.
func (s *TableService) ListTables(ctx context.Context, dataSourceID string, refresh bool) ([]model.TableDescriptor, error) {
	dataSource, err := s.resolver.ResolveDataSource(ctx, dataSourceID)
	if err != nil {
		return nil, err
	}
	return s.TablesFor(ctx, dataSource, refresh)
}

// DescribeTable returns one table, matched ignoring case.
func (s *TableService) DescribeTable(ctx context.Context, dataSourceID, tableName string) (*model.TableDescriptor, error) {
	dataSource, err := s.resolver.ResolveDataSource(ctx, dataSourceID)
	if err != nil {
		return nil, err
	}

	if table, ok := s.cache.GetTable(dataSource.ID, tableName); ok {
		middleware.RecordIntrospection(string(dataSource.Type), "cache", 0)
		return table, nil
	}

	tables, err := s.TablesFor(ctx, dataSource, false)
	if err != nil {
		return nil, err
	}
	table, ok := model.FindTable(tables, tableName)
	if !ok {
		return nil, utils.NewNotFoundError("table", tableName)
	}
	return table, nil
}

func (s *TableService) TablesFor(ctx context.Context, dataSource *model.DataSource, refresh bool) ([]model.TableDescriptor, error) {
	dbType := string(dataSource.Type)

	if !refresh {
		if tables, ok := s.cache.Get(dataSource.ID); ok {
			middleware.RecordIntrospection(dbType, "cache", 0)
			return tables, nil
		}
	}

	v, err, _ := s.group.Do(dataSource.ID, func() (interface{}, error) {
		return s.introspect(ctx, dataSource)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.TableDescriptor), nil
}

func (s *TableService) introspect(ctx context.Context, dataSource *model.DataSource) ([]model.TableDescriptor, error) {
	start := time.Now()
	log := s.logger.WithField("data_source_id", dataSource.ID)

	dialect, err := s.opener.Dialect(dataSource.Type)
	if err != nil {
		return nil, err
	}

	conn, err := s.opener.Open(ctx, dataSource)
	if err != nil {
		log.WithError(err).Warn("Failed to connect for introspection")
		return nil, err
	}
	defer conn.Close()

	schema := dataSource.Config.Schema
	if schema == "" && dialect.Name() == model.DialectFamilyMSSQL {
		schema = s.defaultSchema
	}

	tables, err := s.introspector.ListTables(ctx, conn, dialect, dataSource.Config.Database, schema)
	if err != nil {
		log.WithError(err).Error("Schema introspection failed")
		return nil, err
	}

	s.cache.Set(dataSource.ID, tables)
	middleware.RecordIntrospection(string(dataSource.Type), "live", time.Since(start))
	log.WithFields(logrus.Fields{
		"tables":      len(tables),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Schema introspected")

	return tables, nil
}
