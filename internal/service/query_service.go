package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"query-gateway/internal/database"
	"query-gateway/internal/database/compiler"
	"query-gateway/internal/database/drivers"
	"query-gateway/internal/middleware"
	"query-gateway/internal/model"
	"query-gateway/internal/security"
	"query-gateway/internal/utils"
)

type QueryService interface {
	ExecuteQuery(ctx context.Context, req *model.QueryRequest) (*model.QueryResult, error)
	GetQueryStats(ctx context.Context) (*model.QueryStats, error)
}

// QueryOptions tunes query execution.
type QueryOptions struct {
	DefaultPageSize     int
	MaxPageSize         int
	ValidateIdentifiers bool
	DefaultSchema       string
	Timeout             time.Duration
}

type queryService struct {
	resolver     DataSourceResolver
	opener       database.ConnectionOpener
	schemas      SchemaSource
	sqlValidator *security.SQLValidator
	opts         QueryOptions
	logger       *logrus.Logger
	stats        *queryStats
}

type queryStats struct {
	totalQueries       int64
	successfulQueries  int64
	failedQueries      int64
	totalExecutionTime time.Duration
	lastQueryTime      time.Time
	queriesByType      map[string]int64
	mutex              sync.RWMutex
}

// NewQueryService creates a new instance of QueryService. schemas is only
// consulted when opts.ValidateIdentifiers is set; sqlValidator may be nil.
func NewQueryService(
	resolver DataSourceResolver,
	opener database.ConnectionOpener,
	schemas SchemaSource,
	sqlValidator *security.SQLValidator,
	opts QueryOptions,
	logger *logrus.Logger,
) QueryService {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 100
	}
	if opts.DefaultSchema == "" {
		opts.DefaultSchema = model.DefaultMSSQLSchema
	}
	return &queryService{
		resolver:     resolver,
		opener:       opener,
		schemas:      schemas,
		sqlValidator: sqlValidator,
		opts:         opts,
		logger:       logger,
		stats:        &queryStats{queriesByType: make(map[string]int64)},
	}
}

// ExecuteQuery runs the count and data statements for one page of a table
// over a single transient connection.
func (qs *queryService) ExecuteQuery(ctx context.Context, req *model.QueryRequest) (*model.QueryResult, error) {
	startTime := time.Now()
	req.ApplyDefaults(qs.opts.DefaultPageSize, qs.opts.MaxPageSize)

	dataSource, err := qs.resolver.ResolveDataSource(ctx, req.DataSourceID)
	if err != nil {
		qs.record("unknown", time.Since(startTime), nil, err)
		return nil, err
	}

	result, err := qs.execute(ctx, dataSource, req)
	qs.record(string(dataSource.Type), time.Since(startTime), result, err)

	log := qs.logger.WithFields(logrus.Fields{
		"data_source_id": dataSource.ID,
		"table":          req.TableName,
		"correlation_id": middleware.CorrelationIDFromContext(ctx),
		"duration_ms":    time.Since(startTime).Milliseconds(),
	})
	if err != nil {
		log.WithError(err).Warn("Query failed")
		return nil, err
	}
	log.WithField("rows", len(result.Rows)).Debug("Query executed")

	return result, nil
}

func (qs *queryService) execute(ctx context.Context, dataSource *model.DataSource, req *model.QueryRequest) (*model.QueryResult, error) {
	dialect, err := qs.opener.Dialect(dataSource.Type)
	if err != nil {
		return nil, err
	}

	in := compiler.Input{
		Table:    req.TableName,
		Columns:  req.Columns,
		Filters:  req.Filters,
		Sort:     req.Sort(),
		Page:     req.Page,
		PageSize: req.PageSize,
		NoLimit:  req.NoLimit,
	}
	if dialect.Name() == model.DialectFamilyMSSQL {
		in.Schema = dataSource.Config.Schema
		if in.Schema == "" {
			in.Schema = qs.opts.DefaultSchema
		}
	}

	if qs.opts.ValidateIdentifiers {
		if err := qs.resolveIdentifiers(ctx, dataSource, &in); err != nil {
			return nil, err
		}
	}

	stmt, err := compiler.Compile(dialect, in)
	if err != nil {
		return nil, err
	}
	if err := qs.guard(dialect.Name(), in.Table, stmt); err != nil {
		return nil, err
	}

	if qs.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, qs.opts.Timeout)
		defer cancel()
	}

	conn, err := qs.opener.Open(ctx, dataSource)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	countRows, err := conn.Query(ctx, stmt.CountSQL, stmt.Params)
	if err != nil {
		return nil, executionError(in, "count", err)
	}
	var totalRows int64
	if len(countRows) > 0 {
		totalRows = utils.ToInt64(countRows[0]["total"])
	}

	rows, err := conn.Query(ctx, stmt.DataSQL, stmt.DataParams())
	if err != nil {
		return nil, executionError(in, "data", err)
	}
	if rows == nil {
		rows = []drivers.Row{}
	}

	return &model.QueryResult{
		Columns:    in.Columns,
		Rows:       rows,
		TotalRows:  totalRows,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: model.TotalPages(totalRows, req.PageSize),
	}, nil
}

// resolveIdentifiers replaces the table, column, filter and sort names in in
// with their catalog spelling, rejecting names the schema does not have.
func (qs *queryService) resolveIdentifiers(ctx context.Context, dataSource *model.DataSource, in *compiler.Input) error {
	tables, err := qs.schemas.TablesFor(ctx, dataSource, false)
	if err != nil {
		return err
	}
	table, ok := model.FindTable(tables, in.Table)
	if !ok {
		return utils.NewNotFoundError("table", in.Table)
	}
	in.Table = table.Name

	column := func(name string) (string, error) {
		col, ok := table.Column(name)
		if !ok {
			return "", &utils.InvalidIdentifierError{Kind: "column", Name: name}
		}
		return col.Name, nil
	}

	columns := make([]string, len(in.Columns))
	for i, name := range in.Columns {
		if columns[i], err = column(name); err != nil {
			return err
		}
	}
	in.Columns = columns

	var filters model.FilterSpec
	for _, f := range in.Filters.Active() {
		name, err := column(f.Column)
		if err != nil {
			return err
		}
		filters.Set(name, f.Operator, f.Value)
	}
	in.Filters = filters

	if in.Sort != nil {
		name, err := column(in.Sort.Column)
		if err != nil {
			return err
		}
		in.Sort = &model.SortSpec{Column: name, Direction: in.Sort.Direction}
	}
	return nil
}

func (qs *queryService) guard(family model.DialectFamily, table string, stmt *compiler.Statement) error {
	if qs.sqlValidator == nil {
		return nil
	}
	for _, sql := range []string{stmt.CountSQL, stmt.DataSQL} {
		if err := qs.sqlValidator.ValidateGenerated(family, sql, table); err != nil {
			return utils.NewErrorBuilder(utils.ErrCodeSQLRejected).
				WithDetails(err.Error()).
				WithCause(err).
				Build()
		}
	}
	return nil
}

func executionError(in compiler.Input, stage string, err error) error {
	return &utils.QueryExecutionError{
		Table:    in.Table,
		Stage:    stage,
		Page:     in.Page,
		PageSize: in.PageSize,
		NoLimit:  in.NoLimit,
		Cause:    err,
	}
}

func (qs *queryService) GetQueryStats(ctx context.Context) (*model.QueryStats, error) {
	qs.stats.mutex.RLock()
	defer qs.stats.mutex.RUnlock()

	avgExecutionTime := float64(0)
	if qs.stats.totalQueries > 0 {
		avgExecutionTime = float64(qs.stats.totalExecutionTime.Milliseconds()) / float64(qs.stats.totalQueries)
	}

	byType := make(map[string]int64, len(qs.stats.queriesByType))
	for k, v := range qs.stats.queriesByType {
		byType[k] = v
	}

	return &model.QueryStats{
		TotalQueries:      qs.stats.totalQueries,
		SuccessfulQueries: qs.stats.successfulQueries,
		FailedQueries:     qs.stats.failedQueries,
		AvgExecutionTime:  avgExecutionTime,
		LastQueryTime:     qs.stats.lastQueryTime,
		QueriesByType:     byType,
	}, nil
}

func (qs *queryService) record(databaseType string, duration time.Duration, result *model.QueryResult, err error) {
	qs.stats.mutex.Lock()
	qs.stats.totalQueries++
	qs.stats.totalExecutionTime += duration
	qs.stats.lastQueryTime = time.Now()
	qs.stats.queriesByType[databaseType]++
	if err == nil {
		qs.stats.successfulQueries++
	} else {
		qs.stats.failedQueries++
	}
	qs.stats.mutex.Unlock()

	if err != nil {
		middleware.RecordQueryMetrics(databaseType, "error", duration, 0)
		middleware.RecordQueryError(databaseType, utils.ToAppError(err).Code)
		return
	}
	middleware.RecordQueryMetrics(databaseType, "success", duration, len(result.Rows))
}
