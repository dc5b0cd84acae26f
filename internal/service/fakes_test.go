package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"query-gateway/internal/database/drivers"
	"query-gateway/internal/model"
	"query-gateway/internal/repository"
	"query-gateway/internal/utils"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type queryCall struct {
	sql    string
	params []interface{}
}

type fakeConn struct {
	mu      sync.Mutex
	calls   []queryCall
	handler func(sql string, params []interface{}) ([]drivers.Row, error)
	pingErr error
	closes  int32
}

func (c *fakeConn) Query(_ context.Context, sql string, params []interface{}) ([]drivers.Row, error) {
	c.mu.Lock()
	c.calls = append(c.calls, queryCall{sql: sql, params: params})
	c.mu.Unlock()
	if c.handler == nil {
		return nil, nil
	}
	return c.handler(sql, params)
}

func (c *fakeConn) Ping(context.Context) error { return c.pingErr }

func (c *fakeConn) Close() error {
	atomic.AddInt32(&c.closes, 1)
	return nil
}

func (c *fakeConn) Closes() int { return int(atomic.LoadInt32(&c.closes)) }

func (c *fakeConn) Calls() []queryCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]queryCall(nil), c.calls...)
}

// fakeOpener hands out the same scripted connection for every Open.
type fakeOpener struct {
	conn    *fakeConn
	openErr error
	opens   int32
}

func (o *fakeOpener) Open(_ context.Context, _ *model.DataSource) (drivers.Connection, error) {
	atomic.AddInt32(&o.opens, 1)
	if o.openErr != nil {
		return nil, o.openErr
	}
	return o.conn, nil
}

func (o *fakeOpener) Dialect(dbType model.DatabaseType) (drivers.Dialect, error) {
	return drivers.DialectFor(dbType.Family())
}

func (o *fakeOpener) Opens() int { return int(atomic.LoadInt32(&o.opens)) }

type fakeResolver struct {
	sources map[string]*model.DataSource
}

func (r *fakeResolver) ResolveDataSource(_ context.Context, id string) (*model.DataSource, error) {
	ds, ok := r.sources[id]
	if !ok {
		return nil, utils.NewNotFoundError("data source", id)
	}
	out := *ds
	return &out, nil
}

// memoryRepository is an in-memory DataSourceRepository.
type memoryRepository struct {
	mu   sync.Mutex
	rows map[string]model.DataSource
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{rows: make(map[string]model.DataSource)}
}

func (r *memoryRepository) Create(_ context.Context, ds *model.DataSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Name == ds.Name {
			return repository.ErrDataSourceExists
		}
	}
	if ds.ID == "" {
		ds.ID = uuid.New().String()
	}
	r.rows[ds.ID] = *ds
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*model.DataSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrDataSourceNotFound
	}
	return &row, nil
}

func (r *memoryRepository) GetByName(_ context.Context, name string) (*model.DataSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Name == name {
			out := row
			return &out, nil
		}
	}
	return nil, repository.ErrDataSourceNotFound
}

func (r *memoryRepository) GetAll(_ context.Context, status model.DataSourceStatus, limit, offset int) ([]*model.DataSource, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*model.DataSource
	for _, row := range r.rows {
		if status != "" && row.Status != status {
			continue
		}
		out := row
		all = append(all, &out)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := int64(len(all))
	if offset >= len(all) {
		return []*model.DataSource{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *memoryRepository) Update(_ context.Context, ds *model.DataSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[ds.ID]; !ok {
		return repository.ErrDataSourceNotFound
	}
	r.rows[ds.ID] = *ds
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repository.ErrDataSourceNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memoryRepository) SetStatus(_ context.Context, id string, status model.DataSourceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return repository.ErrDataSourceNotFound
	}
	row.Status = status
	r.rows[id] = row
	return nil
}

func (r *memoryRepository) CountByStatus(_ context.Context) (map[model.DataSourceStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[model.DataSourceStatus]int64)
	for _, row := range r.rows {
		counts[row.Status]++
	}
	return counts, nil
}

func (r *memoryRepository) Ping(context.Context) error { return nil }

func (r *memoryRepository) stored(id string) model.DataSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

func usersTable() model.TableDescriptor {
	return model.TableDescriptor{
		Name:          "users",
		RowCount:      25,
		RowCountExact: true,
		Columns: []model.ColumnDescriptor{
			{Name: "id", DataType: "int", FriendlyType: model.FriendlyNumber, IsPrimaryKey: true},
			{Name: "name", DataType: "varchar", FriendlyType: model.FriendlyText},
			{Name: "age", DataType: "int", FriendlyType: model.FriendlyNumber, Nullable: true},
		},
	}
}

func isCount(sql string) bool {
	return strings.HasPrefix(sql, "SELECT COUNT(*)")
}
