package database

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-gateway/internal/database/drivers"
	"query-gateway/internal/database/drivers/traditional"
	"query-gateway/internal/model"
	"query-gateway/internal/utils"
)

type fakeConnection struct {
	pingErr error
	closes  int32
}

func (c *fakeConnection) Query(context.Context, string, []interface{}) ([]drivers.Row, error) {
	return nil, nil
}

func (c *fakeConnection) Ping(context.Context) error { return c.pingErr }

func (c *fakeConnection) Close() error {
	atomic.AddInt32(&c.closes, 1)
	return nil
}

// fakeDriver keeps the MySQL DSN handling but never touches the network.
type fakeDriver struct {
	*traditional.MySQLDriver
	conn    *fakeConnection
	openErr error
}

func (d *fakeDriver) Open(context.Context, *model.DataSourceConfig) (drivers.Connection, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.conn, nil
}

func registryWithFake(driver *fakeDriver) *DriverRegistry {
	driver.MySQLDriver = traditional.NewMySQLDriver(model.DatabaseTypeMySQL)
	registry := NewDriverRegistry()
	registry.Register(model.DatabaseTypeMySQL, func() drivers.Driver { return driver })
	return registry
}

func validDataSource() *model.DataSource {
	return &model.DataSource{
		ID:   "3f8e5a0e-0000-4000-8000-000000000001",
		Type: model.DatabaseTypeMySQL,
		Config: model.DataSourceConfig{
			Host:     "db.internal",
			Port:     3306,
			Database: "shop",
			Username: "reader",
			Password: "secret",
		},
	}
}

func TestDriverRegistry_SupportedTypes(t *testing.T) {
	registry := NewDriverRegistry()

	assert.Equal(t, []model.DatabaseType{
		model.DatabaseTypeMariaDB,
		model.DatabaseTypeMSSQL,
		model.DatabaseTypeMySQL,
	}, registry.ListDrivers())

	for _, dbType := range registry.ListDrivers() {
		assert.True(t, registry.IsSupported(dbType))
		driver, err := registry.GetDriver(dbType)
		require.NoError(t, err)
		assert.Equal(t, string(dbType), driver.GetDatabaseTypeName())
		assert.Equal(t, dbType.Family(), driver.Dialect().Name())
	}

	assert.False(t, registry.IsSupported("oracle"))
	_, err := registry.GetDriver("oracle")
	assert.Error(t, err)
}

func TestGetDriverRegistry_Singleton(t *testing.T) {
	assert.Same(t, GetDriverRegistry(), GetDriverRegistry())
}

func TestConnector_TracksOpenConnections(t *testing.T) {
	fake := &fakeDriver{conn: &fakeConnection{}}
	connector := NewConnector(registryWithFake(fake))

	conn, err := connector.Open(context.Background(), validDataSource())
	require.NoError(t, err)
	assert.Equal(t, int64(1), connector.OpenCount())

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.Equal(t, int64(0), connector.OpenCount())
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.conn.closes))
}

func TestConnector_OpenFailureLeavesNothingOpen(t *testing.T) {
	fake := &fakeDriver{openErr: utils.NewConnectionError("db.internal:3306/shop", errors.New("refused"))}
	connector := NewConnector(registryWithFake(fake))

	_, err := connector.Open(context.Background(), validDataSource())
	var connErr *utils.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, int64(0), connector.OpenCount())
}

func TestConnector_Dialect(t *testing.T) {
	connector := NewConnector(NewDriverRegistry())

	dialect, err := connector.Dialect(model.DatabaseTypeMSSQL)
	require.NoError(t, err)
	assert.Equal(t, model.DialectFamilyMSSQL, dialect.Name())

	dialect, err = connector.Dialect(model.DatabaseTypeMariaDB)
	require.NoError(t, err)
	assert.Equal(t, model.DialectFamilyMySQL, dialect.Name())
}

func TestHealthChecker_Connectivity(t *testing.T) {
	tests := []struct {
		name    string
		driver  *fakeDriver
		status  string
		message string
	}{
		{"healthy", &fakeDriver{conn: &fakeConnection{}}, "healthy", "Connection successful!"},
		{"ping fails", &fakeDriver{conn: &fakeConnection{pingErr: errors.New("gone away")}}, "unhealthy", "Connection failed: gone away"},
		{"open fails", &fakeDriver{openErr: errors.New("refused")}, "unhealthy", "Connection failed: refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := registryWithFake(tt.driver)
			checker := NewHealthChecker(NewConnector(registry), registry)

			ds := validDataSource()
			result := checker.CheckDataSourceConnectivity(context.Background(), &ds.Config, ds.Type)
			assert.Equal(t, tt.status, result.Status)
			assert.Equal(t, tt.message, result.Message)
			if tt.driver.conn != nil {
				assert.Equal(t, int32(1), atomic.LoadInt32(&tt.driver.conn.closes))
			}
		})
	}
}

func TestHealthChecker_DataSourceHealthCarriesID(t *testing.T) {
	registry := registryWithFake(&fakeDriver{conn: &fakeConnection{}})
	checker := NewHealthChecker(NewConnector(registry), registry)

	ds := validDataSource()
	result := checker.CheckDataSourceHealth(context.Background(), ds)
	assert.True(t, result.Healthy())
	assert.Equal(t, ds.ID, result.DataSourceID)
	assert.Equal(t, "mysql", result.DatabaseType)
}

func TestHealthChecker_ValidateConfiguration(t *testing.T) {
	checker := NewHealthChecker(NewConnector(nil), NewDriverRegistry())

	valid := validDataSource().Config
	assert.NoError(t, checker.ValidateDataSourceConfiguration(&valid, model.DatabaseTypeMySQL))
	assert.NoError(t, checker.ValidateDataSourceConfiguration(&valid, model.DatabaseTypeMSSQL))

	tests := []struct {
		name   string
		mutate func(*model.DataSourceConfig)
		dbType model.DatabaseType
	}{
		{"missing host", func(c *model.DataSourceConfig) { c.Host = "" }, model.DatabaseTypeMySQL},
		{"bad port", func(c *model.DataSourceConfig) { c.Port = 70000 }, model.DatabaseTypeMySQL},
		{"missing database", func(c *model.DataSourceConfig) { c.Database = "" }, model.DatabaseTypeMSSQL},
		{"missing username", func(c *model.DataSourceConfig) { c.Username = "" }, model.DatabaseTypeMySQL},
		{"unsupported type", func(*model.DataSourceConfig) {}, "oracle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDataSource().Config
			tt.mutate(&cfg)
			assert.Error(t, checker.ValidateDataSourceConfiguration(&cfg, tt.dbType))

			result := checker.CheckDataSourceConnectivity(context.Background(), &cfg, tt.dbType)
			assert.Equal(t, "error", result.Status)
		})
	}
}

func TestHealthChecker_DriverInfo(t *testing.T) {
	checker := NewHealthChecker(NewConnector(nil), NewDriverRegistry())

	info := checker.GetDriverInfo()
	require.Len(t, info, 3)
	assert.Equal(t, DriverInfo{Type: "mariadb", Dialect: "mysql", DriverName: "mysql", DefaultPort: 3306}, info[0])
	assert.Equal(t, DriverInfo{Type: "mssql", Dialect: "mssql", DriverName: "sqlserver", DefaultPort: 1433}, info[1])
	assert.Equal(t, DriverInfo{Type: "mysql", Dialect: "mysql", DriverName: "mysql", DefaultPort: 3306}, info[2])
}
