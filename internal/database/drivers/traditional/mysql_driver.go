package traditional

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"query-gateway/internal/database/drivers"
	"query-gateway/internal/model"
)

const defaultTimeoutSeconds = 30

// MySQLDriver implements Driver for MySQL/MariaDB
type MySQLDriver struct {
	base *drivers.DriverBase
}

// NewMySQLDriver creates a driver for dbType, which must be a MySQL-family type.
func NewMySQLDriver(dbType model.DatabaseType) *MySQLDriver {
	return &MySQLDriver{base: drivers.NewDriverBase(dbType, "mysql")}
}

func (d *MySQLDriver) Open(ctx context.Context, config *model.DataSourceConfig) (drivers.Connection, error) {
	return drivers.OpenSQL(ctx, d.GetDriverName(), d.BuildDSN(config), target(config),
		connectTimeout(config), drivers.MySQLDialect{})
}

func (d *MySQLDriver) ValidateDSN(dsn string) error {
	if dsn == "" {
		return fmt.Errorf("DSN cannot be empty")
	}
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return fmt.Errorf("invalid DSN format: %w", err)
	}
	return nil
}

func (d *MySQLDriver) GetDefaultPort() int {
	return 3306
}

func (d *MySQLDriver) BuildDSN(config *model.DataSourceConfig) string {
	cfg := mysql.NewConfig()
	cfg.User = config.Username
	cfg.Passwd = config.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(config.Host, strconv.Itoa(d.port(config)))
	cfg.DBName = config.Database
	cfg.ParseTime = true
	cfg.Timeout = connectTimeout(config)
	cfg.ReadTimeout = connectTimeout(config)
	if config.SSL {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}

func (d *MySQLDriver) port(config *model.DataSourceConfig) int {
	if config.Port == 0 {
		return d.GetDefaultPort()
	}
	return config.Port
}

func (d *MySQLDriver) GetDatabaseTypeName() string {
	return d.base.GetDatabaseTypeName()
}

func (d *MySQLDriver) GetDriverName() string {
	return d.base.GetDriverName()
}

func (d *MySQLDriver) Dialect() drivers.Dialect {
	return drivers.MySQLDialect{}
}

func connectTimeout(config *model.DataSourceConfig) time.Duration {
	if config.Timeout <= 0 {
		return defaultTimeoutSeconds * time.Second
	}
	return time.Duration(config.Timeout) * time.Second
}

func target(config *model.DataSourceConfig) string {
	return fmt.Sprintf("%s:%d/%s", config.Host, config.Port, config.Database)
}
