package traditional

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"

	"query-gateway/internal/database/drivers"
	"query-gateway/internal/model"
)

// SQLServerDriver implements the Driver interface for Microsoft SQL Server
type SQLServerDriver struct {
	base *drivers.DriverBase
}

// NewSQLServerDriver creates a new SQL Server driver instance
func NewSQLServerDriver() *SQLServerDriver {
	return &SQLServerDriver{
		base: drivers.NewDriverBase(model.DatabaseTypeMSSQL, "sqlserver"),
	}
}

// Open connects to SQL Server and checks the login with a ping
func (sd *SQLServerDriver) Open(ctx context.Context, config *model.DataSourceConfig) (drivers.Connection, error) {
	return drivers.OpenSQL(ctx, sd.GetDriverName(), sd.BuildDSN(config), target(config),
		connectTimeout(config), drivers.SQLServerDialect{})
}

// ValidateDSN validates the SQL Server connection string
func (sd *SQLServerDriver) ValidateDSN(dsn string) error {
	parsedURL, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("invalid DSN format: %v", err)
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme != "sqlserver" {
		return fmt.Errorf("invalid scheme in DSN: %s, expected 'sqlserver'", scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("missing host in DSN")
	}

	if parsedURL.User == nil || parsedURL.User.Username() == "" {
		return fmt.Errorf("missing username in DSN")
	}

	return nil
}

// GetDefaultPort returns the default port for SQL Server
func (sd *SQLServerDriver) GetDefaultPort() int {
	return 1433
}

// BuildDSN builds a SQL Server connection URL from configuration.
// Without SSL the channel is still encrypted but the server certificate is
// not verified.
func (sd *SQLServerDriver) BuildDSN(config *model.DataSourceConfig) string {
	port := config.Port
	if port == 0 {
		port = sd.GetDefaultPort()
	}
	timeout := strconv.Itoa(int(connectTimeout(config).Seconds()))

	q := url.Values{}
	q.Set("database", config.Database)
	q.Set("encrypt", "true")
	if !config.SSL {
		q.Set("TrustServerCertificate", "true")
	}
	q.Set("connection timeout", timeout)
	q.Set("dial timeout", timeout)

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(config.Username, config.Password),
		Host:     net.JoinHostPort(config.Host, strconv.Itoa(port)),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// GetDatabaseTypeName returns the database type name
func (sd *SQLServerDriver) GetDatabaseTypeName() string {
	return sd.base.GetDatabaseTypeName()
}

// GetDriverName returns the underlying SQL driver name for SQL Server
func (sd *SQLServerDriver) GetDriverName() string {
	return sd.base.GetDriverName()
}

func (sd *SQLServerDriver) Dialect() drivers.Dialect {
	return drivers.SQLServerDialect{}
}
