package drivers

import (
	"context"

	"query-gateway/internal/model"
)

// Row is one result row keyed by column name.
type Row = map[string]interface{}

// Connection is one open connection to a target database. Callers always use
// `?` placeholders and a flat, ordered parameter slice; the connection's
// dialect takes care of any rewriting.
type Connection interface {
	Query(ctx context.Context, query string, params []interface{}) ([]Row, error)
	Ping(ctx context.Context) error
	Close() error
}

// DriverBase provides common functionality for all drivers
type DriverBase struct {
	dbType     model.DatabaseType
	driverName string
}

func NewDriverBase(dbType model.DatabaseType, driverName string) *DriverBase {
	return &DriverBase{dbType: dbType, driverName: driverName}
}

func (db *DriverBase) GetDatabaseTypeName() string {
	return string(db.dbType)
}

// GetDriverName returns the database/sql driver name.
func (db *DriverBase) GetDriverName() string {
	return db.driverName
}

// Driver opens transient connections to one database family.
type Driver interface {
	// Open connects and performs a handshake. Failures are *utils.ConnectionError.
	Open(ctx context.Context, config *model.DataSourceConfig) (Connection, error)

	// ValidateDSN validates the connection string
	ValidateDSN(dsn string) error

	// GetDefaultPort returns the default port for the database
	GetDefaultPort() int

	// BuildDSN builds a connection string from configuration
	BuildDSN(config *model.DataSourceConfig) string

	// GetDatabaseTypeName returns the database type name
	GetDatabaseTypeName() string

	// GetDriverName returns the underlying SQL driver name
	GetDriverName() string

	// Dialect returns the SQL dialect spoken over connections from this driver
	Dialect() Dialect
}
