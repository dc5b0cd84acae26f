package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DatabaseType string

const (
	DatabaseTypeMySQL   DatabaseType = "mysql"
	DatabaseTypeMariaDB DatabaseType = "mariadb"
	DatabaseTypeMSSQL   DatabaseType = "mssql"
)

// DialectFamily groups database types that share SQL syntax and wire protocol.
type DialectFamily string

const (
	DialectFamilyMySQL DialectFamily = "mysql"
	DialectFamilyMSSQL DialectFamily = "mssql"
)

// DefaultMSSQLSchema is used when an mssql data source does not name a schema.
const DefaultMSSQLSchema = "dbo"

type DataSourceStatus string

const (
	DataSourceStatusActive   DataSourceStatus = "active"
	DataSourceStatusInactive DataSourceStatus = "inactive"
	DataSourceStatusError    DataSourceStatus = "error"
)

// DataSource is a registered connection profile for a target database.
type DataSource struct {
	ID        string           `gorm:"type:char(36);primaryKey" json:"id"`
	Name      string           `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Type      DatabaseType     `gorm:"type:enum('mysql','mariadb','mssql');not null" json:"type"`
	Config    DataSourceConfig `gorm:"type:json;not null" json:"config"`
	Status    DataSourceStatus `gorm:"type:enum('active','inactive','error');default:'active'" json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// DataSourceConfig holds the connection configuration for a data source
type DataSourceConfig struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"required,min=1,max=65535"`
	Database string `json:"database" validate:"required"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password,omitempty"` // encrypted at rest
	Schema   string `json:"schema,omitempty"`   // mssql only
	SSL      bool   `json:"ssl"`
	Timeout  int    `json:"timeout"` // seconds, default 30
}

// Value implements driver.Valuer interface for GORM
func (dsc DataSourceConfig) Value() (driver.Value, error) {
	return json.Marshal(dsc)
}

// Scan implements sql.Scanner interface for GORM
func (dsc *DataSourceConfig) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dsc)
	case string:
		return json.Unmarshal([]byte(v), dsc)
	default:
		return fmt.Errorf("unsupported data source config value %T", value)
	}
}

// TableName returns the table name for the DataSource model
func (DataSource) TableName() string {
	return "data_sources"
}

// BeforeCreate generates a new UUID if ID is empty
func (ds *DataSource) BeforeCreate(tx *gorm.DB) error {
	if ds.ID == "" {
		ds.ID = uuid.New().String()
	}
	return nil
}

// Sanitized returns a copy safe to hand to API clients.
func (ds *DataSource) Sanitized() *DataSource {
	out := *ds
	out.Config.Password = ""
	return &out
}

// SchemaName returns the catalog schema tables are listed from.
func (ds *DataSource) SchemaName() string {
	if ds.Type.Family() == DialectFamilyMSSQL {
		if ds.Config.Schema == "" {
			return DefaultMSSQLSchema
		}
		return ds.Config.Schema
	}
	return ds.Config.Database
}

// Family reports which SQL dialect a database type speaks.
func (t DatabaseType) Family() DialectFamily {
	if t == DatabaseTypeMSSQL {
		return DialectFamilyMSSQL
	}
	return DialectFamilyMySQL
}

// IsValidDatabaseType checks if a database type is valid
func IsValidDatabaseType(dbType string) bool {
	switch DatabaseType(dbType) {
	case DatabaseTypeMySQL, DatabaseTypeMariaDB, DatabaseTypeMSSQL:
		return true
	default:
		return false
	}
}
