package config

import (
	"fmt"
	"net"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"query-gateway/internal/model"
)

// MetadataDSN builds the DSN of the metadata store.
func (d DatabaseConfig) MetadataDSN() string {
	cfg := gomysql.NewConfig()
	cfg.User = d.Username
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.Host, d.Port)
	cfg.DBName = d.Database
	cfg.ParseTime = true
	// RowsAffected reports matched rows, so a no-op update is not a miss
	cfg.ClientFoundRows = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	if d.SSL == "true" {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}

// GormLogLevel maps the application log level onto gorm's, one step quieter.
func GormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "info":
		return logger.Warn
	case "warn":
		return logger.Error
	case "error":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// InitDatabase opens the metadata store, applies pool settings and migrates
// the data source table.
func InitDatabase(cfg *Config, log *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.Database.MetadataDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(GormLogLevel(cfg.Logging.Level)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(&model.DataSource{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.WithField("database", cfg.Database.Database).Info("Metadata store connection established")
	return db, nil
}
