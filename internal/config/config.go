package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. QG_SERVER_PORT.
const EnvPrefix = "QG"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Query    QueryConfig    `mapstructure:"query"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	Host string `mapstructure:"host"`
}

// Address returns host:port for the HTTP listener.
func (s ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

// DatabaseConfig points at the metadata store holding data source profiles.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSL             string        `mapstructure:"ssl"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type SecurityConfig struct {
	EncryptionKey      string        `mapstructure:"encryption_key"`
	JWTSecret          string        `mapstructure:"jwt_secret"`
	JWTExpiration      time.Duration `mapstructure:"jwt_expiration"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
	EnableAuth         bool          `mapstructure:"enable_auth"`
	EnableRateLimit    bool          `mapstructure:"enable_rate_limit"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// QueryConfig tunes the query and schema endpoints.
type QueryConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	DefaultPageSize     int           `mapstructure:"default_page_size"`
	DefaultGetPageSize  int           `mapstructure:"default_get_page_size"`
	MaxPageSize         int           `mapstructure:"max_page_size"`
	ValidateIdentifiers bool          `mapstructure:"validate_identifiers"`
	SchemaCacheSize     int           `mapstructure:"schema_cache_size"`
	SchemaCacheTTL      time.Duration `mapstructure:"schema_cache_ttl"`
	MSSQLDefaultSchema  string        `mapstructure:"mssql_default_schema"`
}

// Load reads configs/config.yaml (or ./config.yaml), then a .env file if one
// exists, then QG_* environment variables. Later sources win.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file. An empty path searches the
// default locations.
func LoadFrom(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the gateway cannot run with.
func (c *Config) Validate() error {
	if c.Query.DefaultPageSize < 1 || c.Query.DefaultGetPageSize < 1 {
		return fmt.Errorf("query default page sizes must be at least 1")
	}
	if c.Query.MaxPageSize < c.Query.DefaultPageSize {
		return fmt.Errorf("query.max_page_size (%d) is below query.default_page_size (%d)",
			c.Query.MaxPageSize, c.Query.DefaultPageSize)
	}
	if c.Query.Timeout <= 0 {
		return fmt.Errorf("query.timeout must be positive")
	}
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("security.encryption_key is required")
	}
	if c.Security.EnableAuth && c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required when auth is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.host", "0.0.0.0")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.database", "query_gateway")
	v.SetDefault("database.username", "gateway_user")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl", "false")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	// Security defaults
	v.SetDefault("security.encryption_key", "")
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.jwt_expiration", "24h")
	v.SetDefault("security.rate_limit_per_minute", 60)
	v.SetDefault("security.rate_limit_burst", 10)
	v.SetDefault("security.enable_auth", false)
	v.SetDefault("security.enable_rate_limit", true)
	v.SetDefault("security.cors_allowed_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Query defaults
	v.SetDefault("query.timeout", "30s")
	v.SetDefault("query.default_page_size", 100)
	v.SetDefault("query.default_get_page_size", 10)
	v.SetDefault("query.max_page_size", 1000)
	v.SetDefault("query.validate_identifiers", true)
	v.SetDefault("query.schema_cache_size", 256)
	v.SetDefault("query.schema_cache_ttl", "5m")
	v.SetDefault("query.mssql_default_schema", "dbo")
}
