package database

import (
	"context"
	"fmt"
	"time"

	"query-gateway/internal/model"
)

// HealthChecker tests connectivity to data sources with throwaway connections.
type HealthChecker struct {
	opener   ConnectionOpener
	registry *DriverRegistry
}

// NewHealthChecker creates a new HealthChecker instance
func NewHealthChecker(opener ConnectionOpener, registry *DriverRegistry) *HealthChecker {
	if registry == nil {
		registry = GetDriverRegistry()
	}
	return &HealthChecker{
		opener:   opener,
		registry: registry,
	}
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	DataSourceID string        `json:"dataSourceId,omitempty"`
	DatabaseType string        `json:"databaseType"`
	Status       string        `json:"status"`
	Message      string        `json:"message,omitempty"`
	Latency      time.Duration `json:"latency"`
	CheckedAt    time.Time     `json:"checkedAt"`
}

// Healthy reports whether the check succeeded.
func (r *HealthCheckResult) Healthy() bool {
	return r.Status == "healthy"
}

// CheckDataSourceHealth checks the health of a registered data source
func (hc *HealthChecker) CheckDataSourceHealth(ctx context.Context, dataSource *model.DataSource) *HealthCheckResult {
	result := hc.check(ctx, dataSource)
	result.DataSourceID = dataSource.ID
	return result
}

// CheckDataSourceConnectivity tests a configuration that has not been saved.
func (hc *HealthChecker) CheckDataSourceConnectivity(ctx context.Context, config *model.DataSourceConfig, dbType model.DatabaseType) *HealthCheckResult {
	return hc.check(ctx, &model.DataSource{Type: dbType, Config: *config})
}

func (hc *HealthChecker) check(ctx context.Context, dataSource *model.DataSource) *HealthCheckResult {
	startTime := time.Now()
	result := &HealthCheckResult{
		DatabaseType: string(dataSource.Type),
		CheckedAt:    startTime,
	}

	if err := hc.ValidateDataSourceConfiguration(&dataSource.Config, dataSource.Type); err != nil {
		result.Status = "error"
		result.Message = err.Error()
		return result
	}

	conn, err := hc.opener.Open(ctx, dataSource)
	if err != nil {
		result.Status = "unhealthy"
		result.Message = fmt.Sprintf("Connection failed: %v", err)
		result.Latency = time.Since(startTime)
		return result
	}
	defer conn.Close()

	err = conn.Ping(ctx)
	result.Latency = time.Since(startTime)
	if err != nil {
		result.Status = "unhealthy"
		result.Message = fmt.Sprintf("Connection failed: %v", err)
		return result
	}

	result.Status = "healthy"
	result.Message = "Connection successful!"
	return result
}

// ValidateDataSourceConfiguration checks a configuration before any network call.
func (hc *HealthChecker) ValidateDataSourceConfiguration(config *model.DataSourceConfig, dbType model.DatabaseType) error {
	driver, err := hc.registry.GetDriver(dbType)
	if err != nil {
		return fmt.Errorf("driver not available for database type %s: %w", dbType, err)
	}

	if config.Host == "" {
		return fmt.Errorf("host is required")
	}
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if config.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if config.Username == "" {
		return fmt.Errorf("username is required")
	}

	return driver.ValidateDSN(driver.BuildDSN(config))
}

// GetDriverInfo returns information about available database drivers
func (hc *HealthChecker) GetDriverInfo() []DriverInfo {
	supportedTypes := hc.registry.ListDrivers()
	info := make([]DriverInfo, 0, len(supportedTypes))

	for _, dbType := range supportedTypes {
		driver, err := hc.registry.GetDriver(dbType)
		if err != nil {
			continue
		}
		info = append(info, DriverInfo{
			Type:        string(dbType),
			Dialect:     string(dbType.Family()),
			DriverName:  driver.GetDriverName(),
			DefaultPort: driver.GetDefaultPort(),
		})
	}

	return info
}

// DriverInfo contains information about a database driver
type DriverInfo struct {
	Type        string `json:"type"`
	Dialect     string `json:"dialect"`
	DriverName  string `json:"driverName"`
	DefaultPort int    `json:"defaultPort"`
}
