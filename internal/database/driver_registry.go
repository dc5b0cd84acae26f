package database

import (
	"fmt"
	"sort"
	"sync"

	"query-gateway/internal/database/drivers"
	"query-gateway/internal/database/drivers/traditional"
	"query-gateway/internal/model"
)

// DriverRegistry manages driver instances and creation
type DriverRegistry struct {
	drivers map[model.DatabaseType]func() drivers.Driver
	mutex   sync.RWMutex
}

var (
	defaultRegistry     *DriverRegistry
	defaultRegistryOnce sync.Once
)

// GetDriverRegistry returns the process-wide registry.
func GetDriverRegistry() *DriverRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewDriverRegistry()
	})
	return defaultRegistry
}

// NewDriverRegistry creates a new driver registry
func NewDriverRegistry() *DriverRegistry {
	registry := &DriverRegistry{
		drivers: make(map[model.DatabaseType]func() drivers.Driver),
	}

	registry.registerDrivers()

	return registry
}

func (dr *DriverRegistry) registerDrivers() {
	dr.mutex.Lock()
	defer dr.mutex.Unlock()

	dr.register(model.DatabaseTypeMySQL, func() drivers.Driver {
		return traditional.NewMySQLDriver(model.DatabaseTypeMySQL)
	})
	dr.register(model.DatabaseTypeMariaDB, func() drivers.Driver {
		return traditional.NewMySQLDriver(model.DatabaseTypeMariaDB)
	})
	dr.register(model.DatabaseTypeMSSQL, func() drivers.Driver {
		return traditional.NewSQLServerDriver()
	})
}

func (dr *DriverRegistry) register(dbType model.DatabaseType, factory func() drivers.Driver) {
	dr.drivers[dbType] = factory
}

// Register adds or replaces the driver used for dbType.
func (dr *DriverRegistry) Register(dbType model.DatabaseType, factory func() drivers.Driver) {
	dr.mutex.Lock()
	defer dr.mutex.Unlock()
	dr.register(dbType, factory)
}

func (dr *DriverRegistry) GetDriver(dbType model.DatabaseType) (drivers.Driver, error) {
	dr.mutex.RLock()
	factory, exists := dr.drivers[dbType]
	dr.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	return factory(), nil
}

// ListDrivers returns the registered types in name order.
func (dr *DriverRegistry) ListDrivers() []model.DatabaseType {
	dr.mutex.RLock()
	defer dr.mutex.RUnlock()

	types := make([]model.DatabaseType, 0, len(dr.drivers))
	for dbType := range dr.drivers {
		types = append(types, dbType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

func (dr *DriverRegistry) IsSupported(dbType model.DatabaseType) bool {
	dr.mutex.RLock()
	_, exists := dr.drivers[dbType]
	dr.mutex.RUnlock()

	return exists
}
