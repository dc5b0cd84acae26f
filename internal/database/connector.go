package database

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"query-gateway/internal/database/drivers"
	"query-gateway/internal/model"
)

var openConnectionsGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "query_gateway_target_connections_open",
		Help: "Transient connections currently open to target data sources",
	},
	[]string{"database_type"},
)

// ConnectionOpener opens transient connections to registered data sources.
type ConnectionOpener interface {
	Open(ctx context.Context, dataSource *model.DataSource) (drivers.Connection, error)
	Dialect(dbType model.DatabaseType) (drivers.Dialect, error)
}

// Connector opens one fresh connection per call. Nothing is cached or shared
// between callers; each connection must be closed by whoever opened it.
type Connector struct {
	registry *DriverRegistry
	open     int64
}

func NewConnector(registry *DriverRegistry) *Connector {
	if registry == nil {
		registry = GetDriverRegistry()
	}
	return &Connector{registry: registry}
}

// Open connects to dataSource. The profile's password must already be in
// plain text.
func (c *Connector) Open(ctx context.Context, dataSource *model.DataSource) (drivers.Connection, error) {
	driver, err := c.registry.GetDriver(dataSource.Type)
	if err != nil {
		return nil, err
	}

	conn, err := driver.Open(ctx, &dataSource.Config)
	if err != nil {
		return nil, err
	}

	atomic.AddInt64(&c.open, 1)
	gauge := openConnectionsGauge.WithLabelValues(string(dataSource.Type))
	gauge.Inc()

	return &trackedConnection{Connection: conn, release: func() {
		atomic.AddInt64(&c.open, -1)
		gauge.Dec()
	}}, nil
}

func (c *Connector) Dialect(dbType model.DatabaseType) (drivers.Dialect, error) {
	driver, err := c.registry.GetDriver(dbType)
	if err != nil {
		return nil, err
	}
	return driver.Dialect(), nil
}

// OpenCount reports how many connections are currently open.
func (c *Connector) OpenCount() int64 {
	return atomic.LoadInt64(&c.open)
}

type trackedConnection struct {
	drivers.Connection
	once    sync.Once
	release func()
}

func (t *trackedConnection) Close() error {
	err := t.Connection.Close()
	t.once.Do(t.release)
	return err
}
