package repository

import (
	"context"

	"query-gateway/internal/model"
)

// DataSourceRepository defines the interface for data source data operations
type DataSourceRepository interface {
	// Create a new data source
	Create(ctx context.Context, dataSource *model.DataSource) error

	// GetByID retrieves a data source by its UUID
	GetByID(ctx context.Context, id string) (*model.DataSource, error)

	// GetByName retrieves a data source by its name
	GetByName(ctx context.Context, name string) (*model.DataSource, error)

	// GetAll retrieves all data sources with optional filtering
	GetAll(ctx context.Context, status model.DataSourceStatus, limit, offset int) ([]*model.DataSource, int64, error)

	// Update updates an existing data source
	Update(ctx context.Context, dataSource *model.DataSource) error

	// Delete removes a data source; ErrDataSourceNotFound when nothing matched
	Delete(ctx context.Context, id string) error

	// SetStatus changes the status of a data source
	SetStatus(ctx context.Context, id string, status model.DataSourceStatus) error

	// CountByStatus returns the count of data sources by status
	CountByStatus(ctx context.Context) (map[model.DataSourceStatus]int64, error)

	// Ping checks the metadata store connection
	Ping(ctx context.Context) error
}
