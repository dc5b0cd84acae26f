package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"query-gateway/internal/database"
	"query-gateway/internal/database/metadata"
	"query-gateway/internal/model"
	"query-gateway/internal/repository"
	"query-gateway/internal/security"
	"query-gateway/internal/utils"
)

type DataSourceService interface {
	CreateDataSource(ctx context.Context, req *CreateDataSourceRequest) (*model.DataSource, error)
	GetDataSource(ctx context.Context, id string) (*model.DataSource, error)
	ListDataSources(ctx context.Context, req *ListDataSourcesRequest) (*ListDataSourcesResponse, error)
	UpdateDataSource(ctx context.Context, id string, req *UpdateDataSourceRequest) (*model.DataSource, bool, error)
	DeleteDataSource(ctx context.Context, id string) error
	ActivateDataSource(ctx context.Context, id string) error
	DeactivateDataSource(ctx context.Context, id string) error
	GetDataSourceStats(ctx context.Context) (*DataSourceStatsResponse, error)
	TestConnection(ctx context.Context, req *TestConnectionRequest) *TestConnectionResponse
	CheckDataSourceHealth(ctx context.Context, id string) (*database.HealthCheckResult, error)
	ResolveDataSource(ctx context.Context, id string) (*model.DataSource, error)
}

// DataSourceResolver hands out connection-ready profiles with the password
// in plain text.
type DataSourceResolver interface {
	ResolveDataSource(ctx context.Context, id string) (*model.DataSource, error)
}

type dataSourceService struct {
	repo   repository.DataSourceRepository
	vault  *security.CredentialVault
	health *database.HealthChecker
	cache  *metadata.SchemaCache
	logger *logrus.Logger
}

type CreateDataSourceRequest struct {
	Name   string                 `json:"name" validate:"required,min=1,max=255"`
	Type   model.DatabaseType     `json:"type" validate:"required"`
	Config model.DataSourceConfig `json:"config" validate:"required"`
}

// UpdateDataSourceRequest changes only the fields that are set. When the
// data source does not exist yet, Name, Type and Config are required.
type UpdateDataSourceRequest struct {
	Name   *string                 `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Type   *model.DatabaseType     `json:"type,omitempty"`
	Config *model.DataSourceConfig `json:"config,omitempty"`
	Status *model.DataSourceStatus `json:"status,omitempty"`
}

type ListDataSourcesRequest struct {
	Status model.DataSourceStatus `json:"status,omitempty"`
	Limit  int                    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	Offset int                    `json:"offset,omitempty" validate:"omitempty,min=0"`
}

type ListDataSourcesResponse struct {
	DataSources []*model.DataSource `json:"dataSources"`
	Total       int64               `json:"total"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

type DataSourceStatsResponse struct {
	Total    int64                            `json:"total"`
	ByStatus map[model.DataSourceStatus]int64 `json:"byStatus"`
}

type TestConnectionRequest struct {
	Type   model.DatabaseType     `json:"type" validate:"required"`
	Config model.DataSourceConfig `json:"config" validate:"required"`
}

type TestConnectionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewDataSourceService creates a new instance of DataSourceService. cache may
// be nil.
func NewDataSourceService(
	repo repository.DataSourceRepository,
	vault *security.CredentialVault,
	health *database.HealthChecker,
	cache *metadata.SchemaCache,
	logger *logrus.Logger,
) DataSourceService {
	return &dataSourceService{
		repo:   repo,
		vault:  vault,
		health: health,
		cache:  cache,
		logger: logger,
	}
}

func (s *dataSourceService) CreateDataSource(ctx context.Context, req *CreateDataSourceRequest) (*model.DataSource, error) {
	return s.create(ctx, "", req)
}

func (s *dataSourceService) create(ctx context.Context, id string, req *CreateDataSourceRequest) (*model.DataSource, error) {
	if !model.IsValidDatabaseType(string(req.Type)) {
		return nil, invalidDataSource(fmt.Sprintf("unsupported database type %q", req.Type))
	}

	if existing, err := s.repo.GetByName(ctx, req.Name); err == nil && existing != nil {
		return nil, dataSourceExists(req.Name)
	}

	// The connection is tested with the plain password before it is sealed.
	if err := s.verifyConnectivity(ctx, req.Type, &req.Config); err != nil {
		return nil, err
	}

	config := req.Config
	sealed, err := s.vault.Encrypt(config.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	config.Password = sealed

	dataSource := &model.DataSource{
		ID:     id,
		Name:   req.Name,
		Type:   req.Type,
		Config: config,
		Status: model.DataSourceStatusActive,
	}

	if err := s.repo.Create(ctx, dataSource); err != nil {
		return nil, s.mapRepoError(err, dataSource.ID, req.Name)
	}

	s.logger.WithFields(logrus.Fields{
		"data_source_id": dataSource.ID,
		"type":           dataSource.Type,
	}).Info("Data source created")

	return dataSource.Sanitized(), nil
}

func (s *dataSourceService) verifyConnectivity(ctx context.Context, dbType model.DatabaseType, config *model.DataSourceConfig) error {
	result := s.health.CheckDataSourceConnectivity(ctx, config, dbType)
	switch {
	case result.Healthy():
		return nil
	case result.Status == "error":
		return invalidDataSource(result.Message)
	default:
		return utils.NewConnectionError(fmt.Sprintf("%s:%d", config.Host, config.Port), errors.New(result.Message))
	}
}

func (s *dataSourceService) GetDataSource(ctx context.Context, id string) (*model.DataSource, error) {
	dataSource, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return dataSource.Sanitized(), nil
}

func (s *dataSourceService) load(ctx context.Context, id string) (*model.DataSource, error) {
	if !utils.IsValidUUID(id) {
		return nil, invalidUUID(id)
	}

	dataSource, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "")
	}
	return dataSource, nil
}

func (s *dataSourceService) ListDataSources(ctx context.Context, req *ListDataSourcesRequest) (*ListDataSourcesResponse, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	dataSources, total, err := s.repo.GetAll(ctx, req.Status, req.Limit, req.Offset)
	if err != nil {
		return nil, utils.NewDatabaseError(err, "failed to list data sources")
	}

	sanitized := make([]*model.DataSource, len(dataSources))
	for i, ds := range dataSources {
		sanitized[i] = ds.Sanitized()
	}

	return &ListDataSourcesResponse{
		DataSources: sanitized,
		Total:       total,
		Limit:       req.Limit,
		Offset:      req.Offset,
	}, nil
}

// UpdateDataSource applies req to an existing data source, or creates one
// under id when none exists. The bool result reports a create. An empty
// password in req.Config keeps the stored one.
func (s *dataSourceService) UpdateDataSource(ctx context.Context, id string, req *UpdateDataSourceRequest) (*model.DataSource, bool, error) {
	if !utils.IsValidUUID(id) {
		return nil, false, invalidUUID(id)
	}

	dataSource, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrDataSourceNotFound) {
		if req.Name == nil || req.Type == nil || req.Config == nil {
			return nil, false, utils.NewValidationError("name, type and config are required to create a data source", "")
		}
		created, err := s.create(ctx, id, &CreateDataSourceRequest{Name: *req.Name, Type: *req.Type, Config: *req.Config})
		if err != nil {
			return nil, false, err
		}
		if req.Status != nil && *req.Status != model.DataSourceStatusActive {
			if err := s.setStatus(ctx, id, *req.Status); err != nil {
				return nil, false, err
			}
			created.Status = *req.Status
		}
		return created, true, nil
	}
	if err != nil {
		return nil, false, s.mapRepoError(err, id, "")
	}

	if req.Name != nil && *req.Name != dataSource.Name {
		if existing, err := s.repo.GetByName(ctx, *req.Name); err == nil && existing != nil && existing.ID != id {
			return nil, false, dataSourceExists(*req.Name)
		}
		dataSource.Name = *req.Name
	}
	if req.Type != nil {
		if !model.IsValidDatabaseType(string(*req.Type)) {
			return nil, false, invalidDataSource(fmt.Sprintf("unsupported database type %q", *req.Type))
		}
		dataSource.Type = *req.Type
	}
	if req.Config != nil {
		config := *req.Config
		if config.Password == "" {
			config.Password = dataSource.Config.Password
		} else if config.Password, err = s.vault.Encrypt(config.Password); err != nil {
			return nil, false, fmt.Errorf("failed to encrypt credentials: %w", err)
		}
		dataSource.Config = config
	}
	if req.Status != nil {
		if !validStatus(*req.Status) {
			return nil, false, utils.NewValidationError("invalid status", string(*req.Status))
		}
		dataSource.Status = *req.Status
	}

	if err := s.repo.Update(ctx, dataSource); err != nil {
		return nil, false, s.mapRepoError(err, id, dataSource.Name)
	}
	s.invalidate(id)

	s.logger.WithField("data_source_id", id).Info("Data source updated")
	return dataSource.Sanitized(), false, nil
}

func (s *dataSourceService) DeleteDataSource(ctx context.Context, id string) error {
	if !utils.IsValidUUID(id) {
		return invalidUUID(id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapRepoError(err, id, "")
	}
	s.invalidate(id)

	s.logger.WithField("data_source_id", id).Info("Data source deleted")
	return nil
}

func (s *dataSourceService) ActivateDataSource(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, model.DataSourceStatusActive)
}

func (s *dataSourceService) DeactivateDataSource(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, model.DataSourceStatusInactive)
}

func (s *dataSourceService) setStatus(ctx context.Context, id string, status model.DataSourceStatus) error {
	if !utils.IsValidUUID(id) {
		return invalidUUID(id)
	}

	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return s.mapRepoError(err, id, "")
	}
	if status != model.DataSourceStatusActive {
		s.invalidate(id)
	}
	return nil
}

func (s *dataSourceService) GetDataSourceStats(ctx context.Context) (*DataSourceStatsResponse, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, utils.NewDatabaseError(err, "failed to get data source stats")
	}

	total := int64(0)
	for _, count := range counts {
		total += count
	}

	return &DataSourceStatsResponse{
		Total:    total,
		ByStatus: counts,
	}, nil
}

func (s *dataSourceService) TestConnection(ctx context.Context, req *TestConnectionRequest) *TestConnectionResponse {
	result := s.health.CheckDataSourceConnectivity(ctx, &req.Config, req.Type)
	return &TestConnectionResponse{
		Success: result.Healthy(),
		Message: result.Message,
	}
}

// CheckDataSourceHealth pings a stored data source and records the outcome:
// an active source that fails moves to error, an errored source that
// recovers moves back to active. Inactive sources keep their status.
func (s *dataSourceService) CheckDataSourceHealth(ctx context.Context, id string) (*database.HealthCheckResult, error) {
	dataSource, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.decrypt(dataSource); err != nil {
		return nil, err
	}

	result := s.health.CheckDataSourceHealth(ctx, dataSource)

	var next model.DataSourceStatus
	switch {
	case result.Healthy() && dataSource.Status == model.DataSourceStatusError:
		next = model.DataSourceStatusActive
	case !result.Healthy() && dataSource.Status == model.DataSourceStatusActive:
		next = model.DataSourceStatusError
	}
	if next != "" {
		if err := s.repo.SetStatus(ctx, id, next); err != nil {
			s.logger.WithError(err).WithField("data_source_id", id).Warn("Failed to record health status")
		}
	}

	return result, nil
}

// ResolveDataSource loads a data source for use against its target database.
// Inactive sources are refused.
func (s *dataSourceService) ResolveDataSource(ctx context.Context, id string) (*model.DataSource, error) {
	if id == "" {
		return nil, utils.NewValidationError("dataSourceId is required", "")
	}

	dataSource, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "")
	}
	if dataSource.Status == model.DataSourceStatusInactive {
		return nil, invalidDataSource(fmt.Sprintf("data source %s is inactive", id))
	}
	if err := s.decrypt(dataSource); err != nil {
		return nil, err
	}
	return dataSource, nil
}

func (s *dataSourceService) decrypt(dataSource *model.DataSource) error {
	plain, err := s.vault.Decrypt(dataSource.Config.Password)
	if err != nil {
		return utils.NewErrorBuilder(utils.ErrCodeInternalError).
			WithMessage("Stored credentials could not be decrypted").
			WithCause(err).
			Build()
	}
	dataSource.Config.Password = plain
	return nil
}

func (s *dataSourceService) invalidate(id string) {
	if s.cache != nil {
		s.cache.Invalidate(id)
	}
}

func (s *dataSourceService) mapRepoError(err error, id, name string) error {
	switch {
	case errors.Is(err, repository.ErrDataSourceNotFound):
		return utils.NewNotFoundError("data source", id)
	case errors.Is(err, repository.ErrDataSourceExists):
		return dataSourceExists(name)
	default:
		return utils.NewDatabaseError(err, err.Error())
	}
}

func validStatus(status model.DataSourceStatus) bool {
	switch status {
	case model.DataSourceStatusActive, model.DataSourceStatusInactive, model.DataSourceStatusError:
		return true
	}
	return false
}

func invalidUUID(id string) error {
	return utils.NewErrorBuilder(utils.ErrCodeInvalidUUID).
		WithDetails(fmt.Sprintf("%q is not a valid data source ID", id)).
		Build()
}

func invalidDataSource(details string) error {
	return utils.NewErrorBuilder(utils.ErrCodeInvalidDataSource).WithDetails(details).Build()
}

func dataSourceExists(name string) error {
	return utils.NewErrorBuilder(utils.ErrCodeDataSourceExists).
		WithDetails(fmt.Sprintf("a data source named %q already exists", name)).
		Build()
}
