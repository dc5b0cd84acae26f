package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"query-gateway/internal/database"
	"query-gateway/internal/model"
	"query-gateway/internal/service"
	"query-gateway/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockQueryService struct {
	mock.Mock
}

func (m *mockQueryService) ExecuteQuery(ctx context.Context, req *model.QueryRequest) (*model.QueryResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*model.QueryResult)
	return result, args.Error(1)
}

func (m *mockQueryService) GetQueryStats(ctx context.Context) (*model.QueryStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*model.QueryStats)
	return stats, args.Error(1)
}

type mockTableService struct {
	mock.Mock
}

func (m *mockTableService) ListTables(ctx context.Context, dataSourceID string, refresh bool) ([]model.TableDescriptor, error) {
	args := m.Called(ctx, dataSourceID, refresh)
	tables, _ := args.Get(0).([]model.TableDescriptor)
	return tables, args.Error(1)
}

func (m *mockTableService) DescribeTable(ctx context.Context, dataSourceID, tableName string) (*model.TableDescriptor, error) {
	args := m.Called(ctx, dataSourceID, tableName)
	table, _ := args.Get(0).(*model.TableDescriptor)
	return table, args.Error(1)
}

type mockDataSourceService struct {
	mock.Mock
}

func (m *mockDataSourceService) CreateDataSource(ctx context.Context, req *service.CreateDataSourceRequest) (*model.DataSource, error) {
	args := m.Called(ctx, req)
	ds, _ := args.Get(0).(*model.DataSource)
	return ds, args.Error(1)
}

func (m *mockDataSourceService) GetDataSource(ctx context.Context, id string) (*model.DataSource, error) {
	args := m.Called(ctx, id)
	ds, _ := args.Get(0).(*model.DataSource)
	return ds, args.Error(1)
}

func (m *mockDataSourceService) ListDataSources(ctx context.Context, req *service.ListDataSourcesRequest) (*service.ListDataSourcesResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*service.ListDataSourcesResponse)
	return resp, args.Error(1)
}

func (m *mockDataSourceService) UpdateDataSource(ctx context.Context, id string, req *service.UpdateDataSourceRequest) (*model.DataSource, bool, error) {
	args := m.Called(ctx, id, req)
	ds, _ := args.Get(0).(*model.DataSource)
	return ds, args.Bool(1), args.Error(2)
}

func (m *mockDataSourceService) DeleteDataSource(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDataSourceService) ActivateDataSource(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDataSourceService) DeactivateDataSource(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDataSourceService) GetDataSourceStats(ctx context.Context) (*service.DataSourceStatsResponse, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*service.DataSourceStatsResponse)
	return stats, args.Error(1)
}

func (m *mockDataSourceService) TestConnection(ctx context.Context, req *service.TestConnectionRequest) *service.TestConnectionResponse {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*service.TestConnectionResponse)
	return resp
}

func (m *mockDataSourceService) CheckDataSourceHealth(ctx context.Context, id string) (*database.HealthCheckResult, error) {
	args := m.Called(ctx, id)
	result, _ := args.Get(0).(*database.HealthCheckResult)
	return result, args.Error(1)
}

func (m *mockDataSourceService) ResolveDataSource(ctx context.Context, id string) (*model.DataSource, error) {
	args := m.Called(ctx, id)
	ds, _ := args.Get(0).(*model.DataSource)
	return ds, args.Error(1)
}

func performRequest(r http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.StandardResponse {
	t.Helper()
	var resp response.StandardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
