package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"query-gateway/internal/middleware"
	"query-gateway/internal/model"
	"query-gateway/internal/service"
	"query-gateway/internal/utils"
	"query-gateway/pkg/response"
)

type DataSourceController struct {
	service service.DataSourceService
	logger  *logrus.Logger
}

func NewDataSourceController(service service.DataSourceService, logger *logrus.Logger) *DataSourceController {
	return &DataSourceController{
		service: service,
		logger:  logger,
	}
}

// CreateDataSource godoc
// @Summary Create a new data source
// @Description Tests the connection, then stores the data source with its password encrypted
// @Tags datasources
// @Accept json
// @Produce json
// @Param request body service.CreateDataSourceRequest true "Create data source request"
// @Success 201 {object} response.StandardResponse{data=model.DataSource}
// @Failure 400 {object} response.StandardResponse
// @Failure 409 {object} response.StandardResponse
// @Failure 503 {object} response.StandardResponse
// @Router /api/v1/datasources [post]
func (dc *DataSourceController) CreateDataSource(c *gin.Context) {
	var req service.CreateDataSourceRequest
	if !bindJSON(c, &req) {
		return
	}

	dataSource, err := dc.service.CreateDataSource(c.Request.Context(), &req)
	if err != nil {
		respondError(c, dc.logger, err)
		return
	}

	c.JSON(http.StatusCreated, response.SuccessResponse(dataSource, middleware.GetCorrelationID(c)))
}

// GetDataSource godoc
// @Summary Get a data source by ID
// @Tags datasources
// @Produce json
// @Param id path string true "Data source UUID"
// @Success 200 {object} response.StandardResponse{data=model.DataSource}
// @Failure 400 {object} response.StandardResponse
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/datasources/{id} [get]
func (dc *DataSourceController) GetDataSource(c *gin.Context) {
	dataSource, err := dc.service.GetDataSource(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, dc.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(dataSource, middleware.GetCorrelationID(c)))
}

// ListDataSources godoc
// @Summary List data sources
// @Tags datasources
// @Produce json
// @Param status query string false "Filter by status (active, inactive, error)"
// @Param limit query int false "Maximum number of items to return (default: 20, max: 100)"
// @Param offset query int false "Number of items to skip (default: 0)"
// @Success 200 {object} response.StandardResponse{data=service.ListDataSourcesResponse}
// @Router /api/v1/datasources [get]
func (dc *DataSourceController) ListDataSources(c *gin.Context) {
	req := &service.ListDataSourcesRequest{
		Status: model.DataSourceStatus(c.Query("status")),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			respondError(c, nil, utils.NewValidationError("Invalid limit", limitStr))
			return
		}
		req.Limit = limit
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			respondError(c, nil, utils.NewValidationError("Invalid offset", offsetStr))
			return
		}
		req.Offset = offset
	}

	result, err := dc.service.ListDataSources(c.Request.Context(), req)
	if err != nil {
		respondError(c, dc.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(result, middleware.GetCorrelationID(c)))
}

// UpdateDataSource godoc
// @Summary Update or create a data source
// @Description Updates the data source, or creates it under the given ID when it does not exist
// @Tags datasources
// @Accept json
// @Produce json
// @Param id path string true "Data source UUID"
// @Param request body service.UpdateDataSourceRequest true "Update data source request"
// @Success 200 {object} response.StandardResponse{data=model.DataSource}
// @Success 201 {object} response.StandardResponse{data=model.DataSource}
// @Failure 400 {object} response.StandardResponse
// @Failure 409 {object} response.StandardResponse
// @Router /api/v1/datasources/{id} [put]
func (dc *DataSourceController) UpdateDataSource(c *gin.Context) {
	var req service.UpdateDataSourceRequest
	if !bindJSON(c, &req) {
		return
	}

	dataSource, created, err := dc.service.UpdateDataSource(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, dc.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, response.SuccessResponse(dataSource, middleware.GetCorrelationID(c)))
}

// DeleteDataSource godoc
// @Summary Delete a data source
// @Tags datasources
// @Produce json
// @Param id path string true "Data source UUID"
// @Success 200 {object} response.StandardResponse
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/datasources/{id} [delete]
func (dc *DataSourceController) DeleteDataSource(c *gin.Context) {
	if err := dc.service.DeleteDataSource(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, dc.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessMessageResponse("Data source deleted successfully", middleware.GetCorrelationID(c)))
}

// ActivateDataSource godoc
// @Summary Activate a data source
// @Tags datasources
// @Produce json
// @Param id path string true "Data source UUID"
// @Success 200 {object} response.StandardResponse
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/datasources/{id}/activate [post]
func (dc *DataSourceController) ActivateDataSource(c *gin.Context) {
	dc.changeDataSourceStatus(c, "activate", dc.service.ActivateDataSource)
}

// DeactivateDataSource godoc
// @Summary Deactivate a data source
// @Tags datasources
// @Produce json
// @Param id path string true "Data source UUID"
// @Success 200 {object} response.StandardResponse
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/datasources/{id}/deactivate [post]
func (dc *DataSourceController) DeactivateDataSource(c *gin.Context) {
	dc.changeDataSourceStatus(c, "deactivate", dc.service.DeactivateDataSource)
}

// GetDataSourceStats godoc
// @Summary Get data source statistics
// @Tags datasources
// @Produce json
// @Success 200 {object} response.StandardResponse{data=service.DataSourceStatsResponse}
// @Router /api/v1/datasources/stats [get]
func (dc *DataSourceController) GetDataSourceStats(c *gin.Context) {
	stats, err := dc.service.GetDataSourceStats(c.Request.Context())
	if err != nil {
		respondError(c, dc.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(stats, middleware.GetCorrelationID(c)))
}

// TestConnection godoc
// @Summary Test a connection without saving it
// @Tags datasources
// @Accept json
// @Produce json
// @Param request body service.TestConnectionRequest true "Connection to test"
// @Success 200 {object} service.TestConnectionResponse
// @Failure 400 {object} service.TestConnectionResponse "invalid body or connection failed"
// @Router /api/v1/datasources/test-connection [post]
func (dc *DataSourceController) TestConnection(c *gin.Context) {
	var req service.TestConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, service.TestConnectionResponse{Message: "Invalid request body: " + err.Error()})
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, service.TestConnectionResponse{Message: err.Error()})
		return
	}

	result := dc.service.TestConnection(c.Request.Context(), &req)
	if !result.Success {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CheckDataSourceHealth godoc
// @Summary Check connectivity of a stored data source
// @Tags datasources
// @Produce json
// @Param id path string true "Data source UUID"
// @Success 200 {object} response.StandardResponse{data=database.HealthCheckResult}
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/datasources/{id}/health [get]
func (dc *DataSourceController) CheckDataSourceHealth(c *gin.Context) {
	result, err := dc.service.CheckDataSourceHealth(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, dc.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(result, middleware.GetCorrelationID(c)))
}

func (dc *DataSourceController) changeDataSourceStatus(c *gin.Context, action string, statusFunc func(ctx context.Context, id string) error) {
	if err := statusFunc(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, dc.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessMessageResponse(
		"Data source "+action+"d successfully",
		middleware.GetCorrelationID(c),
	))
}
