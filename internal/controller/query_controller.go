package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"query-gateway/internal/middleware"
	"query-gateway/internal/model"
	"query-gateway/internal/service"
	"query-gateway/internal/utils"
	"query-gateway/pkg/response"
)

type QueryController struct {
	queryService       service.QueryService
	defaultGetPageSize int
	logger             *logrus.Logger
}

// NewQueryController creates a QueryController. defaultGetPageSize is the
// page size GET /query uses when the caller gives none.
func NewQueryController(queryService service.QueryService, defaultGetPageSize int, logger *logrus.Logger) *QueryController {
	if defaultGetPageSize <= 0 {
		defaultGetPageSize = 10
	}
	return &QueryController{
		queryService:       queryService,
		defaultGetPageSize: defaultGetPageSize,
		logger:             logger,
	}
}

// ExecuteQuery godoc
// @Summary Query one page of a table
// @Description Returns the selected columns of one page of rows plus the filtered row count
// @Tags queries
// @Accept json
// @Produce json
// @Param request body model.QueryRequest true "Query request"
// @Success 200 {object} model.QueryResponse
// @Failure 400 {object} response.StandardResponse
// @Failure 404 {object} response.StandardResponse
// @Failure 500 {object} response.StandardResponse
// @Failure 503 {object} response.StandardResponse
// @Router /api/v1/query [post]
func (qc *QueryController) ExecuteQuery(c *gin.Context) {
	var req model.QueryRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := qc.queryService.ExecuteQuery(c.Request.Context(), &req)
	if err != nil {
		respondError(c, qc.logger, err)
		return
	}

	c.JSON(http.StatusOK, model.NewQueryResponse(result))
}

// ExecuteGetQuery godoc
// @Summary Query one page of a table from query-string parameters
// @Tags queries
// @Produce json
// @Param dataSourceId query string true "Data source UUID"
// @Param tableName query string true "Table name"
// @Param columns query []string true "Columns, repeated or comma-separated"
// @Param page query int false "Page (default 1)"
// @Param pageSize query int false "Page size (default 10)"
// @Param sortColumn query string false "Sort column"
// @Param sortDirection query string false "asc or desc"
// @Param noLimit query bool false "Return every matching row"
// @Success 200 {object} model.QueryResult
// @Failure 400 {object} response.StandardResponse
// @Router /api/v1/query [get]
func (qc *QueryController) ExecuteGetQuery(c *gin.Context) {
	req, err := parseQueryParams(c.Request.URL.RawQuery, qc.defaultGetPageSize)
	if err != nil {
		respondError(c, nil, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(c, nil, utils.NewValidationError("Validation failed", err.Error()))
		return
	}

	result, err := qc.queryService.ExecuteQuery(c.Request.Context(), req)
	if err != nil {
		respondError(c, qc.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetQueryStats godoc
// @Summary Get query execution statistics
// @Tags queries
// @Produce json
// @Success 200 {object} response.StandardResponse{data=model.QueryStats}
// @Router /api/v1/query/stats [get]
func (qc *QueryController) GetQueryStats(c *gin.Context) {
	stats, err := qc.queryService.GetQueryStats(c.Request.Context())
	if err != nil {
		respondError(c, qc.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(stats, middleware.GetCorrelationID(c)))
}
