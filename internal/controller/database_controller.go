package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"query-gateway/internal/database"
	"query-gateway/internal/middleware"
	"query-gateway/internal/model"
	"query-gateway/internal/utils"
	"query-gateway/pkg/response"
)

type DatabaseController struct {
	healthChecker *database.HealthChecker
}

func NewDatabaseController(healthChecker *database.HealthChecker) *DatabaseController {
	return &DatabaseController{
		healthChecker: healthChecker,
	}
}

// GetDatabaseTypes godoc
// @Summary Get supported database types
// @Description Returns each supported database type with its dialect and default port
// @Tags database
// @Produce json
// @Success 200 {object} response.StandardResponse{data=[]database.DriverInfo}
// @Router /api/v1/databases/types [get]
func (dc *DatabaseController) GetDatabaseTypes(c *gin.Context) {
	c.JSON(http.StatusOK, response.SuccessResponse(dc.healthChecker.GetDriverInfo(), middleware.GetCorrelationID(c)))
}

// ValidateConfigRequest is a configuration to check without connecting.
type ValidateConfigRequest struct {
	Type   model.DatabaseType     `json:"type" validate:"required"`
	Config model.DataSourceConfig `json:"config" validate:"required"`
}

// ValidateDataSourceConfig godoc
// @Summary Validate data source configuration
// @Description Validates a data source configuration without testing the connection
// @Tags database
// @Accept json
// @Produce json
// @Param request body ValidateConfigRequest true "Validation request"
// @Success 200 {object} response.StandardResponse
// @Failure 400 {object} response.StandardResponse
// @Router /api/v1/databases/validate-config [post]
func (dc *DatabaseController) ValidateDataSourceConfig(c *gin.Context) {
	var req ValidateConfigRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := dc.healthChecker.ValidateDataSourceConfiguration(&req.Config, req.Type); err != nil {
		respondError(c, nil, utils.NewErrorBuilder(utils.ErrCodeInvalidDataSource).WithDetails(err.Error()).Build())
		return
	}

	c.JSON(http.StatusOK, response.SuccessMessageResponse("Configuration is valid", middleware.GetCorrelationID(c)))
}
