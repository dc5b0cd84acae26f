package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"query-gateway/internal/model"
	"query-gateway/internal/utils"
)

// TableService is the schema lookup the table endpoints need.
type TableService interface {
	ListTables(ctx context.Context, dataSourceID string, refresh bool) ([]model.TableDescriptor, error)
	DescribeTable(ctx context.Context, dataSourceID, tableName string) (*model.TableDescriptor, error)
}

type TableController struct {
	tables TableService
	logger *logrus.Logger
}

func NewTableController(tables TableService, logger *logrus.Logger) *TableController {
	return &TableController{tables: tables, logger: logger}
}

// ListTables godoc
// @Summary List the tables of a data source
// @Description Introspects the data source catalog; results are cached until refresh=true
// @Tags tables
// @Produce json
// @Param dataSourceId path string true "Data source UUID"
// @Param refresh query bool false "Bypass the schema cache"
// @Success 200 {array} model.TableDescriptor
// @Failure 404 {object} response.StandardResponse
// @Failure 503 {object} response.StandardResponse
// @Router /api/v1/tables/{dataSourceId} [get]
func (tc *TableController) ListTables(c *gin.Context) {
	refresh := false
	if s := c.Query("refresh"); s != "" {
		var err error
		if refresh, err = strconv.ParseBool(s); err != nil {
			respondError(c, nil, utils.NewValidationError("Invalid refresh", s))
			return
		}
	}

	tables, err := tc.tables.ListTables(c.Request.Context(), c.Param("dataSourceId"), refresh)
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}

	c.JSON(http.StatusOK, tables)
}

// DescribeTable godoc
// @Summary Describe one table
// @Tags tables
// @Produce json
// @Param dataSourceId path string true "Data source UUID"
// @Param tableName path string true "Table name"
// @Success 200 {object} model.TableDescriptor
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/tables/{dataSourceId}/{tableName} [get]
func (tc *TableController) DescribeTable(c *gin.Context) {
	table, err := tc.tables.DescribeTable(c.Request.Context(), c.Param("dataSourceId"), c.Param("tableName"))
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}

	c.JSON(http.StatusOK, table)
}
