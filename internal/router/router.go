// Package router mounts the HTTP API on a gin engine.
package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"query-gateway/internal/controller"
	"query-gateway/internal/logging"
	"query-gateway/internal/middleware"
	"query-gateway/internal/security"
)

// Options selects the optional middleware.
type Options struct {
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
	Auth           *security.AuthMiddleware
	Logger         *logrus.Logger
}

// Controllers groups every handler the API serves.
type Controllers struct {
	DataSources *controller.DataSourceController
	Queries     *controller.QueryController
	Tables      *controller.TableController
	Databases   *controller.DatabaseController
	Health      *controller.HealthController
}

// New builds the engine. Health and metrics stay outside authentication.
func New(ctrl Controllers, opts Options) *gin.Engine {
	middleware.InitMetrics()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	router.Use(middleware.CorrelationID())
	if opts.Logger != nil {
		router.Use(logging.RequestLogger(opts.Logger))
	}
	router.Use(middleware.PrometheusMiddleware())

	router.GET("/health", ctrl.Health.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	if opts.RateLimiter != nil {
		api.Use(opts.RateLimiter.RateLimit())
	}

	api.GET("/health", ctrl.Health.HealthCheck)
	api.GET("/databases/types", ctrl.Databases.GetDatabaseTypes)

	protected := api.Group("")
	if opts.Auth != nil {
		protected.Use(opts.Auth.RequireAuth())
	}

	datasources := protected.Group("/datasources")
	{
		datasources.POST("", ctrl.DataSources.CreateDataSource)
		datasources.GET("", ctrl.DataSources.ListDataSources)
		datasources.GET("/stats", ctrl.DataSources.GetDataSourceStats)
		datasources.POST("/test-connection", ctrl.DataSources.TestConnection)
		datasources.GET("/:id", ctrl.DataSources.GetDataSource)
		datasources.PUT("/:id", ctrl.DataSources.UpdateDataSource)
		datasources.DELETE("/:id", ctrl.DataSources.DeleteDataSource)
		datasources.GET("/:id/health", ctrl.DataSources.CheckDataSourceHealth)
		datasources.POST("/:id/activate", ctrl.DataSources.ActivateDataSource)
		datasources.POST("/:id/deactivate", ctrl.DataSources.DeactivateDataSource)
	}

	databases := protected.Group("/databases")
	{
		databases.POST("/validate-config", ctrl.Databases.ValidateDataSourceConfig)
	}

	tables := protected.Group("/tables")
	{
		tables.GET("/:dataSourceId", ctrl.Tables.ListTables)
		tables.GET("/:dataSourceId/:tableName", ctrl.Tables.DescribeTable)
	}

	query := protected.Group("/query")
	{
		query.POST("", ctrl.Queries.ExecuteQuery)
		query.GET("", ctrl.Queries.ExecuteGetQuery)
		query.GET("/stats", ctrl.Queries.GetQueryStats)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", middleware.CorrelationIDHeader)
	cfg.ExposeHeaders = []string{middleware.CorrelationIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}
