package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"query-gateway/internal/database/metadata"
)

type HealthResponse struct {
	Status      string              `json:"status"`
	Timestamp   time.Time           `json:"timestamp"`
	Service     string              `json:"service"`
	Version     string              `json:"version"`
	Database    DatabaseStatus      `json:"database"`
	Connections ConnectionStatus    `json:"connections"`
	SchemaCache metadata.CacheStats `json:"schemaCache"`
}

type DatabaseStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ConnectionStatus reports transient connections to target data sources.
type ConnectionStatus struct {
	Open int64 `json:"open"`
}

// Pinger checks the metadata store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionCounter reports open target connections.
type ConnectionCounter interface {
	OpenCount() int64
}

type HealthController struct {
	store   Pinger
	conns   ConnectionCounter
	cache   *metadata.SchemaCache
	version string
}

func NewHealthController(store Pinger, conns ConnectionCounter, cache *metadata.SchemaCache, version string) *HealthController {
	return &HealthController{
		store:   store,
		conns:   conns,
		cache:   cache,
		version: version,
	}
}

func (hc *HealthController) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   "query-gateway",
		Version:   hc.version,
		Database: DatabaseStatus{
			Status:  "connected",
			Message: "Database connection healthy",
		},
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := hc.store.Ping(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Database = DatabaseStatus{
			Status:  "disconnected",
			Message: "Database ping failed: " + err.Error(),
		}
	}
	if hc.conns != nil {
		resp.Connections.Open = hc.conns.OpenCount()
	}
	if hc.cache != nil {
		resp.SchemaCache = hc.cache.GetStats()
	}

	statusCode := http.StatusOK
	if resp.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, resp)
}
