package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"query-gateway/internal/utils"
)

const (
	CorrelationIDKey    = "correlation_id"
	CorrelationIDHeader = "X-Correlation-ID"
)

type contextKey string

const correlationContextKey contextKey = CorrelationIDKey

func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = utils.GenerateUUID()
		}

		c.Set(CorrelationIDKey, correlationID)
		c.Header(CorrelationIDHeader, correlationID)

		ctx := context.WithValue(c.Request.Context(), correlationContextKey, correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// CorrelationIDFromContext returns the ID stored by CorrelationID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationContextKey).(string)
	return id
}

// GetCorrelationID reads the correlation ID from a gin context.
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(CorrelationIDKey)
}
