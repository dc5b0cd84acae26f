package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"query-gateway/internal/middleware"
	"query-gateway/internal/security"
	"query-gateway/internal/utils"
	"query-gateway/pkg/response"
)

var validate = validator.New()

// bindJSON decodes and validates the request body into req. On failure the
// error response has already been written.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, nil, utils.NewErrorBuilder(utils.ErrCodeInvalidJSON).
			WithMessage("Invalid request body").
			WithDetails(err.Error()).
			Build())
		return false
	}
	if err := validate.Struct(req); err != nil {
		respondError(c, nil, utils.NewValidationError("Validation failed", err.Error()))
		return false
	}
	return true
}

// respondError writes err in the standard envelope with its mapped status.
// Server-side failures are logged when logger is set.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	correlationID := middleware.GetCorrelationID(c)
	status, body := response.ErrorResponseFromError(err, correlationID)

	_ = c.Error(err)
	if logger != nil && status >= 500 {
		fields := logrus.Fields{
			"correlation_id": correlationID,
			"path":           c.FullPath(),
		}
		if userID, ok := security.GetUserID(c); ok {
			fields["user_id"] = userID
		}
		logger.WithError(err).WithFields(fields).Error("Request failed")
	}

	c.AbortWithStatusJSON(status, body)
}
