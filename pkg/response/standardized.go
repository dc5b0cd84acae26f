// Package response holds the JSON envelope shared by the management endpoints
// and by every error the API returns.
package response

import (
	"net/http"
	"time"

	"query-gateway/internal/utils"
)

// StandardResponse is the envelope for data-source management, stats and
// error bodies. Query results and table listings are returned bare.
type StandardResponse struct {
	Success       bool        `json:"success"`
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	Message       string      `json:"message,omitempty"`
	CorrelationID string      `json:"correlationId"`
	Timestamp     time.Time   `json:"timestamp"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func newEnvelope(success bool, correlationID string) *StandardResponse {
	return &StandardResponse{
		Success:       success,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
	}
}

func SuccessResponse(data interface{}, correlationID string) *StandardResponse {
	resp := newEnvelope(true, correlationID)
	resp.Data = data
	return resp
}

func SuccessMessageResponse(message, correlationID string) *StandardResponse {
	resp := newEnvelope(true, correlationID)
	resp.Message = message
	return resp
}

// ErrorResponse builds an error envelope from its parts.
func ErrorResponse(code, message, details, correlationID string) *StandardResponse {
	resp := newEnvelope(false, correlationID)
	resp.Error = &ErrorInfo{Code: code, Message: message, Details: details}
	return resp
}

// ErrorResponseFromError classifies err and returns the envelope together with
// the HTTP status its code maps to. Unknown codes are 500.
func ErrorResponseFromError(err error, correlationID string) (int, *StandardResponse) {
	appErr := utils.ToAppError(err)
	status, ok := utils.HTTPStatus[appErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return status, ErrorResponse(appErr.Code, appErr.Message, appErr.Details, correlationID)
}

// UnauthorizedResponse is the body written by the auth middleware.
func UnauthorizedResponse(message string, correlationID string) *StandardResponse {
	if message == "" {
		message = "Unauthorized access"
	}
	return ErrorResponse(utils.ErrCodeUnauthorized, message, "", correlationID)
}
