package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes with HTTP status mapping
const (
	// General errors
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeValidationFailed   = "VALIDATION_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"

	// Database errors
	ErrCodeDatabaseError    = "DATABASE_ERROR"
	ErrCodeConnectionFailed = "CONNECTION_FAILED"
	ErrCodeQueryFailed      = "QUERY_FAILED"
	ErrCodeQueryExecution   = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout     = "QUERY_TIMEOUT"
	ErrCodeSQLRejected      = "SQL_REJECTED"

	// Data source errors
	ErrCodeDataSourceNotFound = "DATASOURCE_NOT_FOUND"
	ErrCodeDataSourceExists   = "DATASOURCE_EXISTS"
	ErrCodeInvalidDataSource  = "INVALID_DATASOURCE"
	ErrCodeTableNotFound      = "TABLE_NOT_FOUND"

	// Query compilation errors
	ErrCodeInvalidOperator   = "INVALID_OPERATOR"
	ErrCodeInvalidIdentifier = "INVALID_IDENTIFIER"

	// Authentication errors
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeInvalidToken = "INVALID_TOKEN"

	// Validation error codes
	ErrCodeInvalidUUID       = "INVALID_UUID"
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
)

// HTTPStatus maps error codes to HTTP status codes
var HTTPStatus = map[string]int{
	ErrCodeInvalidRequest:     http.StatusBadRequest,
	ErrCodeValidationFailed:   http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeInternalError:      http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeRateLimitExceeded:  http.StatusTooManyRequests,

	ErrCodeDatabaseError:    http.StatusInternalServerError,
	ErrCodeConnectionFailed: http.StatusServiceUnavailable,
	ErrCodeQueryFailed:      http.StatusInternalServerError,
	ErrCodeQueryExecution:   http.StatusInternalServerError,
	ErrCodeQueryTimeout:     http.StatusRequestTimeout,
	ErrCodeSQLRejected:      http.StatusBadRequest,

	ErrCodeDataSourceNotFound: http.StatusNotFound,
	ErrCodeDataSourceExists:   http.StatusConflict,
	ErrCodeInvalidDataSource:  http.StatusBadRequest,
	ErrCodeTableNotFound:      http.StatusNotFound,

	ErrCodeInvalidOperator:   http.StatusBadRequest,
	ErrCodeInvalidIdentifier: http.StatusBadRequest,

	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeInvalidToken: http.StatusUnauthorized,

	ErrCodeInvalidUUID:       http.StatusBadRequest,
	ErrCodeInvalidJSON:       http.StatusBadRequest,
	ErrCodeInvalidParameters: http.StatusBadRequest,
}

// AppError represents an application error with additional context
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for creating errors
type ErrorBuilder struct {
	code    string
	message string
	details string
	cause   error
}

// NewErrorBuilder creates a new error builder
func NewErrorBuilder(code string) *ErrorBuilder {
	return &ErrorBuilder{code: code}
}

// WithMessage sets the error message
func (eb *ErrorBuilder) WithMessage(message string) *ErrorBuilder {
	eb.message = message
	return eb
}

// WithDetails sets the error details
func (eb *ErrorBuilder) WithDetails(details string) *ErrorBuilder {
	eb.details = details
	return eb
}

// WithCause sets the underlying error cause
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.cause = cause
	return eb
}

// Build constructs the final AppError
func (eb *ErrorBuilder) Build() *AppError {
	if eb.message == "" {
		eb.message = getDefaultMessage(eb.code)
	}

	return &AppError{
		Code:    eb.code,
		Message: eb.message,
		Details: eb.details,
		Cause:   eb.cause,
	}
}

func getDefaultMessage(code string) string {
	messages := map[string]string{
		ErrCodeInvalidRequest:     "The request is invalid",
		ErrCodeValidationFailed:   "Validation failed",
		ErrCodeUnauthorized:       "Unauthorized access",
		ErrCodeNotFound:           "Resource not found",
		ErrCodeConflict:           "Resource conflict",
		ErrCodeInternalError:      "Internal server error",
		ErrCodeServiceUnavailable: "Service temporarily unavailable",
		ErrCodeRateLimitExceeded:  "Rate limit exceeded",

		ErrCodeDatabaseError:    "Database error",
		ErrCodeConnectionFailed: "Database connection failed",
		ErrCodeQueryFailed:      "Query failed",
		ErrCodeQueryExecution:   "Query execution failed",
		ErrCodeQueryTimeout:     "Query timeout",
		ErrCodeSQLRejected:      "Generated SQL was rejected",

		ErrCodeDataSourceNotFound: "Data source not found",
		ErrCodeDataSourceExists:   "Data source already exists",
		ErrCodeInvalidDataSource:  "Invalid data source configuration",
		ErrCodeTableNotFound:      "Table not found",

		ErrCodeInvalidOperator:   "Invalid filter operator",
		ErrCodeInvalidIdentifier: "Invalid identifier",

		ErrCodeTokenExpired: "Token expired",
		ErrCodeInvalidToken: "Invalid token",

		ErrCodeInvalidUUID:       "Invalid UUID format",
		ErrCodeInvalidJSON:       "Invalid JSON format",
		ErrCodeInvalidParameters: "Invalid parameters",
	}

	if msg, exists := messages[code]; exists {
		return msg
	}
	return "Unknown error"
}

// NotFoundError reports a data source or table that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConnectionError is returned when a data-source connection cannot be
// opened: handshake, authentication or network failure.
type ConnectionError struct {
	Target string
	Cause  error
}

func NewConnectionError(target string, cause error) *ConnectionError {
	return &ConnectionError{Target: target, Cause: cause}
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection failed (%s): %v", e.Target, e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// QueryError is a single statement rejected by the database or the adapter.
type QueryError struct {
	SQL   string
	Cause error
}

func NewQueryError(sql string, cause error) *QueryError {
	return &QueryError{SQL: sql, Cause: cause}
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Cause)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// QueryExecutionError wraps a statement failure with the request it was part of.
type QueryExecutionError struct {
	Table    string
	Stage    string
	Page     int
	PageSize int
	NoLimit  bool
	Cause    error
}

func (e *QueryExecutionError) Error() string {
	if e.NoLimit {
		return fmt.Sprintf("query execution failed on %s (%s, no limit): %v", e.Table, e.Stage, e.Cause)
	}
	return fmt.Sprintf("query execution failed on %s (%s, page %d, size %d): %v",
		e.Table, e.Stage, e.Page, e.PageSize, e.Cause)
}

func (e *QueryExecutionError) Unwrap() error {
	return e.Cause
}

// InvalidOperatorError is returned by the query compiler for an operator it
// does not know.
type InvalidOperatorError struct {
	Column   string
	Operator string
}

func (e *InvalidOperatorError) Error() string {
	return fmt.Sprintf("invalid filter operator %q for column %q", e.Operator, e.Column)
}

// InvalidIdentifierError reports a table or column name that is not part of
// the introspected schema, or that cannot be embedded safely.
type InvalidIdentifierError struct {
	Kind string
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Name)
}

func NewDatabaseError(cause error, details string) *AppError {
	return NewErrorBuilder(ErrCodeDatabaseError).
		WithCause(cause).
		WithDetails(details).
		Build()
}

func NewConflictError(resource string, details string) *AppError {
	return NewErrorBuilder(ErrCodeConflict).
		WithMessage(fmt.Sprintf("%s conflict", resource)).
		WithDetails(details).
		Build()
}

func NewValidationError(message string, details string) *AppError {
	return NewErrorBuilder(ErrCodeValidationFailed).
		WithMessage(message).
		WithDetails(details).
		Build()
}

func NewAuthenticationError(message string) *AppError {
	return NewErrorBuilder(ErrCodeUnauthorized).
		WithMessage(message).
		Build()
}

// ToAppError classifies any error into an AppError. Typed domain errors keep
// their message as details so the HTTP layer can show the driver text.
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var (
		notFound *NotFoundError
		connErr  *ConnectionError
		execErr  *QueryExecutionError
		queryErr *QueryError
		opErr    *InvalidOperatorError
		identErr *InvalidIdentifierError
	)

	switch {
	case errors.As(err, &notFound):
		code := ErrCodeNotFound
		switch notFound.Resource {
		case "data source":
			code = ErrCodeDataSourceNotFound
		case "table":
			code = ErrCodeTableNotFound
		}
		return NewErrorBuilder(code).WithMessage(notFound.Error()).WithCause(err).Build()
	case errors.As(err, &opErr):
		return NewErrorBuilder(ErrCodeInvalidOperator).WithDetails(opErr.Error()).WithCause(err).Build()
	case errors.As(err, &identErr):
		return NewErrorBuilder(ErrCodeInvalidIdentifier).WithDetails(identErr.Error()).WithCause(err).Build()
	case errors.As(err, &connErr):
		return NewErrorBuilder(ErrCodeConnectionFailed).WithDetails(connErr.Error()).WithCause(err).Build()
	case errors.As(err, &execErr):
		return NewErrorBuilder(ErrCodeQueryExecution).WithDetails(execErr.Error()).WithCause(err).Build()
	case errors.As(err, &queryErr):
		return NewErrorBuilder(ErrCodeQueryFailed).WithDetails(queryErr.Error()).WithCause(err).Build()
	}

	return NewErrorBuilder(ErrCodeInternalError).WithDetails(err.Error()).WithCause(err).Build()
}

// IsErrorType checks if an error matches a specific error code
func IsErrorType(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetErrorStatus returns the HTTP status code for an error
func GetErrorStatus(err error) int {
	appErr := ToAppError(err)
	if appErr == nil {
		return http.StatusOK
	}
	if status, exists := HTTPStatus[appErr.Code]; exists {
		return status
	}
	return http.StatusInternalServerError
}
