package errors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stwalsh4118/addressmap/internal/dedup"
	"github.com/stwalsh4118/addressmap/internal/importer"
	"github.com/stwalsh4118/addressmap/internal/middleware"
	"github.com/stwalsh4118/addressmap/internal/sorting"
	"github.com/stwalsh4118/addressmap/internal/streetparser"
	"github.com/stwalsh4118/addressmap/internal/validation"
)

// Error code constants for standardized error responses
const (
	ErrNotFound       = "NOT_FOUND"
	ErrBadRequest     = "BAD_REQUEST"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
	ErrValidation     = "VALIDATION_ERROR"
	ErrImport         = "IMPORT_ERROR"
	ErrInvalidSort    = "INVALID_SORT"
	ErrConflict       = "CONFLICT"
	ErrUnavailable    = "SERVICE_UNAVAILABLE"
)

// ErrorResponse is the top-level error response structure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// NotFound returns a 404 Not Found error response.
// It logs a warning and sends a JSON response with the error details.
func NotFound(c *gin.Context, message string) {
	log := middleware.GetLogger(c)
	requestID := middleware.GetRequestID(c)

	if log != nil {
		log.Warn("Resource not found", map[string]interface{}{
			"message":    message,
			"request_id": requestID,
			"path":       c.Request.URL.Path,
		})
	}

	c.JSON(http.StatusNotFound, ErrorResponse{
		Error: ErrorDetail{
			Code:      ErrNotFound,
			Message:   message,
			RequestID: requestID,
		},
	})
}

// BadRequest returns a 400 Bad Request error response with optional details.
// It logs a warning and sends a JSON response with the error details.
func BadRequest(c *gin.Context, message string, details map[string]interface{}) {
	clientError(c, http.StatusBadRequest, ErrBadRequest, "Bad request", message, details)
}

// Conflict returns a 409 Conflict error response, used when the request
// collides with existing state such as a taken batch tag.
func Conflict(c *gin.Context, message string, details map[string]interface{}) {
	clientError(c, http.StatusConflict, ErrConflict, "Conflict", message, details)
}

// ServiceUnavailable returns a 503 response for a feature whose backing
// service is not configured or not reachable.
func ServiceUnavailable(c *gin.Context, message string) {
	clientError(c, http.StatusServiceUnavailable, ErrUnavailable, "Service unavailable", message, nil)
}

// InternalServerError returns a 500 Internal Server Error response.
// It logs the error with full context and sends a generic error message to the client.
// The actual error details are not exposed to the client for security reasons.
func InternalServerError(c *gin.Context, message string, err error) {
	log := middleware.GetLogger(c)
	requestID := middleware.GetRequestID(c)

	logFields := map[string]interface{}{
		"message":    message,
		"request_id": requestID,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
	}

	if log != nil {
		log.Error("Internal server error", err, logFields)
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: ErrorDetail{
			Code:      ErrInternalServer,
			Message:   message,
			RequestID: requestID,
		},
	})
}

// ValidationError returns a 400 Bad Request error response with field-specific validation errors.
// It parses the validation errors from the validator library and formats them for the client.
func ValidationError(c *gin.Context, validationErrors validator.ValidationErrors) {
	FieldErrors(c, validation.FromValidationErrors(validationErrors))
}

// FieldErrors returns a 400 response listing the messages of each failing field.
func FieldErrors(c *gin.Context, ferrs validation.FieldErrors) {
	details := make(map[string]interface{}, len(ferrs))
	for field, messages := range ferrs {
		details[field] = messages
	}
	clientError(c, http.StatusBadRequest, ErrValidation, "Validation error",
		"Validation failed for one or more fields", details)
}

// ImportError returns a 400 response for a rejected import batch. Every
// failing row is listed with its field messages.
func ImportError(c *gin.Context, err *importer.Error) {
	clientError(c, http.StatusBadRequest, ErrImport, "Import rejected", err.Error(), map[string]interface{}{
		"rows":       err.Rows,
		"structural": err.Structural(),
	})
}

// InvalidSort returns a 400 response naming the sort keys that were rejected.
func InvalidSort(c *gin.Context, err *sorting.InvalidFieldsError) {
	clientError(c, http.StatusBadRequest, ErrInvalidSort, "Invalid sort", err.Error(), map[string]interface{}{
		"fields": err.Fields,
	})
}

// Domain renders the typed domain errors that map to a client error. It
// reports false, writing nothing, for any other error.
func Domain(c *gin.Context, err error) bool {
	var (
		ferrs   validation.FieldErrors
		verrs   validator.ValidationErrors
		ierr    *importer.Error
		sortErr *sorting.InvalidFieldsError
		colErr  *dedup.UnknownColumnsError
		parse   *streetparser.ParseError
	)
	switch {
	case errors.As(err, &ferrs):
		FieldErrors(c, ferrs)
	case errors.As(err, &verrs):
		ValidationError(c, verrs)
	case errors.As(err, &ierr):
		ImportError(c, ierr)
	case errors.As(err, &sortErr):
		InvalidSort(c, sortErr)
	case errors.As(err, &colErr):
		BadRequest(c, colErr.Error(), map[string]interface{}{"columns": colErr.Columns})
	case errors.As(err, &parse):
		FieldErrors(c, validation.FieldErrors{"street": {parse.Error()}})
	default:
		return false
	}
	return true
}

func clientError(c *gin.Context, status int, code, logMsg, message string, details map[string]interface{}) {
	log := middleware.GetLogger(c)
	requestID := middleware.GetRequestID(c)

	logFields := map[string]interface{}{
		"message":    message,
		"request_id": requestID,
		"path":       c.Request.URL.Path,
	}
	if details != nil {
		logFields["details"] = details
	}

	if log != nil {
		log.Warn(logMsg, logFields)
	}

	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: requestID,
		},
	})
}
