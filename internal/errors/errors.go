package errors

import (
	"errors"
	"net/http"

	"github.com/craftbits/executive-portal/internal/dataset"
	"github.com/craftbits/executive-portal/internal/middleware"
	"github.com/craftbits/executive-portal/internal/services"
	"github.com/craftbits/executive-portal/internal/statements"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Error code constants for standardized error responses
const (
	ErrNotFound          = "NOT_FOUND"
	ErrBadRequest        = "BAD_REQUEST"
	ErrInternalServer    = "INTERNAL_SERVER_ERROR"
	ErrValidation        = "VALIDATION_ERROR"
	ErrUnknownDataset    = "UNKNOWN_DATASET"
	ErrNoData            = "NO_DATA"
	ErrSchemaViolation   = "SCHEMA_VIOLATION"
	ErrSourceUnavailable = "SOURCE_UNAVAILABLE"
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
	respond(c, http.StatusNotFound, ErrNotFound, message, nil)
}

// UnknownDataset returns a 404 for a dataset name no source or registry knows.
func UnknownDataset(c *gin.Context, name string) {
	respond(c, http.StatusNotFound, ErrUnknownDataset, "Unknown dataset: "+name, map[string]interface{}{
		"dataset": name,
	})
}

// NoData returns a 404 when the selected period or filter leaves nothing to report.
func NoData(c *gin.Context, message string) {
	respond(c, http.StatusNotFound, ErrNoData, message, nil)
}

// respond logs a client error at warn level and writes the error envelope.
func respond(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	log := middleware.GetLogger(c)
	requestID := middleware.GetRequestID(c)

	if log != nil {
		fields := map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
			"path":       c.Request.URL.Path,
		}
		if details != nil {
			fields["details"] = details
		}
		log.Warn("Request failed", fields)
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

// FromServiceError maps an error returned by the report service to a
// response. Unrecognised errors become a 500 with fallbackMessage.
func FromServiceError(c *gin.Context, err error, fallbackMessage string) {
	var unknown *dataset.UnknownDatasetError
	var schema *dataset.SchemaError
	switch {
	case errors.As(err, &unknown):
		UnknownDataset(c, unknown.Name)
	case errors.As(err, &schema):
		respond(c, http.StatusUnprocessableEntity, ErrSchemaViolation, schema.Error(), map[string]interface{}{
			"dataset": schema.Name,
			"missing": schema.Missing,
		})
	case errors.Is(err, dataset.ErrSourceUnavailable):
		respond(c, http.StatusServiceUnavailable, ErrSourceUnavailable, err.Error(), nil)
	case errors.Is(err, statements.ErrNoData):
		NoData(c, err.Error())
	case errors.Is(err, statements.ErrInvalidLookback), errors.Is(err, statements.ErrInvalidCapRate),
		errors.Is(err, services.ErrInvalidWindow), errors.Is(err, services.ErrInvalidSign):
		BadRequest(c, err.Error(), nil)
	default:
		InternalServerError(c, fallbackMessage, err)
	}
}

// BadRequest returns a 400 Bad Request error response with optional details.
func BadRequest(c *gin.Context, message string, details map[string]interface{}) {
	respond(c, http.StatusBadRequest, ErrBadRequest, message, details)
}

// InternalServerError returns a 500 Internal Server Error response.
// The underlying error is logged but never sent to the client.
func InternalServerError(c *gin.Context, message string, err error) {
	log := middleware.GetLogger(c)
	requestID := middleware.GetRequestID(c)

	if log != nil {
		log.Error("Internal server error", err, map[string]interface{}{
			"message":    message,
			"request_id": requestID,
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
		})
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: ErrorDetail{
			Code:      ErrInternalServer,
			Message:   message,
			RequestID: requestID,
		},
	})
}

// ValidationError returns a 400 with one message per offending query field.
func ValidationError(c *gin.Context, validationErrors validator.ValidationErrors) {
	details := make(map[string]interface{}, len(validationErrors))
	for _, err := range validationErrors {
		details[err.Field()] = formatValidationError(err)
	}
	respond(c, http.StatusBadRequest, ErrValidation, "Validation failed for one or more fields", details)
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "datetime":
		if err.Param() == "2006-01" {
			return "Must be a month in YYYY-MM format"
		}
		return "Must be a date in " + err.Param() + " format"
	case "min":
		return "Value is too short or small (minimum: " + err.Param() + ")"
	case "max":
		return "Value is too long or large (maximum: " + err.Param() + ")"
	case "gt":
		return "Must be greater than " + err.Param()
	case "gte":
		return "Must be greater than or equal to " + err.Param()
	case "lt":
		return "Must be less than " + err.Param()
	case "lte":
		return "Must be less than or equal to " + err.Param()
	case "oneof":
		return "Must be one of: " + err.Param()
	case "dive":
		return "Contains an invalid entry"
	default:
		return "Validation failed for tag: " + err.Tag()
	}
}
