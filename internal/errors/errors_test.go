package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/craftbits/executive-portal/internal/dataset"
	"github.com/craftbits/executive-portal/internal/logger"
	"github.com/craftbits/executive-portal/internal/middleware"
	"github.com/craftbits/executive-portal/internal/services"
	"github.com/craftbits/executive-portal/internal/statements"
	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Set Gin to test mode to suppress logs during tests
	gin.SetMode(gin.TestMode)
}

// setupTestContext creates a test Gin context with logger and request ID in context.
func setupTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/statements/pnl", nil)

	c.Set(middleware.LoggerKey, logger.Nop())
	c.Set(middleware.RequestIDKey, "test-request-id")

	return c, w
}

// parseErrorResponse parses the JSON response into an ErrorResponse struct.
func parseErrorResponse(t *testing.T, body *bytes.Buffer) ErrorResponse {
	var response ErrorResponse
	err := json.Unmarshal(body.Bytes(), &response)
	require.NoError(t, err, "Failed to parse error response JSON")
	return response
}

func TestNotFound(t *testing.T) {
	c, w := setupTestContext()

	NotFound(c, "Resource not found")

	assert.Equal(t, http.StatusNotFound, w.Code)

	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrNotFound, response.Error.Code)
	assert.Equal(t, "Resource not found", response.Error.Message)
	assert.Equal(t, "test-request-id", response.Error.RequestID)
	assert.Nil(t, response.Error.Details)
}

func TestBadRequest(t *testing.T) {
	t.Run("without details", func(t *testing.T) {
		c, w := setupTestContext()

		BadRequest(c, "Invalid input", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := parseErrorResponse(t, w.Body)
		assert.Equal(t, ErrBadRequest, response.Error.Code)
		assert.Equal(t, "Invalid input", response.Error.Message)
		assert.Nil(t, response.Error.Details)
	})

	t.Run("with details", func(t *testing.T) {
		c, w := setupTestContext()

		BadRequest(c, "Invalid window", map[string]interface{}{
			"start": "2024-06",
			"end":   "2024-01",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := parseErrorResponse(t, w.Body)
		assert.Equal(t, "2024-06", response.Error.Details["start"])
		assert.Equal(t, "2024-01", response.Error.Details["end"])
		assert.Equal(t, "test-request-id", response.Error.RequestID)
	})
}

func TestInternalServerError(t *testing.T) {
	c, w := setupTestContext()

	InternalServerError(c, "Failed to build statement", errors.New("connection reset by peer"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrInternalServer, response.Error.Code)
	assert.Equal(t, "Failed to build statement", response.Error.Message)
	assert.Nil(t, response.Error.Details)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestValidationError(t *testing.T) {
	c, w := setupTestContext()

	type query struct {
		Start    string  `validate:"omitempty,datetime=2006-01"`
		Lookback int     `validate:"gte=1,lte=36"`
		Sign     string  `validate:"omitempty,oneof=ledger positive"`
		CapRate  float64 `validate:"gt=0"`
	}

	err := validator.New().Struct(query{Start: "Jan 2024", Lookback: 0, Sign: "inverted"})
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))

	ValidationError(c, validationErrors)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrValidation, response.Error.Code)
	assert.Equal(t, "Validation failed for one or more fields", response.Error.Message)
	assert.Equal(t, "Must be a month in YYYY-MM format", response.Error.Details["Start"])
	assert.Equal(t, "Must be greater than or equal to 1", response.Error.Details["Lookback"])
	assert.Equal(t, "Must be one of: ledger positive", response.Error.Details["Sign"])
	assert.Equal(t, "Must be greater than 0", response.Error.Details["CapRate"])
}

func TestFormatValidationError(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		param    string
		expected string
	}{
		{"required", "required", "", "This field is required"},
		{"month", "datetime", "2006-01", "Must be a month in YYYY-MM format"},
		{"date", "datetime", "2006-01-02", "Must be a date in 2006-01-02 format"},
		{"min", "min", "5", "Value is too short or small (minimum: 5)"},
		{"max", "max", "100", "Value is too long or large (maximum: 100)"},
		{"gt", "gt", "0", "Must be greater than 0"},
		{"gte", "gte", "1", "Must be greater than or equal to 1"},
		{"lt", "lt", "1", "Must be less than 1"},
		{"lte", "lte", "36", "Must be less than or equal to 36"},
		{"oneof", "oneof", "ledger positive", "Must be one of: ledger positive"},
		{"dive", "dive", "", "Contains an invalid entry"},
		{"unknown", "unknown_tag", "", "Validation failed for tag: unknown_tag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatValidationError(&mockFieldError{tag: tt.tag, param: tt.param})
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFromServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown dataset",
			err:        fmt.Errorf("load: %w", &dataset.UnknownDatasetError{Name: "payroll"}),
			wantStatus: http.StatusNotFound,
			wantCode:   ErrUnknownDataset,
		},
		{
			name:       "schema violation",
			err:        &dataset.SchemaError{Name: "custom", Missing: []string{"amount"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   ErrSchemaViolation,
		},
		{
			name:       "source unavailable",
			err:        fmt.Errorf("sheets: %w", dataset.ErrSourceUnavailable),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   ErrSourceUnavailable,
		},
		{
			name:       "no data",
			err:        fmt.Errorf("cashflow for 2031-01..: %w", statements.ErrNoData),
			wantStatus: http.StatusNotFound,
			wantCode:   ErrNoData,
		},
		{
			name:       "invalid lookback",
			err:        statements.ErrInvalidLookback,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrBadRequest,
		},
		{
			name:       "invalid cap rate",
			err:        fmt.Errorf("exit value: %w", statements.ErrInvalidCapRate),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrBadRequest,
		},
		{
			name:       "inverted window",
			err:        fmt.Errorf("%w: 2024-06..2024-01", services.ErrInvalidWindow),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrBadRequest,
		},
		{
			name:       "anything else",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrInternalServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := setupTestContext()

			FromServiceError(c, tt.err, "Failed to build report")

			assert.Equal(t, tt.wantStatus, w.Code)
			response := parseErrorResponse(t, w.Body)
			assert.Equal(t, tt.wantCode, response.Error.Code)
			assert.Equal(t, "test-request-id", response.Error.RequestID)
		})
	}

	t.Run("unknown dataset names the dataset", func(t *testing.T) {
		c, w := setupTestContext()

		FromServiceError(c, &dataset.UnknownDatasetError{Name: "payroll"}, "unused")

		response := parseErrorResponse(t, w.Body)
		assert.Equal(t, "payroll", response.Error.Details["dataset"])
		assert.Equal(t, "Unknown dataset: payroll", response.Error.Message)
	})

	t.Run("schema violation lists missing columns", func(t *testing.T) {
		c, w := setupTestContext()

		FromServiceError(c, &dataset.SchemaError{Name: "custom", Missing: []string{"amount", "date"}}, "unused")

		response := parseErrorResponse(t, w.Body)
		assert.Equal(t, []interface{}{"amount", "date"}, response.Error.Details["missing"])
	})
}

func TestErrorResponseWithoutContext(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

	// No logger or request ID in context
	NoData(c, "No cash items in window")

	assert.Equal(t, http.StatusNotFound, w.Code)

	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrNoData, response.Error.Code)
	assert.Equal(t, "No cash items in window", response.Error.Message)
	assert.Empty(t, response.Error.RequestID)
}

// mockFieldError is a mock implementation of validator.FieldError for testing.
type mockFieldError struct {
	tag   string
	param string
}

func (m *mockFieldError) Tag() string                    { return m.tag }
func (m *mockFieldError) ActualTag() string              { return m.tag }
func (m *mockFieldError) Namespace() string              { return "" }
func (m *mockFieldError) StructNamespace() string        { return "" }
func (m *mockFieldError) Field() string                  { return "TestField" }
func (m *mockFieldError) StructField() string            { return "TestField" }
func (m *mockFieldError) Value() interface{}             { return nil }
func (m *mockFieldError) Param() string                  { return m.param }
func (m *mockFieldError) Kind() reflect.Kind             { return reflect.String }
func (m *mockFieldError) Type() reflect.Type             { return nil }
func (m *mockFieldError) Translate(ut.Translator) string { return "" }
func (m *mockFieldError) Error() string                  { return "" }
