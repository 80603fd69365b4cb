package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/addressmap/internal/dedup"
	"github.com/stwalsh4118/addressmap/internal/importer"
	"github.com/stwalsh4118/addressmap/internal/logger"
	"github.com/stwalsh4118/addressmap/internal/middleware"
	"github.com/stwalsh4118/addressmap/internal/sorting"
	"github.com/stwalsh4118/addressmap/internal/streetparser"
	"github.com/stwalsh4118/addressmap/internal/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/addresses", nil)
	c.Set("logger", logger.New("test"))
	c.Set(middleware.RequestIDKey, "test-request-id")
	return c, w
}

func parseErrorResponse(t *testing.T, body *bytes.Buffer) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.Unmarshal(body.Bytes(), &response))
	return response
}

func TestSimpleResponses(t *testing.T) {
	tests := []struct {
		name        string
		write       func(c *gin.Context)
		wantStatus  int
		wantCode    string
		wantMessage string
		wantDetails map[string]interface{}
	}{
		{
			name:        "not found",
			write:       func(c *gin.Context) { NotFound(c, "Address not found") },
			wantStatus:  http.StatusNotFound,
			wantCode:    ErrNotFound,
			wantMessage: "Address not found",
		},
		{
			name:        "bad request without details",
			write:       func(c *gin.Context) { BadRequest(c, "Invalid page", nil) },
			wantStatus:  http.StatusBadRequest,
			wantCode:    ErrBadRequest,
			wantMessage: "Invalid page",
		},
		{
			name: "bad request with details",
			write: func(c *gin.Context) {
				BadRequest(c, "Invalid filter", map[string]interface{}{"field": "city", "value": "x"})
			},
			wantStatus:  http.StatusBadRequest,
			wantCode:    ErrBadRequest,
			wantMessage: "Invalid filter",
			wantDetails: map[string]interface{}{"field": "city", "value": "x"},
		},
		{
			name: "internal error hides cause",
			write: func(c *gin.Context) {
				InternalServerError(c, "Failed to list addresses", errors.New("pool exhausted"))
			},
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrInternalServer,
			wantMessage: "Failed to list addresses",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := setupTestContext()
			tt.write(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			response := parseErrorResponse(t, w.Body)
			assert.Equal(t, tt.wantCode, response.Error.Code)
			assert.Equal(t, tt.wantMessage, response.Error.Message)
			assert.Equal(t, "test-request-id", response.Error.RequestID)
			assert.Equal(t, tt.wantDetails, response.Error.Details)
			assert.NotContains(t, w.Body.String(), "pool exhausted")
		})
	}
}

func TestValidationError(t *testing.T) {
	c, w := setupTestContext()

	type row struct {
		Street string  `validate:"required"`
		Lat    float64 `validate:"gte=-90,lte=90"`
	}

	err := validator.New().Struct(row{Lat: 95})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	ValidationError(c, verrs)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrValidation, response.Error.Code)
	assert.Equal(t, "Validation failed for one or more fields", response.Error.Message)
	assert.Len(t, response.Error.Details, 2)
}

func TestDomain(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantDetail string
	}{
		{
			name:       "field errors",
			err:        fmt.Errorf("wrapped: %w", validation.FieldErrors{"state": {"Must be a valid two-letter US state code"}}),
			wantCode:   ErrValidation,
			wantDetail: "state",
		},
		{
			name:       "import error",
			err:        &importer.Error{Rows: []importer.RowError{{Row: 3, Fields: validation.FieldErrors{"city": {"This field is required"}}}}},
			wantCode:   ErrImport,
			wantDetail: "rows",
		},
		{
			name:       "invalid sort",
			err:        &sorting.InvalidFieldsError{Fields: []string{"bogus"}},
			wantCode:   ErrInvalidSort,
			wantDetail: "fields",
		},
		{
			name:       "unknown columns",
			err:        &dedup.UnknownColumnsError{Columns: []string{"zip"}},
			wantCode:   ErrBadRequest,
			wantDetail: "columns",
		},
		{
			name:       "street parse error",
			err:        &streetparser.ParseError{Input: "Main", Err: streetparser.ErrMissingNumber},
			wantCode:   ErrValidation,
			wantDetail: "street",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := setupTestContext()

			require.True(t, Domain(c, tt.err))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			response := parseErrorResponse(t, w.Body)
			assert.Equal(t, tt.wantCode, response.Error.Code)
			assert.Contains(t, response.Error.Details, tt.wantDetail)
		})
	}
}

func TestDomain_UnknownError(t *testing.T) {
	c, w := setupTestContext()

	assert.False(t, Domain(c, errors.New("database connection failed")))
	assert.Equal(t, 0, w.Body.Len())
}

func TestImportError_Structural(t *testing.T) {
	c, w := setupTestContext()

	ImportError(c, &importer.Error{Rows: []importer.RowError{{
		Row:    1,
		Fields: validation.FieldErrors{importer.ColumnsField: {"extra or unknown columns"}},
	}}})

	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrImport, response.Error.Code)
	assert.Equal(t, true, response.Error.Details["structural"])
}

func TestConflict(t *testing.T) {
	c, w := setupTestContext()

	Conflict(c, "A batch with this tag already exists", map[string]interface{}{"tag": "spring"})

	assert.Equal(t, http.StatusConflict, w.Code)
	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrConflict, response.Error.Code)
	assert.Equal(t, "spring", response.Error.Details["tag"])
}

func TestServiceUnavailable(t *testing.T) {
	c, w := setupTestContext()

	ServiceUnavailable(c, "Geocoding is not configured")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrUnavailable, response.Error.Code)
	assert.Nil(t, response.Error.Details)
}

func TestErrorResponseWithoutContext(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/addresses/9", nil)

	NotFound(c, "Address not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrNotFound, response.Error.Code)
	assert.Empty(t, response.Error.RequestID)
}

func TestErrorConstants(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", ErrNotFound)
	assert.Equal(t, "BAD_REQUEST", ErrBadRequest)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", ErrInternalServer)
	assert.Equal(t, "VALIDATION_ERROR", ErrValidation)
	assert.Equal(t, "IMPORT_ERROR", ErrImport)
	assert.Equal(t, "INVALID_SORT", ErrInvalidSort)
	assert.Equal(t, "CONFLICT", ErrConflict)
	assert.Equal(t, "SERVICE_UNAVAILABLE", ErrUnavailable)
}
