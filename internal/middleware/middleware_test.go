package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic_app_echo/internal/apperr"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = JSONErrorHandler
	e.Validator = NewRequestValidator()
	e.Use(RequestContext())
	return e
}

func TestJSONErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"validation", apperr.Invalid("duration", "must be positive"), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"wrapped not found", errors.Wrap(apperr.NotFound("patient", 9), "create record"), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", apperr.ErrConflict, http.StatusConflict, "CONFLICT"},
		{"bad request", echo.NewHTTPError(http.StatusBadRequest, "bad json"), http.StatusBadRequest, "BAD_REQUEST"},
		{"storage failure", errors.New("pq: connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			e.GET("/boom", func(c echo.Context) error { return tt.err })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantErr, body.Error)
			assert.NotContains(t, body.Message, "pq:")
		})
	}
}

func TestJSONErrorHandlerFields(t *testing.T) {
	e := newTestEcho()
	e.GET("/boom", func(c echo.Context) error {
		return apperr.Invalid("product_ids", "at least one product is required")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"product_ids": "at least one product is required"}, body.Fields)
}

func TestRequestContext(t *testing.T) {
	e := newTestEcho()
	e.GET("/ping", func(c echo.Context) error {
		info, ok := RequestInfoFrom(c.Request().Context())
		require.True(t, ok)
		return c.String(http.StatusOK, info.ID+"|"+info.Operator)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	req.Header.Set(HeaderOperator, "front-desk")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123|front-desk", rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, rec.Header().Get(HeaderRequestID), 36)
}

type samplePayload struct {
	Name  string `json:"name" validate:"required,max=5"`
	Town  string `json:"town" validate:"required,town"`
	Age   int    `json:"age" validate:"gte=0,lte=120"`
	Role  string `json:"role" validate:"role"`
	Items []uint `json:"items" validate:"min=1"`
}

func TestRequestValidator(t *testing.T) {
	v := NewRequestValidator()

	err := v.Validate(&samplePayload{Name: "Ana", Town: "Bandung", Age: 30, Role: "VVIP", Items: []uint{1}})
	assert.NoError(t, err)

	err = v.Validate(&samplePayload{Name: "Anastasia", Town: "B4ndung", Age: 130, Role: "gold"})
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must be at most 5 characters", verr.Fields["name"])
	assert.Contains(t, verr.Fields, "town")
	assert.Equal(t, "must be less than or equal to 120", verr.Fields["age"])
	assert.Equal(t, "must be standard or vvip", verr.Fields["role"])
	assert.Contains(t, verr.Fields, "items")
}
