package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"campusmart/internal/domain/model"
	"campusmart/internal/middleware"
	"campusmart/internal/usecase"
	"campusmart/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validator.NewRequestValidator()
	e.Binder = &validator.StrictBinder{}
	e.HTTPErrorHandler = ErrorHandler
	return e
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		kind    string
		message string
	}{
		{"stock", usecase.NewError(usecase.KindInsufficientStock, "Insufficient stock for Lamp. Available: 1"), http.StatusBadRequest, "INSUFFICIENT_STOCK", "Insufficient stock for Lamp. Available: 1"},
		{"forbidden", usecase.NewError(usecase.KindForbidden, "forbidden"), http.StatusForbidden, "FORBIDDEN", "forbidden"},
		{"conflict", usecase.NewError(usecase.KindConflict, "already reviewed"), http.StatusConflict, "CONFLICT", "already reviewed"},
		{"unknown error hides detail", errors.New("pq: relation orders does not exist"), http.StatusInternalServerError, "PERSISTENCE_FAILURE", "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			require.NoError(t, writeError(c, tt.err))

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.kind, body.Error)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestErrorHandler_RoutingErrors(t *testing.T) {
	e := newEcho()
	e.GET("/api/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec).Error)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/ping", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec).Error)
}

// usecaseに届く前に弾かれるケースだけ見る
func TestOrderCreate_RejectedBeforeUsecase(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		authed  bool
		status  int
		kind    string
		message string
	}{
		{"no user", `{}`, false, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"},
		{"unknown field", `{"payment_method":"card","coupon":"FREE"}`, true, http.StatusBadRequest, "VALIDATION_ERROR", ""},
		{"broken json", `{"payment_method":`, true, http.StatusBadRequest, "VALIDATION_ERROR", ""},
		{"trailing json", `{} {}`, true, http.StatusBadRequest, "VALIDATION_ERROR", "trailing data"},
		{"zero quantity", `{"items":[{"product_id":1,"quantity":0}]}`, true, http.StatusBadRequest, "VALIDATION_ERROR", "quantity is required"},
		{"negative total", `{"total_amount":-5}`, true, http.StatusBadRequest, "VALIDATION_ERROR", "total_amount must be at least 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho()
			h := NewOrderHandler(nil)

			req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.authed {
				c.Set(middleware.CtxUserIDKey, int64(1))
				c.Set(middleware.CtxUserRoleKey, model.RoleBuyer)
			}

			require.NoError(t, h.create(c))

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.kind, body.Error)
			if tt.message != "" {
				assert.Contains(t, body.Message, tt.message)
			}
		})
	}
}

func TestQueryHelpers(t *testing.T) {
	e := newEcho()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?page=3&limit=x&seller_id=9", nil), httptest.NewRecorder())

	page, err := queryInt(c, "page", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	_, err = queryInt(c, "limit", 20)
	assert.Equal(t, usecase.KindValidation, usecase.KindOf(err))

	def, err := queryInt(c, "missing", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, def)

	sid, err := queryInt64Ptr(c, "seller_id")
	require.NoError(t, err)
	require.NotNil(t, sid)
	assert.Equal(t, int64(9), *sid)

	none, err := queryInt64Ptr(c, "buyer_id")
	require.NoError(t, err)
	assert.Nil(t, none)
}
