package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/certledger/certledger/internal/service"
)

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestAppErrorMapsServiceErrors(t *testing.T) {
	c, w := newTestContext(t)

	AppError(c, service.NotFound("certificate not found"))

	require.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, service.CodeNotFound, resp.Error)
	require.Equal(t, "certificate not found", resp.Message)
}

func TestAppErrorUnwrapsCause(t *testing.T) {
	c, w := newTestContext(t)

	wrapped := service.Unavailable("ledger write could not be confirmed", errors.New("connection refused"))
	AppError(c, wrapped)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, service.CodeLedgerUnavailable, resp.Error)
	// The transport cause stays out of the client-facing message
	require.NotContains(t, resp.Message, "connection refused")
}

func TestAppErrorHidesUnknownErrors(t *testing.T) {
	c, w := newTestContext(t)

	AppError(c, errors.New("sqlite: disk I/O error"))

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, service.CodeInternal, resp.Error)
	require.NotContains(t, resp.Message, "sqlite")
}

func TestClientIPHeaderPrecedence(t *testing.T) {
	c, _ := newTestContext(t)
	c.Request.Header.Set("X-Forwarded-For", "203.0.113.7")
	c.Request.Header.Set("X-Real-IP", "198.51.100.9")
	require.Equal(t, "203.0.113.7", ClientIP(c))

	c, _ = newTestContext(t)
	c.Request.Header.Set("X-Real-IP", "198.51.100.9")
	require.Equal(t, "198.51.100.9", ClientIP(c))
}
