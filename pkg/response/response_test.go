package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "barterhub/pkg/errors"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorAppError(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, Error(c, apperrors.Forbidden("User is not a participant in this chat", nil)))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decode(t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "FORBIDDEN", body.Error.Code)
	assert.Equal(t, "User is not a participant in this chat", body.Error.Message)
}

func TestErrorRateLimitedSetsRetryAfter(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, Error(c, apperrors.TooManyRequests("slow down", 12*time.Second)))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "12", rec.Header().Get("Retry-After"))
}

func TestErrorClassifiesStorageErrors(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, Error(c, gorm.ErrDuplicatedKey))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decode(t, rec).Error.Code)
}

func TestErrorHidesInternalsUnlessExposed(t *testing.T) {
	c, rec := newContext()
	SetExposeDetails(false)

	require.NoError(t, Error(c, assert.AnError))

	body := decode(t, rec)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error, try again", body.Error.Message)
	assert.Nil(t, body.Error.Details)

	SetExposeDetails(true)
	defer SetExposeDetails(false)
	c, rec = newContext()
	require.NoError(t, Error(c, assert.AnError))
	assert.Equal(t, assert.AnError.Error(), decode(t, rec).Error.Details)
}

func TestHTTPErrorHandlerRendersEchoErrors(t *testing.T) {
	c, rec := newContext()

	HTTPErrorHandler(echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token"), c)

	body := decode(t, rec)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
	assert.Equal(t, "Invalid or expired token", body.Error.Message)
}

func TestPaginated(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, Paginated(c, []string{"a", "b"}, 45, 2, 20))

	var body struct {
		Data PaginatedResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(45), body.Data.Total)
	assert.Equal(t, 3, body.Data.TotalPages)
	assert.Equal(t, 2, body.Data.Page)
}
