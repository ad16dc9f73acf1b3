package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestGetPaginationParams(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/chats?page=3&limit=10", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	p := GetPaginationParams(c)

	assert.Equal(t, PaginationParams{Page: 3, PageSize: 10, Offset: 20}, p)
}

func TestNewPaginationClamps(t *testing.T) {
	assert.Equal(t, PaginationParams{Page: 1, PageSize: DefaultPageSize, Offset: 0}, NewPagination(0, 0))
	assert.Equal(t, MaxPageSize, NewPagination(1, 1000).PageSize)
	assert.Equal(t, 1, NewPagination(-4, 5).Page)
}
