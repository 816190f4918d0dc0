package adapters

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varago/keel/pkg/keel"
)

func TestGinPathConversion(t *testing.T) {
	tests := []struct {
		in   keel.Path
		want string
	}{
		{"/health", "/health"},
		{"/users/{id:int}", "/users/:id"},
		{"/files/{*}", "/files/*wildcard"},
	}
	for _, tt := range tests {
		got, err := ginPath(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ginPath("/broken/{id")
	assert.Error(t, err)
}

func TestGinAdapterServesRoute(t *testing.T) {
	ga := NewDefaultGinAdapter()
	require.NoError(t, ga.RegisterRoute(http.MethodGet, "/users/{id:int}", func(c keel.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"id":      c.Param("id"),
			"verbose": c.QueryParam("verbose"),
		})
	}))

	rec := httptest.NewRecorder()
	ga.Engine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/7?verbose=1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"7","verbose":"1"}`, rec.Body.String())
}

func TestGinAdapterWildcard(t *testing.T) {
	ga := NewDefaultGinAdapter()
	require.NoError(t, ga.RegisterRoute(http.MethodGet, "/files/{*}", func(c keel.Context) error {
		return c.String(http.StatusOK, c.Param("*"))
	}))

	rec := httptest.NewRecorder()
	ga.Engine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/docs/readme.txt", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "docs/readme.txt", rec.Body.String())
}

func TestGinAdapterBody(t *testing.T) {
	ga := NewDefaultGinAdapter()
	require.NoError(t, ga.RegisterRoute(http.MethodPost, "/tasks", func(c keel.Context) error {
		body, err := c.Body()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, body["title"])
	}))

	req := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{"title":"ship it"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ga.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `"ship it"`, rec.Body.String())
}

func TestGinAdapterNoContent(t *testing.T) {
	ga := NewDefaultGinAdapter()
	require.NoError(t, ga.RegisterRoute(http.MethodDelete, "/tasks/{id:int}", func(c keel.Context) error {
		return c.NoContent(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	ga.Engine().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/tasks/1", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestGinAdapterName(t *testing.T) {
	assert.Equal(t, "gin", NewDefaultGinAdapter().Name())
}
