package adapters

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varago/keel/pkg/keel"
)

func TestFiberPathConversion(t *testing.T) {
	tests := []struct {
		in   keel.Path
		want string
	}{
		{"/health", "/health"},
		{"/users/{id:int}", "/users/:id"},
		{"/files/{*}", "/files/*"},
	}
	for _, tt := range tests {
		got, err := fiberPath(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := fiberPath("/broken/{id")
	assert.Error(t, err)
}

func TestFiberAdapterServesRoute(t *testing.T) {
	fa := NewDefaultFiberAdapter(keel.BodyLimits{})
	require.NoError(t, fa.RegisterRoute(http.MethodGet, "/users/{id:int}", func(c keel.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"id":      c.Param("id"),
			"verbose": c.QueryParam("verbose"),
		})
	}))

	res, err := fa.App().Test(httptest.NewRequest(http.MethodGet, "/users/7?verbose=1", nil))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"7","verbose":"1"}`, string(body))
}

func TestFiberAdapterWildcard(t *testing.T) {
	fa := NewDefaultFiberAdapter(keel.BodyLimits{})
	require.NoError(t, fa.RegisterRoute(http.MethodGet, "/files/{*}", func(c keel.Context) error {
		return c.String(http.StatusOK, c.Param("*"))
	}))

	res, err := fa.App().Test(httptest.NewRequest(http.MethodGet, "/files/docs/readme.txt", nil))
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "docs/readme.txt", string(body))
}

func TestFiberAdapterBody(t *testing.T) {
	fa := NewDefaultFiberAdapter(keel.BodyLimits{})
	require.NoError(t, fa.RegisterRoute(http.MethodPost, "/tasks", func(c keel.Context) error {
		body, err := c.Body()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, body["title"])
	}))

	req := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{"title":"ship it"}`))
	req.Header.Set("Content-Type", "application/json")
	res, err := fa.App().Test(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `"ship it"`, string(body))
}

func TestFiberAdapterName(t *testing.T) {
	assert.Equal(t, "fiber", NewDefaultFiberAdapter(keel.BodyLimits{}).Name())
}
