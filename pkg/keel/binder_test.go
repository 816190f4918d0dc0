package keel

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// defineSpyMiddlewares registers one middleware of every category on svc,
// each appending its stage name to calls when it runs.
func defineSpyMiddlewares(t *testing.T, reg *Registry, svc *Class, calls *[]string) {
	t.Helper()
	auth := func(name string) *MiddlewareDef {
		return &MiddlewareDef{Category: CategoryAuthentication, Name: name,
			Auth: func(_ any, _ Context, _ []any) (any, error) {
				*calls = append(*calls, "auth:"+name)
				return "principal-" + name, nil
			}}
	}
	require.NoError(t, reg.DefineMiddleware(svc, auth("a1")))
	require.NoError(t, reg.DefineMiddleware(svc, auth("a2")))

	require.NoError(t, reg.DefineMiddleware(svc, &MiddlewareDef{
		Category: CategoryResolver, Name: "load",
		Resolve: func(_ any, _ Context, value any, _ []any) (any, error) {
			*calls = append(*calls, "resolver:load")
			return value, nil
		}}))

	require.NoError(t, reg.DefineMiddleware(svc, &MiddlewareDef{
		Category: CategoryPolicy, Name: "owner",
		Policy: func(_ any, _ Context, _ any, _ []any) (bool, error) {
			*calls = append(*calls, "policy:owner")
			return true, nil
		}}))

	hook := func(name string) *MiddlewareDef {
		return &MiddlewareDef{Category: CategoryGeneric, Name: name,
			Hook: func(_ any, _ Context, _ []any) error {
				*calls = append(*calls, "hook:"+name)
				return nil
			}}
	}
	require.NoError(t, reg.DefineMiddleware(svc, hook("audit")))
	require.NoError(t, reg.DefineMiddleware(svc, hook("log")))
}

// fullChainApp wires one action carrying every middleware kind: two
// authentications, one resolver, one validator, one before and one after
// hook.
func fullChainApp(t *testing.T, perms PermissionChecker, calls *[]string) (*App, *testServer) {
	t.Helper()
	reg := NewRegistry()

	svc := NewClass("GuardService", noopCtor)
	defineSpyMiddlewares(t, reg, svc, calls)

	ctrl := NewClass("UserController", noopCtor)
	require.NoError(t, reg.DefineController(ctrl, "users"))
	require.NoError(t, reg.DefineArgs(ctrl, "Get",
		ArgBinding{Source: SourceParam, Index: 0, Name: "id"},
	))
	require.NoError(t, reg.DefineResolvers(ctrl, "Get",
		ResolverBinding{Service: svc, Name: "load", Index: 0},
	))
	require.NoError(t, reg.DefineValidators(ctrl, "Get",
		ValidatorBinding{Service: svc, Name: "owner", Index: 0},
	))
	require.NoError(t, reg.DefineAction(ctrl, &ActionMeta{
		Name:   "Get",
		Method: http.MethodGet,
		Route:  "{id:int}",
		Handler: func(_ any, _ Context, args []any) (*Result, error) {
			*calls = append(*calls, "action")
			return JSON(http.StatusOK, args[0]), nil
		},
		Authentication: []MiddlewareRef{{Service: svc, Name: "a1"}, {Service: svc, Name: "a2"}},
		Before:         []MiddlewareRef{{Service: svc, Name: "audit"}},
		After:          []MiddlewareRef{{Service: svc, Name: "log"}},
	}))

	root := NewClass("AppModule", noopCtor)
	require.NoError(t, reg.DefineModule(root, ModuleParams{
		Route:       "api",
		Services:    []*Class{svc},
		Controllers: []*Class{ctrl},
	}))

	server := newTestServer()
	app := New(reg, Options{Server: server, Logger: NopLogger{}, Permissions: perms})
	require.NoError(t, app.Wire(root))
	return app, server
}

func TestBinderChainLength(t *testing.T) {
	var calls []string
	app, _ := fullChainApp(t, nil, &calls)

	require.Len(t, app.binder.bound, 1)
	rt := app.binder.bound[0]

	// init + 2 auth + 1 resolver + 1 validator + 1 before + action + 1 after.
	assert.Len(t, rt.stages, 8)

	names := make([]string, len(rt.stages))
	for i, st := range rt.stages {
		names[i] = st.name
	}
	assert.Equal(t, []string{
		"init",
		"authentication:a1",
		"authentication:a2",
		"resolver:load",
		"policy:owner",
		"before:audit",
		"action",
		"after:log",
	}, names)
}

func TestBinderPermissionStageOnlyWithChecker(t *testing.T) {
	var calls []string
	app, _ := fullChainApp(t, &fakeChecker{allow: true}, &calls)

	rt := app.binder.bound[0]
	require.Len(t, rt.stages, 9)
	assert.Equal(t, "authorize", rt.stages[3].name)
}

func TestBinderRouteComposition(t *testing.T) {
	var calls []string
	_, server := fullChainApp(t, nil, &calls)

	_, ok := server.handlers[routeKey(http.MethodGet, "/api/users/{id:int}")]
	assert.True(t, ok, "registered paths: %v", server.paths)
}

func TestBinderEmptyActionRouteServesControllerPath(t *testing.T) {
	reg := NewRegistry()
	ctrl := NewClass("TaskController", noopCtor)
	require.NoError(t, reg.DefineController(ctrl, "tasks"))
	require.NoError(t, reg.DefineAction(ctrl, &ActionMeta{
		Name: "List", Method: http.MethodGet,
		Handler: func(_ any, _ Context, _ []any) (*Result, error) {
			return JSON(http.StatusOK, []string{}), nil
		},
	}))
	root := NewClass("Root", noopCtor)
	require.NoError(t, reg.DefineModule(root, ModuleParams{Controllers: []*Class{ctrl}}))

	server := newTestServer()
	app := New(reg, Options{Server: server, Logger: NopLogger{}})
	require.NoError(t, app.Wire(root))

	_, ok := server.handlers[routeKey(http.MethodGet, "/tasks")]
	assert.True(t, ok, "registered paths: %v", server.paths)
}

func TestBinderRejectsUnsupportedMethod(t *testing.T) {
	reg := NewRegistry()
	ctrl := NewClass("TaskController", noopCtor)
	require.NoError(t, reg.DefineController(ctrl, "tasks"))
	require.NoError(t, reg.DefineAction(ctrl, &ActionMeta{
		Name: "Fetch", Method: "FETCH",
		Handler: func(_ any, _ Context, _ []any) (*Result, error) { return NoBody(204), nil },
	}))
	root := NewClass("Root", noopCtor)
	require.NoError(t, reg.DefineModule(root, ModuleParams{Controllers: []*Class{ctrl}}))

	app := New(reg, Options{Server: newTestServer(), Logger: NopLogger{}})
	assert.ErrorIs(t, app.Wire(root), ErrUnsupportedMethod)
}

func TestBinderRejectsUnknownParamType(t *testing.T) {
	reg := NewRegistry()
	ctrl := NewClass("TaskController", noopCtor)
	require.NoError(t, reg.DefineController(ctrl, "tasks"))
	require.NoError(t, reg.DefineAction(ctrl, &ActionMeta{
		Name: "Get", Method: http.MethodGet, Route: "{id:decimal}",
		Handler: func(_ any, _ Context, _ []any) (*Result, error) { return NoBody(204), nil },
	}))
	root := NewClass("Root", noopCtor)
	require.NoError(t, reg.DefineModule(root, ModuleParams{Controllers: []*Class{ctrl}}))

	app := New(reg, Options{Server: newTestServer(), Logger: NopLogger{}})
	err := app.Wire(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown type "decimal"`)
}

func TestBinderRejectsUnknownMiddleware(t *testing.T) {
	reg := NewRegistry()
	svc := NewClass("GuardService", noopCtor)
	require.NoError(t, reg.DefineService(svc))

	ctrl := NewClass("TaskController", noopCtor)
	require.NoError(t, reg.DefineController(ctrl, "tasks"))
	require.NoError(t, reg.DefineAction(ctrl, &ActionMeta{
		Name: "Get", Method: http.MethodGet,
		Handler:        func(_ any, _ Context, _ []any) (*Result, error) { return NoBody(204), nil },
		Authentication: []MiddlewareRef{{Service: svc, Name: "bearer"}},
	}))
	root := NewClass("Root", noopCtor)
	require.NoError(t, reg.DefineModule(root, ModuleParams{Controllers: []*Class{ctrl}}))

	app := New(reg, Options{Server: newTestServer(), Logger: NopLogger{}})
	assert.ErrorIs(t, app.Wire(root), ErrUnknownMiddleware)
}

func TestBinderHealthcheck(t *testing.T) {
	var calls []string
	_, server := fullChainApp(t, nil, &calls)

	handler, ok := server.handlers[routeKey(http.MethodGet, "/healthcheck")]
	require.True(t, ok)

	c := newTestContext()
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, c.status)
	assert.Equal(t, "OK", c.textData)
}

func TestBinderRouteIntrospection(t *testing.T) {
	var calls []string
	app, _ := fullChainApp(t, nil, &calls)

	routes := app.Routes()
	require.Len(t, routes, 2) // healthcheck + Get

	get := app.RoutesByController("UserController")
	require.Len(t, get, 1)
	assert.Equal(t, "/api/users/{id:int}", get[0].Path)
	assert.Equal(t, "Get", get[0].Handler)
	assert.Equal(t, map[string]string{"id": "int"}, get[0].ParamTypes)
	assert.Equal(t, []string{
		"authentication:a1", "authentication:a2",
		"resolver:load", "policy:owner",
		"before:audit", "after:log",
	}, get[0].Middlewares)

	assert.Len(t, app.RoutesByMethod(http.MethodGet), 2)
	assert.Empty(t, app.RoutesByMethod(http.MethodDelete))
}
