package adapters

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/varago/keel/pkg/keel"
)

// EchoAdapter implements keel.WebServer for Echo v4, the default engine.
type EchoAdapter struct {
	engine *echo.Echo
}

// NewEchoAdapter wraps an existing Echo instance.
func NewEchoAdapter(e *echo.Echo) *EchoAdapter {
	return &EchoAdapter{engine: e}
}

// NewDefaultEchoAdapter creates an adapter with a fresh Echo instance,
// panic recovery enabled, and the given body limits applied.
func NewDefaultEchoAdapter(limits keel.BodyLimits) *EchoAdapter {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	if max := limits.Max(); max > 0 {
		e.Use(middleware.BodyLimit(strconv.FormatInt(max, 10)))
	}
	return &EchoAdapter{engine: e}
}

// Engine returns the underlying Echo instance for advanced configuration.
func (ea *EchoAdapter) Engine() *echo.Echo {
	return ea.engine
}

func echoPath(path keel.Path) (string, error) {
	parts, err := path.Parts()
	if err != nil {
		return "", err
	}
	out := ""
	for _, part := range parts {
		switch part.Type {
		case keel.ParameterPart:
			out += ":" + part.Value
		case keel.WildcardPart:
			out += "*"
		default:
			out += part.Value
		}
	}
	return out, nil
}

// RegisterRoute registers a handler, converting keel path syntax to Echo's.
func (ea *EchoAdapter) RegisterRoute(method string, path keel.Path, handler keel.HandlerFunc) error {
	p, err := echoPath(path)
	if err != nil {
		return err
	}
	ea.engine.Add(method, p, func(c echo.Context) error {
		return handler(&echoContext{c: c})
	})
	return nil
}

// Use adds an engine-level middleware around every route.
func (ea *EchoAdapter) Use(m keel.MiddlewareFunc) {
	ea.engine.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			wrapped := m(func(kc keel.Context) error {
				return next(c)
			})
			return wrapped(&echoContext{c: c})
		}
	})
}

// Start binds the listener and serves until Stop.
func (ea *EchoAdapter) Start(addr string) error {
	return ea.engine.Start(addr)
}

// Stop gracefully shuts the engine down.
func (ea *EchoAdapter) Stop(ctx context.Context) error {
	return ea.engine.Shutdown(ctx)
}

// Name identifies the engine in diagnostics.
func (ea *EchoAdapter) Name() string {
	return "echo"
}

// echoContext implements keel.Context over echo.Context.
type echoContext struct {
	c echo.Context
}

func (ec *echoContext) Context() context.Context {
	return ec.c.Request().Context()
}

func (ec *echoContext) Method() string {
	return ec.c.Request().Method
}

func (ec *echoContext) RoutePath() string {
	return ec.c.Path()
}

func (ec *echoContext) Host() string {
	return ec.c.Request().Host
}

func (ec *echoContext) Header(key string) string {
	return ec.c.Request().Header.Get(key)
}

func (ec *echoContext) Param(name string) string {
	return ec.c.Param(name)
}

func (ec *echoContext) ParamNames() []string {
	return ec.c.ParamNames()
}

func (ec *echoContext) QueryParam(name string) string {
	return ec.c.QueryParam(name)
}

func (ec *echoContext) QueryParams() map[string][]string {
	return ec.c.QueryParams()
}

func (ec *echoContext) Body() (map[string]any, error) {
	req := ec.c.Request()
	return decodeJSONBody(req.Header.Get("Content-Type"), req.Body)
}

func (ec *echoContext) Get(key string) any {
	return ec.c.Get(key)
}

func (ec *echoContext) Set(key string, val any) {
	ec.c.Set(key, val)
}

func (ec *echoContext) SetHeader(key, value string) {
	ec.c.Response().Header().Set(key, value)
}

func (ec *echoContext) JSON(code int, v any) error {
	return ec.c.JSON(code, v)
}

func (ec *echoContext) String(code int, s string) error {
	return ec.c.String(code, s)
}

func (ec *echoContext) Blob(code int, contentType string, b []byte) error {
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return ec.c.Blob(code, contentType, b)
}

func (ec *echoContext) NoContent(code int) error {
	return ec.c.NoContent(code)
}

// Continue is a no-op: keel routes register as terminal Echo handlers, so
// there is no next handler to hand control to.
func (ec *echoContext) Continue() error {
	return nil
}
