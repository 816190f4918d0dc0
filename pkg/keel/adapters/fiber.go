package adapters

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/varago/keel/pkg/keel"
)

// FiberAdapter implements keel.WebServer for Fiber v2.
type FiberAdapter struct {
	app *fiber.App
}

// NewFiberAdapter wraps an existing Fiber app.
func NewFiberAdapter(app *fiber.App) *FiberAdapter {
	return &FiberAdapter{app: app}
}

// NewDefaultFiberAdapter creates an adapter with panic recovery and the
// given body limits applied through Fiber's config.
func NewDefaultFiberAdapter(limits keel.BodyLimits) *FiberAdapter {
	cfg := fiber.Config{DisableStartupMessage: true}
	if max := limits.Max(); max > 0 {
		cfg.BodyLimit = int(max)
	}
	app := fiber.New(cfg)
	app.Use(recover.New())
	return &FiberAdapter{app: app}
}

// App returns the underlying Fiber app.
func (fa *FiberAdapter) App() *fiber.App {
	return fa.app
}

func fiberPath(path keel.Path) (string, error) {
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

// RegisterRoute registers a handler, converting keel path syntax to Fiber's.
func (fa *FiberAdapter) RegisterRoute(method string, path keel.Path, handler keel.HandlerFunc) error {
	p, err := fiberPath(path)
	if err != nil {
		return err
	}
	fa.app.Add(method, p, func(c *fiber.Ctx) error {
		return handler(&fiberContext{c: c})
	})
	return nil
}

// Use adds an engine-level middleware around every route.
func (fa *FiberAdapter) Use(m keel.MiddlewareFunc) {
	fa.app.Use(func(c *fiber.Ctx) error {
		wrapped := m(func(kc keel.Context) error {
			return c.Next()
		})
		return wrapped(&fiberContext{c: c})
	})
}

// Start binds the listener and serves until Stop.
func (fa *FiberAdapter) Start(addr string) error {
	return fa.app.Listen(addr)
}

// Stop gracefully shuts the app down.
func (fa *FiberAdapter) Stop(ctx context.Context) error {
	return fa.app.ShutdownWithContext(ctx)
}

// Name identifies the engine in diagnostics.
func (fa *FiberAdapter) Name() string {
	return "fiber"
}

// fiberContext implements keel.Context over *fiber.Ctx.
type fiberContext struct {
	c *fiber.Ctx
}

func (fc *fiberContext) Context() context.Context {
	return fc.c.UserContext()
}

func (fc *fiberContext) Method() string {
	return fc.c.Method()
}

func (fc *fiberContext) RoutePath() string {
	return fc.c.Route().Path
}

func (fc *fiberContext) Host() string {
	return fc.c.Hostname()
}

func (fc *fiberContext) Header(key string) string {
	return fc.c.Get(key)
}

func (fc *fiberContext) Param(name string) string {
	if name == "*" {
		return fc.c.Params("*")
	}
	return fc.c.Params(name)
}

func (fc *fiberContext) ParamNames() []string {
	return fc.c.Route().Params
}

func (fc *fiberContext) QueryParam(name string) string {
	return fc.c.Query(name)
}

func (fc *fiberContext) QueryParams() map[string][]string {
	out := make(map[string][]string)
	fc.c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		out[k] = append(out[k], string(value))
	})
	return out
}

func (fc *fiberContext) Body() (map[string]any, error) {
	ct := string(fc.c.Request().Header.ContentType())
	if !strings.Contains(ct, fiber.MIMEApplicationJSON) {
		return nil, nil
	}
	return decodeJSONBytes(fc.c.Body())
}

func (fc *fiberContext) Get(key string) any {
	return fc.c.Locals(key)
}

func (fc *fiberContext) Set(key string, val any) {
	fc.c.Locals(key, val)
}

func (fc *fiberContext) SetHeader(key, value string) {
	fc.c.Set(key, value)
}

func (fc *fiberContext) JSON(code int, v any) error {
	return fc.c.Status(code).JSON(v)
}

func (fc *fiberContext) String(code int, s string) error {
	return fc.c.Status(code).SendString(s)
}

func (fc *fiberContext) Blob(code int, contentType string, b []byte) error {
	if contentType != "" {
		fc.c.Set(fiber.HeaderContentType, contentType)
	}
	return fc.c.Status(code).Send(b)
}

func (fc *fiberContext) NoContent(code int) error {
	return fc.c.Status(code).Send(nil)
}

func (fc *fiberContext) Continue() error {
	return fc.c.Next()
}
