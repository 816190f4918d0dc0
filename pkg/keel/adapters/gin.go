package adapters

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/varago/keel/pkg/keel"
)

// GinAdapter implements keel.WebServer for Gin.
type GinAdapter struct {
	engine *gin.Engine
	server *http.Server
}

// NewGinAdapter wraps an existing Gin engine.
func NewGinAdapter(g *gin.Engine) *GinAdapter {
	return &GinAdapter{engine: g}
}

// NewDefaultGinAdapter creates an adapter with a recovery-only Gin engine
// in release mode.
func NewDefaultGinAdapter() *GinAdapter {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	return &GinAdapter{engine: g}
}

// Engine returns the underlying Gin engine.
func (ga *GinAdapter) Engine() *gin.Engine {
	return ga.engine
}

// Gin wildcards are named, so {*} maps to "*wildcard" and Param("*") reads
// it back under that name.
const ginWildcard = "wildcard"

func ginPath(path keel.Path) (string, error) {
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
			if !strings.HasSuffix(out, "/") {
				out += "/"
			}
			out += "*" + ginWildcard
		default:
			out += part.Value
		}
	}
	return out, nil
}

// RegisterRoute registers a handler, converting keel path syntax to Gin's.
func (ga *GinAdapter) RegisterRoute(method string, path keel.Path, handler keel.HandlerFunc) error {
	p, err := ginPath(path)
	if err != nil {
		return err
	}
	ga.engine.Handle(method, p, func(c *gin.Context) {
		if err := handler(&ginContext{c: c}); err != nil {
			_ = c.Error(err)
		}
	})
	return nil
}

// Use adds an engine-level middleware around every route.
func (ga *GinAdapter) Use(m keel.MiddlewareFunc) {
	ga.engine.Use(func(c *gin.Context) {
		wrapped := m(func(kc keel.Context) error {
			c.Next()
			return nil
		})
		if err := wrapped(&ginContext{c: c}); err != nil {
			_ = c.Error(err)
		}
	})
}

// Start binds the listener and serves until Stop. Gin's engine has no
// graceful shutdown of its own, so the adapter owns an http.Server.
func (ga *GinAdapter) Start(addr string) error {
	ga.server = &http.Server{Addr: addr, Handler: ga.engine}
	err := ga.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down.
func (ga *GinAdapter) Stop(ctx context.Context) error {
	if ga.server == nil {
		return nil
	}
	return ga.server.Shutdown(ctx)
}

// Name identifies the engine in diagnostics.
func (ga *GinAdapter) Name() string {
	return "gin"
}

// ginContext implements keel.Context over *gin.Context.
type ginContext struct {
	c *gin.Context
}

func (gc *ginContext) Context() context.Context {
	return gc.c.Request.Context()
}

func (gc *ginContext) Method() string {
	return gc.c.Request.Method
}

func (gc *ginContext) RoutePath() string {
	return gc.c.FullPath()
}

func (gc *ginContext) Host() string {
	return gc.c.Request.Host
}

func (gc *ginContext) Header(key string) string {
	return gc.c.GetHeader(key)
}

func (gc *ginContext) Param(name string) string {
	if name == "*" {
		return strings.TrimPrefix(gc.c.Param(ginWildcard), "/")
	}
	return gc.c.Param(name)
}

func (gc *ginContext) ParamNames() []string {
	names := make([]string, 0, len(gc.c.Params))
	for _, p := range gc.c.Params {
		if p.Key == ginWildcard {
			names = append(names, "*")
			continue
		}
		names = append(names, p.Key)
	}
	return names
}

func (gc *ginContext) QueryParam(name string) string {
	return gc.c.Query(name)
}

func (gc *ginContext) QueryParams() map[string][]string {
	return gc.c.Request.URL.Query()
}

func (gc *ginContext) Body() (map[string]any, error) {
	return decodeJSONBody(gc.c.ContentType(), gc.c.Request.Body)
}

func (gc *ginContext) Get(key string) any {
	v, _ := gc.c.Get(key)
	return v
}

func (gc *ginContext) Set(key string, val any) {
	gc.c.Set(key, val)
}

func (gc *ginContext) SetHeader(key, value string) {
	gc.c.Header(key, value)
}

func (gc *ginContext) JSON(code int, v any) error {
	gc.c.JSON(code, v)
	return nil
}

func (gc *ginContext) String(code int, s string) error {
	gc.c.String(code, "%s", s)
	return nil
}

func (gc *ginContext) Blob(code int, contentType string, b []byte) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	gc.c.Data(code, contentType, b)
	return nil
}

func (gc *ginContext) NoContent(code int) error {
	gc.c.Status(code)
	gc.c.Writer.WriteHeaderNow()
	return nil
}

func (gc *ginContext) Continue() error {
	gc.c.Next()
	return nil
}
