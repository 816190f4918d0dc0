package keel

import (
	"context"
	"fmt"
	"strings"
)

// testServer records registered routes and lets tests invoke the composed
// handlers directly, without a real engine.
type testServer struct {
	handlers map[string]HandlerFunc
	paths    []string
	started  string
	stopped  bool
}

func newTestServer() *testServer {
	return &testServer{handlers: make(map[string]HandlerFunc)}
}

func routeKey(method string, path Path) string {
	return method + " " + path.Raw()
}

func (s *testServer) RegisterRoute(method string, path Path, handler HandlerFunc) error {
	if err := path.Validate(); err != nil {
		return err
	}
	key := routeKey(method, path)
	if _, ok := s.handlers[key]; ok {
		return fmt.Errorf("duplicate route %s", key)
	}
	s.handlers[key] = handler
	s.paths = append(s.paths, key)
	return nil
}

func (s *testServer) Use(MiddlewareFunc) {}

func (s *testServer) Start(addr string) error {
	s.started = addr
	return nil
}

func (s *testServer) Stop(context.Context) error {
	s.stopped = true
	return nil
}

func (s *testServer) Name() string { return "test" }

// testContext is an in-memory keel.Context for pipeline tests.
type testContext struct {
	method  string
	path    string
	host    string
	headers map[string]string
	params  map[string]string
	order   []string
	query   map[string][]string

	body      map[string]any
	bodyCalls int

	state map[string]any

	status    int
	outHeader map[string]string
	jsonData  any
	textData  string
	blobData  []byte
	noBody    bool
	continued bool
}

func newTestContext() *testContext {
	return &testContext{
		method:    "GET",
		host:      "api.example.com:8080",
		headers:   make(map[string]string),
		params:    make(map[string]string),
		query:     make(map[string][]string),
		state:     make(map[string]any),
		outHeader: make(map[string]string),
	}
}

func (c *testContext) withHeader(k, v string) *testContext {
	c.headers[strings.ToLower(k)] = v
	return c
}

func (c *testContext) withParam(k, v string) *testContext {
	c.params[k] = v
	c.order = append(c.order, k)
	return c
}

func (c *testContext) withQuery(k, v string) *testContext {
	c.query[k] = append(c.query[k], v)
	return c
}

func (c *testContext) Context() context.Context { return context.Background() }

func (c *testContext) Method() string  { return c.method }
func (c *testContext) RoutePath() string { return c.path }
func (c *testContext) Host() string    { return c.host }

func (c *testContext) Header(key string) string {
	return c.headers[strings.ToLower(key)]
}

func (c *testContext) Param(name string) string { return c.params[name] }
func (c *testContext) ParamNames() []string     { return c.order }

func (c *testContext) QueryParam(name string) string {
	if vs := c.query[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func (c *testContext) QueryParams() map[string][]string { return c.query }

func (c *testContext) Body() (map[string]any, error) {
	c.bodyCalls++
	return c.body, nil
}

func (c *testContext) Get(key string) any      { return c.state[key] }
func (c *testContext) Set(key string, val any) { c.state[key] = val }

func (c *testContext) SetHeader(key, value string) { c.outHeader[key] = value }

func (c *testContext) JSON(code int, v any) error {
	c.status = code
	c.jsonData = v
	return nil
}

func (c *testContext) String(code int, s string) error {
	c.status = code
	c.textData = s
	return nil
}

func (c *testContext) Blob(code int, _ string, b []byte) error {
	c.status = code
	c.blobData = b
	return nil
}

func (c *testContext) NoContent(code int) error {
	c.status = code
	c.noBody = true
	return nil
}

func (c *testContext) Continue() error {
	c.continued = true
	return nil
}
