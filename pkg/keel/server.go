// Package keel provides the registration, dependency injection, and
// routing runtime for keel applications.
package keel

import "context"

// WebServer is the narrow contract the core needs from an HTTP engine.
// Adapters for concrete engines live in pkg/keel/adapters.
type WebServer interface {
	// RegisterRoute binds a handler for method and path. The path is in
	// keel syntax; adapters convert parameters and wildcards to their
	// engine's own placeholder style.
	RegisterRoute(method string, path Path, handler HandlerFunc) error

	// Use adds an engine-level middleware around every registered route.
	Use(m MiddlewareFunc)

	// Start binds the listener and serves until Stop. It returns the bind
	// error, or nil after a clean shutdown.
	Start(addr string) error

	// Stop gracefully shuts the engine down.
	Stop(ctx context.Context) error

	// Name identifies the engine in diagnostics.
	Name() string
}

// HandlerFunc is a request handler over the engine-agnostic Context.
type HandlerFunc func(c Context) error

// MiddlewareFunc wraps a HandlerFunc.
type MiddlewareFunc func(next HandlerFunc) HandlerFunc

// Context is the engine-agnostic view of one in-flight request and its
// response. It exposes exactly the facets the pipeline binds arguments
// from, plus the response surface the result writer needs.
type Context interface {
	// Context returns the request's cancellation context.
	Context() context.Context

	// Request facets.
	Method() string
	RoutePath() string
	Host() string
	Header(key string) string
	Param(name string) string
	ParamNames() []string
	QueryParam(name string) string
	QueryParams() map[string][]string

	// Body returns the parsed request body. JSON bodies decode into
	// map[string]any; an empty body yields nil.
	Body() (map[string]any, error)

	// Per-request state shared between pipeline stages and handlers.
	Get(key string) any
	Set(key string, val any)

	// Response surface.
	SetHeader(key, value string)
	JSON(code int, v any) error
	String(code int, s string) error
	Blob(code int, contentType string, b []byte) error
	NoContent(code int) error

	// Continue signals the engine to pass control to its next handler
	// instead of terminating the response. Engines without a next handler
	// at this point treat it as a no-op.
	Continue() error
}

// BodyLimits configures the engine's body parsing. The core never parses
// bodies itself; it only hands these limits to the adapter.
type BodyLimits struct {
	// JSON is the maximum accepted JSON body size in bytes. Zero means the
	// engine default.
	JSON int64

	// Text is the maximum accepted text body size in bytes.
	Text int64

	// Raw is the maximum accepted raw body size in bytes.
	Raw int64

	// URLEncoded is the maximum accepted form body size in bytes.
	URLEncoded int64
}

// Max returns the largest configured limit, zero when none is set. Engines
// with a single global body limit use this.
func (b BodyLimits) Max() int64 {
	max := b.JSON
	for _, v := range []int64{b.Text, b.Raw, b.URLEncoded} {
		if v > max {
			max = v
		}
	}
	return max
}

// ResultKind selects how a handler result's data is written.
type ResultKind int

const (
	// KindNone writes no body.
	KindNone ResultKind = iota

	// KindJSON writes the data JSON-encoded.
	KindJSON

	// KindText writes the data as text/plain.
	KindText

	// KindRaw writes the data bytes with the result's Content-Type header.
	KindRaw
)

// Result is the structured return value of an action handler.
type Result struct {
	Status  int
	Kind    ResultKind
	Data    any
	Headers map[string]string

	// ContinueChain hands control to the engine's next handler after the
	// response is written, supporting composable sub-pipelines.
	ContinueChain bool
}

// JSON creates a JSON result.
func JSON(status int, data any) *Result {
	return &Result{Status: status, Kind: KindJSON, Data: data}
}

// Text creates a text/plain result.
func Text(status int, data string) *Result {
	return &Result{Status: status, Kind: KindText, Data: data}
}

// Raw creates a raw bytes result. Set a Content-Type via WithHeader.
func Raw(status int, data []byte) *Result {
	return &Result{Status: status, Kind: KindRaw, Data: data}
}

// NoBody creates a body-less result.
func NoBody(status int) *Result {
	return &Result{Status: status, Kind: KindNone}
}

// Redirect creates a redirect result; location becomes the Location header.
func Redirect(status int, location string) *Result {
	return &Result{Status: status, Kind: KindNone, Data: location}
}

// WithHeader adds a response header and returns the result.
func (r *Result) WithHeader(key, value string) *Result {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}
