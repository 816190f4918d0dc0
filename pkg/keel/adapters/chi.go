package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/varago/keel/pkg/keel"
)

// ChiAdapter implements keel.WebServer for chi, for applications that want
// a stdlib-handler engine.
type ChiAdapter struct {
	router chi.Router
	server *http.Server
}

// NewChiAdapter wraps an existing chi router.
func NewChiAdapter(r chi.Router) *ChiAdapter {
	return &ChiAdapter{router: r}
}

// NewDefaultChiAdapter creates an adapter with panic recovery and the given
// body limits applied via a request-size middleware.
func NewDefaultChiAdapter(limits keel.BodyLimits) *ChiAdapter {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	if max := limits.Max(); max > 0 {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				req.Body = http.MaxBytesReader(w, req.Body, max)
				next.ServeHTTP(w, req)
			})
		})
	}
	return &ChiAdapter{router: r}
}

// Router returns the underlying chi router.
func (ca *ChiAdapter) Router() chi.Router {
	return ca.router
}

func chiPath(path keel.Path) (string, error) {
	parts, err := path.Parts()
	if err != nil {
		return "", err
	}
	out := ""
	for _, part := range parts {
		switch part.Type {
		case keel.ParameterPart:
			out += "{" + part.Value + "}"
		case keel.WildcardPart:
			if !strings.HasSuffix(out, "/") {
				out += "/"
			}
			out += "*"
		default:
			out += part.Value
		}
	}
	return out, nil
}

// RegisterRoute registers a handler, converting keel path syntax to chi's.
func (ca *ChiAdapter) RegisterRoute(method string, path keel.Path, handler keel.HandlerFunc) error {
	p, err := chiPath(path)
	if err != nil {
		return err
	}
	ca.router.MethodFunc(method, p, func(w http.ResponseWriter, req *http.Request) {
		c := &chiContext{w: w, req: req, state: make(map[string]any)}
		if err := handler(c); err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	})
	return nil
}

// Use adds an engine-level middleware around every route.
func (ca *ChiAdapter) Use(m keel.MiddlewareFunc) {
	ca.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			wrapped := m(func(kc keel.Context) error {
				next.ServeHTTP(w, req)
				return nil
			})
			c := &chiContext{w: w, req: req, state: make(map[string]any)}
			if err := wrapped(c); err != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		})
	})
}

// Start binds the listener and serves until Stop.
func (ca *ChiAdapter) Start(addr string) error {
	ca.server = &http.Server{Addr: addr, Handler: ca.router}
	err := ca.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down.
func (ca *ChiAdapter) Stop(ctx context.Context) error {
	if ca.server == nil {
		return nil
	}
	return ca.server.Shutdown(ctx)
}

// Name identifies the engine in diagnostics.
func (ca *ChiAdapter) Name() string {
	return "chi"
}

// chiContext implements keel.Context over the stdlib request/response pair.
type chiContext struct {
	w     http.ResponseWriter
	req   *http.Request
	state map[string]any
}

func (cc *chiContext) Context() context.Context {
	return cc.req.Context()
}

func (cc *chiContext) Method() string {
	return cc.req.Method
}

func (cc *chiContext) RoutePath() string {
	if rctx := chi.RouteContext(cc.req.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return cc.req.URL.Path
}

func (cc *chiContext) Host() string {
	return cc.req.Host
}

func (cc *chiContext) Header(key string) string {
	return cc.req.Header.Get(key)
}

func (cc *chiContext) Param(name string) string {
	return chi.URLParam(cc.req, name)
}

func (cc *chiContext) ParamNames() []string {
	rctx := chi.RouteContext(cc.req.Context())
	if rctx == nil {
		return nil
	}
	return append([]string(nil), rctx.URLParams.Keys...)
}

func (cc *chiContext) QueryParam(name string) string {
	return cc.req.URL.Query().Get(name)
}

func (cc *chiContext) QueryParams() map[string][]string {
	return cc.req.URL.Query()
}

func (cc *chiContext) Body() (map[string]any, error) {
	return decodeJSONBody(cc.req.Header.Get("Content-Type"), cc.req.Body)
}

func (cc *chiContext) Get(key string) any {
	return cc.state[key]
}

func (cc *chiContext) Set(key string, val any) {
	cc.state[key] = val
}

func (cc *chiContext) SetHeader(key, value string) {
	cc.w.Header().Set(key, value)
}

func (cc *chiContext) JSON(code int, v any) error {
	cc.w.Header().Set("Content-Type", "application/json")
	cc.w.WriteHeader(code)
	return json.NewEncoder(cc.w).Encode(v)
}

func (cc *chiContext) String(code int, s string) error {
	cc.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	cc.w.WriteHeader(code)
	_, err := cc.w.Write([]byte(s))
	return err
}

func (cc *chiContext) Blob(code int, contentType string, b []byte) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	cc.w.Header().Set("Content-Type", contentType)
	cc.w.WriteHeader(code)
	_, err := cc.w.Write(b)
	return err
}

func (cc *chiContext) NoContent(code int) error {
	cc.w.WriteHeader(code)
	return nil
}

// Continue is a no-op: keel routes register as terminal chi handlers.
func (cc *chiContext) Continue() error {
	return nil
}
