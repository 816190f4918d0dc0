package keel

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// State is the request pipeline's position. FAILED is reachable from any
// state; the pipeline never continues past it.
type State int

const (
	StateInitializing State = iota
	StateAuthenticating
	StateResolving
	StateValidating
	StateExecuting
	StateResponding
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAuthenticating:
		return "authenticating"
	case StateResolving:
		return "resolving"
	case StateValidating:
		return "validating"
	case StateExecuting:
		return "executing"
	case StateResponding:
		return "responding"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RequestIDKey is the scratch-state key under which the context
// initializer stores the generated request ID.
const RequestIDKey = "request_id"

// scope is the per-request scratch: the authentication results and resolved
// resources map, and the fixed-size positional argument array.
type scope struct {
	c     Context
	state map[string]any
	args  []any
	res   *Result
	st    State

	body       map[string]any
	bodyErr    error
	bodyLoaded bool
}

// loadBody parses the request body once and caches the decoded map for the
// rest of the chain. Engines read the body from a one-shot stream, so a
// second Context.Body() call in a later stage would see it drained.
func (s *scope) loadBody() (map[string]any, error) {
	if !s.bodyLoaded {
		s.bodyLoaded = true
		m, err := s.c.Body()
		if err != nil {
			s.bodyErr = ParameterError("malformed request body")
		}
		s.body = m
	}
	return s.body, s.bodyErr
}

// stage is one named link of a composed route chain.
type stage struct {
	name  string
	state State
	run   func(s *scope) error
}

// boundRoute is the compiled form of one (controller, action) pair: the
// ordered middleware chain plus everything argument extraction needs.
type boundRoute struct {
	method         string
	path           string
	handlerName    string
	controllerName string

	controller any
	handler    ActionFunc

	args       []ArgBinding
	mwArgs     []ArgBinding
	argLen     int
	paramTypes map[string]string
	parsers    *ParserRegistry

	stages []stage

	log    Logger
	mapper *ErrorMapper
}

// handle runs the chain for one request. Stages execute strictly in order;
// any error transitions to FAILED and is handed to the error mapper, which
// terminates the response with the mapped status.
func (rt *boundRoute) handle(c Context) error {
	s := &scope{
		c:     c,
		state: make(map[string]any),
		args:  make([]any, rt.argLen),
		st:    StateInitializing,
	}
	s.state[RequestIDKey] = uuid.NewString()

	for _, st := range rt.stages {
		s.st = st.state
		rt.log.Trace("route %s %s: stage %s", rt.method, rt.path, st.name)
		if err := st.run(s); err != nil {
			s.st = StateFailed
			return rt.mapper.Write(c, rt.handlerName, rt.method, rt.path, err)
		}
	}

	s.st = StateResponding
	if err := rt.respond(s); err != nil {
		s.st = StateFailed
		return rt.mapper.Write(c, rt.handlerName, rt.method, rt.path, err)
	}
	return nil
}

// initStage extracts the action's declared arguments and reports request
// keys no binding consumes.
func (rt *boundRoute) initStage() stage {
	return stage{name: "init", state: StateInitializing, run: func(s *scope) error {
		args, err := rt.extract(s, rt.args, s.args)
		if err != nil {
			return err
		}
		copy(s.args, args)
		rt.reportUnhandled(s)
		return nil
	}}
}

// extract pulls each declared binding from its request facet into a
// positional slice. into sizes the result when it is already allocated.
func (rt *boundRoute) extract(s *scope, bindings []ArgBinding, into []any) ([]any, error) {
	size := len(into)
	for _, b := range bindings {
		if b.Index >= size {
			size = b.Index + 1
		}
	}
	args := make([]any, size)
	copy(args, into)

	for _, b := range bindings {
		var (
			val     any
			present bool
		)
		switch b.Source {
		case SourceContext, SourceRequest, SourceResponse:
			val, present = s.c, true
		case SourceState:
			val, present = s.state, true
		case SourceMethod:
			val, present = s.c.Method(), true
		case SourceRoute:
			val, present = rt.path, true
		case SourceHost:
			val, present = s.c.Host(), true
		case SourceHostname:
			host := s.c.Host()
			if i := strings.IndexByte(host, ':'); i >= 0 {
				host = host[:i]
			}
			val, present = host, true
		case SourceHeader:
			h := s.c.Header(strings.ToLower(b.Name))
			val, present = h, h != ""
		case SourceParam:
			raw := s.c.Param(b.Name)
			if raw == "" {
				break
			}
			parsed, err := rt.parseParam(s.c, b.Name, raw)
			if err != nil {
				return nil, err
			}
			val, present = parsed, true
		case SourceQuery:
			q := s.c.QueryParam(b.Name)
			val, present = q, q != ""
		case SourceBody:
			m, err := s.loadBody()
			if err != nil {
				return nil, err
			}
			if b.Name == "" {
				val, present = m, m != nil
				break
			}
			v, ok := m[b.Name]
			val, present = v, ok
		}

		if !present {
			if b.Required {
				return nil, ParameterError(fmt.Sprintf("required %s %q is missing", b.Source, b.Name))
			}
			continue
		}
		args[b.Index] = val
	}
	return args, nil
}

// parseParam converts a raw path parameter through the parser declared in
// the route path. Untyped parameters pass through as strings.
func (rt *boundRoute) parseParam(c Context, name, raw string) (any, error) {
	typeName, ok := rt.paramTypes[name]
	if !ok || typeName == "string" {
		return raw, nil
	}
	parser, ok := rt.parsers.Get(typeName)
	if !ok {
		return nil, InternalError(fmt.Sprintf("no parser for param type %q", typeName))
	}
	v, err := parser(c, raw)
	if err != nil {
		return nil, ParameterError(fmt.Sprintf("param %q is not a valid %s", name, typeName))
	}
	return v, nil
}

// reportUnhandled warns about incoming params, query, and body keys no
// binding reads, counting middleware bindings as consumers too. Diagnostic
// only; never fails the request.
func (rt *boundRoute) reportUnhandled(s *scope) {
	declared := make(map[ArgSource]map[string]bool)
	for _, b := range append(append([]ArgBinding(nil), rt.args...), rt.mwArgs...) {
		if declared[b.Source] == nil {
			declared[b.Source] = make(map[string]bool)
		}
		declared[b.Source][b.Name] = true
	}

	var unhandled []string
	for _, name := range s.c.ParamNames() {
		if !declared[SourceParam][name] {
			unhandled = append(unhandled, "param:"+name)
		}
	}
	for name := range s.c.QueryParams() {
		if !declared[SourceQuery][name] {
			unhandled = append(unhandled, "query:"+name)
		}
	}
	// A whole-body binding consumes every key.
	if !declared[SourceBody][""] {
		if body, err := s.loadBody(); err == nil {
			for name := range body {
				if !declared[SourceBody][name] {
					unhandled = append(unhandled, "body:"+name)
				}
			}
		}
	}
	if len(unhandled) > 0 {
		rt.log.Warn("route %s %s: unhandled request keys: %s",
			rt.method, rt.path, strings.Join(unhandled, ", "))
	}
}

// respond maps the handler result onto the response. Redirect statuses set
// a Location header instead of a body.
func (rt *boundRoute) respond(s *scope) error {
	res := s.res
	if res == nil {
		return InternalError(fmt.Sprintf("handler %s returned no result", rt.handlerName))
	}

	for k, v := range res.Headers {
		s.c.SetHeader(k, v)
	}

	if res.Status >= 300 && res.Status < 400 {
		if loc, ok := res.Data.(string); ok {
			s.c.SetHeader("Location", loc)
		}
		if err := s.c.NoContent(res.Status); err != nil {
			return err
		}
	} else {
		var err error
		switch res.Kind {
		case KindJSON:
			err = s.c.JSON(res.Status, res.Data)
		case KindText:
			err = s.c.String(res.Status, fmt.Sprint(res.Data))
		case KindRaw:
			data, _ := res.Data.([]byte)
			err = s.c.Blob(res.Status, res.Headers["Content-Type"], data)
		default:
			err = s.c.NoContent(res.Status)
		}
		if err != nil {
			return err
		}
	}

	if res.ContinueChain {
		return s.c.Continue()
	}
	return nil
}
