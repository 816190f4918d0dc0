package keel

// Category classifies a service middleware by the pipeline stage it runs in.
type Category int

const (
	// CategoryAuthentication middlewares establish a principal and store it
	// in the request state under the middleware's declared name.
	CategoryAuthentication Category = iota

	// CategoryResolver middlewares transform a bound argument value, for
	// example loading an entity from its identifier.
	CategoryResolver

	// CategoryPolicy middlewares gate continuation with a boolean decision
	// over a bound argument value.
	CategoryPolicy

	// CategoryGeneric middlewares are before/after hooks with no bound value.
	CategoryGeneric
)

func (c Category) String() string {
	switch c {
	case CategoryAuthentication:
		return "authentication"
	case CategoryResolver:
		return "resolver"
	case CategoryPolicy:
		return "policy"
	case CategoryGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// ArgSource identifies the request facet an argument binding reads from.
type ArgSource int

const (
	SourceContext ArgSource = iota
	SourceState
	SourceHost
	SourceHostname
	SourceHeader
	SourceMethod
	SourceRoute
	SourceBody
	SourceParam
	SourceQuery
	SourceRequest
	SourceResponse
)

func (s ArgSource) String() string {
	switch s {
	case SourceContext:
		return "context"
	case SourceState:
		return "state"
	case SourceHost:
		return "host"
	case SourceHostname:
		return "hostname"
	case SourceHeader:
		return "header"
	case SourceMethod:
		return "method"
	case SourceRoute:
		return "route"
	case SourceBody:
		return "body"
	case SourceParam:
		return "param"
	case SourceQuery:
		return "query"
	case SourceRequest:
		return "request"
	case SourceResponse:
		return "response"
	default:
		return "unknown"
	}
}

// ArgBinding maps one positional slot of a handler's argument array to a
// request facet. Index addresses a position in the eventual call slice;
// positions are not required to be contiguous, and unaddressed positions
// stay nil.
type ArgBinding struct {
	Source   ArgSource
	Index    int
	Name     string
	Required bool
}

// ResolverBinding attaches a named resolver middleware to the argument at
// Index. The resolver receives the current value at that index and its
// return value overwrites the slot.
type ResolverBinding struct {
	Service  *Class
	Name     string
	Index    int
	Required bool
}

// ValidatorBinding attaches a named policy middleware to the argument at
// Index. A false result fails the request with an authorization error.
type ValidatorBinding struct {
	Service *Class
	Name    string
	Index   int
}

// MiddlewareRef names a middleware by the service class that declares it.
// The route binder looks the pair up in the registry at wiring time.
type MiddlewareRef struct {
	Service *Class
	Name    string
}

// Handler signatures. The first argument is always the resolved instance of
// the declaring class; registration code asserts it to the concrete type.

// AuthFunc establishes a principal for one authentication scheme. The
// returned value is stored in the request state under the middleware name.
// Returning nil without an error fails authentication.
type AuthFunc func(svc any, c Context, args []any) (any, error)

// ResolveFunc transforms the bound argument value.
type ResolveFunc func(svc any, c Context, value any, args []any) (any, error)

// PolicyFunc decides whether the request may continue.
type PolicyFunc func(svc any, c Context, value any, args []any) (bool, error)

// HookFunc is a generic before/after hook.
type HookFunc func(svc any, c Context, args []any) error

// ActionFunc invokes a controller action with its populated argument array.
type ActionFunc func(recv any, c Context, args []any) (*Result, error)

// MiddlewareDef is a named middleware declared by a service. Exactly one of
// Auth, Resolve, Policy, or Hook is set, matching Category. Middlewares can
// declare their own argument bindings, extracted per request just like
// action arguments.
type MiddlewareDef struct {
	Category Category
	Name     string

	Auth    AuthFunc
	Resolve ResolveFunc
	Policy  PolicyFunc
	Hook    HookFunc

	Args []ArgBinding
}

// Provider registers a service class under an additional lookup token.
type Provider struct {
	Provides *Token
	Service  *Class
}

// ModuleParams is the configuration object attached to a module class.
type ModuleParams struct {
	// Route is this module's path segment prefix. When empty the parent
	// module's route is inherited unchanged.
	Route string

	Modules     []*Class
	Services    []*Class
	Providers   []Provider
	Initialize  []*Class
	Migrations  []*Class
	Controllers []*Class
}

// ModuleMeta is the registry entry for a module class.
type ModuleMeta struct {
	Name   string
	Params ModuleParams
}

// ServiceMeta is the registry entry for a service class.
type ServiceMeta struct {
	Name        string
	Middlewares []*MiddlewareDef
}

// ActionMeta is one HTTP-method-bound handler on a controller. Args,
// Resolvers, and Validators are accumulated separately in the registry,
// keyed by (controller class, action name), and merged by the route binder.
type ActionMeta struct {
	// Name is the handler method name, unique within the controller.
	Name string

	// Method is the HTTP method, validated against the supported set at
	// wiring time.
	Method string

	// Route is the action's path suffix under the controller route. When
	// empty the action serves at exactly the controller's path.
	Route string

	Handler ActionFunc

	Authentication []MiddlewareRef
	Before         []MiddlewareRef
	After          []MiddlewareRef
}

// ControllerMeta is the registry entry for a controller class.
type ControllerMeta struct {
	Name    string
	Route   string
	Actions []*ActionMeta
}
