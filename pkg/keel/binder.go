package keel

import (
	"fmt"
	"net/http"
)

// Permission is one named permission attached to a route.
type Permission struct {
	Name string
}

// PermissionChecker is the optional authorization collaborator. When the
// application has one, every composed chain gains a permission stage after
// authentication; when absent, permission checking is skipped entirely.
type PermissionChecker interface {
	FindRoutePermissions(method, path string) []Permission
	CheckRoutePermissions(principals []any, method, path string) bool
}

// RouteInfo is the introspection record for one bound route.
type RouteInfo struct {
	Method      string
	Path        string
	Handler     string
	Controller  string
	Middlewares []string
	ParamTypes  map[string]string
}

var supportedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// Binder compiles every (controller, action) pair into an ordered handler
// chain and registers it with the web server. All metadata lookups happen
// here, at wiring time; a missing lookup aborts startup instead of
// surfacing on the first request.
type Binder struct {
	reg     *Registry
	inj     *Injector
	server  WebServer
	log     Logger
	parsers *ParserRegistry
	mapper  *ErrorMapper
	perms   PermissionChecker

	routes []RouteInfo
	bound  []*boundRoute
}

// NewBinder creates a binder. perms may be nil.
func NewBinder(reg *Registry, inj *Injector, server WebServer, parsers *ParserRegistry, log Logger, perms PermissionChecker) *Binder {
	return &Binder{
		reg:     reg,
		inj:     inj,
		server:  server,
		log:     log,
		parsers: parsers,
		mapper:  NewErrorMapper(log),
		perms:   perms,
	}
}

// Routes returns the introspection records for everything bound so far.
func (b *Binder) Routes() []RouteInfo {
	return append([]RouteInfo(nil), b.routes...)
}

// BindAll registers every action of every controller in the module tree.
func (b *Binder) BindAll(nodes []*ModuleNode) error {
	for _, node := range nodes {
		for _, ctrl := range node.Controllers {
			for _, action := range ctrl.Meta.Actions {
				if err := b.bindAction(ctrl, action); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// BindHealthcheck registers the fixed unauthenticated health route.
func (b *Binder) BindHealthcheck() error {
	err := b.server.RegisterRoute(http.MethodGet, "/healthcheck", func(c Context) error {
		return c.String(http.StatusOK, "OK")
	})
	if err != nil {
		return err
	}
	b.routes = append(b.routes, RouteInfo{
		Method:     http.MethodGet,
		Path:       "/healthcheck",
		Handler:    "healthcheck",
		Controller: "builtin",
	})
	return nil
}

func (b *Binder) bindAction(ctrl *ControllerNode, action *ActionMeta) error {
	if !supportedMethods[action.Method] {
		return fmt.Errorf("%w: %q on %s.%s", ErrUnsupportedMethod, action.Method, ctrl.Meta.Name, action.Name)
	}

	// An empty action route serves at exactly the controller's path.
	full := ctrl.Route
	if action.Route != "" {
		full = JoinPath(ctrl.Route, action.Route)
	}
	path := Path(full)

	paramTypes, err := path.ParamTypes()
	if err != nil {
		return fmt.Errorf("action %s.%s: %w", ctrl.Meta.Name, action.Name, err)
	}
	for name, typeName := range paramTypes {
		if !b.parsers.Has(typeName) {
			return fmt.Errorf("action %s.%s: param %q has unknown type %q",
				ctrl.Meta.Name, action.Name, name, typeName)
		}
	}

	args := b.reg.Args(ctrl.Class, action.Name)
	resolvers := b.reg.Resolvers(ctrl.Class, action.Name)
	validators := b.reg.Validators(ctrl.Class, action.Name)

	argLen := 0
	for _, a := range args {
		if a.Index >= argLen {
			argLen = a.Index + 1
		}
	}
	for _, r := range resolvers {
		if r.Index >= argLen {
			argLen = r.Index + 1
		}
	}
	for _, v := range validators {
		if v.Index >= argLen {
			argLen = v.Index + 1
		}
	}

	rt := &boundRoute{
		method:         action.Method,
		path:           full,
		handlerName:    action.Name,
		controllerName: ctrl.Meta.Name,
		controller:     ctrl.Instance,
		handler:        action.Handler,
		args:           args,
		argLen:         argLen,
		paramTypes:     paramTypes,
		parsers:        b.parsers,
		log:            b.log,
		mapper:         b.mapper,
	}

	var middlewareNames []string
	rt.stages = append(rt.stages, rt.initStage())

	for _, ref := range action.Authentication {
		st, err := b.authStage(rt, ref)
		if err != nil {
			return fmt.Errorf("action %s.%s: %w", ctrl.Meta.Name, action.Name, err)
		}
		rt.stages = append(rt.stages, st)
		middlewareNames = append(middlewareNames, "authentication:"+ref.Name)
	}

	if b.perms != nil {
		rt.stages = append(rt.stages, b.permissionStage(rt, action))
	}

	for _, rb := range resolvers {
		st, err := b.resolverStage(rt, rb)
		if err != nil {
			return fmt.Errorf("action %s.%s: %w", ctrl.Meta.Name, action.Name, err)
		}
		rt.stages = append(rt.stages, st)
		middlewareNames = append(middlewareNames, "resolver:"+rb.Name)
	}

	for _, vb := range validators {
		st, err := b.validatorStage(rt, vb)
		if err != nil {
			return fmt.Errorf("action %s.%s: %w", ctrl.Meta.Name, action.Name, err)
		}
		rt.stages = append(rt.stages, st)
		middlewareNames = append(middlewareNames, "policy:"+vb.Name)
	}

	for _, ref := range action.Before {
		st, err := b.hookStage(rt, ref, "before")
		if err != nil {
			return fmt.Errorf("action %s.%s: %w", ctrl.Meta.Name, action.Name, err)
		}
		rt.stages = append(rt.stages, st)
		middlewareNames = append(middlewareNames, "before:"+ref.Name)
	}

	rt.stages = append(rt.stages, stage{name: "action", state: StateExecuting, run: func(s *scope) error {
		res, err := rt.handler(rt.controller, s.c, s.args)
		if err != nil {
			return err
		}
		s.res = res
		return nil
	}})

	for _, ref := range action.After {
		st, err := b.hookStage(rt, ref, "after")
		if err != nil {
			return fmt.Errorf("action %s.%s: %w", ctrl.Meta.Name, action.Name, err)
		}
		rt.stages = append(rt.stages, st)
		middlewareNames = append(middlewareNames, "after:"+ref.Name)
	}

	if err := b.server.RegisterRoute(action.Method, path, rt.handle); err != nil {
		return fmt.Errorf("action %s.%s: %w", ctrl.Meta.Name, action.Name, err)
	}

	b.bound = append(b.bound, rt)
	b.routes = append(b.routes, RouteInfo{
		Method:      action.Method,
		Path:        full,
		Handler:     action.Name,
		Controller:  ctrl.Meta.Name,
		Middlewares: middlewareNames,
		ParamTypes:  paramTypes,
	})
	b.log.Debug("bound %s %s -> %s.%s (%d stages)",
		action.Method, full, ctrl.Meta.Name, action.Name, len(rt.stages))
	return nil
}

// lookup resolves a middleware reference to its definition and service
// instance. Failures here are configuration errors.
func (b *Binder) lookup(ref MiddlewareRef, category Category) (*MiddlewareDef, any, error) {
	def, err := b.reg.Middleware(ref.Service, category, ref.Name)
	if err != nil {
		return nil, nil, err
	}
	svc, err := b.inj.Resolve(ref.Service)
	if err != nil {
		return nil, nil, err
	}
	return def, svc, nil
}

func (b *Binder) authStage(rt *boundRoute, ref MiddlewareRef) (stage, error) {
	def, svc, err := b.lookup(ref, CategoryAuthentication)
	if err != nil {
		return stage{}, err
	}
	rt.mwArgs = append(rt.mwArgs, def.Args...)
	name := ref.Name
	return stage{name: "authentication:" + name, state: StateAuthenticating, run: func(s *scope) error {
		args, err := rt.extract(s, def.Args, nil)
		if err != nil {
			return err
		}
		principal, err := def.Auth(svc, s.c, args)
		if err != nil {
			return err
		}
		if principal == nil || principal == false {
			return AuthenticationError(fmt.Sprintf("authentication %q failed", name))
		}
		s.state[name] = principal
		return nil
	}}, nil
}

// permissionStage consults the permission checker with every principal the
// authentication stages stored, in declaration order.
func (b *Binder) permissionStage(rt *boundRoute, action *ActionMeta) stage {
	checker := b.perms
	return stage{name: "authorize", state: StateAuthenticating, run: func(s *scope) error {
		principals := make([]any, 0, len(action.Authentication))
		for _, ref := range action.Authentication {
			if p, ok := s.state[ref.Name]; ok {
				principals = append(principals, p)
			}
		}
		if !checker.CheckRoutePermissions(principals, rt.method, rt.path) {
			return AuthorizationError("insufficient permissions")
		}
		return nil
	}}
}

func (b *Binder) resolverStage(rt *boundRoute, rb ResolverBinding) (stage, error) {
	def, svc, err := b.lookup(MiddlewareRef{Service: rb.Service, Name: rb.Name}, CategoryResolver)
	if err != nil {
		return stage{}, err
	}
	rt.mwArgs = append(rt.mwArgs, def.Args...)
	return stage{name: "resolver:" + rb.Name, state: StateResolving, run: func(s *scope) error {
		args, err := rt.extract(s, def.Args, nil)
		if err != nil {
			return err
		}
		out, err := def.Resolve(svc, s.c, s.args[rb.Index], args)
		if err != nil {
			return err
		}
		if out == nil && rb.Required {
			return ParameterError(fmt.Sprintf("resolver %q produced no value for required argument %d",
				rb.Name, rb.Index))
		}
		s.args[rb.Index] = out
		return nil
	}}, nil
}

func (b *Binder) validatorStage(rt *boundRoute, vb ValidatorBinding) (stage, error) {
	def, svc, err := b.lookup(MiddlewareRef{Service: vb.Service, Name: vb.Name}, CategoryPolicy)
	if err != nil {
		return stage{}, err
	}
	rt.mwArgs = append(rt.mwArgs, def.Args...)
	return stage{name: "policy:" + vb.Name, state: StateValidating, run: func(s *scope) error {
		args, err := rt.extract(s, def.Args, nil)
		if err != nil {
			return err
		}
		ok, err := def.Policy(svc, s.c, s.args[vb.Index], args)
		if err != nil {
			return err
		}
		if !ok {
			return AuthorizationError(fmt.Sprintf("policy %q rejected the request", vb.Name))
		}
		return nil
	}}, nil
}

func (b *Binder) hookStage(rt *boundRoute, ref MiddlewareRef, phase string) (stage, error) {
	def, svc, err := b.lookup(ref, CategoryGeneric)
	if err != nil {
		return stage{}, err
	}
	rt.mwArgs = append(rt.mwArgs, def.Args...)
	state := StateExecuting
	return stage{name: phase + ":" + ref.Name, state: state, run: func(s *scope) error {
		args, err := rt.extract(s, def.Args, nil)
		if err != nil {
			return err
		}
		return def.Hook(svc, s.c, args)
	}}, nil
}
