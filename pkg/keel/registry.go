package keel

import "fmt"

// Registry accumulates declarative metadata for classes before the
// application is constructed. It is the explicit equivalent of decorator
// side effects: registration code calls Define* at program start, the
// module tree builder and route binder query it afterwards.
//
// The registry is owned by the application bootstrap; it is never ambient
// global state. Once Freeze is called (at the start of wiring) every
// Define* call fails, and the registry is safe for concurrent reads.
type Registry struct {
	modules     map[*Class]*ModuleMeta
	services    map[*Class]*ServiceMeta
	controllers map[*Class]*ControllerMeta

	// Parameter-level bindings, keyed by (class, member name).
	args       map[*Class]map[string][]ArgBinding
	resolvers  map[*Class]map[string][]ResolverBinding
	validators map[*Class]map[string][]ValidatorBinding

	frozen bool
}

// NewRegistry creates an empty metadata registry.
func NewRegistry() *Registry {
	return &Registry{
		modules:     make(map[*Class]*ModuleMeta),
		services:    make(map[*Class]*ServiceMeta),
		controllers: make(map[*Class]*ControllerMeta),
		args:        make(map[*Class]map[string][]ArgBinding),
		resolvers:   make(map[*Class]map[string][]ResolverBinding),
		validators:  make(map[*Class]map[string][]ValidatorBinding),
	}
}

// Freeze makes the registry read-only. Wiring calls this before it starts
// reading metadata.
func (r *Registry) Freeze() {
	r.frozen = true
}

func (r *Registry) guard() error {
	if r.frozen {
		return ErrRegistryFrozen
	}
	return nil
}

// DefineModule attaches module parameters to a class.
func (r *Registry) DefineModule(class *Class, params ModuleParams) error {
	if err := r.guard(); err != nil {
		return err
	}
	if _, ok := r.modules[class]; ok {
		return fmt.Errorf("%w: module %s", ErrDuplicateRegistration, class.Name())
	}
	r.modules[class] = &ModuleMeta{Name: class.Name(), Params: params}
	return nil
}

// DefineService marks a class as a service.
func (r *Registry) DefineService(class *Class) error {
	if err := r.guard(); err != nil {
		return err
	}
	if _, ok := r.services[class]; !ok {
		r.services[class] = &ServiceMeta{Name: class.Name()}
	}
	return nil
}

// DefineMiddleware attaches a named middleware to a service class. The name
// must be unique within the (service, category) pair. The service marker is
// created implicitly if missing.
func (r *Registry) DefineMiddleware(class *Class, def *MiddlewareDef) error {
	if err := r.guard(); err != nil {
		return err
	}
	if def == nil || def.Name == "" {
		return fmt.Errorf("middleware on %s must have a name", class.Name())
	}
	if err := r.DefineService(class); err != nil {
		return err
	}
	meta := r.services[class]
	for _, existing := range meta.Middlewares {
		if existing.Category == def.Category && existing.Name == def.Name {
			return fmt.Errorf("%w: %s %q on service %s",
				ErrDuplicateMiddleware, def.Category, def.Name, class.Name())
		}
	}
	meta.Middlewares = append(meta.Middlewares, def)
	return nil
}

// DefineController attaches a route prefix to a controller class.
func (r *Registry) DefineController(class *Class, route string) error {
	if err := r.guard(); err != nil {
		return err
	}
	if _, ok := r.controllers[class]; ok {
		return fmt.Errorf("%w: controller %s", ErrDuplicateRegistration, class.Name())
	}
	r.controllers[class] = &ControllerMeta{Name: class.Name(), Route: route}
	return nil
}

// DefineAction attaches an action to a controller class. Method-level
// declarations accumulate in natural order. The controller must already be
// defined.
func (r *Registry) DefineAction(class *Class, action *ActionMeta) error {
	if err := r.guard(); err != nil {
		return err
	}
	meta, ok := r.controllers[class]
	if !ok {
		return fmt.Errorf("%w: controller %s", ErrNotRegistered, class.Name())
	}
	for _, existing := range meta.Actions {
		if existing.Name == action.Name {
			return fmt.Errorf("%w: action %s.%s", ErrDuplicateRegistration, class.Name(), action.Name)
		}
	}
	meta.Actions = append(meta.Actions, action)
	return nil
}

// defineArg inserts a single argument binding at the FRONT of the member's
// list. Parameter decorators evaluate right-to-left in the source language,
// so front insertion makes the final list read in declaration order.
func (r *Registry) defineArg(class *Class, member string, b ArgBinding) {
	if r.args[class] == nil {
		r.args[class] = make(map[string][]ArgBinding)
	}
	r.args[class][member] = append([]ArgBinding{b}, r.args[class][member]...)
}

// DefineArgs declares the argument bindings for a handler in source order.
// It applies them the way a decorator engine would evaluate parameter
// decorators, right to left, which the front-inserting low-level store
// compensates back into declaration order.
func (r *Registry) DefineArgs(class *Class, member string, bindings ...ArgBinding) error {
	if err := r.guard(); err != nil {
		return err
	}
	for i := len(bindings) - 1; i >= 0; i-- {
		r.defineArg(class, member, bindings[i])
	}
	return nil
}

func (r *Registry) defineResolver(class *Class, member string, b ResolverBinding) {
	if r.resolvers[class] == nil {
		r.resolvers[class] = make(map[string][]ResolverBinding)
	}
	r.resolvers[class][member] = append([]ResolverBinding{b}, r.resolvers[class][member]...)
}

// DefineResolvers declares resolver bindings for a handler in source order.
func (r *Registry) DefineResolvers(class *Class, member string, bindings ...ResolverBinding) error {
	if err := r.guard(); err != nil {
		return err
	}
	for i := len(bindings) - 1; i >= 0; i-- {
		r.defineResolver(class, member, bindings[i])
	}
	return nil
}

func (r *Registry) defineValidator(class *Class, member string, b ValidatorBinding) {
	if r.validators[class] == nil {
		r.validators[class] = make(map[string][]ValidatorBinding)
	}
	r.validators[class][member] = append([]ValidatorBinding{b}, r.validators[class][member]...)
}

// DefineValidators declares validator bindings for a handler in source order.
func (r *Registry) DefineValidators(class *Class, member string, bindings ...ValidatorBinding) error {
	if err := r.guard(); err != nil {
		return err
	}
	for i := len(bindings) - 1; i >= 0; i-- {
		r.defineValidator(class, member, bindings[i])
	}
	return nil
}

// Module returns the module metadata for a class. Missing metadata is a
// configuration error.
func (r *Registry) Module(class *Class) (*ModuleMeta, error) {
	meta, ok := r.modules[class]
	if !ok {
		return nil, fmt.Errorf("%w: module %s", ErrNotRegistered, class.Name())
	}
	return meta, nil
}

// Service returns the service metadata for a class.
func (r *Registry) Service(class *Class) (*ServiceMeta, error) {
	meta, ok := r.services[class]
	if !ok {
		return nil, fmt.Errorf("%w: service %s", ErrNotRegistered, class.Name())
	}
	return meta, nil
}

// Controller returns the controller metadata for a class.
func (r *Registry) Controller(class *Class) (*ControllerMeta, error) {
	meta, ok := r.controllers[class]
	if !ok {
		return nil, fmt.Errorf("%w: controller %s", ErrNotRegistered, class.Name())
	}
	return meta, nil
}

// Middleware looks a middleware up by (service class, category, name). A
// missing entry is fatal at wiring time, never deferred to request time.
func (r *Registry) Middleware(class *Class, category Category, name string) (*MiddlewareDef, error) {
	meta, err := r.Service(class)
	if err != nil {
		return nil, err
	}
	for _, def := range meta.Middlewares {
		if def.Category == category && def.Name == name {
			return def, nil
		}
	}
	return nil, fmt.Errorf("%w: %s %q on service %s", ErrUnknownMiddleware, category, name, class.Name())
}

// Args returns the argument bindings for a handler, in declaration order.
// Handlers without bindings get an empty list, not an error.
func (r *Registry) Args(class *Class, member string) []ArgBinding {
	return r.args[class][member]
}

// Resolvers returns the resolver bindings for a handler, in declaration order.
func (r *Registry) Resolvers(class *Class, member string) []ResolverBinding {
	return r.resolvers[class][member]
}

// Validators returns the validator bindings for a handler, in declaration order.
func (r *Registry) Validators(class *Class, member string) []ValidatorBinding {
	return r.validators[class][member]
}
