package keel

import (
	"fmt"
	"strings"
)

// Injector lazily instantiates services and resolves constructor graphs.
// Every service class yields exactly one instance per application; repeat
// resolutions return the cached instance. Resolution runs single-threaded
// during bootstrap, before request serving begins, so no locking is needed;
// after wiring the caches are only read.
type Injector struct {
	log Logger

	instances map[*Class]any
	providers map[*Token]any
	resources map[ResourceKind]any

	// resolving is the in-progress resolution stack, used to fail fast on
	// constructor cycles with a diagnostic naming the cycle.
	resolving []*Class
}

// NewInjector creates an empty injector.
func NewInjector(log Logger) *Injector {
	return &Injector{
		log:       log,
		instances: make(map[*Class]any),
		providers: make(map[*Token]any),
		resources: make(map[ResourceKind]any),
	}
}

// SupplyResource makes a runtime resource available to constructors that
// declared a UseResource binding.
func (in *Injector) SupplyResource(kind ResourceKind, v any) {
	in.resources[kind] = v
}

// Register stores an externally constructed instance for a class.
func (in *Injector) Register(class *Class, instance any) error {
	if _, ok := in.instances[class]; ok {
		return fmt.Errorf("%w: instance for %s", ErrDuplicateRegistration, class.Name())
	}
	in.instances[class] = instance
	return nil
}

// RegisterProvider resolves the providing service class and exposes its
// instance under the token.
func (in *Injector) RegisterProvider(token *Token, class *Class) error {
	if _, ok := in.providers[token]; ok {
		return fmt.Errorf("%w: provider token %s", ErrDuplicateRegistration, token.Name())
	}
	instance, err := in.Resolve(class)
	if err != nil {
		return err
	}
	in.providers[token] = instance
	return nil
}

// Provider returns the instance registered under a token.
func (in *Injector) Provider(token *Token) (any, error) {
	instance, ok := in.providers[token]
	if !ok {
		return nil, fmt.Errorf("%w: no provider for token %s", ErrUnresolvableDependency, token.Name())
	}
	return instance, nil
}

// Has reports whether an instance already exists for a class.
func (in *Injector) Has(class *Class) bool {
	_, ok := in.instances[class]
	return ok
}

// Resolve returns the singleton instance for a class, constructing it on
// first use. Constructor parameters resolve, in declaration order, to a
// provider token, a runtime resource, an externally supplied value, or
// recursively to another service class.
func (in *Injector) Resolve(class *Class) (any, error) {
	if instance, ok := in.instances[class]; ok {
		return instance, nil
	}

	for _, active := range in.resolving {
		if active == class {
			return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, in.cyclePath(class))
		}
	}
	in.resolving = append(in.resolving, class)
	defer func() {
		in.resolving = in.resolving[:len(in.resolving)-1]
	}()

	deps := class.Deps()
	args := make([]any, len(deps))
	for i, dep := range deps {
		v, err := in.resolveDep(dep)
		if err != nil {
			return nil, fmt.Errorf("resolving parameter %d of %s (%s): %w",
				i, class.Name(), dep.describe(), err)
		}
		args[i] = v
	}

	instance := class.ctor(args)
	if instance == nil {
		return nil, fmt.Errorf("%w: constructor of %s returned nil", ErrUnresolvableDependency, class.Name())
	}
	in.instances[class] = instance
	in.log.Trace("constructed %s", class.Name())
	return instance, nil
}

func (in *Injector) resolveDep(dep Dep) (any, error) {
	switch dep.kind {
	case depToken:
		return in.Provider(dep.token)
	case depResource:
		v, ok := in.resources[dep.resource]
		if !ok {
			return nil, fmt.Errorf("%w: resource %s not supplied", ErrUnresolvableDependency, dep.resource)
		}
		return v, nil
	case depValue:
		return dep.value, nil
	case depClass:
		return in.Resolve(dep.class)
	default:
		return nil, fmt.Errorf("%w: unknown binding", ErrUnresolvableDependency)
	}
}

func (in *Injector) cyclePath(repeat *Class) string {
	var names []string
	for _, c := range in.resolving {
		names = append(names, c.Name())
	}
	names = append(names, repeat.Name())
	return strings.Join(names, " -> ")
}
