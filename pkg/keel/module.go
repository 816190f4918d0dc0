package keel

import (
	"context"
	"fmt"
)

// OnInit is implemented by services that need an async startup hook. The
// hook runs once, during Listen, only for services listed in a module's
// Initialize set. A failing hook aborts startup.
type OnInit interface {
	OnInit(ctx context.Context) error
}

// OnDestroy is implemented by services that need a shutdown hook. Hooks run
// once per service during Stop, in module registration order. A failing
// hook aborts the remaining shutdown and propagates.
type OnDestroy interface {
	OnDestroy(ctx context.Context) error
}

// Migration is a startup migration declared on a module. Names must be
// unique across the whole application.
type Migration interface {
	MigrationName() string
	Apply(ctx context.Context) error
}

// ModuleNode is one instantiated module with its resolved collections.
type ModuleNode struct {
	Class    *Class
	Meta     *ModuleMeta
	Instance any

	// Route is the composed prefix: parent route plus the module's own
	// route segment when one is declared, the parent route otherwise.
	Route string

	Services    []serviceEntry
	Migrations  []Migration
	Initialize  []serviceEntry
	Controllers []*ControllerNode
}

type serviceEntry struct {
	class    *Class
	instance any
}

// ControllerNode is one instantiated controller with its concrete route.
type ControllerNode struct {
	Class    *Class
	Meta     *ControllerMeta
	Instance any
	Route    string
}

// TreeBuilder walks root modules depth-first, instantiating each module
// exactly once and populating its collections in a fixed order: providers,
// then services, then migrations, then controllers. Later steps may depend
// on earlier ones already being in the injector's cache.
type TreeBuilder struct {
	reg *Registry
	inj *Injector
	log Logger

	visited        map[*Class]bool
	migrationNames map[string]string
}

// NewTreeBuilder creates a builder over the given registry and injector.
func NewTreeBuilder(reg *Registry, inj *Injector, log Logger) *TreeBuilder {
	return &TreeBuilder{
		reg:            reg,
		inj:            inj,
		log:            log,
		visited:        make(map[*Class]bool),
		migrationNames: make(map[string]string),
	}
}

// Build instantiates the module tree rooted at the given classes. Modules
// referenced from multiple submodule lists are built at most once; the
// returned slice is in registration (depth-first, pre-order) order.
func (b *TreeBuilder) Build(roots []*Class) ([]*ModuleNode, error) {
	var nodes []*ModuleNode
	for _, root := range roots {
		built, err := b.build(root, "")
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, built...)
	}
	return nodes, nil
}

func (b *TreeBuilder) build(class *Class, parentRoute string) ([]*ModuleNode, error) {
	if b.visited[class] {
		return nil, nil
	}
	b.visited[class] = true

	meta, err := b.reg.Module(class)
	if err != nil {
		return nil, err
	}

	route := parentRoute
	if meta.Params.Route != "" {
		route = JoinPath(parentRoute, meta.Params.Route)
	}

	instance, err := b.inj.Resolve(class)
	if err != nil {
		return nil, fmt.Errorf("building module %s: %w", meta.Name, err)
	}
	node := &ModuleNode{Class: class, Meta: meta, Instance: instance, Route: route}
	b.log.Debug("module %s mounted at %q", meta.Name, route)

	nodes := []*ModuleNode{node}

	for _, p := range meta.Params.Providers {
		if err := b.inj.RegisterProvider(p.Provides, p.Service); err != nil {
			return nil, fmt.Errorf("module %s provider %s: %w", meta.Name, p.Provides.Name(), err)
		}
		instance, err := b.inj.Provider(p.Provides)
		if err != nil {
			return nil, fmt.Errorf("module %s provider %s: %w", meta.Name, p.Provides.Name(), err)
		}
		node.Services = append(node.Services, serviceEntry{class: p.Service, instance: instance})
	}

	for _, svc := range meta.Params.Services {
		if _, err := b.reg.Service(svc); err != nil {
			return nil, fmt.Errorf("module %s: %w", meta.Name, err)
		}
		instance, err := b.inj.Resolve(svc)
		if err != nil {
			return nil, fmt.Errorf("module %s service %s: %w", meta.Name, svc.Name(), err)
		}
		node.Services = append(node.Services, serviceEntry{class: svc, instance: instance})
	}

	// Submodules build after this module's own providers and services so a
	// child can depend on anything the parent already put in the cache.
	for _, sub := range meta.Params.Modules {
		built, err := b.build(sub, route)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, built...)
	}

	for _, mig := range meta.Params.Migrations {
		instance, err := b.inj.Resolve(mig)
		if err != nil {
			return nil, fmt.Errorf("module %s migration %s: %w", meta.Name, mig.Name(), err)
		}
		m, ok := instance.(Migration)
		if !ok {
			return nil, fmt.Errorf("module %s: %s does not implement Migration", meta.Name, mig.Name())
		}
		if owner, dup := b.migrationNames[m.MigrationName()]; dup {
			return nil, fmt.Errorf("%w: %q declared by both %s and %s",
				ErrDuplicateMigration, m.MigrationName(), owner, meta.Name)
		}
		b.migrationNames[m.MigrationName()] = meta.Name
		node.Migrations = append(node.Migrations, m)
	}

	for _, init := range meta.Params.Initialize {
		instance, err := b.inj.Resolve(init)
		if err != nil {
			return nil, fmt.Errorf("module %s initialize %s: %w", meta.Name, init.Name(), err)
		}
		if _, ok := instance.(OnInit); !ok {
			return nil, fmt.Errorf("module %s: %s listed in Initialize but has no OnInit hook",
				meta.Name, init.Name())
		}
		node.Initialize = append(node.Initialize, serviceEntry{class: init, instance: instance})
	}

	for _, ctrl := range meta.Params.Controllers {
		ctrlMeta, err := b.reg.Controller(ctrl)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", meta.Name, err)
		}
		instance, err := b.inj.Resolve(ctrl)
		if err != nil {
			return nil, fmt.Errorf("module %s controller %s: %w", meta.Name, ctrl.Name(), err)
		}
		node.Controllers = append(node.Controllers, &ControllerNode{
			Class:    ctrl,
			Meta:     ctrlMeta,
			Instance: instance,
			Route:    JoinPath(route, ctrlMeta.Route),
		})
	}

	return nodes, nil
}
