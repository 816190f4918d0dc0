package keel

import (
	"context"
	"fmt"
	"os"
)

// Options configures an application.
type Options struct {
	// Host to bind; empty binds all interfaces.
	Host string

	// Port to listen on. DefaultOptions reads PORT from the environment
	// and falls back to 8080.
	Port string

	// Server is the engine adapter. Required.
	Server WebServer

	// Logger receives all framework diagnostics. Defaults to a console
	// logger at info level.
	Logger Logger

	// Body configures the engine's body parsing limits.
	Body BodyLimits

	// Permissions is the optional authorization collaborator. When nil,
	// permission checking is skipped.
	Permissions PermissionChecker
}

// DefaultOptions returns options with the conventional defaults.
func DefaultOptions() Options {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return Options{
		Port:   port,
		Logger: NewConsoleLogger(LevelInfo),
	}
}

// App assembles a registry's declarations into a running HTTP application.
type App struct {
	opts    Options
	log     Logger
	reg     *Registry
	inj     *Injector
	parsers *ParserRegistry
	binder  *Binder

	modules []*ModuleNode
	wired   bool
}

// New creates an application over a populated registry.
func New(reg *Registry, opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = NewConsoleLogger(LevelInfo)
	}
	a := &App{
		opts:    opts,
		log:     opts.Logger,
		reg:     reg,
		inj:     NewInjector(opts.Logger),
		parsers: NewParserRegistry(),
	}
	return a
}

// Injector exposes the application's injector, mainly so tests and
// registration code can supply externally constructed instances.
func (a *App) Injector() *Injector {
	return a.inj
}

// Parsers exposes the route parameter parser registry for custom types.
func (a *App) Parsers() *ParserRegistry {
	return a.parsers
}

// Wire freezes the registry, builds the module tree rooted at the given
// module classes, and binds every route, including the healthcheck. All
// configuration errors surface here, before the server starts listening.
func (a *App) Wire(roots ...*Class) error {
	if a.wired {
		return fmt.Errorf("%w: application already wired", ErrDuplicateRegistration)
	}
	if a.opts.Server == nil {
		return fmt.Errorf("%w: no server adapter configured", ErrUnresolvableDependency)
	}

	a.reg.Freeze()
	a.inj.SupplyResource(ResourceServer, a.opts.Server)
	a.inj.SupplyResource(ResourceLogger, a.log)

	nodes, err := NewTreeBuilder(a.reg, a.inj, a.log).Build(roots)
	if err != nil {
		return err
	}
	a.modules = nodes

	a.binder = NewBinder(a.reg, a.inj, a.opts.Server, a.parsers, a.log, a.opts.Permissions)
	if err := a.binder.BindHealthcheck(); err != nil {
		return err
	}
	if err := a.binder.BindAll(nodes); err != nil {
		return err
	}

	a.wired = true
	a.log.Info("wired %d modules, %d routes on %s", len(nodes), len(a.binder.Routes()), a.opts.Server.Name())
	return nil
}

// Routes returns the introspection records for all bound routes.
func (a *App) Routes() []RouteInfo {
	if a.binder == nil {
		return nil
	}
	return a.binder.Routes()
}

// RoutesByController filters the bound routes by controller name.
func (a *App) RoutesByController(name string) []RouteInfo {
	var out []RouteInfo
	for _, r := range a.Routes() {
		if r.Controller == name {
			out = append(out, r)
		}
	}
	return out
}

// RoutesByMethod filters the bound routes by HTTP method.
func (a *App) RoutesByMethod(method string) []RouteInfo {
	var out []RouteInfo
	for _, r := range a.Routes() {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

// LogRoutes writes the bound route table through the logger.
func (a *App) LogRoutes() {
	for _, r := range a.Routes() {
		a.log.Info("%-7s %-40s %s.%s", r.Method, r.Path, r.Controller, r.Handler)
	}
}

// Listen runs migrations and init hooks, then binds the server and serves
// until Stop. A migration failure, init hook failure, or bind failure
// aborts startup and propagates.
func (a *App) Listen(ctx context.Context) error {
	if !a.wired {
		return fmt.Errorf("%w: application not wired", ErrNotRegistered)
	}

	for _, node := range a.modules {
		for _, m := range node.Migrations {
			a.log.Info("applying migration %q", m.MigrationName())
			if err := m.Apply(ctx); err != nil {
				return fmt.Errorf("migration %q: %w", m.MigrationName(), err)
			}
		}
	}

	// Init hooks run sequentially: module registration order first, then
	// each module's declared initialize order.
	for _, node := range a.modules {
		for _, entry := range node.Initialize {
			hook := entry.instance.(OnInit)
			a.log.Debug("init %s", entry.class.Name())
			if err := hook.OnInit(ctx); err != nil {
				return fmt.Errorf("init of %s: %w", entry.class.Name(), err)
			}
		}
	}

	addr := fmt.Sprintf("%s:%s", a.opts.Host, a.opts.Port)
	a.log.Info("listening on %s", addr)
	return a.opts.Server.Start(addr)
}

// Stop runs every service's destroy hook once, in module registration
// order, then shuts the server down. A failing destroy hook aborts the
// remaining shutdown and propagates.
func (a *App) Stop(ctx context.Context) error {
	destroyed := make(map[any]bool)
	for _, node := range a.modules {
		for _, entry := range node.Services {
			hook, ok := entry.instance.(OnDestroy)
			if !ok || destroyed[entry.instance] {
				continue
			}
			destroyed[entry.instance] = true
			a.log.Debug("destroy %s", entry.class.Name())
			if err := hook.OnDestroy(ctx); err != nil {
				return fmt.Errorf("destroy of %s: %w", entry.class.Name(), err)
			}
		}
	}
	if a.opts.Server != nil {
		return a.opts.Server.Stop(ctx)
	}
	return nil
}
