package keel

import "fmt"

// Class is the identity of a declared module, service, controller, or
// provider stub. Registry entries are keyed by the *Class pointer, so two
// classes with the same name are still distinct. Declare each class exactly
// once, as a package-level variable, next to the type it describes.
//
// The constructor receives its dependencies as a positional slice, already
// resolved by the injector in the order the Deps were declared. There is no
// runtime reflection: the dependency list is part of the declaration.
//
// Example:
//
//	var UserServiceClass = keel.NewClass("UserService",
//	    func(args []any) any {
//	        return &UserService{DB: args[0].(*DatabaseService)}
//	    },
//	    keel.UseClass(DatabaseServiceClass),
//	)
type Class struct {
	name string
	deps []Dep
	ctor func(args []any) any
}

// NewClass declares a class with its constructor and dependency bindings.
// The deps are resolved in order and passed to ctor as a slice.
func NewClass(name string, ctor func(args []any) any, deps ...Dep) *Class {
	return &Class{name: name, ctor: ctor, deps: deps}
}

// Name returns the declared class name, used in diagnostics.
func (c *Class) Name() string {
	return c.name
}

// Deps returns the declared constructor parameter bindings.
func (c *Class) Deps() []Dep {
	return c.deps
}

// Token identifies a provider registration distinct from the providing
// service's class. Tokens are compared by pointer identity.
type Token struct {
	name string
}

// NewToken creates a new provider token with the given diagnostic name.
func NewToken(name string) *Token {
	return &Token{name: name}
}

// Name returns the token's diagnostic name.
func (t *Token) Name() string {
	return t.name
}

// ResourceKind marks a constructor parameter that is satisfied by a
// runtime resource supplied by the application rather than by another
// service class.
type ResourceKind int

const (
	// ResourceServer injects the underlying web server handle.
	ResourceServer ResourceKind = iota

	// ResourceLogger injects the application logger.
	ResourceLogger
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceServer:
		return "server"
	case ResourceLogger:
		return "logger"
	default:
		return fmt.Sprintf("resource(%d)", int(k))
	}
}

// Dep describes one constructor parameter binding.
type Dep struct {
	class    *Class
	token    *Token
	resource ResourceKind
	value    any
	kind     depKind
}

type depKind int

const (
	depClass depKind = iota
	depToken
	depResource
	depValue
)

// UseClass binds a constructor parameter to another service class,
// resolved recursively as a singleton.
func UseClass(c *Class) Dep {
	return Dep{kind: depClass, class: c}
}

// UseToken binds a constructor parameter to a provider token.
func UseToken(t *Token) Dep {
	return Dep{kind: depToken, token: t}
}

// UseResource binds a constructor parameter to a runtime resource.
func UseResource(k ResourceKind) Dep {
	return Dep{kind: depResource, resource: k}
}

// UseValue binds a constructor parameter to an externally supplied value.
func UseValue(v any) Dep {
	return Dep{kind: depValue, value: v}
}

func (d Dep) describe() string {
	switch d.kind {
	case depClass:
		return "class " + d.class.Name()
	case depToken:
		return "token " + d.token.Name()
	case depResource:
		return "resource " + d.resource.String()
	default:
		return "value"
	}
}
