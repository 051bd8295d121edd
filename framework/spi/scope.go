package spi

import (
	"fmt"
	"reflect"
)

// ScopeAnnotation is implemented by marker types that name a scope.
// The marker's reflect.Type is the scope's identity; NormalScope tells
// normal scopes (contextual references, proxyable) from pseudo-scopes.
//
//	type SessionScoped struct{}
//	func (SessionScoped) NormalScope() bool { return true }
type ScopeAnnotation interface {
	NormalScope() bool
}

// AlterableContext is the runtime object backing a scope. The build only
// records which implementation type backs which scope; how instances are
// stored is up to the implementation.
//
// Implementations must be exported, named struct types whose pointer
// implements this interface, so the container can build them with no
// arguments.
type AlterableContext interface {
	// Scope returns the reflect.Type of the scope marker this context serves.
	Scope() reflect.Type
	// IsActive reports whether the context can currently hand out instances.
	IsActive() bool
	// Get returns the instance stored under name, calling create when absent.
	Get(name string, create func() (any, error)) (any, error)
	// Destroy drops the instance stored under name.
	Destroy(name string)
}

// Built-in scope markers.
type (
	// Singleton is a pseudo-scope: one shared instance, no client proxy.
	Singleton struct{}
	// Dependent is the default pseudo-scope: a new instance per injection point.
	Dependent struct{}
	// ApplicationScoped is a normal scope shared by the whole application.
	ApplicationScoped struct{}
	// RequestScoped is a normal scope bound to a single request.
	RequestScoped struct{}
	// SessionScoped is a normal scope bound to a user session.
	SessionScoped struct{}
)

func (Singleton) NormalScope() bool         { return false }
func (Dependent) NormalScope() bool         { return false }
func (ApplicationScoped) NormalScope() bool { return true }
func (RequestScoped) NormalScope() bool     { return true }
func (SessionScoped) NormalScope() bool     { return true }

var (
	scopeAnnotationType  = reflect.TypeFor[ScopeAnnotation]()
	alterableContextType = reflect.TypeFor[AlterableContext]()
)

// TypeOf returns the reflect.Type of T. It works for interface types too.
//
//	cfg.Implementation(spi.TypeOf[MyContext]())
func TypeOf[T any]() reflect.Type { return reflect.TypeFor[T]() }

// ScopeOf returns the identity of the scope marker t: *S and S name the
// same scope, so one level of pointer is stripped.
func ScopeOf(t reflect.Type) reflect.Type { return concrete(t) }

// IsScope reports whether t (or *t) implements ScopeAnnotation. A pointer
// to a marker is accepted and stands for the marker itself.
func IsScope(t reflect.Type) bool {
	t = ScopeOf(t)
	if t == nil || t.Kind() == reflect.Interface || t.Kind() == reflect.Pointer {
		return false
	}
	return t.Implements(scopeAnnotationType) || reflect.PointerTo(t).Implements(scopeAnnotationType)
}

// IsNormalScope reports whether the scope marker t declares a normal scope.
// It returns an error if t is not a scope marker or its NormalScope panics.
func IsNormalScope(t reflect.Type) (normal bool, err error) {
	if !IsScope(t) {
		return false, fmt.Errorf("spi: %v is not a scope annotation", t)
	}
	t = ScopeOf(t)
	defer func() {
		if r := recover(); r != nil {
			normal, err = false, fmt.Errorf("spi: %v.NormalScope panicked: %v", t, r)
		}
	}()
	v := reflect.New(t)
	if t.Implements(scopeAnnotationType) {
		return v.Elem().Interface().(ScopeAnnotation).NormalScope(), nil
	}
	return v.Interface().(ScopeAnnotation).NormalScope(), nil
}

// ScopeName renders a scope marker as "pkg.Name" for logs and reports.
func ScopeName(t reflect.Type) string {
	if t == nil {
		return "<none>"
	}
	return t.String()
}
