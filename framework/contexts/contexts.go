// Package contexts holds the context implementations backing the built-in
// scopes. All of them are usable as zero values, which is what the
// container builds from a ContextDescriptor.
package contexts

import (
	"reflect"
	"sync"

	"github.com/km-arc/go-extend/framework/spi"
)

// store caches one instance per name.
type store struct {
	mu        sync.Mutex
	instances map[string]any
}

func (s *store) get(name string, create func() (any, error)) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst, ok := s.instances[name]; ok {
		return inst, nil
	}
	if create == nil {
		return nil, nil
	}
	inst, err := create()
	if err != nil {
		return nil, err
	}
	if s.instances == nil {
		s.instances = make(map[string]any)
	}
	s.instances[name] = inst
	return inst, nil
}

func (s *store) destroy(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.instances, name)
}

// ApplicationContext backs spi.ApplicationScoped: one instance per name for
// the whole application.
type ApplicationContext struct{ store }

func (*ApplicationContext) Scope() reflect.Type { return spi.TypeOf[spi.ApplicationScoped]() }
func (*ApplicationContext) IsActive() bool      { return true }
func (c *ApplicationContext) Get(name string, create func() (any, error)) (any, error) {
	return c.get(name, create)
}
func (c *ApplicationContext) Destroy(name string) { c.destroy(name) }

// SingletonContext backs spi.Singleton.
type SingletonContext struct{ store }

func (*SingletonContext) Scope() reflect.Type { return spi.TypeOf[spi.Singleton]() }
func (*SingletonContext) IsActive() bool      { return true }
func (c *SingletonContext) Get(name string, create func() (any, error)) (any, error) {
	return c.get(name, create)
}
func (c *SingletonContext) Destroy(name string) { c.destroy(name) }

// DependentContext backs spi.Dependent: every Get builds a new instance.
type DependentContext struct{}

func (*DependentContext) Scope() reflect.Type { return spi.TypeOf[spi.Dependent]() }
func (*DependentContext) IsActive() bool      { return true }
func (*DependentContext) Get(_ string, create func() (any, error)) (any, error) {
	if create == nil {
		return nil, nil
	}
	return create()
}
func (*DependentContext) Destroy(string) {}

// Builtin lists the implementation types registered by the container itself.
func Builtin() []reflect.Type {
	return []reflect.Type{
		spi.TypeOf[SingletonContext](),
		spi.TypeOf[DependentContext](),
		spi.TypeOf[ApplicationContext](),
	}
}
