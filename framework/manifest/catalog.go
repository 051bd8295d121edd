package manifest

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/km-arc/go-extend/framework/contexts"
	"github.com/km-arc/go-extend/framework/spi"
)

var ErrUnknownName = errors.New("manifest: name not in catalog")

// Catalog maps the names used in a manifest onto Go types. A manifest can
// only refer to types the application registered here.
type Catalog struct {
	types map[string]reflect.Type
}

// NewCatalog returns a catalog holding the built-in scope markers and
// context implementations under their type names.
func NewCatalog() *Catalog {
	c := &Catalog{types: make(map[string]reflect.Type)}
	for _, t := range []reflect.Type{
		spi.TypeOf[spi.Singleton](),
		spi.TypeOf[spi.Dependent](),
		spi.TypeOf[spi.ApplicationScoped](),
		spi.TypeOf[spi.RequestScoped](),
		spi.TypeOf[spi.SessionScoped](),
	} {
		c.types[t.Name()] = t
	}
	for _, t := range contexts.Builtin() {
		c.types[t.Name()] = t
	}
	return c
}

// Register adds t under name, replacing any previous entry.
func (c *Catalog) Register(name string, t reflect.Type) *Catalog {
	if name == "" || t == nil {
		panic("manifest: Catalog.Register needs a name and a type")
	}
	c.types[name] = t
	return c
}

// Add registers T under its type name.
//
//	manifest.Add[SessionContext](catalog)
func Add[T any](c *Catalog) *Catalog {
	t := spi.TypeOf[T]()
	return c.Register(t.Name(), t)
}

// Lookup returns the type registered under name.
func (c *Catalog) Lookup(name string) (reflect.Type, bool) {
	t, ok := c.types[name]
	return t, ok
}

// Scope returns the scope marker registered under name.
func (c *Catalog) Scope(name string) (reflect.Type, error) {
	t, ok := c.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: scope %q", ErrUnknownName, name)
	}
	if !spi.IsScope(t) {
		return nil, fmt.Errorf("%w: %q", spi.ErrNotScope, name)
	}
	return spi.ScopeOf(t), nil
}

// Names returns the registered names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.types))
	for n := range c.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
