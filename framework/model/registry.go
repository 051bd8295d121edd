// Package model holds the build-time component model shared by the phases.
package model

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

var (
	ErrEmptyName          = errors.New("model: component name is empty")
	ErrDuplicateComponent = errors.New("model: component already registered")
	ErrUnknownComponent   = errors.New("model: no component registered")
	ErrSelfAlias          = errors.New("model: component is aliased to itself")
)

// ── Component ─────────────────────────────────────────────────────────────────

// Component is one injectable component known to the build.
type Component struct {
	// Name is the unique key of the component.
	Name string
	// TypeName is the display name of the component type. It is filled from
	// Type when empty.
	TypeName string
	// Type is the Go type of the component, nil for components declared only
	// by name (manifests, synthetic components without a backing type).
	Type reflect.Type
	// Scope is the scope marker type.
	Scope reflect.Type
	// Qualifiers distinguish components sharing a type.
	Qualifiers []string
	// Synthetic is true for components added during Synthesis.
	Synthetic bool
	// Origin names the extension that contributed the component.
	Origin string
}

func (c Component) clone() Component {
	c.Qualifiers = slices.Clone(c.Qualifiers)
	return c
}

// ── Registry ──────────────────────────────────────────────────────────────────

// Registry is the build-time component model: components by name, aliases,
// qualifier tags and vetoes. Phase handles mutate it; once the build is done
// it is only read.
type Registry struct {
	mu sync.RWMutex

	// name → component
	components map[string]*Component

	// insertion order of names
	order []string

	// alias → name (canonical key)
	aliases map[string]string

	// qualifier → []name
	tags map[string][]string

	// vetoed name → extension that vetoed it
	vetoed map[string]string

	// added callbacks: fired after a component is added
	onAdd []*addHook
}

type addHook struct{ fn func(Component) }

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		components: make(map[string]*Component),
		aliases:    make(map[string]string),
		tags:       make(map[string][]string),
		vetoed:     make(map[string]string),
	}
}

// ── Registration ──────────────────────────────────────────────────────────────

// Add registers a component. Names are unique; a vetoed name cannot come back.
func (r *Registry) Add(c Component) error {
	if c.Name == "" {
		return ErrEmptyName
	}
	if c.TypeName == "" && c.Type != nil {
		c.TypeName = c.Type.String()
	}

	r.mu.Lock()
	key := r.canonical(c.Name)
	if _, ok := r.components[key]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: [%s]", ErrDuplicateComponent, c.Name)
	}
	if by, ok := r.vetoed[key]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: [%s] was vetoed by %s", ErrDuplicateComponent, c.Name, by)
	}
	stored := c.clone()
	r.components[key] = &stored
	r.order = append(r.order, key)
	for _, q := range stored.Qualifiers {
		r.tags[q] = append(r.tags[q], key)
	}
	hooks := slices.Clone(r.onAdd)
	r.mu.Unlock()

	for _, h := range hooks {
		h.fn(stored.clone())
	}
	return nil
}

// Alias registers an alternative name for a registered component. An alias
// never shadows a component name, a vetoed name or an alias of another
// component.
func (r *Registry) Alias(name, alias string) error {
	if name == alias {
		return fmt.Errorf("%w: [%s]", ErrSelfAlias, name)
	}
	if alias == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, key, err := r.get(name)
	if err != nil {
		return err
	}
	if _, ok := r.components[alias]; ok {
		return fmt.Errorf("%w: alias [%s] names a component", ErrDuplicateComponent, alias)
	}
	if by, ok := r.vetoed[alias]; ok {
		return fmt.Errorf("%w: alias [%s] was vetoed by %s", ErrDuplicateComponent, alias, by)
	}
	if target, ok := r.aliases[alias]; ok && target != key {
		return fmt.Errorf("%w: alias [%s] already points at [%s]", ErrDuplicateComponent, alias, target)
	}
	r.aliases[alias] = key
	return nil
}

// ── Mutation ──────────────────────────────────────────────────────────────────

// Qualify adds a qualifier to a component. Adding the same qualifier twice
// is a no-op.
func (r *Registry) Qualify(name, qualifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, key, err := r.get(name)
	if err != nil {
		return err
	}
	if slices.Contains(c.Qualifiers, qualifier) {
		return nil
	}
	c.Qualifiers = append(c.Qualifiers, qualifier)
	r.tags[qualifier] = append(r.tags[qualifier], key)
	return nil
}

// SetScope replaces the scope of a component.
func (r *Registry) SetScope(name string, scope reflect.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, _, err := r.get(name)
	if err != nil {
		return err
	}
	c.Scope = scope
	return nil
}

// Veto removes a component from the build and remembers who removed it.
func (r *Registry) Veto(name, by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, key, err := r.get(name)
	if err != nil {
		return err
	}
	delete(r.components, key)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == key })
	for q, names := range r.tags {
		r.tags[q] = slices.DeleteFunc(names, func(n string) bool { return n == key })
	}
	r.vetoed[key] = by
	return nil
}

// get must hold mu.
func (r *Registry) get(name string) (*Component, string, error) {
	key := r.canonical(name)
	c, ok := r.components[key]
	if !ok {
		return nil, key, fmt.Errorf("%w: [%s]", ErrUnknownComponent, name)
	}
	return c, key, nil
}

// ── Lookup ────────────────────────────────────────────────────────────────────

// Lookup returns a copy of the component registered under name or alias.
func (r *Registry) Lookup(name string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[r.canonical(name)]
	if !ok {
		return Component{}, false
	}
	return c.clone(), true
}

// Qualified returns every component carrying the qualifier.
func (r *Registry) Qualified(qualifier string) []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := r.tags[qualifier]
	out := make([]Component, 0, len(names))
	for _, n := range names {
		if c, ok := r.components[n]; ok {
			out = append(out, c.clone())
		}
	}
	return out
}

// Components returns copies of all components in registration order.
func (r *Registry) Components() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Component, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.components[n].clone())
	}
	return out
}

// Vetoed returns a copy of vetoed names and who vetoed them.
func (r *Registry) Vetoed() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.vetoed))
	for k, v := range r.vetoed {
		out[k] = v
	}
	return out
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}

// canonical resolves an alias to its canonical name.
func (r *Registry) canonical(name string) string {
	if target, ok := r.aliases[name]; ok {
		return target
	}
	return name
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// OnAdd registers a callback fired after every successful Add. The returned
// func removes it again.
func (r *Registry) OnAdd(cb func(Component)) (remove func()) {
	h := &addHook{fn: cb}
	r.mu.Lock()
	r.onAdd = append(r.onAdd, h)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.onAdd = slices.DeleteFunc(r.onAdd, func(x *addHook) bool { return x == h })
	}
}
