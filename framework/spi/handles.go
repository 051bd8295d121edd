package spi

import (
	"fmt"
	"reflect"

	"github.com/km-arc/go-extend/framework/model"
)

// Component is a component of the build-time model.
type Component = model.Component

// handle is embedded by every mutating phase handle. The runner closes it
// when the callback that received it returns.
type handle struct {
	closed bool
}

// Close invalidates the handle. Called by the runner.
func (h *handle) Close() { h.closed = true }

func (h *handle) check() error {
	if h.closed {
		return ErrHandleClosed
	}
	return nil
}

func checkScope(scope reflect.Type) (reflect.Type, error) {
	if scope == nil {
		return TypeOf[Dependent](), nil
	}
	if !IsScope(scope) {
		return nil, fmt.Errorf("%w: %v", ErrNotScope, scope)
	}
	return ScopeOf(scope), nil
}

// ── Discovery ─────────────────────────────────────────────────────────────────

// ScannedTypes lets Discovery callbacks add components to the model.
type ScannedTypes struct {
	handle
	reg       *model.Registry
	extension string
}

// NewScannedTypes binds a Discovery handle to reg on behalf of extension.
func NewScannedTypes(reg *model.Registry, extension string) *ScannedTypes {
	return &ScannedTypes{reg: reg, extension: extension}
}

// Add registers c. A nil scope defaults to Dependent.
func (s *ScannedTypes) Add(c Component) error {
	if err := s.check(); err != nil {
		return err
	}
	scope, err := checkScope(c.Scope)
	if err != nil {
		return err
	}
	c.Scope = scope
	c.Synthetic = false
	c.Origin = s.extension
	return s.reg.Add(c)
}

// ── Enhancer ──────────────────────────────────────────────────────────────────

// Enhancer lets Enhancement callbacks change component metadata.
type Enhancer struct {
	handle
	reg       *model.Registry
	extension string
}

// NewEnhancer binds an Enhancer to reg on behalf of extension.
func NewEnhancer(reg *model.Registry, extension string) *Enhancer {
	return &Enhancer{reg: reg, extension: extension}
}

// Components returns the discovered components.
func (e *Enhancer) Components() []Component { return e.reg.Components() }

// SetScope replaces the scope of the named component.
func (e *Enhancer) SetScope(name string, scope reflect.Type) error {
	if err := e.check(); err != nil {
		return err
	}
	if !IsScope(scope) {
		return fmt.Errorf("%w: %v", ErrNotScope, scope)
	}
	return e.reg.SetScope(name, ScopeOf(scope))
}

// Qualify adds a qualifier to the named component.
func (e *Enhancer) Qualify(name, qualifier string) error {
	if err := e.check(); err != nil {
		return err
	}
	return e.reg.Qualify(name, qualifier)
}

// Alias registers alias as another name for the component.
func (e *Enhancer) Alias(name, alias string) error {
	if err := e.check(); err != nil {
		return err
	}
	return e.reg.Alias(name, alias)
}

// Veto removes the named component from the build.
func (e *Enhancer) Veto(name string) error {
	if err := e.check(); err != nil {
		return err
	}
	return e.reg.Veto(name, e.extension)
}

// ── Registration ──────────────────────────────────────────────────────────────

// Contexts lets Registration callbacks configure custom scopes.
type Contexts struct {
	handle
	extension string
	configs   []*ContextConfig
}

// NewContexts returns an empty Registration handle for extension.
func NewContexts(extension string) *Contexts {
	return &Contexts{extension: extension}
}

// Add starts a new context configuration. After the handle is closed it
// returns an already frozen configuration that the runner ignores.
func (c *Contexts) Add() *ContextConfig {
	cfg := NewContextConfig(c.extension)
	if c.closed {
		cfg.frozen = true
		cfg.err = ErrHandleClosed
		return cfg
	}
	c.configs = append(c.configs, cfg)
	return cfg
}

// Configs returns the configurations created through this handle, in order.
func (c *Contexts) Configs() []*ContextConfig {
	out := make([]*ContextConfig, len(c.configs))
	copy(out, c.configs)
	return out
}

// ── Synthesis ─────────────────────────────────────────────────────────────────

// SyntheticComponents lets Synthesis callbacks add components that have
// no scanned type behind them.
type SyntheticComponents struct {
	handle
	reg       *model.Registry
	extension string
}

// NewSyntheticComponents binds a Synthesis handle to reg on behalf of extension.
func NewSyntheticComponents(reg *model.Registry, extension string) *SyntheticComponents {
	return &SyntheticComponents{reg: reg, extension: extension}
}

// Add registers a synthetic component. A nil scope defaults to Dependent.
func (s *SyntheticComponents) Add(c Component) error {
	if err := s.check(); err != nil {
		return err
	}
	scope, err := checkScope(c.Scope)
	if err != nil {
		return err
	}
	c.Scope = scope
	c.Synthetic = true
	c.Origin = s.extension
	return s.reg.Add(c)
}

// ── Read-only view ────────────────────────────────────────────────────────────

// View is a read-only window on the model. Registration, Synthesis and
// Validation callbacks receive one.
type View interface {
	Components() []Component
	Lookup(name string) (Component, bool)
	Qualified(qualifier string) []Component
	Vetoed() map[string]string
	// Contexts returns the contexts frozen so far, in registration order.
	Contexts() []ContextDescriptor
	// Context returns the context registered for scope.
	Context(scope reflect.Type) (ContextDescriptor, bool)
}

// NewView returns a View over reg. contexts is called on every access so
// the view follows the runner's context registry.
func NewView(reg *model.Registry, contexts func() []ContextDescriptor) View {
	return &registryView{reg: reg, contexts: contexts}
}

type registryView struct {
	reg      *model.Registry
	contexts func() []ContextDescriptor
}

func (v *registryView) Components() []Component                { return v.reg.Components() }
func (v *registryView) Lookup(name string) (Component, bool)   { return v.reg.Lookup(name) }
func (v *registryView) Qualified(qualifier string) []Component { return v.reg.Qualified(qualifier) }
func (v *registryView) Vetoed() map[string]string              { return v.reg.Vetoed() }

func (v *registryView) Contexts() []ContextDescriptor {
	if v.contexts == nil {
		return nil
	}
	return v.contexts()
}

func (v *registryView) Context(scope reflect.Type) (ContextDescriptor, bool) {
	scope = ScopeOf(scope)
	for _, d := range v.Contexts() {
		if d.Scope == scope {
			return d, true
		}
	}
	return ContextDescriptor{}, false
}
