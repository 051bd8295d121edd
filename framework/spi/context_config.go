package spi

import (
	"fmt"
	"go/token"
	"reflect"
)

// ContextDescriptor is the frozen result of a ContextConfig: which
// implementation type backs which scope, and whether the scope is normal.
type ContextDescriptor struct {
	Scope          reflect.Type
	Normal         bool
	Implementation reflect.Type
	// Extension is the name of the extension that configured the context.
	Extension string
}

// New builds a fresh instance of the implementation type.
func (d ContextDescriptor) New() (AlterableContext, error) {
	return construct(d.Implementation)
}

// ContextConfig configures a custom scope and its context. Only
// Implementation is mandatory; the scope and its normal/pseudo nature are
// deduced from the implementation unless overridden.
//
//	contexts.Add().
//	    Implementation(spi.TypeOf[SessionContext]()).
//	    Normal(true)
//
// A ContextConfig is mutable only inside the callback that created it.
// Afterwards the runner freezes it and every mutator becomes a no-op.
type ContextConfig struct {
	extension string
	scope     reflect.Type
	normal    *bool
	impl      reflect.Type

	frozen bool
	desc   ContextDescriptor
	err    error
}

// NewContextConfig returns an empty configuration owned by extension.
func NewContextConfig(extension string) *ContextConfig {
	return &ContextConfig{extension: extension}
}

// Scope returns the scope marker type. An explicit WithScope wins;
// otherwise the scope is read from the implementation. It returns
// ErrScopeUnresolved when neither is available.
func (c *ContextConfig) Scope() (reflect.Type, error) {
	if c.frozen {
		return c.desc.Scope, c.err
	}
	if c.scope != nil {
		return ScopeOf(c.scope), nil
	}
	if c.impl == nil {
		return nil, ErrScopeUnresolved
	}
	ctx, err := construct(c.impl)
	if err != nil {
		return nil, err
	}
	return scopeFrom(ctx)
}

// WithScope overrides the scope declared by the implementation.
func (c *ContextConfig) WithScope(scope reflect.Type) *ContextConfig {
	if !c.frozen {
		c.scope = scope
	}
	return c
}

// Normal overrides the normal/pseudo nature declared by the scope marker.
// The last call wins.
func (c *ContextConfig) Normal(isNormal bool) *ContextConfig {
	if !c.frozen {
		c.normal = &isNormal
	}
	return c
}

// Implementation sets the context implementation type. It must be an
// exported struct type whose pointer implements AlterableContext. The
// constraint is checked when the configuration is frozen.
func (c *ContextConfig) Implementation(impl reflect.Type) *ContextConfig {
	if !c.frozen {
		c.impl = impl
	}
	return c
}

// Frozen reports whether the configuration no longer accepts changes.
func (c *ContextConfig) Frozen() bool { return c.frozen }

// Freeze resolves the configuration once (explicit > derived > error) and
// makes it immutable. Called by the runner when the owning callback
// returns; later calls return the same result.
func (c *ContextConfig) Freeze() (ContextDescriptor, error) {
	if c.frozen {
		return c.desc, c.err
	}
	c.frozen = true
	c.desc, c.err = c.resolve()
	return c.desc, c.err
}

func (c *ContextConfig) resolve() (ContextDescriptor, error) {
	if c.impl == nil {
		return ContextDescriptor{}, ErrNoImplementation
	}
	ctx, err := construct(c.impl)
	if err != nil {
		return ContextDescriptor{}, err
	}

	scope := c.scope
	if scope == nil {
		if scope, err = scopeFrom(ctx); err != nil {
			return ContextDescriptor{}, err
		}
	}
	declared, err := IsNormalScope(scope)
	if err != nil {
		return ContextDescriptor{}, fmt.Errorf("%w: %v", ErrNotScope, err)
	}
	normal := declared
	if c.normal != nil {
		normal = *c.normal
	}

	return ContextDescriptor{
		Scope:          ScopeOf(scope),
		Normal:         normal,
		Implementation: concrete(c.impl),
		Extension:      c.extension,
	}, nil
}

// concrete strips one level of pointer so *T and T name the same type.
func concrete(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

// construct checks the implementation constraints and builds a zero value.
func construct(impl reflect.Type) (ctx AlterableContext, err error) {
	t := concrete(impl)
	switch {
	case t == nil:
		return nil, ErrNoImplementation
	case t.Kind() != reflect.Struct:
		return nil, fmt.Errorf("%w: %v is not a struct type", ErrNotConstructible, impl)
	case t.Name() == "" || !token.IsExported(t.Name()):
		return nil, fmt.Errorf("%w: %v is not an exported named type", ErrNotConstructible, impl)
	case !reflect.PointerTo(t).Implements(alterableContextType):
		return nil, fmt.Errorf("%w: *%v does not implement AlterableContext", ErrNotConstructible, t)
	}

	defer func() {
		if r := recover(); r != nil {
			ctx, err = nil, fmt.Errorf("%w: %v panicked: %v", ErrNotConstructible, t, r)
		}
	}()
	return reflect.New(t).Interface().(AlterableContext), nil
}

func scopeFrom(ctx AlterableContext) (scope reflect.Type, err error) {
	defer func() {
		if r := recover(); r != nil {
			scope, err = nil, fmt.Errorf("%w: %T.Scope panicked: %v", ErrNotConstructible, ctx, r)
		}
	}()
	scope = ctx.Scope()
	if scope == nil {
		return nil, fmt.Errorf("%w: %T declares no scope", ErrScopeUnresolved, ctx)
	}
	if !IsScope(scope) {
		return nil, fmt.Errorf("%w: %v", ErrNotScope, scope)
	}
	return ScopeOf(scope), nil
}
