package spi_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-extend/framework/spi"
)

// ── stub contexts ─────────────────────────────────────────────────────────────

type SessionContext struct{ created int }

func (*SessionContext) Scope() reflect.Type { return spi.TypeOf[spi.SessionScoped]() }
func (*SessionContext) IsActive() bool      { return true }
func (c *SessionContext) Get(string, func() (any, error)) (any, error) {
	c.created++
	return c.created, nil
}
func (*SessionContext) Destroy(string) {}

type Pooled struct{}

func (Pooled) NormalScope() bool { return false }

type PooledContext struct{ SessionContext }

func (*PooledContext) Scope() reflect.Type { return spi.TypeOf[Pooled]() }

type ScopelessContext struct{ SessionContext }

func (*ScopelessContext) Scope() reflect.Type { return nil }

type WrongScopeContext struct{ SessionContext }

func (*WrongScopeContext) Scope() reflect.Type { return spi.TypeOf[Widget]() }

type PanickyContext struct{ SessionContext }

func (*PanickyContext) Scope() reflect.Type { panic("no scope today") }

type PointerScopeContext struct{ SessionContext }

func (*PointerScopeContext) Scope() reflect.Type { return reflect.TypeOf(&spi.SessionScoped{}) }

type Touchy struct{}

func (Touchy) NormalScope() bool { panic("touchy") }

type NotAContext struct{}

// ── tests ─────────────────────────────────────────────────────────────────────

func TestContextConfig_ScopeFromImplementation(t *testing.T) {
	cfg := spi.NewContextConfig("ext").Implementation(spi.TypeOf[SessionContext]())

	scope, err := cfg.Scope()
	require.NoError(t, err)
	assert.Equal(t, spi.TypeOf[spi.SessionScoped](), scope)
}

func TestContextConfig_ExplicitScopeWins(t *testing.T) {
	cfg := spi.NewContextConfig("ext").
		Implementation(spi.TypeOf[SessionContext]()).
		WithScope(spi.TypeOf[Pooled]())

	scope, err := cfg.Scope()
	require.NoError(t, err)
	assert.Equal(t, spi.TypeOf[Pooled](), scope)

	desc, err := cfg.Freeze()
	require.NoError(t, err)
	assert.Equal(t, spi.TypeOf[Pooled](), desc.Scope)
	assert.False(t, desc.Normal, "normal follows the explicit scope")
}

func TestContextConfig_ScopeUnresolved(t *testing.T) {
	_, err := spi.NewContextConfig("ext").Scope()
	assert.ErrorIs(t, err, spi.ErrScopeUnresolved)
}

func TestContextConfig_LastNormalWins(t *testing.T) {
	desc, err := spi.NewContextConfig("ext").
		Implementation(spi.TypeOf[SessionContext]()).
		Normal(true).
		Normal(false).
		Freeze()
	require.NoError(t, err)
	assert.False(t, desc.Normal)
}

func TestContextConfig_NormalDerivedFromScope(t *testing.T) {
	session, err := spi.NewContextConfig("ext").Implementation(spi.TypeOf[SessionContext]()).Freeze()
	require.NoError(t, err)
	assert.True(t, session.Normal)

	pooled, err := spi.NewContextConfig("ext").Implementation(spi.TypeOf[PooledContext]()).Freeze()
	require.NoError(t, err)
	assert.False(t, pooled.Normal)
}

func TestContextConfig_PointerImplementation(t *testing.T) {
	desc, err := spi.NewContextConfig("ext").Implementation(spi.TypeOf[*SessionContext]()).Freeze()
	require.NoError(t, err)
	assert.Equal(t, spi.TypeOf[SessionContext](), desc.Implementation)
	assert.Equal(t, "ext", desc.Extension)

	ctx, err := desc.New()
	require.NoError(t, err)
	v, err := ctx.Get("x", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestContextConfig_PointerScope(t *testing.T) {
	t.Run("derived", func(t *testing.T) {
		cfg := spi.NewContextConfig("ext").Implementation(spi.TypeOf[PointerScopeContext]())

		scope, err := cfg.Scope()
		require.NoError(t, err)
		assert.Equal(t, spi.TypeOf[spi.SessionScoped](), scope)

		desc, err := cfg.Freeze()
		require.NoError(t, err)
		assert.Equal(t, spi.TypeOf[spi.SessionScoped](), desc.Scope)
		assert.True(t, desc.Normal)
	})

	t.Run("explicit", func(t *testing.T) {
		cfg := spi.NewContextConfig("ext").
			Implementation(spi.TypeOf[SessionContext]()).
			WithScope(reflect.TypeOf(&spi.RequestScoped{}))

		scope, err := cfg.Scope()
		require.NoError(t, err)
		assert.Equal(t, spi.TypeOf[spi.RequestScoped](), scope)

		desc, err := cfg.Freeze()
		require.NoError(t, err)
		assert.Equal(t, spi.TypeOf[spi.RequestScoped](), desc.Scope)
		assert.True(t, desc.Normal)
	})
}

func TestContextConfig_FreezeErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *spi.ContextConfig
		want error
	}{
		{"no implementation", spi.NewContextConfig("ext").Normal(true), spi.ErrNoImplementation},
		{"not a context", spi.NewContextConfig("ext").Implementation(spi.TypeOf[NotAContext]()), spi.ErrNotConstructible},
		{"not a struct", spi.NewContextConfig("ext").Implementation(spi.TypeOf[Name]()), spi.ErrNotConstructible},
		{"nil scope", spi.NewContextConfig("ext").Implementation(spi.TypeOf[ScopelessContext]()), spi.ErrScopeUnresolved},
		{"scope is not a marker", spi.NewContextConfig("ext").Implementation(spi.TypeOf[WrongScopeContext]()), spi.ErrNotScope},
		{"scope panics", spi.NewContextConfig("ext").Implementation(spi.TypeOf[PanickyContext]()), spi.ErrNotConstructible},
		{"explicit non-scope", spi.NewContextConfig("ext").
			Implementation(spi.TypeOf[SessionContext]()).
			WithScope(spi.TypeOf[Widget]()), spi.ErrNotScope},
		{"marker panics", spi.NewContextConfig("ext").
			Implementation(spi.TypeOf[SessionContext]()).
			WithScope(spi.TypeOf[Touchy]()), spi.ErrNotScope},
		{"pointer to pointer scope", spi.NewContextConfig("ext").
			Implementation(spi.TypeOf[SessionContext]()).
			WithScope(spi.TypeOf[**spi.SessionScoped]()), spi.ErrNotScope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Freeze()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestContextConfig_FrozenIgnoresMutation(t *testing.T) {
	cfg := spi.NewContextConfig("ext").Implementation(spi.TypeOf[SessionContext]())
	first, err := cfg.Freeze()
	require.NoError(t, err)
	assert.True(t, cfg.Frozen())

	cfg.Normal(false).WithScope(spi.TypeOf[Pooled]()).Implementation(spi.TypeOf[PooledContext]())

	second, err := cfg.Freeze()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	scope, err := cfg.Scope()
	require.NoError(t, err)
	assert.Equal(t, spi.TypeOf[spi.SessionScoped](), scope)
}

func TestContexts_AddAfterClose(t *testing.T) {
	h := spi.NewContexts("ext")
	h.Add().Implementation(spi.TypeOf[SessionContext]())
	h.Close()

	late := h.Add().Implementation(spi.TypeOf[SessionContext]())
	assert.True(t, late.Frozen())
	_, err := late.Freeze()
	assert.ErrorIs(t, err, spi.ErrHandleClosed)
	assert.Len(t, h.Configs(), 1)
}
