package manifest_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-extend/framework/build"
	"github.com/km-arc/go-extend/framework/manifest"
	"github.com/km-arc/go-extend/framework/providers"
	"github.com/km-arc/go-extend/framework/spi"
)

type SessionContext struct{}

func (*SessionContext) Scope() reflect.Type { return spi.TypeOf[spi.SessionScoped]() }
func (*SessionContext) IsActive() bool      { return true }
func (*SessionContext) Get(string, func() (any, error)) (any, error) {
	return nil, nil
}
func (*SessionContext) Destroy(string) {}

type Greeter struct{}

const src = `
context "session" {
  implementation = "SessionContext"
  normal         = false
}

component "greeter" {
  type       = "Greeter"
  scope      = "SessionScoped"
  qualifiers = ["default"]
}

component "clock" {}
`

func catalog() *manifest.Catalog {
	cat := manifest.NewCatalog()
	manifest.Add[SessionContext](cat)
	manifest.Add[Greeter](cat)
	return cat
}

func TestParse(t *testing.T) {
	m, err := manifest.Parse([]byte(src), "app.hcl")
	require.NoError(t, err)

	require.Len(t, m.Contexts, 1)
	ctx := m.Contexts[0]
	assert.Equal(t, "session", ctx.Name)
	assert.Equal(t, "SessionContext", ctx.Implementation)
	assert.Nil(t, ctx.Scope)
	require.NotNil(t, ctx.Normal)
	assert.False(t, *ctx.Normal)
	assert.Equal(t, "app.hcl:2", ctx.Location)

	require.Len(t, m.Components, 2)
	assert.Equal(t, []string{"default"}, m.Components[0].Qualifiers)
	assert.Equal(t, "app.hcl:7", m.Components[0].Location)
	assert.Empty(t, m.Components[1].Type)
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"syntax":            `context "x" {`,
		"missing impl":      `context "x" {}`,
		"unknown block":     `service "x" {}`,
		"unknown attribute": `component "x" { colour = "red" }`,
		"duplicate":         "component \"x\" {}\ncomponent \"x\" {}",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := manifest.Parse([]byte(in), "bad.hcl")
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	m, err := manifest.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.Path)
	assert.Len(t, m.Components, 2)

	_, err = manifest.Load(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}

func TestExtension_Build(t *testing.T) {
	m, err := manifest.Parse([]byte(src), "app.hcl")
	require.NoError(t, err)

	plan, err := build.NewPlan(append(providers.Defaults(), m.Extension("manifest", catalog()))...)
	require.NoError(t, err)
	res, err := build.NewRunner().Run(plan)
	require.NoError(t, err)

	desc, ok := res.Context(spi.TypeOf[spi.SessionScoped]())
	require.True(t, ok)
	assert.False(t, desc.Normal)
	assert.Equal(t, "manifest", desc.Extension)

	greeter, ok := res.Registry().Lookup("greeter")
	require.True(t, ok)
	assert.Equal(t, spi.TypeOf[Greeter](), greeter.Type)
	assert.Equal(t, spi.TypeOf[spi.SessionScoped](), greeter.Scope)

	clock, ok := res.Registry().Lookup("clock")
	require.True(t, ok)
	assert.Equal(t, spi.TypeOf[spi.Dependent](), clock.Scope)
}

func TestExtension_UnknownNamesAreMessages(t *testing.T) {
	m, err := manifest.Parse([]byte(`
component "a" { type = "Nope" }
component "b" { scope = "Greeter" }
`), "app.hcl")
	require.NoError(t, err)

	plan, err := build.NewPlan(m.Extension("manifest", catalog()))
	require.NoError(t, err)
	_, err = build.NewRunner().Run(plan)
	require.ErrorIs(t, err, build.ErrMessagesReported)

	var be *build.BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, spi.Discovery, be.Phase)
	errs := be.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, "app.hcl:2", errs[0].Source.Location)
	assert.ErrorContains(t, be, `unknown component type "Nope"`)
}

func TestCatalog(t *testing.T) {
	cat := catalog()

	_, err := cat.Scope("RequestScoped")
	assert.NoError(t, err)
	_, err = cat.Scope("Greeter")
	assert.ErrorIs(t, err, spi.ErrNotScope)
	_, err = cat.Scope("Missing")
	assert.ErrorIs(t, err, manifest.ErrUnknownName)

	assert.Contains(t, cat.Names(), "ApplicationContext")
	assert.Panics(t, func() { cat.Register("", nil) })
}
