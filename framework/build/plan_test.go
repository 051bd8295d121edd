package build_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-extend/framework/build"
	"github.com/km-arc/go-extend/framework/spi"
)

func configErrors(t *testing.T, err error) []*spi.ConfigError {
	t.Helper()
	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok, "expected joined errors, got %T", err)
	var out []*spi.ConfigError
	for _, e := range joined.Unwrap() {
		var ce *spi.ConfigError
		require.True(t, errors.As(e, &ce), "unexpected error %v", e)
		out = append(out, ce)
	}
	return out
}

func TestNewPlan_InvalidParameterFailsBeforeAnyCallbackRuns(t *testing.T) {
	ran := false
	good := spi.Define("good",
		spi.On(spi.Discovery, "scan", func() { ran = true }),
	)
	bad := spi.Define("bad",
		spi.On(spi.Discovery, "scan", func(v spi.View) {}),
	)

	plan, err := build.NewPlan(good, bad)
	require.Error(t, err)
	assert.Nil(t, plan)
	assert.False(t, ran)

	errs := configErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "bad", errs[0].Extension)
	assert.Equal(t, "scan", errs[0].Callback)
	assert.Equal(t, spi.Discovery, errs[0].Phase)
	assert.Contains(t, errs[0].Error(), "spi.View")
	assert.Contains(t, errs[0].Error(), "not injectable in discovery")
}

func TestNewPlan_ReportsEveryProblem(t *testing.T) {
	ext := spi.Define("messy",
		spi.On(spi.Phase(42), "nowhere", func() {}),
		spi.On(spi.Validation, "nil", nil),
		spi.On(spi.Validation, "notfunc", "hello"),
		spi.On(spi.Validation, "variadic", func(...spi.Messages) {}),
		spi.On(spi.Validation, "returns", func() (int, error) { return 0, nil }),
		spi.On(spi.Validation, "returnsInt", func() int { return 0 }),
		spi.On(spi.Validation, "contexts", func(*spi.Contexts) {}),
		spi.On(spi.Validation, "ok", func(spi.Messages) {}),
		spi.On(spi.Validation, "ok", func(spi.Messages) {}),
	)

	_, err := build.NewPlan(ext, spi.Define(""), nil)
	require.Error(t, err)

	errs := configErrors(t, err)
	var callbacks []string
	for _, e := range errs {
		callbacks = append(callbacks, e.Callback)
	}
	assert.Equal(t, []string{
		"nowhere", "nil", "notfunc", "variadic", "returns", "returnsInt", "contexts", "ok", "", "",
	}, callbacks)
}

func TestNewPlan_DuplicateExtensionName(t *testing.T) {
	_, err := build.NewPlan(spi.Define("dup"), spi.Define("dup"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extension registered twice")
}

type markerExtension struct{ spi.BaseExtension }

func (*markerExtension) Name() string { return "marker" }

func TestNewPlan_EmbeddedBaseExtension(t *testing.T) {
	plan, err := build.NewPlan(&markerExtension{}, spi.Define("other"))
	require.NoError(t, err)
	assert.Equal(t, []string{"marker", "other"}, plan.Extensions())
	assert.Zero(t, plan.Len())

	_, err = build.NewPlan(&markerExtension{}, spi.Define("marker"))
	assert.ErrorContains(t, err, "extension registered twice")
}

func TestNewPlan_InjectableSets(t *testing.T) {
	cases := []struct {
		phase spi.Phase
		fn    any
	}{
		{spi.Discovery, func(spi.Messages, *spi.ScannedTypes) {}},
		{spi.Enhancement, func(spi.Messages, spi.Types, *spi.Enhancer) error { return nil }},
		{spi.Registration, func(*spi.Contexts, spi.View, spi.Types, spi.Messages) {}},
		{spi.Synthesis, func(*spi.SyntheticComponents, spi.View, spi.Types) {}},
		{spi.Validation, func(spi.View, spi.Messages, spi.Types) {}},
		{spi.Validation, func(spi.Messages, spi.Messages) {}},
	}
	for _, tc := range cases {
		t.Run(tc.phase.String(), func(t *testing.T) {
			_, err := build.NewPlan(spi.Define("ext", spi.On(tc.phase, "cb", tc.fn)))
			assert.NoError(t, err)
		})
	}

	assert.Len(t, build.Injectable(spi.Registration), 4)
	assert.Empty(t, build.Injectable(spi.Phase(0)))
}

func TestPlan_StepsAndNaming(t *testing.T) {
	a := spi.Define("a",
		spi.Callback{Phase: spi.Discovery, Func: func() {}},
		spi.On(spi.Discovery, "first", func() {}).WithPriority(-1),
	)
	b := spi.Define("b", spi.On(spi.Validation, "check", func() {}))

	plan, err := build.NewPlan(a, b)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, plan.Extensions())
	assert.Equal(t, 3, plan.Len())
	assert.Equal(t, []build.StepInfo{
		{Extension: "a", Callback: "first", Phase: spi.Discovery, Priority: -1},
		{Extension: "a", Callback: "callback#0", Phase: spi.Discovery},
	}, plan.Steps(spi.Discovery))
	assert.Empty(t, plan.Steps(spi.Synthesis))
}
