package report_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/km-arc/go-extend/framework/build"
	"github.com/km-arc/go-extend/framework/providers"
	"github.com/km-arc/go-extend/framework/report"
	"github.com/km-arc/go-extend/framework/spi"
)

func init() { color.NoColor = true }

func runBuild(t *testing.T, exts ...spi.Extension) (*build.Result, error) {
	t.Helper()
	plan, err := build.NewPlan(append(providers.Defaults(), exts...)...)
	require.NoError(t, err)
	return build.NewRunner().Run(plan)
}

var app = spi.Define("app",
	spi.On(spi.Discovery, "scan", func(s *spi.ScannedTypes) error {
		return s.Add(spi.Component{Name: "greeter", TypeName: "app.Greeter", Qualifiers: []string{"default"}})
	}),
	spi.On(spi.Validation, "note", func(m spi.Messages) {
		m.Warn("greeter has no interface", spi.Source{Component: "greeter"})
	}),
)

func TestArtifact_RoundTrip(t *testing.T) {
	res, err := runBuild(t, app)
	require.NoError(t, err)

	a := report.New(res, nil)
	assert.True(t, a.Succeeded())
	assert.Equal(t, res.ID, a.ID)
	require.Len(t, a.Contexts, 3)
	require.Len(t, a.Components, 1)
	assert.Equal(t, "spi.Dependent", a.Components[0].Scope)
	assert.Equal(t, 1, a.Count(spi.SevWarning))

	path := filepath.Join(t.TempDir(), "out", "ext.msgpack")
	require.NoError(t, report.Write(path, a))

	got, err := report.Read(path)
	require.NoError(t, err)
	if diff := cmp.Diff(a, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("artifact mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestArtifact_FailedBuild(t *testing.T) {
	_, err := runBuild(t, spi.Define("bad",
		spi.On(spi.Validation, "check", func(m spi.Messages) { m.Error("broken") }),
	))
	require.Error(t, err)

	a := report.New(nil, err)
	assert.False(t, a.Succeeded())
	assert.Equal(t, "validation", a.FailedPhase)
	assert.Equal(t, build.ErrValidationFailed.Error(), a.Cause)
	assert.Equal(t, 1, a.Count(spi.SevError))
	assert.Empty(t, a.Contexts)

	plain := report.New(nil, errors.New("plan rejected"))
	assert.Equal(t, "plan rejected", plain.Cause)
	assert.Empty(t, plain.FailedPhase)
}

func TestRead_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := report.Read(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(dir, "garbage")
	require.NoError(t, os.WriteFile(garbage, []byte("not msgpack"), 0o600))
	_, err = report.Read(garbage)
	assert.Error(t, err)

	future := filepath.Join(dir, "future")
	raw, err := msgpack.Marshal(&report.Artifact{Schema: report.Schema + 1})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(future, raw, 0o600))
	_, err = report.Read(future)
	assert.ErrorIs(t, err, report.ErrSchemaMismatch)
}

func TestRender(t *testing.T) {
	res, err := runBuild(t, app)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, report.New(res, nil)))
	out := buf.String()

	assert.Contains(t, out, "BUILD SUCCEEDED")
	assert.Contains(t, out, "spi.ApplicationScoped")
	assert.Contains(t, out, "[default]")
	assert.Contains(t, out, "WARNING")
	assert.Contains(t, out, "@ greeter")
	assert.Contains(t, out, "3 contexts, 1 components, 0 errors, 1 warnings")

	buf.Reset()
	require.NoError(t, report.Render(&buf, &report.Artifact{Status: report.StatusFailed, FailedPhase: "discovery", Cause: "boom"}))
	assert.Contains(t, buf.String(), "BUILD FAILED in discovery")
	assert.Contains(t, buf.String(), "cause: boom")
}
