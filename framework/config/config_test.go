package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/km-arc/go-extend/framework/config"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func setEnv(t *testing.T, key, val string) {
	t.Helper()
	t.Setenv(key, val) // automatically restored after test
}

// writeEnv writes an env file and unsets its keys after the test, since
// godotenv.Load writes straight into the process environment.
func writeEnv(t *testing.T, lines map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	var body string
	for k, v := range lines {
		body += k + "=" + v + "\n"
		if _, set := os.LookupEnv(k); !set {
			t.Cleanup(func() { os.Unsetenv(k) })
		}
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	// No env set → verify all defaults
	cfg := config.Load(filepath.Join(t.TempDir(), "missing.env"))

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Build.ConflictPolicy", cfg.Build.ConflictPolicy, "error"},
		{"Build.ArtifactPath", cfg.Build.ArtifactPath, "build/extensions.msgpack"},
		{"Build.ManifestPath", cfg.Build.ManifestPath, ""},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Inspect.Addr", cfg.Inspect.Addr, ":8000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
	if cfg.Build.FailOnWarnings || cfg.Log.JSON {
		t.Error("boolean settings should default to false")
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	setEnv(t, "EXT_CONFLICT_POLICY", "last-wins")
	setEnv(t, "EXT_MANIFEST", "app.hcl")
	setEnv(t, "LOG_LEVEL", "debug")
	setEnv(t, "INSPECT_ADDR", ":9000")

	cfg := config.Load(filepath.Join(t.TempDir(), "missing.env"))

	if cfg.Build.ConflictPolicy != "last-wins" {
		t.Errorf("Build.ConflictPolicy: got %q want %q", cfg.Build.ConflictPolicy, "last-wins")
	}
	if cfg.Build.ManifestPath != "app.hcl" {
		t.Errorf("Build.ManifestPath: got %q want %q", cfg.Build.ManifestPath, "app.hcl")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %q want %q", cfg.Log.Level, "debug")
	}
	if cfg.Inspect.Addr != ":9000" {
		t.Errorf("Inspect.Addr: got %q want %q", cfg.Inspect.Addr, ":9000")
	}
}

func TestLoad_Booleans(t *testing.T) {
	tests := []struct {
		val  string
		want bool
	}{
		{"true", true},
		{"1", true},
		{"false", false},
		{"not-a-bool", false},
	}
	for _, tt := range tests {
		t.Run(tt.val, func(t *testing.T) {
			setEnv(t, "EXT_FAIL_ON_WARNINGS", tt.val)
			setEnv(t, "LOG_JSON", tt.val)
			cfg := config.Load(filepath.Join(t.TempDir(), "missing.env"))
			if cfg.Build.FailOnWarnings != tt.want {
				t.Errorf("Build.FailOnWarnings = %v, want %v", cfg.Build.FailOnWarnings, tt.want)
			}
			if cfg.Log.JSON != tt.want {
				t.Errorf("Log.JSON = %v, want %v", cfg.Log.JSON, tt.want)
			}
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := writeEnv(t, map[string]string{
		"EXT_ARTIFACT_PATH": "out/ext.msgpack",
		"LOG_LEVEL":         "warn",
	})
	setEnv(t, "LOG_LEVEL", "error")

	cfg := config.Load(path)

	if cfg.Build.ArtifactPath != "out/ext.msgpack" {
		t.Errorf("Build.ArtifactPath: got %q, want value from env file", cfg.Build.ArtifactPath)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level: got %q, process env should win over env file", cfg.Log.Level)
	}
}
