package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the central typed configuration struct.
type Config struct {
	Build   BuildConfig
	Log     LogConfig
	Inspect InspectConfig
}

type BuildConfig struct {
	ConflictPolicy string // error | last-wins
	ArtifactPath   string
	ManifestPath   string // empty: no manifest
	FailOnWarnings bool
}

type LogConfig struct {
	Level string // debug | info | warn | error
	JSON  bool
}

type InspectConfig struct {
	Addr string
}

// Load reads .env (if present) and populates a Config from environment variables.
// Variables already set in the environment win over .env entries.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in CI
	_ = godotenv.Load(files...)

	return &Config{
		Build: BuildConfig{
			ConflictPolicy: env("EXT_CONFLICT_POLICY", "error"),
			ArtifactPath:   env("EXT_ARTIFACT_PATH", "build/extensions.msgpack"),
			ManifestPath:   env("EXT_MANIFEST", ""),
			FailOnWarnings: envBool("EXT_FAIL_ON_WARNINGS", false),
		},
		Log: LogConfig{
			Level: env("LOG_LEVEL", "info"),
			JSON:  envBool("LOG_JSON", false),
		},
		Inspect: InspectConfig{
			Addr: env("INSPECT_ADDR", ":8000"),
		},
	}
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
