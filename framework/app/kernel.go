package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/km-arc/go-extend/framework/build"
	"github.com/km-arc/go-extend/framework/config"
	"github.com/km-arc/go-extend/framework/inspect"
	"github.com/km-arc/go-extend/framework/logging"
	"github.com/km-arc/go-extend/framework/manifest"
	"github.com/km-arc/go-extend/framework/model"
	"github.com/km-arc/go-extend/framework/providers"
	"github.com/km-arc/go-extend/framework/report"
	"github.com/km-arc/go-extend/framework/spi"
)

// Application is the top-level build kernel. It owns the configuration, the
// logger, the type catalog manifests resolve against, and the ordered list
// of extensions taking part in the build.
//
//	application := app.New()
//	application.Register(audit.Extension())
//	res, err := application.Build()
type Application struct {
	Config  *config.Config
	Logger  logging.Logger
	Catalog *manifest.Catalog

	// Model is handed to the build as its seed; components the container
	// found on its own go here before Build.
	Model *model.Registry

	extensions []spi.Extension
	manifests  map[string]bool
}

// New loads the configuration from envFiles and the environment, builds
// the logger from it and registers the built-in extensions.
func New(envFiles ...string) *Application {
	cfg := config.Load(envFiles...)
	logger := logging.NewLogger(&logging.Config{
		Level:      logging.Level(cfg.Log.Level),
		JSON:       cfg.Log.JSON,
		TimeFormat: logging.DefaultConfig().TimeFormat,
	})
	return NewWith(cfg, logger)
}

// NewWith assembles an Application from an explicit configuration and
// logger. A nil logger discards output.
func NewWith(cfg *config.Config, logger logging.Logger) *Application {
	if logger == nil {
		logger = logging.Nop()
	}
	a := &Application{
		Config:    cfg,
		Logger:    logger,
		Catalog:   manifest.NewCatalog(),
		Model:     model.New(),
		manifests: make(map[string]bool),
	}
	// Built-in extensions run first within each phase at equal priority.
	a.Register(providers.Defaults()...)
	return a
}

// Register adds extensions to the build, after those already registered.
func (a *Application) Register(exts ...spi.Extension) {
	a.extensions = append(a.extensions, exts...)
}

// Extensions returns the names of the registered extensions in order.
func (a *Application) Extensions() []string {
	names := make([]string, 0, len(a.extensions))
	for _, e := range a.extensions {
		if e != nil {
			names = append(names, e.Name())
		}
	}
	return names
}

// LoadManifest parses the HCL manifest at path and registers it as an
// extension named "manifest:<file>". Loading the same path twice is a no-op.
func (a *Application) LoadManifest(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if a.manifests[abs] {
		return nil
	}
	m, err := manifest.Load(path)
	if err != nil {
		return err
	}
	a.manifests[abs] = true
	a.Register(m.Extension("manifest:"+filepath.Base(path), a.Catalog))
	a.Logger.Debug("manifest loaded", "path", path, "contexts", len(m.Contexts), "components", len(m.Components))
	return nil
}

// Build plans and runs the build. The configured manifest, if any, is
// loaded first. Model is consumed by the run, so Build is called once per
// Application.
func (a *Application) Build() (*build.Result, error) {
	if p := a.Config.Build.ManifestPath; p != "" {
		if err := a.LoadManifest(p); err != nil {
			return nil, err
		}
	}
	policy, err := build.ParseConflictPolicy(a.Config.Build.ConflictPolicy)
	if err != nil {
		return nil, err
	}

	plan, err := build.NewPlan(a.extensions...)
	if err != nil {
		a.Logger.Error("invalid extension configuration", "err", err)
		return nil, err
	}
	runner := build.NewRunner(
		build.WithLogger(a.Logger),
		build.WithConflictPolicy(policy),
		build.WithFailOnWarnings(a.Config.Build.FailOnWarnings),
		build.WithModel(a.Model),
	)
	return runner.Run(plan)
}

// BuildArtifact runs Build and writes its artifact to the configured path,
// whatever the outcome. The build error, if any, is returned alongside the
// artifact.
func (a *Application) BuildArtifact() (*report.Artifact, error) {
	res, buildErr := a.Build()
	artifact := report.New(res, buildErr)
	if path := a.Config.Build.ArtifactPath; path != "" {
		if err := report.Write(path, artifact); err != nil {
			return artifact, fmt.Errorf("write artifact: %w", err)
		}
		a.Logger.Info("artifact written", "path", path, "status", artifact.Status)
	}
	return artifact, buildErr
}

// Serve builds once and serves the artifact through the inspector until ctx
// is cancelled. A failed build is served too.
func (a *Application) Serve(ctx context.Context) error {
	artifact, err := a.BuildArtifact()
	if err != nil {
		a.Logger.Warn("serving an incomplete build", "err", err)
	}
	srv := inspect.NewServer(a.Logger)
	srv.Publish(artifact)
	return srv.ListenAndServe(ctx, a.Config.Inspect.Addr)
}
