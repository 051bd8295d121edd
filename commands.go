package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/km-arc/go-extend/framework/app"
	"github.com/km-arc/go-extend/framework/config"
	"github.com/km-arc/go-extend/framework/logging"
	"github.com/km-arc/go-extend/framework/report"
)

// ── build ────────────────────────────────────────────────────────────────────

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the extension phases and write the build artifact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, err := newApplication(cmd)
		if err != nil {
			return err
		}
		artifact, buildErr := application.BuildArtifact()
		if err := report.Render(cmd.OutOrStdout(), artifact); err != nil {
			return err
		}
		return buildErr
	},
}

// ── inspect ──────────────────────────────────────────────────────────────────

var inspectCmd = &cobra.Command{
	Use:   "inspect <artifact>",
	Short: "Print a previously written build artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyColor(cmd); err != nil {
			return err
		}
		artifact, err := report.Read(args[0])
		if err != nil {
			return err
		}
		return report.Render(cmd.OutOrStdout(), artifact)
	},
}

// ── serve ────────────────────────────────────────────────────────────────────

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build once and serve the result over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, err := newApplication(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return application.Serve(ctx)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{buildCmd, serveCmd} {
		cmd.Flags().String("manifest", "", "HCL manifest declaring contexts and components")
		cmd.Flags().String("out", "", "artifact path")
		cmd.Flags().String("conflict-policy", "", "context conflict policy (error|last-wins)")
		cmd.Flags().Bool("fail-on-warnings", false, "treat validation warnings as errors")
	}
	serveCmd.Flags().String("addr", "", "inspector listen address")
}

// ── helpers ──────────────────────────────────────────────────────────────────

// newApplication loads the configuration, lets explicitly set flags override
// it and builds the application kernel.
func newApplication(cmd *cobra.Command) (*app.Application, error) {
	if err := applyColor(cmd); err != nil {
		return nil, err
	}
	envFiles, err := cmd.Flags().GetStringSlice("env-file")
	if err != nil {
		return nil, err
	}
	cfg := config.Load(envFiles...)

	flags := cmd.Flags()
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"manifest", &cfg.Build.ManifestPath},
		{"out", &cfg.Build.ArtifactPath},
		{"conflict-policy", &cfg.Build.ConflictPolicy},
		{"addr", &cfg.Inspect.Addr},
		{"log-level", &cfg.Log.Level},
	}
	for _, o := range overrides {
		if flags.Lookup(o.flag) == nil || !flags.Changed(o.flag) {
			continue
		}
		if *o.dst, err = flags.GetString(o.flag); err != nil {
			return nil, err
		}
	}
	if flags.Changed("fail-on-warnings") {
		cfg.Build.FailOnWarnings, _ = flags.GetBool("fail-on-warnings")
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON, _ = flags.GetBool("log-json")
	}

	logger := logging.NewLogger(&logging.Config{
		Level:      logging.Level(cfg.Log.Level),
		Output:     cmd.ErrOrStderr(),
		JSON:       cfg.Log.JSON,
		TimeFormat: logging.DefaultConfig().TimeFormat,
	})
	return app.NewWith(cfg, logger), nil
}

func applyColor(cmd *cobra.Command) error {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return err
	}
	switch mode {
	case "auto":
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (want auto, on or off)", mode)
	}
	return nil
}
