package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "extbuild",
	Short: "Run container extensions at build time",
	Long: `extbuild runs every registered extension through the five build phases
(discovery, enhancement, registration, synthesis, validation), writes the
resulting artifact and reports the messages the extensions recorded.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)

	// Global flags
	rootCmd.PersistentFlags().StringSlice("env-file", nil, "env files to load (default .env)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
