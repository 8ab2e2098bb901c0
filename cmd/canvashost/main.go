// canvashost runs a WebAssembly canvas guest outside the browser.
//
// Usage:
//
//	canvashost run                 - Run the site in the terminal
//	canvashost snapshot            - Run frames headless and write a PNG
//	canvashost serve               - Serve the site directory over HTTP
//
// Global flags:
//
//	--config <path>   - Configuration file (YAML)
//	--site <dir|url>  - Site directory or base URL (default: .)
//	--fps <rate>      - Frame rate (default: 60)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/woxQAQ/canvas-host/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	// v collects defaults, the config file, environment and bound flags.
	v = config.New()

	flagConfig string
	cfg        *config.HostConfig
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "canvashost",
	Short: "Run WebAssembly canvas guests outside the browser",
	Long: `canvashost loads a site (a site.yaml manifest, a guest module and its
assets), preloads the assets and drives the guest's frames.

Examples:
  canvashost run --site ./demo
  canvashost snapshot --site ./demo --frames 30 --out frame.png
  canvashost run --site http://localhost:8080/demo
  canvashost serve --site ./demo --addr :8080`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v, flagConfig)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "Path to configuration file")
	flags.String("site", ".", "Site directory or base URL")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-file", "canvashost.log", "Log file used while the terminal is in use")
	flags.Int("fps", 60, "Frames per second")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	flags.String("wasm-cache-dir", "", "Directory for the compilation cache")

	bindFlag("site", flags.Lookup("site"))
	bindFlag("log_level", flags.Lookup("log-level"))
	bindFlag("log_file", flags.Lookup("log-file"))
	bindFlag("fps", flags.Lookup("fps"))
	bindFlag("metrics.addr", flags.Lookup("metrics-addr"))
	bindFlag("wasm.cache_dir", flags.Lookup("wasm-cache-dir"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(serveCmd)
}
