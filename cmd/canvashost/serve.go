package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/woxQAQ/canvas-host/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site directory over HTTP",
	Long: `Serve the site directory as static files, so other hosts can load it
by URL.

Examples:
  canvashost serve --site ./demo --addr :8080
  canvashost run --site http://localhost:8080/`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	bindFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if isURL(cfg.Site) {
		return fmt.Errorf("serve needs a site directory, got URL '%s'", cfg.Site)
	}
	_, fsys, err := siteFetcher(cfg.Site)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	logger.Info("Serving site", zap.String("site", cfg.Site), zap.String("addr", cfg.Serve.Addr))
	return server.NewServer(fsys, nil, logger).Serve(ctx, cfg.Serve.Addr)
}
