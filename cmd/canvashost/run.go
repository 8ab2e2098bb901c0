package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/woxQAQ/canvas-host/internal/terminal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the site in the terminal",
	Long: `Run the site's guest in the terminal. Each character cell shows two
canvas pixels. Keyboard and mouse input are forwarded to the guest.

Logs are written to the log file while the terminal is in use.

Controls:
  Ctrl+C   - Close the guest and quit`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting canvashost",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)

	ctx, cancel := signalContext(logger)
	defer cancel()

	alerts := &terminal.AlertBox{}
	a, err := newApp(ctx, cfg, logger, alerts)
	if err != nil {
		logger.Error("Failed to start host", zap.Error(err))
		return exitError(err)
	}
	defer a.Close(context.Background())

	a.serveMetrics(ctx)

	model := terminal.NewModel(ctx, a.host, a.device, alerts, cfg.FPS, logger)
	if err := terminal.Run(model); err != nil {
		return exitError(err)
	}

	logger.Info("Terminal session finished", zap.Uint64("frames", a.host.Frames()))
	return nil
}
