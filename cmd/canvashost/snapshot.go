package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/woxQAQ/canvas-host/internal/host"
)

var flagOut string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Run frames without a display and save the canvas",
	Long: `Run the guest headless for a number of frames at the configured rate,
then write the canvas to a PNG file. With --frames 0 frames run until
interrupted.

Examples:
  canvashost snapshot --site ./demo
  canvashost snapshot --site ./demo --frames 120 --out demo.png`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().Int("frames", 1, "Number of frames to run (0 = until interrupted)")
	snapshotCmd.Flags().StringVar(&flagOut, "out", "canvas.png", "Output PNG file")
	bindFlag("frames", snapshotCmd.Flags().Lookup("frames"))
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext(logger)
	defer cancel()

	frames, err := snapshot(ctx, logger, flagOut)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s after %d frames\n", flagOut, frames)
	return nil
}

// snapshot starts the site, runs the configured frames and writes the
// canvas to out.
func snapshot(ctx context.Context, logger *zap.Logger, out string) (int, error) {
	a, err := newApp(ctx, cfg, logger, nil)
	if err != nil {
		return 0, err
	}
	defer a.Close(context.Background())

	a.serveMetrics(ctx)

	frames, err := host.NewRunner(a.host, cfg.FPS, cfg.Frames, logger).Run(ctx)
	if err != nil {
		return frames, exitError(err)
	}

	if err := writePNG(out, a.device.Snapshot()); err != nil {
		return frames, err
	}
	return frames, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
