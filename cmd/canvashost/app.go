package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/woxQAQ/canvas-host/internal/config"
	"github.com/woxQAQ/canvas-host/internal/host"
	"github.com/woxQAQ/canvas-host/internal/metrics"
	"github.com/woxQAQ/canvas-host/internal/preload"
	"github.com/woxQAQ/canvas-host/internal/render"
	"github.com/woxQAQ/canvas-host/internal/server"
	"github.com/woxQAQ/canvas-host/internal/site"
	"github.com/woxQAQ/canvas-host/internal/wasm"
)

func bindFlag(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// newLogger builds the process logger. When toFile is set the logs go to
// the configured log file so they do not corrupt the terminal.
func newLogger(cfg *config.HostConfig, toFile bool) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if level.Level() == zap.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level
	if toFile {
		zcfg.OutputPaths = []string{cfg.LogFile}
		zcfg.ErrorOutputPaths = []string{cfg.LogFile}
	}
	return zcfg.Build()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// siteFetcher resolves the site location to a fetcher. Directories also
// yield their file system; URLs do not.
func siteFetcher(location string) (preload.Fetcher, fs.FS, error) {
	if isURL(location) {
		f, err := preload.NewHTTPFetcher(location, nil)
		if err != nil {
			return nil, nil, err
		}
		return f, nil, nil
	}

	info, err := os.Stat(location)
	if err != nil {
		return nil, nil, fmt.Errorf("site '%s': %w", location, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("site '%s' is not a directory", location)
	}
	fsys := os.DirFS(location)
	return preload.NewDirFetcher(fsys), fsys, nil
}

// app is a started host with everything it was built from.
type app struct {
	cfg     *config.HostConfig
	logger  *zap.Logger
	runtime *wasm.Runtime
	site    *site.Site
	device  *render.SoftwareDevice
	metrics *metrics.HostMetrics
	host    *host.Host
}

// newApp loads the site, preloads its assets and starts the guest.
func newApp(ctx context.Context, cfg *config.HostConfig, logger *zap.Logger, alerter host.Alerter) (*app, error) {
	fetcher, _, err := siteFetcher(cfg.Site)
	if err != nil {
		return nil, err
	}

	wasmConfig := &wasm.RuntimeConfig{
		MemoryPages:  cfg.Wasm.MemoryPages,
		DebugEnabled: cfg.Wasm.Debug,
		CacheDir:     cfg.Wasm.CacheDir,
	}

	runtime, err := wasm.NewRuntime(ctx, logger, wasmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Wasm runtime: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		runtime: runtime,
		metrics: metrics.NewHostMetrics(),
	}

	if err := a.start(ctx, fetcher, alerter); err != nil {
		a.Close(context.Background())
		return nil, err
	}

	logger.Info("Host initialized",
		zap.String("site", a.site.Name()),
		zap.Uint32("wasm_memory_pages", cfg.Wasm.MemoryPages),
		zap.String("wasm_cache_dir", cfg.Wasm.CacheDir),
	)

	return a, nil
}

func (a *app) start(ctx context.Context, fetcher preload.Fetcher, alerter host.Alerter) error {
	loaded, err := site.NewLoader(a.runtime, a.logger).Load(ctx, fetcher)
	if err != nil {
		return err
	}
	a.site = loaded

	width, height := loaded.CanvasSize()
	a.device = render.NewSoftwareDevice(width, height)

	store := preload.NewStore(a.logger,
		preload.WithConcurrency(a.cfg.Preload.Concurrency),
		preload.WithRecorder(a.metrics),
	)

	a.host = host.New(host.Options{
		Logger:       a.logger,
		Runtime:      a.runtime,
		ModuleName:   loaded.ModuleName(),
		Device:       a.device,
		Store:        store,
		Alerter:      alerter,
		Metrics:      a.metrics,
		Title:        loaded.Title(),
		CanvasWidth:  width,
		CanvasHeight: height,
	})

	preloadCtx := ctx
	if a.cfg.Preload.Timeout > 0 {
		var cancel context.CancelFunc
		preloadCtx, cancel = context.WithTimeout(ctx, a.cfg.Preload.Timeout)
		defer cancel()
	}
	a.host.Preload(preloadCtx, fetcher, loaded.PreloadPaths())

	return a.host.Start(context.WithoutCancel(ctx))
}

// serveMetrics exposes the metrics until ctx is done when an address is
// configured.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.Metrics.Addr == "" {
		return
	}
	srv := server.NewServer(nil, a.metrics, a.logger)
	go func() {
		if err := srv.Serve(ctx, a.cfg.Metrics.Addr); err != nil {
			a.logger.Error("Metrics server error", zap.Error(err))
		}
	}()
}

// Close shuts down the runtime and every guest instance in it.
func (a *app) Close(ctx context.Context) error {
	a.logger.Info("Shutting down host")

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := a.runtime.Close(closeCtx); err != nil {
		a.logger.Error("Failed to shutdown Wasm runtime", zap.Error(err))
		return err
	}

	a.logger.Info("Host shutdown complete")
	return nil
}

// exitError reports a guest failure with the alert text when there is one.
func exitError(err error) error {
	var fatal *host.FatalError
	if errors.As(err, &fatal) {
		return fmt.Errorf("guest stopped: %w", fatal.Err)
	}
	return err
}
