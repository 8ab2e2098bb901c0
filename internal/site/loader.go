package site

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/canvas-host/internal/preload"
	"github.com/woxQAQ/canvas-host/internal/wasm"
)

// Loader handles loading a site through a fetcher.
type Loader struct {
	runtime      *wasm.Runtime
	moduleLoader *wasm.ModuleLoader
	logger       *zap.Logger
}

// NewLoader creates a new site loader.
func NewLoader(runtime *wasm.Runtime, logger *zap.Logger) *Loader {
	return &Loader{
		runtime:      runtime,
		moduleLoader: wasm.NewModuleLoader(runtime, logger),
		logger:       logger.With(zap.String("component", "site-loader")),
	}
}

// Load fetches the manifest and guest module, compiles the guest and checks
// its export surface.
func (l *Loader) Load(ctx context.Context, fetcher preload.Fetcher) (*Site, error) {
	l.logger.Debug("Loading site manifest", zap.String("file", ManifestFile))

	data, err := fetcher.Fetch(ctx, ManifestFile)
	if err != nil {
		return nil, &ManifestNotFoundError{Path: ManifestFile, Err: err}
	}

	manifest, err := ParseManifest(data, ManifestFile)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loading site",
		zap.String("name", manifest.Name),
		zap.String("guest", manifest.Guest.File),
		zap.Int("preload", len(manifest.Preload)),
	)

	guest, err := fetcher.Fetch(ctx, manifest.Guest.File)
	if err != nil {
		return nil, &GuestNotFoundError{
			ManifestPath: manifest.Source(),
			GuestFile:    manifest.Guest.File,
			Err:          err,
		}
	}

	// Compile guest module (uses internal caching)
	compiled, err := l.moduleLoader.LoadModuleFromMemory(ctx, manifest.Name, guest)
	if err != nil {
		return nil, &SiteLoadError{
			SiteName: manifest.Name,
			Err:      err,
		}
	}

	if missing := missingExports(compiled); len(missing) > 0 {
		return nil, &MissingExportError{
			GuestFile: manifest.Guest.File,
			Missing:   missing,
		}
	}

	site := &Site{
		Manifest: manifest,
		Compiled: compiled,
		LoadedAt: time.Now(),
	}

	l.logger.Info("Site loaded successfully",
		zap.String("name", manifest.Name),
		zap.Int64("size_bytes", compiled.SizeBytes),
	)

	return site, nil
}

func missingExports(compiled *wasm.CompiledModule) []string {
	have := make(map[string]bool)
	for _, name := range compiled.ExportedFunctions() {
		have[name] = true
	}

	var missing []string
	for _, name := range wasm.RequiredExports {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
