// Package site loads a deployed site: its manifest and its compiled guest.
package site

import (
	"time"

	"github.com/woxQAQ/canvas-host/internal/wasm"
)

// Site represents a loaded site with its manifest and compiled guest module.
type Site struct {
	// Manifest is the parsed site metadata
	Manifest *Manifest

	// Compiled is the compiled guest module
	Compiled *wasm.CompiledModule

	// LoadedAt is the timestamp when the site was loaded
	LoadedAt time.Time
}

// Name returns the site name.
func (s *Site) Name() string {
	return s.Manifest.Name
}

// Title returns the initial window title.
func (s *Site) Title() string {
	return s.Manifest.DisplayTitle()
}

// CanvasSize returns the initial canvas size.
func (s *Site) CanvasSize() (int, int) {
	return s.Manifest.Canvas.Width, s.Manifest.Canvas.Height
}

// PreloadPaths returns the assets to fetch before the guest starts.
func (s *Site) PreloadPaths() []string {
	return s.Manifest.Preload
}

// ModuleName is the name the guest is compiled and instantiated under.
func (s *Site) ModuleName() string {
	return s.Compiled.Name
}
