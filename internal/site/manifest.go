package site

import (
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest name at the site root.
const ManifestFile = "site.yaml"

// Default canvas size used when the manifest leaves it out.
const (
	DefaultCanvasWidth  = 640
	DefaultCanvasHeight = 480
)

// Manifest represents the site.yaml structure.
type Manifest struct {
	Name    string       `yaml:"name"`
	Title   string       `yaml:"title"`
	Guest   GuestConfig  `yaml:"guest"`
	Canvas  CanvasConfig `yaml:"canvas"`
	Preload []string     `yaml:"preload"`

	// Internal fields
	source string // Where the manifest was read from
}

// GuestConfig holds the guest module configuration.
type GuestConfig struct {
	File string `yaml:"file"`
}

// CanvasConfig holds the initial canvas size in pixels.
type CanvasConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ParseManifest parses and validates manifest data read from source.
func ParseManifest(data []byte, source string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: source,
			Err:  err,
		}
	}

	m.source = source

	if m.Canvas.Width == 0 && m.Canvas.Height == 0 {
		m.Canvas.Width = DefaultCanvasWidth
		m.Canvas.Height = DefaultCanvasHeight
	}

	// Validate manifest
	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return &ManifestValidationError{
			Path:    m.source,
			Field:   "name",
			Message: "name is required",
		}
	}

	if m.Guest.File == "" {
		return &ManifestValidationError{
			Path:    m.source,
			Field:   "guest.file",
			Message: "guest.file is required",
		}
	}
	if !isSiteRelative(m.Guest.File) {
		return &ManifestValidationError{
			Path:    m.source,
			Field:   "guest.file",
			Message: fmt.Sprintf("path must stay inside the site: %s", m.Guest.File),
		}
	}

	if m.Canvas.Width <= 0 || m.Canvas.Height <= 0 {
		return &ManifestValidationError{
			Path:    m.source,
			Field:   "canvas",
			Message: fmt.Sprintf("canvas size must be positive, got %dx%d", m.Canvas.Width, m.Canvas.Height),
		}
	}

	for _, p := range m.Preload {
		if p == "" || !isSiteRelative(p) {
			return &ManifestValidationError{
				Path:    m.source,
				Field:   "preload",
				Message: fmt.Sprintf("path must stay inside the site: %q", p),
			}
		}
	}

	return nil
}

// Source returns where the manifest was read from.
func (m *Manifest) Source() string {
	return m.source
}

// DisplayTitle is the title shown before the guest sets its own.
func (m *Manifest) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

func isSiteRelative(p string) bool {
	clean := path.Clean(strings.TrimPrefix(p, "/"))
	return clean != ".." && !strings.HasPrefix(clean, "../")
}
