package site

import (
	"fmt"
	"strings"
)

// ManifestNotFoundError occurs when site.yaml cannot be fetched.
type ManifestNotFoundError struct {
	Path string
	Err  error
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("manifest not found at '%s': %v", e.Path, e.Err)
}

func (e *ManifestNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestParseError occurs when site.yaml cannot be parsed as valid YAML.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse manifest at '%s': %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// ManifestValidationError occurs when site.yaml fails validation.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("manifest validation failed at '%s': %s (field: %s)",
			e.Path, e.Message, e.Field)
	}
	return fmt.Sprintf("manifest validation failed at '%s': %s", e.Path, e.Message)
}

// GuestNotFoundError occurs when the guest module referenced in the manifest
// cannot be fetched.
type GuestNotFoundError struct {
	ManifestPath string
	GuestFile    string
	Err          error
}

func (e *GuestNotFoundError) Error() string {
	return fmt.Sprintf("guest module '%s' not found (referenced in manifest '%s'): %v",
		e.GuestFile, e.ManifestPath, e.Err)
}

func (e *GuestNotFoundError) Unwrap() error {
	return e.Err
}

// MissingExportError occurs when the guest lacks part of the export surface.
type MissingExportError struct {
	GuestFile string
	Missing   []string
}

func (e *MissingExportError) Error() string {
	return fmt.Sprintf("guest module '%s' is missing exports: %s",
		e.GuestFile, strings.Join(e.Missing, ", "))
}

// SiteLoadError occurs when the guest module fails to compile.
type SiteLoadError struct {
	SiteName string
	Err      error
}

func (e *SiteLoadError) Error() string {
	return fmt.Sprintf("failed to load site '%s': %v", e.SiteName, e.Err)
}

func (e *SiteLoadError) Unwrap() error {
	return e.Err
}
