// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// OutputStyleNested is the libsass nested style.
	OutputStyleNested OutputStyle = "nested"
	// OutputStyleExpanded is the libsass expanded style (default).
	OutputStyleExpanded OutputStyle = "expanded"
	// OutputStyleCompact is the libsass compact style.
	OutputStyleCompact OutputStyle = "compact"
	// OutputStyleCompressed is the libsass compressed style.
	OutputStyleCompressed OutputStyle = "compressed"
)

var (
	// ErrInvalidOutputStyle is returned when an OutputStyle value is not recognized.
	ErrInvalidOutputStyle = errors.New("invalid sass output style")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// OutputStyle selects how libsass formats compiled CSS.
	OutputStyle string

	// InvalidOutputStyleError is returned when an OutputStyle value is not
	// recognized. It wraps ErrInvalidOutputStyle.
	InvalidOutputStyleError struct {
		Value OutputStyle
	}

	// InvalidConfigError collects every field error found by Config.Validate.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the complete wxpipe configuration.
	Config struct {
		// Source is the source root, relative to the project directory.
		Source string `json:"source" mapstructure:"source"`
		// Dist is the output root, relative to the project directory.
		Dist string `json:"dist" mapstructure:"dist"`
		// Inline controls data URI inlining in stylesheets.
		Inline InlineConfig `json:"inline" mapstructure:"inline"`
		// Less configures the LESS compiler command.
		Less LessConfig `json:"less" mapstructure:"less"`
		// Sass configures libsass.
		Sass SassConfig `json:"sass" mapstructure:"sass"`
		// Image configures image optimization.
		Image ImageConfig `json:"image" mapstructure:"image"`
		// Bundle configures the npm bundler.
		Bundle BundleConfig `json:"bundle" mapstructure:"bundle"`
		// Watch configures the file watchers.
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
		// UI configures console output.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// InlineConfig selects which marked images are inlined as data URIs.
	InlineConfig struct {
		// Extensions lists inlinable extensions without the dot.
		Extensions []string `json:"extensions" mapstructure:"extensions"`
		// MaxSize is the exclusive size limit in bytes. Zero disables
		// inlining.
		MaxSize int64 `json:"max_size" mapstructure:"max_size"`
	}

	// LessConfig holds the shell command that compiles LESS from stdin.
	LessConfig struct {
		Command string `json:"command" mapstructure:"command"`
	}

	// SassConfig configures libsass.
	SassConfig struct {
		Precision   int         `json:"precision" mapstructure:"precision"`
		OutputStyle OutputStyle `json:"output_style" mapstructure:"output_style"`
	}

	// ImageConfig configures image re-encoding.
	ImageConfig struct {
		JPEGQuality int `json:"jpeg_quality" mapstructure:"jpeg_quality"`
	}

	// BundleConfig configures the npm bundler.
	BundleConfig struct {
		Minify bool   `json:"minify" mapstructure:"minify"`
		Target string `json:"target" mapstructure:"target"`
	}

	// WatchConfig configures watch mode.
	WatchConfig struct {
		// Debounce is the quiet period before a watch pass starts.
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		// Ignore lists extra doublestar patterns, relative to the project
		// directory, that never trigger a pass.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
	}

	// UIConfig configures console output.
	UIConfig struct {
		// Verbose enables debug logging.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the configuration used when no wxpipe.cue exists.
func DefaultConfig() *Config {
	return &Config{
		Source: "src",
		Dist:   "dist",
		Inline: InlineConfig{
			Extensions: []string{"png", "jpg"},
			MaxSize:    10 * 1024,
		},
		Less: LessConfig{
			Command: `lessc --include-path="$WXPIPE_DIR" -`,
		},
		Sass: SassConfig{
			Precision:   5,
			OutputStyle: OutputStyleExpanded,
		},
		Image: ImageConfig{
			JPEGQuality: 90,
		},
		Bundle: BundleConfig{
			Minify: true,
			Target: "es2015",
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
			Ignore:   []string{},
		},
		UI: UIConfig{
			Verbose: false,
		},
	}
}

// String returns the string representation of the OutputStyle.
func (s OutputStyle) String() string { return string(s) }

// IsValid returns whether the OutputStyle is one of the libsass styles.
func (s OutputStyle) IsValid() (bool, []error) {
	switch s {
	case OutputStyleNested, OutputStyleExpanded, OutputStyleCompact, OutputStyleCompressed:
		return true, nil
	default:
		return false, []error{&InvalidOutputStyleError{Value: s}}
	}
}

// Error implements the error interface for InvalidOutputStyleError.
func (e *InvalidOutputStyleError) Error() string {
	return fmt.Sprintf("invalid sass output style %q (valid: nested, expanded, compact, compressed)", e.Value)
}

// Unwrap returns ErrInvalidOutputStyle for errors.Is() compatibility.
func (e *InvalidOutputStyleError) Unwrap() error { return ErrInvalidOutputStyle }

// Validate checks the constraints CUE cannot express on its own and the ones
// that must also hold for programmatically built configs.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Source) == "" {
		errs = append(errs, errors.New("source: must not be empty"))
	}
	if strings.TrimSpace(c.Dist) == "" {
		errs = append(errs, errors.New("dist: must not be empty"))
	}
	if c.Source != "" && c.Dist != "" {
		src, dist := filepath.Clean(c.Source), filepath.Clean(c.Dist)
		switch {
		case src == dist:
			errs = append(errs, fmt.Errorf("dist: %q is the source directory", c.Dist))
		case isWithin(src, dist):
			errs = append(errs, fmt.Errorf("dist: %q contains the source directory", c.Dist))
		case isWithin(dist, src):
			errs = append(errs, fmt.Errorf("dist: %q is inside the source directory", c.Dist))
		}
	}

	for i, ext := range c.Inline.Extensions {
		if ext == "" || strings.ContainsAny(ext, "./") {
			errs = append(errs, fmt.Errorf("inline.extensions[%d]: %q is not a bare extension", i, ext))
		}
	}
	if c.Inline.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("inline.max_size: %d is negative", c.Inline.MaxSize))
	}
	if strings.TrimSpace(c.Less.Command) == "" {
		errs = append(errs, errors.New("less.command: must not be empty"))
	}
	if c.Sass.Precision < 0 {
		errs = append(errs, fmt.Errorf("sass.precision: %d is negative", c.Sass.Precision))
	}
	if ok, styleErrs := c.Sass.OutputStyle.IsValid(); !ok {
		for _, e := range styleErrs {
			errs = append(errs, fmt.Errorf("sass.output_style: %w", e))
		}
	}
	if c.Image.JPEGQuality < 1 || c.Image.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("image.jpeg_quality: %d is outside 1..100", c.Image.JPEGQuality))
	}
	if strings.TrimSpace(c.Bundle.Target) == "" {
		errs = append(errs, errors.New("bundle.target: must not be empty"))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce: %s is negative", c.Watch.Debounce))
	}
	for i, pat := range c.Watch.Ignore {
		if pat == "" || !doublestar.ValidatePattern(pat) {
			errs = append(errs, fmt.Errorf("watch.ignore[%d]: invalid pattern %q", i, pat))
		}
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// isWithin reports whether child is strictly below parent. Both are clean
// relative or absolute paths of the same kind.
func isWithin(child, parent string) bool {
	if parent == "." {
		return child != "." && !strings.HasPrefix(child, "..")
	}
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
