// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"strings"
	"testing"
)

func TestOutputStyleIsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		style OutputStyle
		want  bool
	}{
		{OutputStyleNested, true},
		{OutputStyleExpanded, true},
		{OutputStyleCompact, true},
		{OutputStyleCompressed, true},
		{"", false},
		{"EXPANDED", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.style), func(t *testing.T) {
			t.Parallel()
			ok, errs := tt.style.IsValid()
			if ok != tt.want {
				t.Errorf("IsValid() = %v, want %v", ok, tt.want)
			}
			if !tt.want && (len(errs) == 0 || !errors.Is(errs[0], ErrInvalidOutputStyle)) {
				t.Errorf("errors = %v, want ErrInvalidOutputStyle", errs)
			}
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestValidateCollectsFieldErrors(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Source = ""
	cfg.Inline.Extensions = []string{".png"}
	cfg.Inline.MaxSize = -1
	cfg.Less.Command = " "
	cfg.Image.JPEGQuality = 101
	cfg.Watch.Ignore = []string{"[bad"}

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
	}
	var ice *InvalidConfigError
	if !errors.As(err, &ice) {
		t.Fatalf("Validate() = %T, want *InvalidConfigError", err)
	}
	if len(ice.FieldErrors) != 6 {
		t.Errorf("FieldErrors = %d, want 6: %v", len(ice.FieldErrors), ice.FieldErrors)
	}
	for _, key := range []string{"source", "inline.extensions[0]", "inline.max_size", "less.command", "image.jpeg_quality", "watch.ignore[0]"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestIsWithin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		child, parent string
		want          bool
	}{
		{"src/out", "src", true},
		{"src", "src", false},
		{"srcs", "src", false},
		{"src", ".", true},
		{"../src", ".", false},
		{"dist", "src", false},
	}
	for _, tt := range tests {
		if got := isWithin(tt.child, tt.parent); got != tt.want {
			t.Errorf("isWithin(%q, %q) = %v, want %v", tt.child, tt.parent, got, tt.want)
		}
	}
}
