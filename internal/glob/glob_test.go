// SPDX-License-Identifier: MPL-2.0

package glob

import (
	"errors"
	"slices"
	"testing"
	"testing/fstest"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		patterns []string
		wantErr  bool
		includes []string
		excludes []string
	}{
		{
			name:     "strips leading dot slash",
			patterns: []string{"./src/**/*.js", "!src/npm/*.js"},
			includes: []string{"src/**/*.js"},
			excludes: []string{"src/npm/*.js"},
		},
		{
			name:     "only excludes",
			patterns: []string{"!src/**/_*.less"},
			wantErr:  true,
		},
		{
			name:     "empty pattern",
			patterns: []string{"src/**/*.js", ""},
			wantErr:  true,
		},
		{
			name:     "unbalanced brace",
			patterns: []string{"src/**/*.{png,jpg"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := Parse(tt.patterns...)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%v) expected error", tt.patterns)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%v) error: %v", tt.patterns, err)
			}
			if got := s.Includes(); !slices.Equal(got, tt.includes) {
				t.Errorf("Includes() = %v, want %v", got, tt.includes)
			}
			if got := s.Excludes(); !slices.Equal(got, tt.excludes) {
				t.Errorf("Excludes() = %v, want %v", got, tt.excludes)
			}
		})
	}
}

func TestParseOnlyExcludesSentinel(t *testing.T) {
	t.Parallel()

	if _, err := Parse("!a/*.js"); !errors.Is(err, ErrNoInclude) {
		t.Fatalf("expected ErrNoInclude, got %v", err)
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	less := MustParse(
		"src/**/*.less",
		"!src/**/_*/**/*.less",
		"!src/**/_*.less",
		"!src/less/**/*.less",
	)
	images := MustParse(
		"src/**/*.{png,jpg,jpeg,svg,gif}",
		"!src/**/_*/**/*.{png,jpg,jpeg,svg,gif}",
		"!src/**/_*.{png,jpg,jpeg,svg,gif}",
	)

	tests := []struct {
		set  Set
		rel  string
		want bool
	}{
		{less, "src/app.less", true},
		{less, "src/pages/index/index.less", true},
		{less, "src/components/_mixins.less", false},
		{less, "src/_partials/button.less", false},
		{less, "src/pages/_shared/deep/x.less", false},
		{less, "src/less/vars.less", false},
		{less, "src/pages/index/index.scss", false},
		{images, "src/images/logo.png", true},
		{images, "src/images/photo.JPG", false},
		{images, "src/a/b/c/icon.svg", true},
		{images, "src/_raw/icon.svg", false},
		{images, "src/images/_sprite.png", false},
		{images, "./src/images/logo.gif", true},
	}

	for _, tt := range tests {
		if got := tt.set.Match(tt.rel); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v (patterns %v)", tt.rel, got, tt.want, tt.set.Patterns())
		}
	}
}

func TestBaseAndRebase(t *testing.T) {
	t.Parallel()

	s := MustParse("src/npm/*.js", "src/**/*.wxml")

	if got := s.Base("src/npm/a.js"); got != "src/npm" {
		t.Errorf("Base(npm) = %q, want src/npm", got)
	}
	if got := s.Rebase("src/pages/index/index.wxml"); got != "pages/index/index.wxml" {
		t.Errorf("Rebase(view) = %q", got)
	}
	if got := s.Base("other/x.txt"); got != "" {
		t.Errorf("Base(unmatched) = %q, want empty", got)
	}
	if got := s.Bases(); !slices.Equal(got, []string{"src/npm", "src"}) {
		t.Errorf("Bases() = %v", got)
	}
}

func TestUnderAndCovers(t *testing.T) {
	t.Parallel()

	s := MustParse("src/**/*.wxml", "src/npm/*.js")

	tests := []struct {
		dir  string
		want map[string]string
	}{
		{"src/pages/old", map[string]string{"src": "pages/old"}},
		{"src/npm/vendor", map[string]string{"src": "npm/vendor", "src/npm": "vendor"}},
		{"src", map[string]string{"src": "", "src/npm": ""}},
		{"./src/pages/", map[string]string{"src": "pages"}},
		{"docs", map[string]string{}},
		{"srcs/pages", map[string]string{}},
	}
	for _, tt := range tests {
		got := s.Under(tt.dir)
		if len(got) != len(tt.want) {
			t.Errorf("Under(%q) = %v, want %v", tt.dir, got, tt.want)
			continue
		}
		for base, rel := range tt.want {
			if got[base] != rel {
				t.Errorf("Under(%q)[%q] = %q, want %q", tt.dir, base, got[base], rel)
			}
		}
		if s.Covers(tt.dir) != (len(tt.want) > 0) {
			t.Errorf("Covers(%q) = %v", tt.dir, s.Covers(tt.dir))
		}
	}

	if got := MustParse("**/*.js").Under("pages"); got[""] != "pages" {
		t.Errorf("Under() with empty base = %v", got)
	}
}

func TestGlobFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"src/app.js":              {Data: []byte("app")},
		"src/pages/index/page.js": {Data: []byte("page")},
		"src/npm/lodash.js":       {Data: []byte("npm")},
		"src/npm/nested/deep.js":  {Data: []byte("deep")},
		"src/app.json":            {Data: []byte("{}")},
		"dist/app.js":             {Data: []byte("old")},
	}

	s := MustParse("./src/**/*.js", "!src/npm/*.js")
	got, err := s.GlobFS(fsys)
	if err != nil {
		t.Fatalf("GlobFS() error: %v", err)
	}
	want := []string{"src/app.js", "src/npm/nested/deep.js", "src/pages/index/page.js"}
	if !slices.Equal(got, want) {
		t.Errorf("GlobFS() = %v, want %v", got, want)
	}
}

func TestGlobDeduplicatesOverlappingIncludes(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"src/a.wxml": {Data: []byte("a")},
		"src/b.html": {Data: []byte("b")},
	}

	s := MustParse("src/**/*.{html,wxml}", "src/*.wxml")
	got, err := s.GlobFS(fsys)
	if err != nil {
		t.Fatalf("GlobFS() error: %v", err)
	}
	if want := []string{"src/a.wxml", "src/b.html"}; !slices.Equal(got, want) {
		t.Errorf("GlobFS() = %v, want %v", got, want)
	}
}
