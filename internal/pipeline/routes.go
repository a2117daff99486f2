// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/wxpipe/wxpipe/internal/asset"
	"github.com/wxpipe/wxpipe/internal/glob"
)

// Category names, also used as CLI command names.
const (
	NPM   Name = "npm"
	Image Name = "image"
	JSON  Name = "json"
	JS    Name = "js"
	WXSS  Name = "wxss"
	LESS  Name = "less"
	SASS  Name = "sass"
	Views Name = "views"
)

const (
	// StyleExt is the extension of every compiled stylesheet.
	StyleExt = ".wxss"
	// ViewExt is the extension of every view template.
	ViewExt = ".wxml"
	// BundleOutput is the npm bundle path relative to dist.
	BundleOutput = "npm/index.js"
)

// Order lists every category in the order passes are started.
var Order = []Name{NPM, Image, JSON, JS, WXSS, LESS, SASS, Views}

type (
	// Name identifies a category.
	Name string

	// Route is the static description of a category: which files it reads
	// and where their outputs go.
	Route struct {
		Name Name
		// Label is the human name used in completion banners.
		Label string
		// Sources selects the files processed by a pass.
		Sources glob.Set
		// Watch selects the files whose changes trigger a pass. The zero
		// Set means Sources.
		Watch glob.Set
		// Ext replaces the extension of every output. Empty keeps it.
		Ext string
		// Output, when set, is the single dist-relative file all sources
		// fold into.
		Output string
	}
)

// ParseName validates s as a category name.
func ParseName(s string) (Name, error) {
	for _, n := range Order {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// String returns the category name.
func (n Name) String() string { return string(n) }

// Bundled reports whether all sources fold into Output.
func (r Route) Bundled() bool {
	return r.Output != ""
}

// WatchSet returns the patterns that trigger the category.
func (r Route) WatchSet() glob.Set {
	if r.Watch.IsZero() {
		return r.Sources
	}
	return r.Watch
}

// OutputPath maps a root-relative source path to its dist-relative output:
// the include base is dropped and the extension replaced.
func (r Route) OutputPath(rel string) string {
	if r.Bundled() {
		return r.Output
	}
	return asset.ReplaceExt(r.Sources.Rebase(rel), r.Ext)
}

// mirrors reports whether the dist-relative out is a file the route would
// write for a source below base.
func (r Route) mirrors(base, out string) bool {
	switch {
	case r.Bundled():
		return false
	case r.Ext != "":
		return path.Ext(out) == r.Ext
	default:
		return r.Sources.Match(path.Join(base, out))
	}
}

// DefaultRoutes returns the routing table for a project whose sources live
// under source (relative to the project root, slash or OS separated).
func DefaultRoutes(source string) ([]Route, error) {
	s := path.Clean(filepath.ToSlash(source))
	if s == "." || s == "" || strings.HasPrefix(s, "../") || s == ".." {
		return nil, fmt.Errorf("source directory %q must be below the project root", source)
	}
	j := func(pattern string) string { return s + "/" + pattern }

	const images = "{png,jpg,jpeg,svg,gif}"

	specs := []struct {
		name    Name
		label   string
		sources []string
		watch   []string
		ext     string
		output  string
	}{
		{
			name:    NPM,
			label:   "Npm package",
			sources: []string{j("npm/*.js")},
			output:  BundleOutput,
		},
		{
			name:  Image,
			label: "Image",
			sources: []string{
				j("**/*." + images),
				"!" + j("**/_*/**/*."+images),
				"!" + j("**/_*."+images),
			},
		},
		{
			name:    JSON,
			label:   "Json",
			sources: []string{j("**/*.json")},
		},
		{
			name:    JS,
			label:   "JS",
			sources: []string{j("**/*.js"), "!" + j("npm/*.js")},
		},
		{
			name:    WXSS,
			label:   "wxss to wxss",
			sources: []string{j("**/*.wxss")},
			ext:     StyleExt,
		},
		{
			name:  LESS,
			label: "less to wxss",
			sources: []string{
				j("**/*.less"),
				"!" + j("**/_*/**/*.less"),
				"!" + j("**/_*.less"),
				"!" + j("less/**/*.less"),
			},
			// Partials and the shared less/ directory are imported by the
			// compiled sheets, so they trigger a pass too.
			watch: []string{j("**/*.less")},
			ext:   StyleExt,
		},
		{
			name:  SASS,
			label: "sass to wxss",
			sources: []string{
				j("**/*.scss"),
				"!" + j("**/_*/**/*.scss"),
				"!" + j("**/_*.scss"),
				"!" + j("scss/**/*.scss"),
			},
			watch: []string{j("**/*.scss")},
			ext:   StyleExt,
		},
		{
			name:    Views,
			label:   "Wxml",
			sources: []string{j("**/*.{html,wxml}")},
			ext:     ViewExt,
		},
	}

	routes := make([]Route, 0, len(specs))
	for _, sp := range specs {
		src, err := glob.Parse(sp.sources...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sp.name, err)
		}
		r := Route{Name: sp.name, Label: sp.label, Sources: src, Ext: sp.ext, Output: sp.output}
		if len(sp.watch) > 0 {
			if r.Watch, err = glob.Parse(sp.watch...); err != nil {
				return nil, fmt.Errorf("%s: %w", sp.name, err)
			}
		}
		routes = append(routes, r)
	}
	return routes, nil
}
