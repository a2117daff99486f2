// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/wxpipe/wxpipe/internal/asset"
	"github.com/wxpipe/wxpipe/internal/bundle"
	"github.com/wxpipe/wxpipe/internal/config"
	"github.com/wxpipe/wxpipe/internal/datauri"
	"github.com/wxpipe/wxpipe/internal/imageopt"
	"github.com/wxpipe/wxpipe/internal/stylesheet"
)

// NewCategories builds every category of DefaultRoutes with the transformers
// configured by cfg. root is the absolute project directory.
func NewCategories(root string, cfg *config.Config) ([]Category, error) {
	routes, err := DefaultRoutes(cfg.Source)
	if err != nil {
		return nil, err
	}
	sourceDir := filepath.Join(root, cfg.Source)

	// A max_size of zero turns inlining off; Chain drops the nil inliner.
	var inliner asset.Transformer
	if cfg.Inline.MaxSize > 0 {
		inliner = datauri.New(datauri.Options{
			Extensions: cfg.Inline.Extensions,
			MaxSize:    cfg.Inline.MaxSize,
			Root:       sourceDir,
		})
	}
	less, err := stylesheet.NewCommand("less", cfg.Less.Command, root)
	if err != nil {
		return nil, err
	}
	scss := stylesheet.NewSCSS(stylesheet.SCSSOptions{
		IncludePaths: []string{sourceDir},
		Precision:    cfg.Sass.Precision,
		OutputStyle:  cfg.Sass.OutputStyle.String(),
	})
	bundler, err := bundle.New(bundle.Options{
		Minify: cfg.Bundle.Minify,
		Target: cfg.Bundle.Target,
	})
	if err != nil {
		return nil, err
	}

	cats := make([]Category, 0, len(routes))
	for _, r := range routes {
		c := Category{Route: r}
		switch r.Name {
		case NPM:
			c.Bundler = bundler
		case Image:
			c.Transform = imageopt.New(imageopt.Options{JPEGQuality: cfg.Image.JPEGQuality})
		case WXSS:
			c.Transform = asset.Chain(stylesheet.Passthrough, inliner)
		case LESS:
			c.Transform = asset.Chain(less, inliner)
		case SASS:
			c.Transform = asset.Chain(scss, inliner)
		case JSON, JS, Views:
			// copied verbatim
		default:
			return nil, fmt.Errorf("no processing defined for category %q", r.Name)
		}
		cats = append(cats, c)
	}
	return cats, nil
}

// Select returns the categories named in names, in the order given.
func Select(cats []Category, names ...Name) ([]Category, error) {
	out := make([]Category, 0, len(names))
	for _, n := range names {
		found := false
		for _, c := range cats {
			if c.Name == n {
				out = append(out, c)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown category %q", n)
		}
	}
	return out, nil
}

// Routes returns the routes of cats.
func Routes(cats []Category) []Route {
	out := make([]Route, len(cats))
	for i, c := range cats {
		out[i] = c.Route
	}
	return out
}
