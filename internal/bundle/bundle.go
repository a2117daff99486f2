// SPDX-License-Identifier: MPL-2.0

// Package bundle folds npm entry modules into a single commonjs module with
// esbuild.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// ErrNoEntries is returned when a request has no entry files.
var ErrNoEntries = errors.New("bundle: no entry points")

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

type (
	// Options configures a Bundler.
	Options struct {
		Minify bool
		// Target is an ECMAScript level such as "es2015" or "esnext".
		Target string
	}

	// Request describes one bundling run.
	Request struct {
		// Entries are absolute paths of the entry modules.
		Entries []string
		// Outfile is the absolute path the bundle will be written to. It names
		// the output in source maps; nothing is written by the Bundler.
		Outfile string
		// Sourcemap appends an inline source map.
		Sourcemap bool
	}

	// Bundler runs esbuild.
	Bundler struct {
		opts   Options
		target api.Target
	}
)

// Targets lists the accepted Options.Target values.
func Targets() []string {
	out := make([]string, 0, len(targets))
	for k := range targets {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// New returns a Bundler. An unknown target is an error.
func New(opts Options) (*Bundler, error) {
	target := api.ES2015
	if opts.Target != "" {
		t, ok := targets[strings.ToLower(opts.Target)]
		if !ok {
			return nil, fmt.Errorf("bundle: unknown target %q", opts.Target)
		}
		target = t
	}
	return &Bundler{opts: opts, target: target}, nil
}

// Bundle returns the bundled module. Every entry is required and the
// module's exports are the merged exports of all entries, later entries
// winning on name clashes.
func (b *Bundler) Bundle(ctx context.Context, req Request) ([]byte, error) {
	if len(req.Entries) == 0 {
		return nil, ErrNoEntries
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := slices.Clone(req.Entries)
	slices.Sort(entries)
	resolveDir := filepath.Dir(entries[0])

	sourcemap := api.SourceMapNone
	if req.Sourcemap {
		sourcemap = api.SourceMapInline
	}

	result := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   entrySource(resolveDir, entries),
			ResolveDir: resolveDir,
			Sourcefile: "index.js",
			Loader:     api.LoaderJS,
		},
		Outfile:           req.Outfile,
		Bundle:            true,
		Write:             false,
		Format:            api.FormatCommonJS,
		Platform:          api.PlatformBrowser,
		Target:            b.target,
		MinifyWhitespace:  b.opts.Minify,
		MinifyIdentifiers: b.opts.Minify,
		MinifySyntax:      b.opts.Minify,
		Sourcemap:         sourcemap,
		LogLevel:          api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		msgs := api.FormatMessages(result.Errors, api.FormatMessagesOptions{
			Kind: api.ErrorMessage,
		})
		return nil, fmt.Errorf("bundle: esbuild failed with %d error(s):\n%s",
			len(result.Errors), strings.TrimSpace(strings.Join(msgs, "")))
	}

	for _, f := range result.OutputFiles {
		if strings.HasSuffix(f.Path, ".js") || len(result.OutputFiles) == 1 {
			return f.Contents, nil
		}
	}
	return nil, errors.New("bundle: esbuild produced no javascript output")
}

// entrySource builds the synthetic entry that requires every module.
func entrySource(resolveDir string, entries []string) string {
	specs := make([]string, len(entries))
	for i, e := range entries {
		spec := e
		if rel, err := filepath.Rel(resolveDir, e); err == nil {
			spec = filepath.ToSlash(rel)
			if !strings.HasPrefix(spec, "../") {
				spec = "./" + spec
			}
		}
		specs[i] = "require(" + strconv.Quote(spec) + ")"
	}

	if len(specs) == 1 {
		return "module.exports = " + specs[0] + ";\n"
	}
	return "module.exports = Object.assign({}, " + strings.Join(specs, ", ") + ");\n"
}
