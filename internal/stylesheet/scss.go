// SPDX-License-Identifier: MPL-2.0

package stylesheet

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/wxpipe/wxpipe/internal/asset"

	"github.com/bep/golibsass/libsass"
)

type (
	// SCSSOptions configures the libsass transpiler.
	SCSSOptions struct {
		// IncludePaths are searched after the directory of the file itself.
		IncludePaths []string
		// Precision is the number of decimals kept in computed numbers.
		Precision int
		// OutputStyle is one of nested, expanded, compact or compressed.
		OutputStyle string
	}

	// SCSS compiles SCSS sources with libsass.
	SCSS struct {
		opts  SCSSOptions
		style libsass.OutputStyle
	}
)

// NewSCSS returns an SCSS compiler.
func NewSCSS(opts SCSSOptions) *SCSS {
	return &SCSS{opts: opts, style: libsass.ParseOutputStyle(opts.OutputStyle)}
}

// Transform compiles a.Contents. Imports resolve against the file's own
// directory first.
func (s *SCSS) Transform(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	if err := ctx.Err(); err != nil {
		return a, err
	}

	includes := append([]string{filepath.Dir(a.Source)}, s.opts.IncludePaths...)
	t, err := libsass.New(libsass.Options{
		IncludePaths: includes,
		Precision:    s.opts.Precision,
		OutputStyle:  s.style,
	})
	if err != nil {
		return a, fmt.Errorf("stylesheet: create scss transpiler: %w", err)
	}

	res, err := t.Execute(string(a.Contents))
	if err != nil {
		return a, &CompileError{Compiler: "sass", File: a.Path, Status: 1, Stderr: err.Error()}
	}

	a.Contents = []byte(res.CSS)
	return a, nil
}
