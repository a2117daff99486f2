// SPDX-License-Identifier: MPL-2.0

// Package asset defines the unit of work flowing through a category pipeline
// and the Transformer contract every processing step implements.
package asset

import (
	"context"
	"path"
	"strings"
)

type (
	// Asset is a single source file in flight.
	Asset struct {
		// Path is the slash-separated path relative to the project root.
		Path string
		// Source is the absolute filesystem path the contents were read from.
		// Transformers resolve relative references (imports, url()) against it.
		Source string
		// Contents holds the current bytes of the file.
		Contents []byte
	}

	// Transformer rewrites an asset. Implementations must not mutate the
	// input's Contents slice in place.
	Transformer interface {
		Transform(ctx context.Context, a Asset) (Asset, error)
	}

	// TransformFunc adapts a function to the Transformer interface.
	TransformFunc func(ctx context.Context, a Asset) (Asset, error)

	chain []Transformer
)

// Transform calls f(ctx, a).
func (f TransformFunc) Transform(ctx context.Context, a Asset) (Asset, error) {
	return f(ctx, a)
}

// Chain returns a Transformer applying ts in order. Nil entries are skipped;
// an empty chain returns the asset unchanged.
func Chain(ts ...Transformer) Transformer {
	var c chain
	for _, t := range ts {
		if t != nil {
			c = append(c, t)
		}
	}
	return c
}

func (c chain) Transform(ctx context.Context, a Asset) (Asset, error) {
	for _, t := range c {
		if err := ctx.Err(); err != nil {
			return a, err
		}
		var err error
		if a, err = t.Transform(ctx, a); err != nil {
			return a, err
		}
	}
	return a, nil
}

// Ext returns the lower-cased extension of the asset path, including the dot.
func (a Asset) Ext() string {
	return strings.ToLower(path.Ext(a.Path))
}

// ReplaceExt returns p with its extension replaced by ext. An empty ext
// returns p unchanged.
func ReplaceExt(p, ext string) string {
	if ext == "" {
		return p
	}
	return strings.TrimSuffix(p, path.Ext(p)) + ext
}
