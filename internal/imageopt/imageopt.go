// SPDX-License-Identifier: MPL-2.0

// Package imageopt shrinks images without resizing or converting them.
//
// Raster images are decoded and re-encoded with the strongest settings the
// codec offers; the re-encoded bytes replace the original only when they are
// smaller. SVG documents are minified.
package imageopt

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/wxpipe/wxpipe/internal/asset"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"
)

const (
	// DefaultJPEGQuality is used when Options.JPEGQuality is zero.
	DefaultJPEGQuality = 90

	svgMediaType = "image/svg+xml"
)

type (
	// Options configures an Optimizer.
	Options struct {
		// JPEGQuality is the re-encode quality, 1-100.
		JPEGQuality int
	}

	// Optimizer implements asset.Transformer for png, jpg, jpeg, gif and svg.
	Optimizer struct {
		quality int
		min     *minify.M
		png     *png.Encoder
	}

	// UnsupportedError is returned for files the optimizer has no codec for.
	UnsupportedError struct {
		Ext string
	}
)

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("imageopt: unsupported image type %q", e.Ext)
}

// New returns an Optimizer.
func New(opts Options) *Optimizer {
	q := opts.JPEGQuality
	if q <= 0 || q > 100 {
		q = DefaultJPEGQuality
	}
	m := minify.New()
	m.AddFunc(svgMediaType, svg.Minify)
	return &Optimizer{
		quality: q,
		min:     m,
		png:     &png.Encoder{CompressionLevel: png.BestCompression},
	}
}

// Transform implements asset.Transformer.
func (o *Optimizer) Transform(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	if err := ctx.Err(); err != nil {
		return a, err
	}

	var (
		out []byte
		err error
	)
	switch ext := a.Ext(); ext {
	case ".png":
		out, err = o.optimizePNG(a.Contents)
	case ".jpg", ".jpeg":
		out, err = o.optimizeJPEG(a.Contents)
	case ".gif":
		out, err = optimizeGIF(a.Contents)
	case ".svg":
		out, err = o.min.Bytes(svgMediaType, a.Contents)
	default:
		return a, &UnsupportedError{Ext: ext}
	}
	if err != nil {
		return a, fmt.Errorf("imageopt: %s: %w", a.Path, err)
	}

	if len(out) < len(a.Contents) {
		a.Contents = out
	}
	return a, nil
}

func (o *Optimizer) optimizePNG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	var buf bytes.Buffer
	if err := o.png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (o *Optimizer) optimizeJPEG(data []byte) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return encodeJPEG(img, o.quality)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func optimizeGIF(data []byte) ([]byte, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode gif: %w", err)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	return buf.Bytes(), nil
}
