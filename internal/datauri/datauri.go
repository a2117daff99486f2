// SPDX-License-Identifier: MPL-2.0

// Package datauri inlines small images referenced from stylesheets as base64
// data URIs.
//
// Only references carrying the "#datauri" marker are considered, for example
//
//	.logo { background: url(../images/logo.png#datauri); }
//
// The stylesheet is tokenized with the tdewolff CSS lexer and every other
// byte is copied through verbatim.
package datauri

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/wxpipe/wxpipe/internal/asset"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

const (
	// Marker is the URL fragment that opts a reference into inlining.
	Marker = "#datauri"

	// DefaultMaxSize is the size limit below which an image is inlined.
	DefaultMaxSize = 10 * 1024
)

// DefaultExtensions are the image types inlined when Options.Extensions is empty.
var DefaultExtensions = []string{"png", "jpg"}

type (
	// Options configures an Inliner.
	Options struct {
		// Extensions lists image extensions (without dot) eligible for inlining.
		Extensions []string
		// MaxSize is the exclusive upper bound, in bytes, of inlined files.
		// Zero means DefaultMaxSize.
		MaxSize int64
		// Root resolves references starting with "/". Empty resolves them
		// against the filesystem root.
		Root string
	}

	// Inliner rewrites marked url() references into data URIs.
	Inliner struct {
		exts    []string
		maxSize int64
		root    string
	}
)

// New returns an Inliner for opts.
func New(opts Options) *Inliner {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	normalized := make([]string, 0, len(exts))
	for _, e := range exts {
		normalized = append(normalized, "."+strings.ToLower(strings.TrimPrefix(e, ".")))
	}
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Inliner{exts: normalized, maxSize: maxSize, root: opts.Root}
}

// Transform implements asset.Transformer.
func (in *Inliner) Transform(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	if !bytes.Contains(bytes.ToLower(a.Contents), []byte(Marker)) {
		return a, nil
	}

	var out bytes.Buffer
	out.Grow(len(a.Contents))

	l := css.NewLexer(parse.NewInputBytes(a.Contents))
	inURLFunc := false
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				return a, fmt.Errorf("datauri: tokenize %s: %w", a.Path, err)
			}
			a.Contents = out.Bytes()
			return a, nil

		case css.URLToken:
			ref, quote := unwrapURL(data)
			if uri, ok := in.inline(a.Source, ref); ok {
				out.WriteString(`url(` + quote + uri + quote + `)`)
				continue
			}

		case css.FunctionToken:
			inURLFunc = strings.EqualFold(string(data), "url(")

		case css.StringToken:
			if inURLFunc {
				inURLFunc = false
				quote := string(data[:1])
				ref := string(data[1 : len(data)-1])
				if uri, ok := in.inline(a.Source, ref); ok {
					out.WriteString(quote + uri + quote)
					continue
				}
			}

		case css.WhitespaceToken:
		default:
			inURLFunc = false
		}

		if err := ctx.Err(); err != nil {
			return a, err
		}
		out.Write(data)
	}
}

// inline returns the data URI for ref when ref is marked, has an eligible
// extension, exists and is smaller than the size limit.
func (in *Inliner) inline(stylesheet, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if len(ref) <= len(Marker) || !strings.EqualFold(ref[len(ref)-len(Marker):], Marker) {
		return "", false
	}
	target := ref[:len(ref)-len(Marker)]
	ext := strings.ToLower(filepath.Ext(target))
	if !slices.Contains(in.exts, ext) {
		return "", false
	}

	file := in.resolve(stylesheet, target)
	info, err := os.Stat(file)
	if err != nil || !info.Mode().IsRegular() || info.Size() >= in.maxSize {
		return "", false
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", false
	}

	return "data:" + mimeType(ext) + ";base64," + base64.StdEncoding.EncodeToString(data), true
}

func (in *Inliner) resolve(stylesheet, target string) string {
	target = filepath.FromSlash(target)
	if strings.HasPrefix(target, string(filepath.Separator)) {
		return filepath.Join(in.root, target)
	}
	return filepath.Join(filepath.Dir(stylesheet), target)
}

// unwrapURL extracts the reference and its quote character from a URL token
// such as url(a.png), url( "a.png" ) or url('a.png').
func unwrapURL(tok []byte) (ref, quote string) {
	s := string(tok)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, ")")
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], s[:1]
	}
	return s, ""
}

func mimeType(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
