// SPDX-License-Identifier: MPL-2.0

package stylesheet

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wxpipe/wxpipe/internal/asset"
)

func TestSCSSCompilesVariablesAndNesting(t *testing.T) {
	t.Parallel()

	s := NewSCSS(SCSSOptions{OutputStyle: "compressed", Precision: 5})
	got, err := s.Transform(context.Background(), asset.Asset{
		Path:     "src/app.scss",
		Source:   filepath.Join(t.TempDir(), "app.scss"),
		Contents: []byte("$brand: #ff0000;\n.page { .title { color: $brand; } }\n"),
	})
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	css := string(got.Contents)
	if !strings.Contains(css, ".page .title") {
		t.Errorf("expected flattened selector, got %q", css)
	}
	if strings.Contains(css, "$brand") {
		t.Errorf("variable survived compilation: %q", css)
	}
}

func TestSCSSResolvesImportsNextToSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "_vars.scss"), []byte("$gap: 12px;\n"), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}

	s := NewSCSS(SCSSOptions{OutputStyle: "expanded"})
	got, err := s.Transform(context.Background(), asset.Asset{
		Path:     "src/page.scss",
		Source:   filepath.Join(dir, "page.scss"),
		Contents: []byte("@import 'vars';\n.box { margin: $gap; }\n"),
	})
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if !strings.Contains(string(got.Contents), "12px") {
		t.Errorf("import not resolved: %q", got.Contents)
	}
}

func TestSCSSSyntaxErrorIsCompileError(t *testing.T) {
	t.Parallel()

	s := NewSCSS(SCSSOptions{})
	_, err := s.Transform(context.Background(), asset.Asset{
		Path:     "src/bad.scss",
		Source:   filepath.Join(t.TempDir(), "bad.scss"),
		Contents: []byte(".a { color: $undefined; }"),
	})
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CompileError, got %v", err)
	}
	if ce.Compiler != "sass" {
		t.Errorf("Compiler = %q, want sass", ce.Compiler)
	}
}
