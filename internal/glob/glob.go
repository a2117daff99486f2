// SPDX-License-Identifier: MPL-2.0

// Package glob implements ordered include/exclude pattern sets.
//
// A pattern prefixed with "!" excludes paths that an include pattern would
// otherwise select. Patterns use doublestar syntax ("**" for any number of
// directories, "{a,b}" for alternation) and are matched against
// slash-separated paths relative to a project root.
package glob

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoInclude is returned by Parse when a set has only exclude patterns.
var ErrNoInclude = errors.New("pattern set has no include pattern")

type (
	// Set is a parsed list of include and exclude patterns.
	// The zero value matches nothing.
	Set struct {
		includes []include
		excludes []string
	}

	include struct {
		pattern string
		base    string
	}
)

// Parse builds a Set from patterns. Leading "./" is stripped; patterns
// starting with "!" become excludes.
func Parse(patterns ...string) (Set, error) {
	var s Set
	for _, raw := range patterns {
		pat, negated := normalize(raw)
		if pat == "" {
			return Set{}, fmt.Errorf("glob: empty pattern %q", raw)
		}
		if !doublestar.ValidatePattern(pat) {
			return Set{}, fmt.Errorf("glob: invalid pattern %q", raw)
		}
		if negated {
			s.excludes = append(s.excludes, pat)
			continue
		}
		base, _ := doublestar.SplitPattern(pat)
		if base == "." {
			base = ""
		}
		s.includes = append(s.includes, include{pattern: pat, base: base})
	}
	if len(s.includes) == 0 {
		return Set{}, ErrNoInclude
	}
	return s, nil
}

// MustParse is like Parse but panics on error. It is meant for pattern
// literals known at compile time.
func MustParse(patterns ...string) Set {
	s, err := Parse(patterns...)
	if err != nil {
		panic(err)
	}
	return s
}

func normalize(raw string) (string, bool) {
	pat := strings.TrimSpace(raw)
	negated := strings.HasPrefix(pat, "!")
	if negated {
		pat = pat[1:]
	}
	pat = strings.TrimPrefix(pat, "./")
	return pat, negated
}

// IsZero reports whether the set has no patterns.
func (s Set) IsZero() bool {
	return len(s.includes) == 0 && len(s.excludes) == 0
}

// Includes returns the include patterns.
func (s Set) Includes() []string {
	out := make([]string, len(s.includes))
	for i, inc := range s.includes {
		out[i] = inc.pattern
	}
	return out
}

// Excludes returns the exclude patterns without their "!" prefix.
func (s Set) Excludes() []string {
	return slices.Clone(s.excludes)
}

// Patterns returns the set in its source form, excludes carrying "!".
func (s Set) Patterns() []string {
	out := s.Includes()
	for _, ex := range s.excludes {
		out = append(out, "!"+ex)
	}
	return out
}

// Match reports whether rel is selected by an include and not removed by
// an exclude.
func (s Set) Match(rel string) bool {
	rel = strings.TrimPrefix(toSlash(rel), "./")
	if s.excluded(rel) {
		return false
	}
	for _, inc := range s.includes {
		if ok, _ := doublestar.Match(inc.pattern, rel); ok {
			return true
		}
	}
	return false
}

func (s Set) excluded(rel string) bool {
	for _, ex := range s.excludes {
		if ok, _ := doublestar.Match(ex, rel); ok {
			return true
		}
	}
	return false
}

// Base returns the static directory prefix of the first include that
// matches rel, or "" when none does. Output paths are mirrored relative
// to this prefix.
func (s Set) Base(rel string) string {
	rel = strings.TrimPrefix(toSlash(rel), "./")
	for _, inc := range s.includes {
		if ok, _ := doublestar.Match(inc.pattern, rel); ok {
			return inc.base
		}
	}
	return ""
}

// Bases returns the distinct static prefixes of all includes.
func (s Set) Bases() []string {
	var out []string
	for _, inc := range s.includes {
		if !slices.Contains(out, inc.base) {
			out = append(out, inc.base)
		}
	}
	return out
}

// Under maps each include base that shares a subtree with the directory dir
// to dir relative to that base. A dir that is the base itself or one of its
// ancestors maps to "".
func (s Set) Under(dir string) map[string]string {
	dir = strings.TrimSuffix(strings.TrimPrefix(toSlash(dir), "./"), "/")
	out := make(map[string]string)
	for _, base := range s.Bases() {
		switch {
		case base == "":
			out[base] = dir
		case dir == base || strings.HasPrefix(base, dir+"/"):
			out[base] = ""
		default:
			if rest, ok := strings.CutPrefix(dir, base+"/"); ok {
				out[base] = rest
			}
		}
	}
	return out
}

// Covers reports whether files below the directory dir could be selected.
func (s Set) Covers(dir string) bool {
	return len(s.Under(dir)) > 0
}

// Glob returns every regular file under root selected by the set, as sorted
// root-relative slash paths.
func (s Set) Glob(root string) ([]string, error) {
	return s.GlobFS(os.DirFS(root))
}

// GlobFS is Glob over an arbitrary filesystem.
func (s Set) GlobFS(fsys fs.FS) ([]string, error) {
	var out []string
	for _, inc := range s.includes {
		matches, err := doublestar.Glob(fsys, inc.pattern,
			doublestar.WithFilesOnly(),
			doublestar.WithFailOnIOErrors(),
		)
		if err != nil {
			return nil, fmt.Errorf("glob: expand %q: %w", inc.pattern, err)
		}
		for _, m := range matches {
			if !s.excluded(m) {
				out = append(out, m)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// Rebase returns rel relative to its include base.
func (s Set) Rebase(rel string) string {
	rel = strings.TrimPrefix(toSlash(rel), "./")
	base := s.Base(rel)
	if base == "" {
		return rel
	}
	trimmed, ok := strings.CutPrefix(rel, base+"/")
	if !ok {
		return path.Base(rel)
	}
	return trimmed
}

func toSlash(p string) string {
	return filepath.ToSlash(p)
}
