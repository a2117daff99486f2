// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/wxpipe/wxpipe/internal/issue"
	"github.com/wxpipe/wxpipe/internal/watch"

	"golang.org/x/sync/errgroup"
)

// WatchOptions configures Watch and Dev.
type WatchOptions struct {
	// Mode is passed to every triggered pass.
	Mode Mode
	// Debounce is the quiet period before a pass starts.
	Debounce time.Duration
	// Ignore lists extra root-relative patterns that never trigger a pass.
	Ignore []string
	// OnResult, when non-nil, receives every finished pass. Calls for one
	// category never overlap.
	OnResult func(Result, error)
}

// Watch re-runs c whenever one of its watched files is added, changed or
// removed, until ctx is cancelled. It does not run an initial pass. A
// trigger arriving while a pass runs is coalesced into one follow-up pass.
func (r *Runner) Watch(ctx context.Context, c Category, opts WatchOptions) error {
	set := c.WatchSet()
	w, err := watch.New(watch.Config{
		Name:     string(c.Name),
		Patterns: set.Includes(),
		Ignore:   slices.Concat(r.distIgnores(), opts.Ignore),
		Debounce: opts.Debounce,
		BaseDir:  r.root,
		Logger:   r.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			// Removed directories arrive unmatched; they may hold sources.
			changed = slices.DeleteFunc(changed, func(rel string) bool {
				return !set.Match(rel) && !c.Sources.Covers(rel)
			})
			if len(changed) == 0 {
				return nil
			}
			res, err := r.RunFiles(ctx, c, opts.Mode, changed)
			if opts.OnResult != nil {
				opts.OnResult(res, err)
			}
			return err
		},
	})
	if err != nil {
		return err
	}
	r.logger.Debug("watching", "category", c.Name, "patterns", set.Includes())
	return w.Run(ctx)
}

// Dev runs, for every category, the one-shot pass and the watch loop
// concurrently. Pass errors are reported through opts.OnResult and do not end
// the session. Dev returns when ctx is cancelled or a watcher fails.
func (r *Runner) Dev(ctx context.Context, cats []Category, opts WatchOptions) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range cats {
		g.Go(func() error {
			res, err := r.Run(gctx, c, opts.Mode)
			if opts.OnResult != nil {
				opts.OnResult(res, err)
			}
			return nil
		})
		g.Go(func() error {
			return r.Watch(gctx, c, opts)
		})
	}
	return g.Wait()
}

// Clean removes the output directory. It refuses to remove a directory that
// is the project root, contains it, or contains the sources.
func (r *Runner) Clean(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.dist == r.root || within(r.root, r.dist) || r.dist == r.source || within(r.source, r.dist) {
		return issue.New("clean output directory").
			On(r.dist).
			Suggest("Set 'dist' in wxpipe.cue to a directory that holds only build output").
			Wrap(ErrUnsafeClean)
	}
	if err := os.RemoveAll(r.dist); err != nil {
		return issue.New("clean output directory").
			On(r.rel(r.dist)).
			Suggest(
				"Close programs holding files under the output directory",
				"Check the directory permissions",
			).
			Wrap(err)
	}
	r.logger.Debug("removed output directory", "dir", r.dist)
	return nil
}

// distIgnores keeps watchers from reacting to their own output.
func (r *Runner) distIgnores() []string {
	rel, err := filepath.Rel(r.root, r.dist)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil
	}
	rel = filepath.ToSlash(rel)
	return []string{rel, rel + "/**"}
}

// within reports whether child is strictly inside parent. Both are clean
// absolute paths.
func within(child, parent string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
