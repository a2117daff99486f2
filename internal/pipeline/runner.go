// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/wxpipe/wxpipe/internal/asset"
	"github.com/wxpipe/wxpipe/internal/bundle"
	"github.com/wxpipe/wxpipe/internal/issue"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

type (
	// Bundler folds several entry modules into one output.
	Bundler interface {
		Bundle(ctx context.Context, req bundle.Request) ([]byte, error)
	}

	// Category is a Route with the processing attached to it.
	Category struct {
		Route
		// Transform is applied to each source file. Nil copies verbatim.
		Transform asset.Transformer
		// Bundler produces Output for bundled routes.
		Bundler Bundler
	}

	// Options configures a Runner.
	Options struct {
		// Root is the project directory. Empty means the working directory.
		Root string
		// Source is the source directory relative to Root.
		Source string
		// Dist is the output directory, relative to Root unless absolute.
		Dist string
		// Jobs bounds the files processed at once per pass. Zero means
		// GOMAXPROCS.
		Jobs int
		// Logger receives per-file diagnostics. Nil uses the default logger.
		Logger *log.Logger
		// Routes are every route writing into Dist. A deleted source keeps
		// its output while another route still produces the same file.
		Routes []Route
	}

	// Result describes one finished pass.
	Result struct {
		Category Name
		// Full is false for incremental passes that only touched the
		// changed files.
		Full bool
		// Written and Removed are dist-relative slash paths, sorted.
		Written []string
		Removed []string
		// Failures are the files whose transformation failed.
		Failures []*TransformError
		Duration time.Duration
	}

	// Runner executes category passes against one project tree.
	Runner struct {
		root   string
		source string
		dist   string
		jobs   int
		logger *log.Logger
		routes []Route
		locks  sync.Map // Name -> *sync.Mutex
	}
)

// NewRunner resolves the project paths in opts.
func NewRunner(opts Options) (*Runner, error) {
	root := cmp.Or(opts.Root, ".")
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	if opts.Source == "" || opts.Dist == "" {
		return nil, errors.New("source and dist directories are required")
	}
	dist := opts.Dist
	if !filepath.IsAbs(dist) {
		dist = filepath.Join(absRoot, dist)
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		root:   absRoot,
		source: filepath.Join(absRoot, opts.Source),
		dist:   filepath.Clean(dist),
		jobs:   jobs,
		logger: logger,
		routes: opts.Routes,
	}, nil
}

// Root returns the absolute project directory.
func (r *Runner) Root() string { return r.root }

// Dist returns the absolute output directory.
func (r *Runner) Dist() string { return r.dist }

// Failed reports whether any file failed to transform.
func (res Result) Failed() bool { return len(res.Failures) > 0 }

// Empty reports whether the pass neither wrote, removed nor failed anything.
func (res Result) Empty() bool {
	return len(res.Written) == 0 && len(res.Removed) == 0 && len(res.Failures) == 0
}

// Run performs a one-shot pass over every source of c. Filesystem errors end
// the pass and are returned; transformation errors are collected in the
// Result.
func (r *Runner) Run(ctx context.Context, c Category, mode Mode) (Result, error) {
	unlock := r.lock(c.Name)
	defer unlock()
	return r.run(ctx, c, mode)
}

// RunFiles performs an incremental pass for changed root-relative paths.
// Changed sources are reprocessed one by one and deleted sources have their
// output removed, unless another source still produces it. A deleted
// directory removes every output mirrored from below it. A watched file that
// is not a source itself, such as a stylesheet partial, and any change to a
// bundled category cause a full pass.
func (r *Runner) RunFiles(ctx context.Context, c Category, mode Mode, changed []string) (Result, error) {
	unlock := r.lock(c.Name)
	defer unlock()

	if c.Bundled() {
		return r.run(ctx, c, mode)
	}

	var present, deleted, dirs []string
	for _, rel := range changed {
		rel = filepath.ToSlash(rel)
		if !c.Sources.Match(rel) {
			if c.WatchSet().Match(rel) {
				r.logger.Debug("dependency changed, running full pass", "category", c.Name, "file", rel)
				return r.run(ctx, c, mode)
			}
			if !c.Sources.Covers(rel) {
				continue
			}
			info, err := os.Stat(r.abs(rel))
			switch {
			case errors.Is(err, fs.ErrNotExist):
				dirs = append(dirs, rel)
			case err != nil:
				return Result{Category: c.Name}, fmt.Errorf("stat %s: %w", rel, err)
			case info.IsDir():
				files, err := r.sourcesUnder(c, rel)
				if err != nil {
					return Result{Category: c.Name}, err
				}
				present = append(present, files...)
			}
			continue
		}
		info, err := os.Stat(r.abs(rel))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			deleted = append(deleted, rel)
		case err != nil:
			return Result{Category: c.Name}, fmt.Errorf("stat %s: %w", rel, err)
		case info.Mode().IsRegular():
			present = append(present, rel)
		}
	}

	start := time.Now()
	res := Result{Category: c.Name}
	if len(deleted) > 0 || len(dirs) > 0 {
		stale := make([]string, 0, len(deleted))
		for _, rel := range deleted {
			stale = append(stale, c.OutputPath(rel))
		}
		for _, dir := range dirs {
			outs, err := r.mirroredUnder(c, dir)
			if err != nil {
				return res, err
			}
			stale = append(stale, outs...)
		}
		survivors, err := r.prune(c, stale, &res)
		if err != nil {
			return res, err
		}
		present = append(present, survivors...)
	}

	slices.Sort(present)
	err := r.process(ctx, c, slices.Compact(present), &res)
	res.Duration = time.Since(start)
	return res, err
}

// producer is a live source and the category it belongs to.
type producer struct {
	category Name
	source   string
}

// prune removes the stale outputs no live source still produces. It returns
// the sources of c that share an output with a deleted one; they are
// processed again so the output reflects what is left.
func (r *Runner) prune(c Category, stale []string, res *Result) ([]string, error) {
	live, err := r.liveOutputs(c)
	if err != nil {
		return nil, err
	}
	slices.Sort(stale)
	var survivors []string
	for _, out := range slices.Compact(stale) {
		if p, ok := live[out]; ok {
			r.logger.Debug("output still produced, keeping", "category", c.Name, "file", out, "by", p.source)
			if p.category == c.Name {
				survivors = append(survivors, p.source)
			}
			continue
		}
		err := os.Remove(r.out(out))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("remove %s: %w", out, err)
		}
		if err == nil {
			r.logger.Debug("removed", "category", c.Name, "file", out)
			res.Removed = append(res.Removed, out)
		}
	}
	return survivors, nil
}

// liveOutputs maps every output the current sources produce to its
// producer. Sources of c win over those of other routes.
func (r *Runner) liveOutputs(c Category) (map[string]producer, error) {
	live := make(map[string]producer)
	routes := append([]Route{c.Route}, r.routes...)
	for i, rt := range routes {
		if rt.Bundled() || (i > 0 && rt.Name == c.Name) {
			continue
		}
		files, err := rt.Sources.Glob(r.root)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rt.Name, err)
		}
		for _, f := range files {
			out := rt.OutputPath(f)
			if _, ok := live[out]; !ok {
				live[out] = producer{category: rt.Name, source: f}
			}
		}
	}
	return live, nil
}

// sourcesUnder returns the sources of c below the directory dir.
func (r *Runner) sourcesUnder(c Category, dir string) ([]string, error) {
	files, err := c.Sources.Glob(r.root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}
	prefix := strings.TrimSuffix(dir, "/") + "/"
	return slices.DeleteFunc(files, func(f string) bool { return !strings.HasPrefix(f, prefix) }), nil
}

// mirroredUnder lists the existing outputs c would have written for sources
// below the deleted directory dir.
func (r *Runner) mirroredUnder(c Category, dir string) ([]string, error) {
	var outs []string
	for base, sub := range c.Sources.Under(dir) {
		top := r.out(sub)
		err := filepath.WalkDir(top, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(r.dist, p)
			if err != nil {
				return err
			}
			if out := filepath.ToSlash(rel); c.mirrors(base, out) {
				outs = append(outs, out)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.rel(top), err)
		}
	}
	return outs, nil
}

// RunAll starts a pass for every category at once and waits for all of them.
// onResult, when non-nil, is called once per category as its pass finishes;
// calls are serialized. Filesystem errors are joined; transformation
// failures add a BuildError.
func (r *Runner) RunAll(ctx context.Context, cats []Category, mode Mode, onResult func(Result, error)) error {
	var (
		g        errgroup.Group
		mu       sync.Mutex
		errs     []error
		failures int
	)
	for _, c := range cats {
		g.Go(func() error {
			res, err := r.Run(ctx, c, mode)

			mu.Lock()
			defer mu.Unlock()
			failures += len(res.Failures)
			if err != nil {
				errs = append(errs, err)
			}
			if onResult != nil {
				onResult(res, err)
			}
			return nil
		})
	}
	_ = g.Wait() // passes report through errs

	if failures > 0 {
		errs = append(errs, &BuildError{Failures: failures})
	}
	return errors.Join(errs...)
}

func (r *Runner) run(ctx context.Context, c Category, mode Mode) (Result, error) {
	start := time.Now()
	res := Result{Category: c.Name, Full: true}

	if err := r.checkSource(c); err != nil {
		return res, err
	}
	files, err := c.Sources.Glob(r.root)
	if err != nil {
		return res, fmt.Errorf("%s: %w", c.Name, err)
	}

	if c.Bundled() {
		err = r.bundle(ctx, c, mode, files, &res)
	} else {
		err = r.process(ctx, c, files, &res)
	}
	res.Duration = time.Since(start)
	return res, err
}

// checkSource fails when the source directory itself is missing. Missing
// category subdirectories, such as src/npm, just yield no files.
func (r *Runner) checkSource(c Category) error {
	info, err := os.Stat(r.source)
	if err == nil && info.IsDir() {
		return nil
	}
	if err == nil {
		err = fmt.Errorf("%s is not a directory", r.source)
	}
	return issue.New("run "+string(c.Name)).
		On(r.rel(r.source)).
		Suggest(
			"Run wxpipe from the project root or pass --dir",
			"Set 'source' in wxpipe.cue if sources live elsewhere",
		).
		Wrap(err)
}

// process transforms files concurrently. The first filesystem error cancels
// the remaining files.
func (r *Runner) process(ctx context.Context, c Category, files []string, res *Result) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.jobs)

	var mu sync.Mutex
	for _, rel := range files {
		g.Go(func() error {
			out, err := r.processFile(gctx, c, rel)

			var te *TransformError
			if errors.As(err, &te) {
				r.logger.Error("transform failed", "category", c.Name, "file", rel, "err", te.Err)
				mu.Lock()
				res.Failures = append(res.Failures, te)
				mu.Unlock()
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			res.Written = append(res.Written, out)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	slices.Sort(res.Written)
	slices.SortFunc(res.Failures, func(a, b *TransformError) int { return strings.Compare(a.Path, b.Path) })
	return err
}

func (r *Runner) processFile(ctx context.Context, c Category, rel string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src := r.abs(rel)
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rel, err)
	}

	a := asset.Asset{Path: rel, Source: src, Contents: data}
	if c.Transform != nil {
		a, err = c.Transform.Transform(ctx, a)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", &TransformError{Category: c.Name, Path: rel, Err: err}
		}
	}

	out := c.OutputPath(rel)
	if err := r.write(out, a.Contents); err != nil {
		return "", err
	}
	r.logger.Debug("wrote", "category", c.Name, "file", out)
	return out, nil
}

func (r *Runner) bundle(ctx context.Context, c Category, mode Mode, files []string, res *Result) error {
	if len(files) == 0 {
		r.logger.Debug("no entries, skipping bundle", "category", c.Name)
		return nil
	}
	if c.Bundler == nil {
		return fmt.Errorf("%s: no bundler configured", c.Name)
	}

	entries := make([]string, len(files))
	for i, rel := range files {
		entries[i] = r.abs(rel)
	}
	data, err := c.Bundler.Bundle(ctx, bundle.Request{
		Entries:   entries,
		Outfile:   r.out(c.Output),
		Sourcemap: mode == ModeDev,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		te := &TransformError{Category: c.Name, Path: strings.Join(c.Sources.Bases(), ","), Err: err}
		r.logger.Error("bundle failed", "category", c.Name, "err", err)
		res.Failures = append(res.Failures, te)
		return nil
	}

	if err := r.write(c.Output, data); err != nil {
		return err
	}
	r.logger.Debug("wrote", "category", c.Name, "file", c.Output, "entries", len(entries))
	res.Written = append(res.Written, c.Output)
	return nil
}

func (r *Runner) write(out string, data []byte) error {
	dst := r.out(out)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return issue.Wrap(err, "create output directory", r.rel(filepath.Dir(dst)))
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return issue.Wrap(err, "write output", r.rel(dst))
	}
	return nil
}

// lock serializes passes of one category.
func (r *Runner) lock(name Name) func() {
	m, _ := r.locks.LoadOrStore(name, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (r *Runner) abs(rel string) string {
	return filepath.Join(r.root, filepath.FromSlash(rel))
}

func (r *Runner) out(rel string) string {
	return filepath.Join(r.dist, filepath.FromSlash(rel))
}

// rel returns p relative to the project root when possible.
func (r *Runner) rel(p string) string {
	if rel, err := filepath.Rel(r.root, p); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return p
}
