// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/wxpipe/wxpipe/internal/pipeline"
)

// reporter prints the console banners for finished passes. Passes of
// different categories report concurrently in dev mode, hence the mutex.
type reporter struct {
	mu      sync.Mutex
	stdout  io.Writer
	stderr  io.Writer
	labels  map[pipeline.Name]string
	dist    string
	verbose bool
}

func newReporter(app *App, p *project, verbose bool) *reporter {
	labels := make(map[pipeline.Name]string, len(p.categories))
	for _, c := range p.categories {
		labels[c.Name] = c.Label
	}
	return &reporter{
		stdout:  app.stdout,
		stderr:  app.stderr,
		labels:  labels,
		dist:    p.distRel(),
		verbose: verbose,
	}
}

func (r *reporter) label(n pipeline.Name) string {
	if l, ok := r.labels[n]; ok {
		return l
	}
	return string(n)
}

// start prints the build banner.
func (r *reporter) start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.stdout, "\n%s\n\n", CmdStyle.Render("> Starting building..."))
}

// watching announces a watch loop.
func (r *reporter) watching(what string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.stdout, "%s %s\n", CmdStyle.Render("> Watching"), what+VerboseStyle.Render(" (Ctrl+C to stop)"))
}

// result is the pipeline.WatchOptions.OnResult and RunAll callback.
func (r *reporter) result(res pipeline.Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	label := r.label(res.Category)
	if err != nil {
		fmt.Fprintf(r.stderr, "%s %s\n", ErrorStyle.Render("> "+label+" failed:"), formatErrorForDisplay(err, r.verbose))
		return
	}

	if !res.Full {
		for _, p := range res.Written {
			fmt.Fprintf(r.stdout, "%s %s\n", SuccessStyle.Render("> "+label+" complete:"), path.Join(r.dist, p))
		}
		for _, p := range res.Removed {
			fmt.Fprintf(r.stdout, "%s %s\n", WarningStyle.Render("> "+label+" removed:"), path.Join(r.dist, p))
		}
		for _, f := range res.Failures {
			fmt.Fprintf(r.stderr, "%s %s\n", ErrorStyle.Render("> "+label+" failed:"), f.Path)
		}
		return
	}

	switch n := len(res.Failures); n {
	case 0:
		fmt.Fprintln(r.stdout, SuccessStyle.Render("> "+label+" complete!"))
	case 1:
		fmt.Fprintln(r.stderr, ErrorStyle.Render("> "+label+" finished with 1 failed file"))
	default:
		fmt.Fprintln(r.stderr, ErrorStyle.Render(fmt.Sprintf("> %s finished with %d failed files", label, n)))
	}
}

// finish prints the overall build outcome.
func (r *reporter) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		fmt.Fprintln(r.stderr, ErrorStyle.Render("> Build failed"))
		return
	}
	fmt.Fprintln(r.stdout, SuccessStyle.Render("> Build success"))
}
