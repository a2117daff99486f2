// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/wxpipe/wxpipe/internal/issue"
	"github.com/wxpipe/wxpipe/internal/pipeline"

	"github.com/spf13/cobra"
)

// newCategoryCommands creates "<name>" and "<name>:watch" for every category.
func newCategoryCommands(app *App, flags *rootFlagValues) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, 2*len(pipeline.Order))
	for _, name := range pipeline.Order {
		cmds = append(cmds, &cobra.Command{
			Use:   string(name),
			Short: fmt.Sprintf("Run the %s pass once", name),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOnce(cmd.Context(), app, flags, name)
			},
		})
		cmds = append(cmds, &cobra.Command{
			Use:   string(name) + ":watch",
			Short: fmt.Sprintf("Re-run the %s pass whenever its files change", name),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return watchOne(cmd.Context(), app, flags, name)
			},
		})
	}
	return cmds
}

func newBuildCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var clean bool
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Run every category once and wait for all of them",
		Long: `Run every category once and wait for all of them.

Passes start together and the command returns once every pass has
finished. Any failed file makes the command exit with status 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), app, flags, clean)
		},
	}
	buildCmd.Flags().BoolVar(&clean, "clean", false, "remove the output directory before building")
	return buildCmd
}

func newDevCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "dev",
		Short: "Run every category and keep watching for changes",
		Long: `Run every category once and keep re-running each one when its files
change. A failed pass is reported and the session keeps watching.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.openProject(cmd.Context(), flags)
			if err != nil {
				return err
			}
			rep := newReporter(app, p, flags.verbose)
			rep.watching("all categories")
			return p.runner.Dev(cmd.Context(), p.categories, p.watchOptions(rep))
		},
	}
}

func newCleanCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.openProject(cmd.Context(), flags)
			if err != nil {
				return err
			}
			return clean(cmd.Context(), app, p)
		},
	}
}

func newRoutesCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "routes [category...]",
		Short: "List the categories and the files they read",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := pipeline.Order
			if len(args) > 0 {
				names = make([]pipeline.Name, len(args))
				for i, arg := range args {
					n, err := pipeline.ParseName(arg)
					if err != nil {
						return issue.New("list routes").
							Suggest("Valid categories: " + joinNames(pipeline.Order)).
							Wrap(err)
					}
					names[i] = n
				}
			}

			p, err := app.openProject(cmd.Context(), flags)
			if err != nil {
				return err
			}
			cats, err := pipeline.Select(p.categories, names...)
			if err != nil {
				return err
			}
			listRoutes(app, p, cats)
			return nil
		},
	}
}

// runOnce runs the named categories concurrently and waits for them.
func runOnce(ctx context.Context, app *App, flags *rootFlagValues, names ...pipeline.Name) error {
	p, err := app.openProject(ctx, flags)
	if err != nil {
		return err
	}
	cats, err := pipeline.Select(p.categories, names...)
	if err != nil {
		return err
	}
	rep := newReporter(app, p, flags.verbose)
	if err := p.runner.RunAll(ctx, cats, pipeline.ModeBuild, rep.result); err != nil {
		return &ExitError{Code: 1}
	}
	return nil
}

func runBuild(ctx context.Context, app *App, flags *rootFlagValues, cleanFirst bool) error {
	p, err := app.openProject(ctx, flags)
	if err != nil {
		return err
	}
	if cleanFirst {
		if err := clean(ctx, app, p); err != nil {
			return err
		}
	}

	rep := newReporter(app, p, flags.verbose)
	rep.start()
	err = p.runner.RunAll(ctx, p.categories, pipeline.ModeBuild, rep.result)
	rep.finish(err)
	if err != nil {
		return &ExitError{Code: 1}
	}
	return nil
}

func watchOne(ctx context.Context, app *App, flags *rootFlagValues, name pipeline.Name) error {
	p, err := app.openProject(ctx, flags)
	if err != nil {
		return err
	}
	cats, err := pipeline.Select(p.categories, name)
	if err != nil {
		return err
	}
	rep := newReporter(app, p, flags.verbose)
	rep.watching(cats[0].Label)
	return p.runner.Watch(ctx, cats[0], p.watchOptions(rep))
}

func clean(ctx context.Context, app *App, p *project) error {
	if err := p.runner.Clean(ctx); err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	fmt.Fprintln(app.stdout, SuccessStyle.Render("> Removed "+p.distRel()))
	return nil
}

func listRoutes(app *App, p *project, cats []pipeline.Category) {
	fmt.Fprintln(app.stdout, TitleStyle.Render("Categories"))
	fmt.Fprintln(app.stdout)
	for _, c := range cats {
		fmt.Fprintf(app.stdout, "%s %s\n", CmdStyle.Render(fmt.Sprintf("%-6s", c.Name)), SubtitleStyle.Render(c.Label))
		fmt.Fprintf(app.stdout, "  include: %s\n", VerboseStyle.Render(strings.Join(c.Sources.Includes(), " ")))
		if ex := c.Sources.Excludes(); len(ex) > 0 {
			fmt.Fprintf(app.stdout, "  exclude: %s\n", VerboseStyle.Render(strings.Join(ex, " ")))
		}
		fmt.Fprintf(app.stdout, "  output:  %s\n", VerboseStyle.Render(routeOutput(c.Route, p.distRel())))
	}
}

func joinNames(names []pipeline.Name) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

// routeOutput describes where a route writes its files.
func routeOutput(r pipeline.Route, dist string) string {
	switch {
	case r.Output != "":
		return dist + "/" + r.Output
	case r.Ext != "":
		return dist + "/**/*" + r.Ext
	default:
		return dist + "/** (mirrored)"
	}
}
