// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wxpipe/wxpipe/internal/config"
	"github.com/wxpipe/wxpipe/internal/issue"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `wxpipe config` command tree.
// Subcommands that read configuration use the App's config provider.
func newConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage wxpipe configuration",
		Long: `Manage wxpipe configuration.

Configuration is read from wxpipe.cue in the project directory, or from the
file named by --config. Every field is optional; missing fields keep their
defaults.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, flags)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default wxpipe.cue in the project directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app, flags, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing wxpipe.cue")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, cfgPath, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if cfgPath == "" {
				fmt.Fprintln(app.stdout, "(using defaults)")
				return nil
			}
			fmt.Fprintln(app.stdout, cfgPath)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, _, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Output the CUE schema configuration files are checked against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(app.stdout, config.Schema())
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, flags *rootFlagValues) error {
	_, cfg, cfgPath, err := app.loadConfig(ctx, flags)
	if err != nil {
		return err
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	out := app.stdout

	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)

	if cfgPath != "" {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), cfgPath)
	} else {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("source"), valueStyle.Render(cfg.Source))
	fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("dist"), valueStyle.Render(cfg.Dist))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("inline"))
	fmt.Fprintf(out, "  extensions: %s\n", valueStyle.Render(strings.Join(cfg.Inline.Extensions, ", ")))
	fmt.Fprintf(out, "  max_size: %s\n", valueStyle.Render(fmt.Sprintf("%d", cfg.Inline.MaxSize)))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("less"))
	fmt.Fprintf(out, "  command: %s\n", valueStyle.Render(cfg.Less.Command))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("sass"))
	fmt.Fprintf(out, "  precision: %s\n", valueStyle.Render(fmt.Sprintf("%d", cfg.Sass.Precision)))
	fmt.Fprintf(out, "  output_style: %s\n", valueStyle.Render(cfg.Sass.OutputStyle.String()))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("image"))
	fmt.Fprintf(out, "  jpeg_quality: %s\n", valueStyle.Render(fmt.Sprintf("%d", cfg.Image.JPEGQuality)))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("bundle"))
	fmt.Fprintf(out, "  minify: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.Bundle.Minify)))
	fmt.Fprintf(out, "  target: %s\n", valueStyle.Render(cfg.Bundle.Target))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("watch"))
	fmt.Fprintf(out, "  debounce: %s\n", valueStyle.Render(cfg.Watch.Debounce.String()))
	if len(cfg.Watch.Ignore) == 0 {
		fmt.Fprintf(out, "  ignore: %s\n", SubtitleStyle.Render("(none configured)"))
	} else {
		fmt.Fprintln(out, "  ignore:")
		for _, pattern := range cfg.Watch.Ignore {
			fmt.Fprintf(out, "    - %s\n", valueStyle.Render(pattern))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(out, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	return nil
}

func initConfig(app *App, flags *rootFlagValues, force bool) error {
	dir, err := filepath.Abs(flags.dir)
	if err != nil {
		return fmt.Errorf("resolve project directory: %w", err)
	}
	path, err := config.WriteDefault(dir, force)
	if err != nil {
		return issue.Wrap(err, "create configuration file", dir)
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
