// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wxpipe/wxpipe/internal/config"
	"github.com/wxpipe/wxpipe/internal/pipeline"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives an App and opens
	// the project through it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// project is a loaded configuration bound to a project directory.
	project struct {
		root       string
		cfg        *config.Config
		cfgPath    string
		logger     *log.Logger
		runner     *pipeline.Runner
		categories []pipeline.Category
	}
)

// NewApp creates the CLI composition root.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}, nil
}

// loadConfig resolves the project root and loads its configuration.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (root string, cfg *config.Config, cfgPath string, err error) {
	root, err = filepath.Abs(flags.dir)
	if err != nil {
		return "", nil, "", fmt.Errorf("resolve project directory: %w", err)
	}
	cfg, cfgPath, err = a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		BaseDir:        root,
	})
	if err != nil {
		return "", nil, "", err
	}
	return root, cfg, cfgPath, nil
}

// openProject loads the configuration and builds the runner and categories.
func (a *App) openProject(ctx context.Context, flags *rootFlagValues) (*project, error) {
	root, cfg, cfgPath, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}

	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: config.AppName})
	if flags.verbose || cfg.UI.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
	if cfgPath != "" {
		logger.Debug("loaded configuration", "file", cfgPath)
	}

	cats, err := pipeline.NewCategories(root, cfg)
	if err != nil {
		return nil, err
	}
	runner, err := pipeline.NewRunner(pipeline.Options{
		Root:   root,
		Source: cfg.Source,
		Dist:   cfg.Dist,
		Logger: logger,
		Routes: pipeline.Routes(cats),
	})
	if err != nil {
		return nil, err
	}

	return &project{
		root:       root,
		cfg:        cfg,
		cfgPath:    cfgPath,
		logger:     logger,
		runner:     runner,
		categories: cats,
	}, nil
}

// watchOptions returns the watch settings shared by dev and <name>:watch.
func (p *project) watchOptions(rep *reporter) pipeline.WatchOptions {
	return pipeline.WatchOptions{
		Mode:     pipeline.ModeDev,
		Debounce: p.cfg.Watch.Debounce,
		Ignore:   p.cfg.Watch.Ignore,
		OnResult: rep.result,
	}
}

// distRel is the output directory as shown to the user.
func (p *project) distRel() string {
	rel, err := filepath.Rel(p.root, p.runner.Dist())
	if err != nil {
		return p.runner.Dist()
	}
	return filepath.ToSlash(rel)
}
