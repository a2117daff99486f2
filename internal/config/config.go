// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wxpipe/wxpipe/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "wxpipe"
	// FileName is the project config file looked up in the project directory.
	FileName = AppName + ".cue"

	// maxFileSize bounds the config file read into memory.
	maxFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// loadWithOptions loads the configuration and reports which file, if any,
// it came from.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("source", defaults.Source)
	v.SetDefault("dist", defaults.Dist)
	v.SetDefault("inline.extensions", defaults.Inline.Extensions)
	v.SetDefault("inline.max_size", defaults.Inline.MaxSize)
	v.SetDefault("less.command", defaults.Less.Command)
	v.SetDefault("sass.precision", defaults.Sass.Precision)
	v.SetDefault("sass.output_style", string(defaults.Sass.OutputStyle))
	v.SetDefault("image.jpeg_quality", defaults.Image.JPEGQuality)
	v.SetDefault("bundle.minify", defaults.Bundle.Minify)
	v.SetDefault("bundle.target", defaults.Bundle.Target)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce.String())
	v.SetDefault("watch.ignore", defaults.Watch.Ignore)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	resolvedPath := ""

	if opts.ConfigFilePath != "" {
		// An explicit --config path must exist.
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.New("load configuration").
				On(opts.ConfigFilePath).
				Suggest(
					"Verify the file path is correct",
					"Run 'wxpipe config init' to create a default "+FileName,
				).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath))
		}
		resolvedPath = opts.ConfigFilePath
	} else if local := filepath.Join(opts.BaseDir, FileName); fileExists(local) {
		resolvedPath = local
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.New("load configuration").
				On(resolvedPath).
				Suggest(
					"Check that the file contains valid CUE syntax",
					"Verify the values match the schema printed by 'wxpipe config schema'",
				).
				Wrap(err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.New("validate configuration").
			On(resolvedPath).
			Suggest("Keep 'source' and 'dist' as separate, non-nested directories").
			Wrap(err)
	}

	return &cfg, resolvedPath, nil
}

// loadCUEIntoViper parses a CUE file, validates it against #Config and
// merges the decoded values into v. Fields are optional, hence
// Concrete(false); defaults already live in v.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxFileSize {
		return fmt.Errorf("%s: file size %d exceeds limit of %d bytes", path, len(data), maxFileSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteDefault writes the default configuration to dir/wxpipe.cue. It
// refuses to overwrite an existing file unless force is set.
func WriteDefault(dir string, force bool) (string, error) {
	path := filepath.Join(dir, FileName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("%s already exists", path)
		}
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return path, fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}

// Schema returns the embedded CUE schema.
func Schema() string {
	return configSchema
}

// GenerateCUE renders cfg as a wxpipe.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// wxpipe configuration file\n\n")

	fmt.Fprintf(&sb, "source: %q\n", cfg.Source)
	fmt.Fprintf(&sb, "dist:   %q\n", cfg.Dist)

	sb.WriteString("\ninline: {\n")
	fmt.Fprintf(&sb, "\textensions: %s\n", cueStringList(cfg.Inline.Extensions))
	fmt.Fprintf(&sb, "\tmax_size:   %d\n", cfg.Inline.MaxSize)
	sb.WriteString("}\n")

	sb.WriteString("\nless: {\n")
	fmt.Fprintf(&sb, "\tcommand: %q\n", cfg.Less.Command)
	sb.WriteString("}\n")

	sb.WriteString("\nsass: {\n")
	fmt.Fprintf(&sb, "\tprecision:    %d\n", cfg.Sass.Precision)
	fmt.Fprintf(&sb, "\toutput_style: %q\n", cfg.Sass.OutputStyle)
	sb.WriteString("}\n")

	sb.WriteString("\nimage: {\n")
	fmt.Fprintf(&sb, "\tjpeg_quality: %d\n", cfg.Image.JPEGQuality)
	sb.WriteString("}\n")

	sb.WriteString("\nbundle: {\n")
	fmt.Fprintf(&sb, "\tminify: %v\n", cfg.Bundle.Minify)
	fmt.Fprintf(&sb, "\ttarget: %q\n", cfg.Bundle.Target)
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	fmt.Fprintf(&sb, "\tignore:   %s\n", cueStringList(cfg.Watch.Ignore))
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func cueStringList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
