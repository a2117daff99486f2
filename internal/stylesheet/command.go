// SPDX-License-Identifier: MPL-2.0

package stylesheet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wxpipe/wxpipe/internal/asset"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

const (
	// EnvFile carries the absolute path of the stylesheet being compiled.
	EnvFile = "WXPIPE_FILE"
	// EnvDir carries the directory of the stylesheet being compiled.
	EnvDir = "WXPIPE_DIR"

	// DefaultLessCommand reads LESS on stdin and writes CSS to stdout.
	DefaultLessCommand = `lessc --include-path="$WXPIPE_DIR" -`
)

type (
	// Command compiles a stylesheet by piping it through a shell command line.
	Command struct {
		name string
		prog *syntax.File
		dir  string
		env  []string
	}

	// CompileError reports a failed compilation together with what the
	// compiler wrote to stderr.
	CompileError struct {
		Compiler string
		File     string
		Status   int
		Stderr   string
	}
)

// Error implements the error interface.
func (e *CompileError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = fmt.Sprintf("exit status %d", e.Status)
	}
	return fmt.Sprintf("%s: %s: %s", e.Compiler, e.File, msg)
}

// NewCommand parses cmdline once. dir is the working directory for every
// invocation; an empty dir uses the process working directory.
func NewCommand(name, cmdline, dir string) (*Command, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(cmdline), name)
	if err != nil {
		return nil, fmt.Errorf("stylesheet: parse %s command: %w", name, err)
	}
	return &Command{
		name: name,
		prog: prog,
		dir:  dir,
		env:  os.Environ(),
	}, nil
}

// Transform runs the command with the asset contents on stdin and replaces
// the contents with the command's stdout.
func (c *Command) Transform(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	var stdout, stderr bytes.Buffer

	env := append([]string(nil), c.env...)
	env = append(env, EnvFile+"="+a.Source, EnvDir+"="+filepath.Dir(a.Source))

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(bytes.NewReader(a.Contents), &stdout, &stderr),
	}
	if c.dir != "" {
		opts = append(opts, interp.Dir(c.dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return a, fmt.Errorf("stylesheet: create %s interpreter: %w", c.name, err)
	}

	if err := runner.Run(ctx, c.prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return a, &CompileError{Compiler: c.name, File: a.Path, Status: int(status), Stderr: stderr.String()}
		}
		return a, fmt.Errorf("stylesheet: run %s: %w", c.name, err)
	}

	a.Contents = stdout.Bytes()
	return a, nil
}

// Passthrough leaves an already compiled stylesheet untouched.
var Passthrough asset.Transformer = asset.TransformFunc(func(_ context.Context, a asset.Asset) (asset.Asset, error) {
	return a, nil
})
