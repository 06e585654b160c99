// Package lint runs the optional formatter and linter.
package lint

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/drbea224/djx/internal/apperr"
	"github.com/drbea224/djx/internal/execx"
	"github.com/drbea224/djx/internal/pyenv"
)

// Tool is one code-quality tool invocation.
type Tool struct {
	Name string
	Args []string
}

// Run resolves the tool via the virtual environment (then PATH) and runs
// it in dir. When the tool is not installed it prints an informational
// message to out and returns nil: an absent optional tool is not a
// failure. Tool findings (non-zero exit) are returned as errors.
func Run(ctx context.Context, env *pyenv.Env, dir string, tool Tool, out io.Writer) error {
	if tool.Name == "" {
		fmt.Fprintln(out, "no tool configured, skipping")
		return nil
	}

	path, err := env.LookTool(tool.Name)
	if err != nil {
		if errors.Is(err, apperr.ErrToolNotFound) {
			fmt.Fprintf(out, "%s is not installed, skipping (pip install %s)\n", tool.Name, tool.Name)
			return nil
		}
		return err
	}

	if err := execx.Run(ctx, execx.Cmd{Name: path, Args: tool.Args, Dir: dir, Stdout: out}); err != nil {
		return fmt.Errorf("lint: %s: %w", tool.Name, err)
	}
	return nil
}
