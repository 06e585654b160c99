// Package execx runs external commands for the toolkit: streamed or
// captured output, optional interactive stdin, per-command environment.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"

	"github.com/drbea224/djx/internal/apperr"
)

// Cmd describes one external command invocation.
type Cmd struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env holds variables appended to the parent environment.
	Env map[string]string
	// Interactive attaches the parent stdin (createsuperuser, shell).
	Interactive bool
	// Stdout and Stderr default to the parent streams when nil.
	Stdout io.Writer
	Stderr io.Writer
}

func (c Cmd) build(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	cmd.Env = os.Environ()
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Env = append(cmd.Env, k+"="+c.Env[k])
	}

	cmd.Stdout = c.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = c.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if c.Interactive {
		cmd.Stdin = os.Stdin
	}
	return cmd
}

// Run executes the command, streaming output, and returns the wrapped
// failure (if any). A missing binary maps to apperr.ErrToolNotFound.
func Run(ctx context.Context, c Cmd) error {
	cmd := c.build(ctx)
	if err := cmd.Run(); err != nil {
		return wrap(c.Name, err)
	}
	return nil
}

// Output executes the command and returns its captured stdout. Stderr is
// still streamed (or sent to c.Stderr) so tool diagnostics stay visible.
func Output(ctx context.Context, c Cmd) ([]byte, error) {
	var buf bytes.Buffer
	c.Stdout = &buf
	cmd := c.build(ctx)
	if err := cmd.Run(); err != nil {
		return nil, wrap(c.Name, err)
	}
	return buf.Bytes(), nil
}

// ExitCode extracts the process exit code from an error returned by Run or
// Output. It returns 0 for nil and 1 for errors without an exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

func wrap(name string, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("execx: %s: %w", name, apperr.ErrToolNotFound)
	}
	return fmt.Errorf("execx: %s: %w", name, err)
}
