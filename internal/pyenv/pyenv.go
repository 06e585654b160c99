// Package pyenv manages the project virtual environment: creation, pip
// operations, dependency freezing, and tool lookup.
package pyenv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/drbea224/djx/internal/apperr"
	"github.com/drbea224/djx/internal/execx"
)

// Env represents one virtual environment and the files it is built from.
type Env struct {
	// Interpreter is the system Python used to create the environment.
	Interpreter string
	// Dir is the absolute path of the environment directory.
	Dir string
	// Requirements is the absolute path of the dependency manifest.
	Requirements string
}

func (e *Env) binDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(e.Dir, "Scripts")
	}
	return filepath.Join(e.Dir, "bin")
}

// Python returns the path of the environment interpreter.
func (e *Env) Python() string { return filepath.Join(e.binDir(), "python") }

// Pip returns the path of the environment pip.
func (e *Env) Pip() string { return filepath.Join(e.binDir(), "pip") }

// Exists reports whether the environment has been created.
func (e *Env) Exists() bool {
	info, err := os.Stat(e.Python())
	return err == nil && !info.IsDir()
}

// Create builds the virtual environment, removing any existing one first.
// Callers are expected to have confirmed the removal.
func (e *Env) Create(ctx context.Context) error {
	if e.Dir == "" || e.Dir == "/" {
		return fmt.Errorf("pyenv: refusing to create env at %q", e.Dir)
	}
	if err := os.RemoveAll(e.Dir); err != nil {
		return fmt.Errorf("pyenv: remove existing env: %w", err)
	}
	if err := execx.Run(ctx, execx.Cmd{Name: e.Interpreter, Args: []string{"-m", "venv", e.Dir}}); err != nil {
		return fmt.Errorf("pyenv: create env: %w", err)
	}
	return nil
}

// UpgradePip upgrades pip inside the environment.
func (e *Env) UpgradePip(ctx context.Context) error {
	if !e.Exists() {
		return fmt.Errorf("pyenv: %s: %w", e.Dir, apperr.ErrMissingVenv)
	}
	if err := execx.Run(ctx, execx.Cmd{Name: e.Python(), Args: []string{"-m", "pip", "install", "--upgrade", "pip"}}); err != nil {
		return fmt.Errorf("pyenv: upgrade pip: %w", err)
	}
	return nil
}

// InstallRequirements installs the manifest into the environment.
func (e *Env) InstallRequirements(ctx context.Context) error {
	if !e.Exists() {
		return fmt.Errorf("pyenv: %s: %w", e.Dir, apperr.ErrMissingVenv)
	}
	if _, err := os.Stat(e.Requirements); err != nil {
		return fmt.Errorf("pyenv: requirements manifest: %w", err)
	}
	if err := execx.Run(ctx, execx.Cmd{Name: e.Python(), Args: []string{"-m", "pip", "install", "-r", e.Requirements}}); err != nil {
		return fmt.Errorf("pyenv: install requirements: %w", err)
	}
	return nil
}

// Freeze snapshots the installed packages into the requirements manifest.
// The output is validated and written atomically so a failing pip never
// truncates an existing manifest.
func (e *Env) Freeze(ctx context.Context) ([]Requirement, error) {
	if !e.Exists() {
		return nil, fmt.Errorf("pyenv: %s: %w", e.Dir, apperr.ErrMissingVenv)
	}
	out, err := execx.Output(ctx, execx.Cmd{Name: e.Python(), Args: []string{"-m", "pip", "freeze"}})
	if err != nil {
		return nil, fmt.Errorf("pyenv: pip freeze: %w", err)
	}
	reqs, err := ParseManifest(out)
	if err != nil {
		return nil, fmt.Errorf("pyenv: freeze output: %w", err)
	}
	if err := writeAtomic(e.Requirements, FormatManifest(reqs)); err != nil {
		return nil, err
	}
	return reqs, nil
}

// LookTool resolves a tool binary, preferring the environment bin directory
// over the system PATH. A missing tool maps to apperr.ErrToolNotFound.
func (e *Env) LookTool(name string) (string, error) {
	local := filepath.Join(e.binDir(), name)
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		return local, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("pyenv: %s: %w", name, apperr.ErrToolNotFound)
		}
		return "", fmt.Errorf("pyenv: look up %s: %w", name, err)
	}
	return path, nil
}

// writeAtomic writes content via tmp file, fsync, rename.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("pyenv: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".djx-tmp-*")
	if err != nil {
		return fmt.Errorf("pyenv: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("pyenv: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("pyenv: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("pyenv: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("pyenv: rename: %w", err)
	}
	success = true
	return nil
}
