// Package clean removes Python build caches and the virtual environment.
package clean

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// cacheDirs are directory names removed wholesale during a sweep.
var cacheDirs = map[string]struct{}{
	"__pycache__":   {},
	".pytest_cache": {},
	".mypy_cache":   {},
	".ruff_cache":   {},
}

// skipDirs are never descended into: their contents are not ours to touch.
var skipDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
}

// Result counts what a sweep removed.
type Result struct {
	Dirs  int
	Files int
}

// Sweep walks root removing cache directories and compiled Python files.
// Directories named in extraSkip (the venv, typically) are left alone.
// Unrelated files are never touched.
func Sweep(root string, extraSkip ...string) (Result, error) {
	var res Result

	skip := make(map[string]struct{}, len(skipDirs)+len(extraSkip))
	for name := range skipDirs {
		skip[name] = struct{}{}
	}
	for _, name := range extraSkip {
		if name != "" {
			skip[name] = struct{}{}
		}
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// A directory we just removed keeps the sweep going.
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if _, ok := skip[name]; ok {
				return filepath.SkipDir
			}
			if _, ok := cacheDirs[name]; ok {
				if err := os.RemoveAll(path); err != nil {
					return fmt.Errorf("clean: remove %s: %w", path, err)
				}
				res.Dirs++
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".pyc") || strings.HasSuffix(d.Name(), ".pyo") {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("clean: remove %s: %w", path, err)
			}
			res.Files++
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("clean: sweep %s: %w", root, err)
	}
	return res, nil
}

// RemoveVenv deletes the virtual environment directory. The path must be a
// non-root directory under project root; anything else is refused.
func RemoveVenv(root, venv string) error {
	abs, err := filepath.Abs(venv)
	if err != nil {
		return fmt.Errorf("clean: resolve venv path: %w", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("clean: resolve project root: %w", err)
	}
	if abs == "/" || abs == absRoot {
		return fmt.Errorf("clean: refusing to remove %s", abs)
	}
	if !strings.HasPrefix(abs, absRoot+string(os.PathSeparator)) {
		return fmt.Errorf("clean: venv %s is outside project root %s", abs, absRoot)
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("clean: remove venv: %w", err)
	}
	return nil
}
