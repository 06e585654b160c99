// Package project locates a Django project root on disk.
package project

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindRoot walks up from start looking for a directory that contains
// manage.py either directly or under sourceDir. It returns the absolute
// path of the project root.
func FindRoot(start, sourceDir string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("project: resolve start dir: %w", err)
	}

	dir := abs
	for {
		if hasManage(dir, sourceDir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("project: no manage.py found walking up from %s", abs)
		}
		dir = parent
	}
}

func hasManage(dir, sourceDir string) bool {
	candidates := []string{
		filepath.Join(dir, sourceDir, "manage.py"),
		filepath.Join(dir, "manage.py"),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}
