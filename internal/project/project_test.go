package project

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManage(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manage.py"), []byte("#!/usr/bin/env python\n"), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestFindRootFromNestedDir(t *testing.T) {
	root := t.TempDir()
	writeManage(t, filepath.Join(root, "src"))
	nested := filepath.Join(root, "src", "config")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindRoot(nested, "src")
	if err != nil {
		t.Fatalf("FindRoot: %v", err)
	}
	if got != root {
		t.Errorf("root = %q, want %q", got, root)
	}
}

func TestFindRootManageAtRoot(t *testing.T) {
	root := t.TempDir()
	writeManage(t, root)

	got, err := FindRoot(root, "src")
	if err != nil {
		t.Fatalf("FindRoot: %v", err)
	}
	if got != root {
		t.Errorf("root = %q, want %q", got, root)
	}
}

func TestFindRootNotFound(t *testing.T) {
	if _, err := FindRoot(t.TempDir(), "src"); err == nil {
		t.Fatal("expected error when no manage.py exists")
	}
}
