// Package testutil provides shared test helpers for laying out throwaway
// Django project fixtures.
package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// ProjectDir creates a temporary project root with src/manage.py, a
// requirements manifest and a dotenv example, and returns the root path.
func ProjectDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(src, "manage.py"):         "#!/usr/bin/env python\n",
		filepath.Join(root, "requirements.txt"): "Django==4.2.7\n",
		filepath.Join(root, ".env.example"):     "DJANGO_SECRET_KEY=changeme\nDEBUG=True\n",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// FakeVenv writes a venv-shaped directory under root whose python binary
// is a shell script with the given body. The script sees manage.py
// invocations exactly as the real interpreter would.
func FakeVenv(t *testing.T, root, script string) {
	t.Helper()
	bin := filepath.Join(root, "venv", "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatal(err)
	}
	body := "#!/bin/sh\n" + script + "\n"
	if err := os.WriteFile(filepath.Join(bin, "python"), []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
}

// SeedDB creates a small SQLite database at path.
func SeedDB(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE article (id INTEGER PRIMARY KEY, title TEXT)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO article (title) VALUES ('seed')`); err != nil {
		t.Fatal(err)
	}
}
