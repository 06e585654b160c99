package envfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBootstrapCreatesFromExample(t *testing.T) {
	root := t.TempDir()
	example := filepath.Join(root, ".env.example")
	path := filepath.Join(root, ".env")
	content := []byte("DJANGO_SECRET_KEY=changeme\nDEBUG=True\n")
	if err := os.WriteFile(example, content, 0o644); err != nil {
		t.Fatal(err)
	}

	created, err := Bootstrap(path, example)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if !created {
		t.Error("expected created = true")
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("content = %q, want %q", got, content)
	}
}

func TestBootstrapIdempotent(t *testing.T) {
	root := t.TempDir()
	example := filepath.Join(root, ".env.example")
	path := filepath.Join(root, ".env")
	if err := os.WriteFile(example, []byte("A=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("A=edited\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	created, err := Bootstrap(path, example)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if created {
		t.Error("existing file must not be replaced")
	}
	got, _ := os.ReadFile(path)
	if string(got) != "A=edited\n" {
		t.Errorf("existing file modified: %q", got)
	}
}

func TestBootstrapMissingExample(t *testing.T) {
	root := t.TempDir()
	if _, err := Bootstrap(filepath.Join(root, ".env"), filepath.Join(root, ".env.example")); err == nil {
		t.Fatal("missing example should fail")
	}
}

func TestLintReportsEmptyKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FULL=value\nEMPTY=\nALSO_EMPTY=\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	empty, err := Lint(path)
	if err != nil {
		t.Fatalf("Lint: %v", err)
	}
	if len(empty) != 2 || empty[0] != "ALSO_EMPTY" || empty[1] != "EMPTY" {
		t.Errorf("empty = %v", empty)
	}
}
