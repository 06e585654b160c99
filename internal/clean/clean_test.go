package clean

import (
	"os"
	"path/filepath"
	"testing"
)

func mustWrite(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestSweepRemovesCaches(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "src", "article", "__pycache__", "models.cpython-311.pyc"), "x")
	mustWrite(t, filepath.Join(root, "src", "article", "models.py"), "models")
	mustWrite(t, filepath.Join(root, ".pytest_cache", "README.md"), "x")
	mustWrite(t, filepath.Join(root, "src", "old.pyc"), "x")
	mustWrite(t, filepath.Join(root, "requirements.txt"), "Django==4.2.7\n")

	res, err := Sweep(root, "venv")
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Dirs != 2 {
		t.Errorf("dirs removed = %d, want 2", res.Dirs)
	}
	if res.Files != 1 {
		t.Errorf("files removed = %d, want 1", res.Files)
	}

	if exists(filepath.Join(root, "src", "article", "__pycache__")) {
		t.Error("__pycache__ should be gone")
	}
	if exists(filepath.Join(root, "src", "old.pyc")) {
		t.Error("stray .pyc should be gone")
	}
	if !exists(filepath.Join(root, "src", "article", "models.py")) {
		t.Error("source file must survive")
	}
	if !exists(filepath.Join(root, "requirements.txt")) {
		t.Error("unrelated file must survive")
	}
}

func TestSweepSkipsVenv(t *testing.T) {
	root := t.TempDir()
	inVenv := filepath.Join(root, "venv", "lib", "__pycache__", "mod.pyc")
	mustWrite(t, inVenv, "x")

	if _, err := Sweep(root, "venv"); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if !exists(inVenv) {
		t.Error("venv contents must not be swept")
	}
}

func TestRemoveVenv(t *testing.T) {
	root := t.TempDir()
	venv := filepath.Join(root, "venv")
	mustWrite(t, filepath.Join(venv, "bin", "python"), "x")

	if err := RemoveVenv(root, venv); err != nil {
		t.Fatalf("RemoveVenv: %v", err)
	}
	if exists(venv) {
		t.Error("venv should be gone")
	}
}

func TestRemoveVenvRefusesUnsafePaths(t *testing.T) {
	root := t.TempDir()
	if err := RemoveVenv(root, "/"); err == nil {
		t.Error("must refuse /")
	}
	if err := RemoveVenv(root, root); err == nil {
		t.Error("must refuse the project root itself")
	}
	if err := RemoveVenv(root, t.TempDir()); err == nil {
		t.Error("must refuse paths outside the project root")
	}
}
