package internal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/drbea224/djx/internal/apperr"
	"github.com/drbea224/djx/internal/testutil"
)

func testApp(t *testing.T, root string) *App {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Project.Root = root
	cfg.Journal.Path = filepath.Join(root, ".djx", "journal.db")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := NewApp(cfg, logger)
	app.Stdout = io.Discard
	t.Cleanup(app.Close)
	return app
}

// migrateRecreatesDB is a fake python that recreates the database file on
// "manage.py migrate", the way a real migrate would.
func migrateRecreatesDB(dbPath string) string {
	return `if [ "$1" = "manage.py" ] && [ "$2" = "migrate" ]; then : > "` + dbPath + `"; fi
exit 0`
}

func TestResetDBDeclined(t *testing.T) {
	root := testutil.ProjectDir(t)
	app := testApp(t, root)
	testutil.SeedDB(t, app.Config.DatabasePath())
	before, _ := os.ReadFile(app.Config.DatabasePath())

	app.Stdin = strings.NewReader("no\n")
	err := app.ResetDB(context.Background(), false)
	if !errors.Is(err, apperr.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}

	after, readErr := os.ReadFile(app.Config.DatabasePath())
	if readErr != nil {
		t.Fatalf("database should still exist: %v", readErr)
	}
	if string(before) != string(after) {
		t.Error("declined reset must not touch the database")
	}
}

func TestResetDBConfirmed(t *testing.T) {
	root := testutil.ProjectDir(t)
	app := testApp(t, root)
	testutil.SeedDB(t, app.Config.DatabasePath())
	testutil.FakeVenv(t, root, migrateRecreatesDB(app.Config.DatabasePath()))

	app.Stdin = strings.NewReader("yes\n")
	if err := app.ResetDB(context.Background(), false); err != nil {
		t.Fatalf("ResetDB: %v", err)
	}

	info, err := os.Stat(app.Config.DatabasePath())
	if err != nil {
		t.Fatalf("migrate should have recreated the database: %v", err)
	}
	if info.Size() != 0 {
		t.Error("expected a fresh (empty) database file")
	}
}

func TestBackupDBWritesSnapshot(t *testing.T) {
	root := testutil.ProjectDir(t)
	app := testApp(t, root)
	testutil.SeedDB(t, app.Config.DatabasePath())

	if err := app.BackupDB(context.Background(), true); err != nil {
		t.Fatalf("BackupDB: %v", err)
	}
	entries, err := os.ReadDir(app.Config.BackupDirPath())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("backup entries = %d, want 1", len(entries))
	}
}

func TestEnvBootstrapIdempotent(t *testing.T) {
	root := testutil.ProjectDir(t)
	app := testApp(t, root)

	if err := app.EnvBootstrap(); err != nil {
		t.Fatalf("EnvBootstrap: %v", err)
	}
	envPath := filepath.Join(root, ".env")
	if err := os.WriteFile(envPath, []byte("EDITED=1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := app.EnvBootstrap(); err != nil {
		t.Fatalf("second EnvBootstrap: %v", err)
	}
	got, _ := os.ReadFile(envPath)
	if string(got) != "EDITED=1\n" {
		t.Errorf("existing .env modified: %q", got)
	}
}

func TestCommandsAreJournaled(t *testing.T) {
	root := testutil.ProjectDir(t)
	app := testApp(t, root)

	if err := app.Clean(); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	entries, err := app.Journal().Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Command != "clean" {
		t.Errorf("journal entries = %+v", entries)
	}
}

func TestCleanVenvDeclined(t *testing.T) {
	root := testutil.ProjectDir(t)
	app := testApp(t, root)
	testutil.FakeVenv(t, root, "exit 0")

	app.Stdin = strings.NewReader("nope\n")
	if err := app.CleanVenv(false); !errors.Is(err, apperr.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if !app.Env().Exists() {
		t.Error("declined clean-venv must keep the environment")
	}
}

func TestCleanVenvConfirmed(t *testing.T) {
	root := testutil.ProjectDir(t)
	app := testApp(t, root)
	testutil.FakeVenv(t, root, "exit 0")

	if err := app.CleanVenv(true); err != nil {
		t.Fatalf("CleanVenv: %v", err)
	}
	if app.Env().Exists() {
		t.Error("environment should be gone")
	}
}
