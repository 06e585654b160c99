package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatchReportsWrite(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan string, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, root, discard(), func(path string) {
			changes <- path
		})
	}()

	// Give the watcher time to register the root.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(root, "site.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-changes:
		if path != "site.css" {
			t.Errorf("path = %q, want site.css", path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for change callback")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatchDebouncesBursts(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan string, 64)
	go func() {
		_ = Watch(ctx, root, discard(), func(path string) {
			changes <- path
		})
	}()
	time.Sleep(100 * time.Millisecond)

	target := filepath.Join(root, "app.js")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Let the debounce window flush, then count callbacks for this path.
	time.Sleep(500 * time.Millisecond)
	count := 0
	for {
		select {
		case <-changes:
			count++
		default:
			if count < 1 || count > 2 {
				t.Errorf("callbacks = %d, want 1 or 2 after debounce", count)
			}
			return
		}
	}
}

func TestIgnored(t *testing.T) {
	for _, p := range []string{".hidden", "notes.swp", "draft~", filepath.Join("a", ".git")} {
		if !ignored(p) {
			t.Errorf("%q should be ignored", p)
		}
	}
	for _, p := range []string{"site.css", filepath.Join("css", "site.css")} {
		if ignored(p) {
			t.Errorf("%q should not be ignored", p)
		}
	}
}
