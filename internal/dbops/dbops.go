// Package dbops implements file-level operations on the project SQLite
// database: consistent backups, integrity checks, and reset.
package dbops

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store binds the live database file to its backup directory.
type Store struct {
	Path      string
	BackupDir string
}

// Backup writes a timestamped snapshot of the database into the backup
// directory and returns the snapshot path. When the file is a readable
// SQLite database the snapshot is taken with VACUUM INTO, which is
// consistent even if a writer holds the file; otherwise it falls back to a
// verbatim byte copy.
func (s *Store) Backup(ctx context.Context) (string, error) {
	if _, err := os.Stat(s.Path); err != nil {
		return "", fmt.Errorf("dbops: database file: %w", err)
	}
	if err := os.MkdirAll(s.BackupDir, 0o755); err != nil {
		return "", fmt.Errorf("dbops: create backup dir: %w", err)
	}

	dest, err := s.backupName(time.Now())
	if err != nil {
		return "", err
	}

	if err := vacuumInto(ctx, s.Path, dest); err != nil {
		// Not a usable SQLite database (or driver failure): copy bytes.
		if copyErr := copyFile(s.Path, dest); copyErr != nil {
			return "", fmt.Errorf("dbops: backup copy: %w", copyErr)
		}
	}
	return dest, nil
}

// backupName picks a fresh timestamped file name; a second backup within
// the same second gets a numeric suffix rather than overwriting.
func (s *Store) backupName(now time.Time) (string, error) {
	base := strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))
	stamp := now.Format("20060102-150405")
	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("%s-%s.sqlite3", base, stamp)
		if i > 0 {
			name = fmt.Sprintf("%s-%s-%d.sqlite3", base, stamp, i)
		}
		dest := filepath.Join(s.BackupDir, name)
		if _, err := os.Stat(dest); errors.Is(err, os.ErrNotExist) {
			return dest, nil
		}
	}
	return "", fmt.Errorf("dbops: no free backup name for stamp %s", stamp)
}

func vacuumInto(ctx context.Context, src, dest string) error {
	db, err := sql.Open("sqlite3", "file:"+src+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		// A partial snapshot must not survive.
		_ = os.Remove(dest)
		return err
	}
	return nil
}

// Verify runs PRAGMA integrity_check against the given database file.
func Verify(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("dbops: open %s: %w", path, err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("dbops: integrity check %s: %w", path, err)
	}
	if result != "ok" {
		return fmt.Errorf("dbops: integrity check %s: %s", path, result)
	}
	return nil
}

// Reset removes the database file so the next migrate recreates it from
// scratch. A missing file is not an error. Confirmation is the caller's
// responsibility.
func (s *Store) Reset() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("dbops: remove database: %w", err)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
