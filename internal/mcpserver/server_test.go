package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/drbea224/djx/internal/dbops"
	"github.com/drbea224/djx/internal/django"
	"github.com/drbea224/djx/internal/journal"
	"github.com/drbea224/djx/internal/pyenv"
	"github.com/drbea224/djx/internal/testutil"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := testutil.ProjectDir(t)

	jr, err := journal.Open(filepath.Join(root, ".djx", "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { jr.Close() })

	env := &pyenv.Env{
		Interpreter:  "python3",
		Dir:          filepath.Join(root, "venv"),
		Requirements: filepath.Join(root, "requirements.txt"),
	}
	srv := New(Deps{
		Root:        root,
		VenvDirName: "venv",
		Manage: &django.Manage{
			Python:       env.Python(),
			SourceDir:    filepath.Join(root, "src"),
			DevSettings:  "config.dev_settings",
			ProdSettings: "config.settings",
		},
		Env:      env,
		Store:    &dbops.Store{Path: filepath.Join(root, "src", "db.sqlite3"), BackupDir: filepath.Join(root, "backups")},
		Recorder: jr,
	})
	return srv, root
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "project_status":
		result, err = srv.projectStatus(ctx, req)
	case "backup_database":
		result, err = srv.backupDatabase(ctx, req)
	case "clean_caches":
		result, err = srv.cleanCaches(ctx, req)
	case "recent_runs":
		result, err = srv.recentRuns(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestProjectStatus(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "project_status", nil)
	var report statusReport
	if err := json.Unmarshal([]byte(resultText(r)), &report); err != nil {
		t.Fatalf("status is not JSON: %v", err)
	}
	if !report.ManagePy {
		t.Error("manage.py should be reported present")
	}
	if report.VenvExists {
		t.Error("no venv was created")
	}
	if report.Requirements != 1 {
		t.Errorf("pinned requirements = %d, want 1", report.Requirements)
	}
}

func TestBackupDatabaseTool(t *testing.T) {
	srv, root := testServer(t)
	testutil.SeedDB(t, filepath.Join(root, "src", "db.sqlite3"))

	r := callTool(t, srv, "backup_database", nil)
	text := resultText(r)
	if !strings.Contains(text, "backup written to") {
		t.Errorf("result = %q", text)
	}
}

func TestBackupDatabaseToolMissingDB(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "backup_database", nil)
	if !r.IsError {
		t.Error("missing database should produce a tool error result")
	}
}

func TestCleanCachesTool(t *testing.T) {
	srv, root := testServer(t)
	cache := filepath.Join(root, "src", "__pycache__")
	if err := os.MkdirAll(cache, 0o755); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "clean_caches", nil)
	if !strings.Contains(resultText(r), "removed 1 cache") {
		t.Errorf("result = %q", resultText(r))
	}
	if _, err := os.Stat(cache); !os.IsNotExist(err) {
		t.Error("cache dir should be gone")
	}
}

func TestRecentRunsTool(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "recent_runs", nil)
	if resultText(r) != "no recorded runs" {
		t.Errorf("empty journal result = %q", resultText(r))
	}

	if err := srv.deps.Recorder.Record(journal.Entry{Command: "migrate", StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	r = callTool(t, srv, "recent_runs", map[string]interface{}{"limit": 5.0})
	if !strings.Contains(resultText(r), "migrate") {
		t.Errorf("result = %q", resultText(r))
	}
}
