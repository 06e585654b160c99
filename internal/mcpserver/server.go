// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes project lifecycle tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/drbea224/djx/internal/clean"
	"github.com/drbea224/djx/internal/dbops"
	"github.com/drbea224/djx/internal/django"
	"github.com/drbea224/djx/internal/journal"
	"github.com/drbea224/djx/internal/pyenv"
)

// Deps are the project components the tools operate on.
type Deps struct {
	Root        string
	VenvDirName string
	Manage      *django.Manage
	Env         *pyenv.Env
	Store       *dbops.Store
	Recorder    journal.Recorder
}

// Server wraps the MCP server with project tools.
type Server struct {
	mcp  *server.MCPServer
	deps Deps
}

// New creates a new MCP server with all project tools registered.
func New(deps Deps) *Server {
	s := &Server{deps: deps}

	s.mcp = server.NewMCPServer(
		"djx",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("project_status",
		mcp.WithDescription("Report the project state: virtual environment, database file, manage.py, pinned dependencies."),
	), s.projectStatus)

	s.mcp.AddTool(mcp.NewTool("run_migrations",
		mcp.WithDescription("Apply pending database schema migrations via manage.py migrate."),
		mcp.WithBoolean("prod", mcp.Description("Use the production settings module")),
	), s.runMigrations)

	s.mcp.AddTool(mcp.NewTool("make_migrations",
		mcp.WithDescription("Generate migration files from model changes via manage.py makemigrations."),
	), s.makeMigrations)

	s.mcp.AddTool(mcp.NewTool("backup_database",
		mcp.WithDescription("Write a timestamped consistent snapshot of the SQLite database into the backup directory."),
	), s.backupDatabase)

	s.mcp.AddTool(mcp.NewTool("freeze_requirements",
		mcp.WithDescription("Snapshot installed package versions into the requirements manifest."),
	), s.freezeRequirements)

	s.mcp.AddTool(mcp.NewTool("clean_caches",
		mcp.WithDescription("Remove Python bytecode caches and tool cache directories from the project tree."),
	), s.cleanCaches)

	s.mcp.AddTool(mcp.NewTool("recent_runs",
		mcp.WithDescription("List the most recent toolkit command runs from the task journal."),
		mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default 20)")),
	), s.recentRuns)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type statusReport struct {
	Root         string `json:"root"`
	ManagePy     bool   `json:"manage_py"`
	VenvExists   bool   `json:"venv_exists"`
	Database     bool   `json:"database_exists"`
	DatabaseSize int64  `json:"database_size"`
	Requirements int    `json:"pinned_requirements"`
}

func (s *Server) projectStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report := statusReport{
		Root:       s.deps.Root,
		ManagePy:   s.deps.Manage.Check() == nil,
		VenvExists: s.deps.Env.Exists(),
	}
	if info, err := os.Stat(s.deps.Store.Path); err == nil {
		report.Database = true
		report.DatabaseSize = info.Size()
	}
	if data, err := os.ReadFile(s.deps.Env.Requirements); err == nil {
		if reqs, parseErr := pyenv.ParseManifest(data); parseErr == nil {
			report.Requirements = len(reqs)
		}
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) runMigrations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prod := req.GetBool("prod", false)
	if err := s.deps.Manage.Migrate(ctx, prod); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("migrations applied"), nil
}

func (s *Server) makeMigrations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.deps.Manage.MakeMigrations(ctx, false); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("migration files generated"), nil
}

func (s *Server) backupDatabase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dest, err := s.deps.Store.Backup(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("backup written to %s", dest)), nil
}

func (s *Server) freezeRequirements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reqs, err := s.deps.Env.Freeze(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("froze %d requirements", len(reqs))), nil
}

func (s *Server) cleanCaches(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := clean.Sweep(s.deps.Root, s.deps.VenvDirName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed %d cache directories and %d compiled files", res.Dirs, res.Files)), nil
}

func (s *Server) recentRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(req.GetFloat("limit", 20))
	entries, err := s.deps.Recorder.Recent(limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no recorded runs"), nil
	}
	var lines []string
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s %s %s (%s, exit %d)",
			e.StartedAt.Format("2006-01-02 15:04:05"),
			e.Command,
			strings.Join(e.Args, " "),
			e.Duration.Round(time.Millisecond),
			e.ExitCode))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}
