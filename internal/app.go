package internal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/drbea224/djx/internal/apperr"
	"github.com/drbea224/djx/internal/clean"
	"github.com/drbea224/djx/internal/dbops"
	"github.com/drbea224/djx/internal/django"
	"github.com/drbea224/djx/internal/envfile"
	"github.com/drbea224/djx/internal/execx"
	"github.com/drbea224/djx/internal/journal"
	"github.com/drbea224/djx/internal/lint"
	"github.com/drbea224/djx/internal/pyenv"
	"github.com/drbea224/djx/internal/staticserve"
)

// App wires the configuration to the operations behind each CLI command.
type App struct {
	Config *Config
	Logger *slog.Logger

	// Stdin and Stdout carry prompts and user-facing output; tests swap
	// them for buffers.
	Stdin  io.Reader
	Stdout io.Writer

	rec journal.Recorder
}

// NewApp builds an App from a validated configuration. A broken or
// disabled journal degrades to a no-op recorder; it never blocks commands.
func NewApp(cfg *Config, logger *slog.Logger) *App {
	a := &App{
		Config: cfg,
		Logger: logger,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		rec:    journal.Noop{},
	}
	if !cfg.Journal.Disabled {
		db, err := journal.Open(cfg.JournalPath())
		if err != nil {
			logger.Warn("journal unavailable", slog.String("error", err.Error()))
		} else {
			a.rec = db
		}
	}
	return a
}

// Close releases the journal.
func (a *App) Close() {
	_ = a.rec.Close()
}

// Env returns the virtual environment bound to the project.
func (a *App) Env() *pyenv.Env {
	return &pyenv.Env{
		Interpreter:  a.Config.Python.Interpreter,
		Dir:          a.Config.VenvPath(),
		Requirements: a.Config.RequirementsPath(),
	}
}

// Manage returns the manage.py wrapper bound to the project.
func (a *App) Manage() *django.Manage {
	return &django.Manage{
		Python:       a.Env().Python(),
		SourceDir:    a.Config.SourcePath(),
		DevSettings:  a.Config.Django.DevSettings,
		ProdSettings: a.Config.Django.ProdSettings,
	}
}

// Store returns the database file operations bound to the project.
func (a *App) Store() *dbops.Store {
	return &dbops.Store{
		Path:      a.Config.DatabasePath(),
		BackupDir: a.Config.BackupDirPath(),
	}
}

// Journal returns the run recorder.
func (a *App) Journal() journal.Recorder { return a.rec }

// record runs fn, journals the outcome, and returns fn's error.
func (a *App) record(command string, args []string, fn func() error) error {
	start := time.Now()
	err := fn()
	entry := journal.Entry{
		Command:   command,
		Args:      args,
		StartedAt: start,
		Duration:  time.Since(start),
		ExitCode:  execx.ExitCode(err),
	}
	if recErr := a.rec.Record(entry); recErr != nil {
		a.Logger.Warn("journal write failed", slog.String("error", recErr.Error()))
	}
	return err
}

// confirm prints prompt and requires the user to type expect exactly.
func (a *App) confirm(prompt, expect string) bool {
	fmt.Fprintf(a.Stdout, "%s [%s to continue] ", prompt, expect)
	scanner := bufio.NewScanner(a.Stdin)
	if !scanner.Scan() {
		return false
	}
	return strings.TrimSpace(scanner.Text()) == expect
}

// Setup creates the virtual environment, upgrades pip and installs the
// pinned dependencies. An existing environment is recreated after
// confirmation (or unconditionally with yes).
func (a *App) Setup(ctx context.Context, yes bool) error {
	return a.record("setup", nil, func() error {
		env := a.Env()
		if env.Exists() && !yes {
			if !a.confirm(fmt.Sprintf("virtual environment %s exists and will be recreated.", env.Dir), "yes") {
				return apperr.ErrAborted
			}
		}
		if err := env.Create(ctx); err != nil {
			return err
		}
		if err := env.UpgradePip(ctx); err != nil {
			return err
		}
		if err := env.InstallRequirements(ctx); err != nil {
			return err
		}
		fmt.Fprintf(a.Stdout, "environment ready at %s\n", env.Dir)
		return nil
	})
}

// Install installs the pinned dependencies into the existing environment.
func (a *App) Install(ctx context.Context) error {
	return a.record("install", nil, func() error {
		return a.Env().InstallRequirements(ctx)
	})
}

// UpdatePip upgrades pip inside the environment.
func (a *App) UpdatePip(ctx context.Context) error {
	return a.record("update-pip", nil, func() error {
		return a.Env().UpgradePip(ctx)
	})
}

// Freeze snapshots installed packages into the requirements manifest.
func (a *App) Freeze(ctx context.Context) error {
	return a.record("freeze", nil, func() error {
		reqs, err := a.Env().Freeze(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Stdout, "froze %d requirements to %s\n", len(reqs), a.Config.RequirementsPath())
		return nil
	})
}

// EnvBootstrap copies the example dotenv file into place if absent.
func (a *App) EnvBootstrap() error {
	return a.record("env", nil, func() error {
		created, err := envfile.Bootstrap(a.Config.Abs(a.Config.EnvFile.Path), a.Config.Abs(a.Config.EnvFile.Example))
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(a.Stdout, "created %s from %s\n", a.Config.EnvFile.Path, a.Config.EnvFile.Example)
		} else {
			fmt.Fprintf(a.Stdout, "%s already exists, leaving it alone\n", a.Config.EnvFile.Path)
		}
		return nil
	})
}

// RunServer starts the development server.
func (a *App) RunServer(ctx context.Context) error {
	return a.record("run", []string{a.Config.Django.ServerAddr}, func() error {
		return a.Manage().RunServer(ctx, a.Config.Django.ServerAddr)
	})
}

// Migrate applies schema migrations.
func (a *App) Migrate(ctx context.Context, prod bool) error {
	return a.record("migrate", prodArgs(prod), func() error {
		return a.Manage().Migrate(ctx, prod)
	})
}

// MakeMigrations generates migration files.
func (a *App) MakeMigrations(ctx context.Context, prod bool) error {
	return a.record("migrations", prodArgs(prod), func() error {
		return a.Manage().MakeMigrations(ctx, prod)
	})
}

// CreateSuperuser starts the interactive superuser prompt.
func (a *App) CreateSuperuser(ctx context.Context, prod bool) error {
	return a.record("createsuperuser", prodArgs(prod), func() error {
		return a.Manage().CreateSuperuser(ctx, prod)
	})
}

// Shell opens the interactive interpreter with the app context loaded.
func (a *App) Shell(ctx context.Context, prod bool) error {
	return a.record("shell", prodArgs(prod), func() error {
		return a.Manage().Shell(ctx, prod)
	})
}

// CollectStatic gathers static assets for production.
func (a *App) CollectStatic(ctx context.Context) error {
	return a.record("collectstatic", nil, func() error {
		return a.Manage().CollectStatic(ctx)
	})
}

// CheckDeploy runs the production readiness checks.
func (a *App) CheckDeploy(ctx context.Context) error {
	return a.record("check", nil, func() error {
		return a.Manage().CheckDeploy(ctx)
	})
}

// StartApp scaffolds a new application module.
func (a *App) StartApp(ctx context.Context, name string) error {
	return a.record("startapp", []string{name}, func() error {
		return a.Manage().StartApp(ctx, name)
	})
}

// BackupDB writes a timestamped snapshot into the backup directory and
// optionally verifies it.
func (a *App) BackupDB(ctx context.Context, verify bool) error {
	args := []string(nil)
	if verify {
		args = []string{"--verify"}
	}
	return a.record("backup-db", args, func() error {
		dest, err := a.Store().Backup(ctx)
		if err != nil {
			return err
		}
		if verify {
			if err := dbops.Verify(ctx, dest); err != nil {
				return err
			}
		}
		fmt.Fprintf(a.Stdout, "backup written to %s\n", dest)
		return nil
	})
}

// ResetDB deletes the database and re-runs migrations. It requires the
// user to type "yes" unless yes is set.
func (a *App) ResetDB(ctx context.Context, yes bool) error {
	return a.record("reset-db", nil, func() error {
		if !yes {
			if !a.confirm(fmt.Sprintf("this will DELETE %s and recreate it.", a.Config.DatabasePath()), "yes") {
				fmt.Fprintln(a.Stdout, "reset cancelled")
				return apperr.ErrAborted
			}
		}
		if err := a.Store().Reset(); err != nil {
			return err
		}
		return a.Manage().Migrate(ctx, false)
	})
}

// Format runs the configured formatter.
func (a *App) Format(ctx context.Context) error {
	return a.record("format", nil, func() error {
		tool := lint.Tool{Name: a.Config.Tools.Formatter, Args: a.Config.Tools.FormatterArgs}
		return lint.Run(ctx, a.Env(), a.Config.Project.Root, tool, a.Stdout)
	})
}

// Lint runs the configured linter.
func (a *App) Lint(ctx context.Context) error {
	return a.record("lint", nil, func() error {
		tool := lint.Tool{Name: a.Config.Tools.Linter, Args: a.Config.Tools.LinterArgs}
		return lint.Run(ctx, a.Env(), a.Config.Project.Root, tool, a.Stdout)
	})
}

// Clean removes Python caches under the project root.
func (a *App) Clean() error {
	return a.record("clean", nil, func() error {
		res, err := clean.Sweep(a.Config.Project.Root, a.Config.Python.VenvDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Stdout, "removed %d cache directories and %d compiled files\n", res.Dirs, res.Files)
		return nil
	})
}

// CleanVenv removes the virtual environment after confirmation.
func (a *App) CleanVenv(yes bool) error {
	return a.record("clean-venv", nil, func() error {
		env := a.Env()
		if !env.Exists() {
			fmt.Fprintln(a.Stdout, "no virtual environment to remove")
			return nil
		}
		if !yes {
			if !a.confirm(fmt.Sprintf("this will remove %s.", env.Dir), "yes") {
				return apperr.ErrAborted
			}
		}
		return clean.RemoveVenv(a.Config.Project.Root, env.Dir)
	})
}

// CleanAll removes caches and the virtual environment.
func (a *App) CleanAll(yes bool) error {
	if err := a.Clean(); err != nil {
		return err
	}
	return a.CleanVenv(yes)
}

// Log prints the most recent journal entries.
func (a *App) Log(limit int) error {
	entries, err := a.rec.Recent(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.Stdout, "no recorded runs")
		return nil
	}
	tw := tabwriter.NewWriter(a.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tCOMMAND\tARGS\tDURATION\tEXIT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Command,
			strings.Join(e.Args, " "),
			e.Duration.Round(time.Millisecond),
			e.ExitCode)
	}
	return tw.Flush()
}

// Serve runs the static preview server.
func (a *App) Serve(ctx context.Context, watchAssets bool) error {
	srv := &staticserve.Server{
		StaticRoot: a.Config.StaticRootPath(),
		Addr:       fmt.Sprintf(":%d", a.Config.Serve.Port),
		Watch:      watchAssets,
	}
	return srv.Run(ctx, a.Logger)
}

func prodArgs(prod bool) []string {
	if prod {
		return []string{"--prod"}
	}
	return nil
}
