package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/drbea224/djx/internal"
	"github.com/drbea224/djx/internal/execx"
	"github.com/drbea224/djx/internal/mcpserver"
	"github.com/drbea224/djx/internal/project"
	pkgconfig "github.com/drbea224/djx/pkg/config"
)

// loadApp resolves the project root, loads the optional djx.yaml and
// builds the application.
func loadApp(cmd *cli.Command) (*internal.App, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	root := cmd.String("root")
	if root == "" {
		root = cfg.Project.Root
	}
	if root == "" {
		found, err := project.FindRoot(".", cfg.Project.SourceDir)
		if err != nil {
			return nil, err
		}
		root = found
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	cfg.Project.Root = abs

	if lvl := cmd.String("log-level"); lvl != "" {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", lvl, err)
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	return internal.NewApp(cfg, logger), nil
}

// withApp wraps a command action with app construction and teardown.
func withApp(fn func(ctx context.Context, cmd *cli.Command, app *internal.App) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, cmd, app)
	}
}

func yesFlag() cli.Flag {
	return &cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip confirmation prompts"}
}

func prodFlag() cli.Flag {
	return &cli.BoolFlag{Name: "prod", Usage: "Use the production settings module"}
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:     "setup",
			Category: "environment",
			Usage:    "Create the virtual environment and install pinned dependencies",
			Flags:    []cli.Flag{yesFlag()},
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.Setup(ctx, cmd.Bool("yes"))
			}),
		},
		{
			Name:     "install",
			Category: "environment",
			Usage:    "Install dependencies from the requirements manifest",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
				return app.Install(ctx)
			}),
		},
		{
			Name:     "update-pip",
			Category: "environment",
			Usage:    "Upgrade pip inside the virtual environment",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
				return app.UpdatePip(ctx)
			}),
		},
		{
			Name:     "freeze",
			Category: "environment",
			Usage:    "Snapshot installed package versions into the requirements manifest",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
				return app.Freeze(ctx)
			}),
		},
		{
			Name:     "env",
			Category: "environment",
			Usage:    "Create the dotenv file from its example if absent",
			Action: withApp(func(_ context.Context, _ *cli.Command, app *internal.App) error {
				return app.EnvBootstrap()
			}),
		},
		{
			Name:     "run",
			Category: "server",
			Usage:    "Start the development server (blocks until interrupted)",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
				return app.RunServer(ctx)
			}),
		},
		{
			Name:     "serve",
			Category: "server",
			Usage:    "Preview collected static files locally",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "watch", Usage: "Watch assets and push live-reload events"},
			},
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.Serve(ctx, cmd.Bool("watch"))
			}),
		},
		{
			Name:     "migrate",
			Category: "database",
			Usage:    "Apply database schema migrations",
			Flags:    []cli.Flag{prodFlag()},
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.Migrate(ctx, cmd.Bool("prod"))
			}),
		},
		{
			Name:     "migrations",
			Category: "database",
			Usage:    "Generate migration files from model changes",
			Flags:    []cli.Flag{prodFlag()},
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.MakeMigrations(ctx, cmd.Bool("prod"))
			}),
		},
		{
			Name:     "reset-db",
			Category: "database",
			Usage:    "Delete the database file and migrate from scratch (asks for confirmation)",
			Flags:    []cli.Flag{yesFlag()},
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.ResetDB(ctx, cmd.Bool("yes"))
			}),
		},
		{
			Name:     "backup-db",
			Category: "database",
			Usage:    "Write a timestamped database snapshot into the backup directory",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "verify", Usage: "Run an integrity check on the snapshot"},
			},
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.BackupDB(ctx, cmd.Bool("verify"))
			}),
		},
		{
			Name:     "createsuperuser",
			Category: "admin",
			Usage:    "Create a privileged account (interactive)",
			Flags:    []cli.Flag{prodFlag()},
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.CreateSuperuser(ctx, cmd.Bool("prod"))
			}),
		},
		{
			Name:     "shell",
			Category: "admin",
			Usage:    "Open the interactive interpreter with the app context loaded",
			Flags:    []cli.Flag{prodFlag()},
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.Shell(ctx, cmd.Bool("prod"))
			}),
		},
		{
			Name:      "startapp",
			Category:  "admin",
			Usage:     "Scaffold a new application module",
			ArgsUsage: "[name]",
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				name := cmd.Args().First()
				if name == "" {
					fmt.Fprint(os.Stdout, "app name: ")
					scanner := bufio.NewScanner(os.Stdin)
					if scanner.Scan() {
						name = strings.TrimSpace(scanner.Text())
					}
				}
				return app.StartApp(ctx, name)
			}),
		},
		{
			Name:     "collectstatic",
			Category: "deploy",
			Usage:    "Gather static assets for production",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
				return app.CollectStatic(ctx)
			}),
		},
		{
			Name:     "check",
			Category: "deploy",
			Usage:    "Run production readiness checks",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
				return app.CheckDeploy(ctx)
			}),
		},
		{
			Name:     "format",
			Category: "quality",
			Usage:    "Run the code formatter if installed",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
				return app.Format(ctx)
			}),
		},
		{
			Name:     "lint",
			Category: "quality",
			Usage:    "Run the linter if installed",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
				return app.Lint(ctx)
			}),
		},
		{
			Name:     "clean",
			Category: "maintenance",
			Usage:    "Remove Python caches from the project tree",
			Action: withApp(func(_ context.Context, _ *cli.Command, app *internal.App) error {
				return app.Clean()
			}),
		},
		{
			Name:     "clean-venv",
			Category: "maintenance",
			Usage:    "Remove the virtual environment",
			Flags:    []cli.Flag{yesFlag()},
			Action: withApp(func(_ context.Context, cmd *cli.Command, app *internal.App) error {
				return app.CleanVenv(cmd.Bool("yes"))
			}),
		},
		{
			Name:     "clean-all",
			Category: "maintenance",
			Usage:    "Remove caches and the virtual environment",
			Flags:    []cli.Flag{yesFlag()},
			Action: withApp(func(_ context.Context, cmd *cli.Command, app *internal.App) error {
				return app.CleanAll(cmd.Bool("yes"))
			}),
		},
		{
			Name:     "log",
			Category: "maintenance",
			Usage:    "Show recent toolkit command runs",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Maximum entries to show"},
			},
			Action: withApp(func(_ context.Context, cmd *cli.Command, app *internal.App) error {
				return app.Log(int(cmd.Int("limit")))
			}),
		},
		{
			Name:     "mcp",
			Category: "integration",
			Usage:    "Serve project tools over the Model Context Protocol (stdio)",
			Action: withApp(func(_ context.Context, _ *cli.Command, app *internal.App) error {
				srv := mcpserver.New(mcpserver.Deps{
					Root:        app.Config.Project.Root,
					VenvDirName: app.Config.Python.VenvDir,
					Manage:      app.Manage(),
					Env:         app.Env(),
					Store:       app.Store(),
					Recorder:    app.Journal(),
				})
				return srv.ServeStdio()
			}),
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "djx",
		Usage: "Django project lifecycle toolkit: environment, migrations, backups, cleanup",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "djx.yaml",
				Value:       "djx.yaml",
				Sources:     cli.EnvVars("DJX_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "root",
				Usage:   "Project root (default: walk up looking for manage.py)",
				Sources: cli.EnvVars("DJX_ROOT"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Commands: commands(),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(execx.ExitCode(err))
	}
}
