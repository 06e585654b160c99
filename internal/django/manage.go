// Package django wraps manage.py invocations with the right interpreter
// and settings module.
package django

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/drbea224/djx/internal/apperr"
	"github.com/drbea224/djx/internal/execx"
)

// Manage runs management commands for one project.
type Manage struct {
	// Python is the interpreter to run manage.py with (the venv python).
	Python string
	// SourceDir is the directory containing manage.py.
	SourceDir string
	// DevSettings and ProdSettings are the settings module dotted paths.
	DevSettings  string
	ProdSettings string
}

// managePath returns the manage.py path inside SourceDir.
func (m *Manage) managePath() string { return filepath.Join(m.SourceDir, "manage.py") }

// Check verifies that manage.py exists, so a misconfigured project fails
// with a clear error instead of an interpreter traceback.
func (m *Manage) Check() error {
	info, err := os.Stat(m.managePath())
	if err != nil || info.IsDir() {
		return fmt.Errorf("django: %s: %w", m.managePath(), apperr.ErrMissingManage)
	}
	return nil
}

func (m *Manage) settings(prod bool) string {
	if prod {
		return m.ProdSettings
	}
	return m.DevSettings
}

// Command builds the execx invocation for one management command.
func (m *Manage) Command(prod bool, interactive bool, args ...string) execx.Cmd {
	return execx.Cmd{
		Name:        m.Python,
		Args:        append([]string{"manage.py"}, args...),
		Dir:         m.SourceDir,
		Env:         map[string]string{"DJANGO_SETTINGS_MODULE": m.settings(prod)},
		Interactive: interactive,
	}
}

func (m *Manage) run(ctx context.Context, prod bool, interactive bool, args ...string) error {
	if err := m.Check(); err != nil {
		return err
	}
	if err := execx.Run(ctx, m.Command(prod, interactive, args...)); err != nil {
		return fmt.Errorf("django: %s: %w", args[0], err)
	}
	return nil
}

// Migrate applies pending schema migrations.
func (m *Manage) Migrate(ctx context.Context, prod bool) error {
	return m.run(ctx, prod, false, "migrate")
}

// MakeMigrations generates migration files from model changes.
func (m *Manage) MakeMigrations(ctx context.Context, prod bool) error {
	return m.run(ctx, prod, false, "makemigrations")
}

// CreateSuperuser starts the interactive superuser prompt.
func (m *Manage) CreateSuperuser(ctx context.Context, prod bool) error {
	return m.run(ctx, prod, true, "createsuperuser")
}

// CollectStatic gathers static assets without prompting.
func (m *Manage) CollectStatic(ctx context.Context) error {
	return m.run(ctx, true, false, "collectstatic", "--noinput")
}

// CheckDeploy runs the production readiness checks.
func (m *Manage) CheckDeploy(ctx context.Context) error {
	return m.run(ctx, true, false, "check", "--deploy")
}

// Shell opens the interactive interpreter with the app context loaded.
func (m *Manage) Shell(ctx context.Context, prod bool) error {
	return m.run(ctx, prod, true, "shell")
}

// RunServer starts the development server and blocks until the context is
// cancelled or the server exits.
func (m *Manage) RunServer(ctx context.Context, addr string) error {
	return m.run(ctx, false, true, "runserver", addr)
}

// StartApp scaffolds a new application module.
func (m *Manage) StartApp(ctx context.Context, name string) error {
	if err := ValidateAppName(name); err != nil {
		return err
	}
	return m.run(ctx, false, false, "startapp", name)
}

var appNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// pythonKeywords are reserved words that cannot name an importable module.
var pythonKeywords = map[string]struct{}{
	"False": {}, "None": {}, "True": {}, "and": {}, "as": {}, "assert": {},
	"async": {}, "await": {}, "break": {}, "class": {}, "continue": {},
	"def": {}, "del": {}, "elif": {}, "else": {}, "except": {}, "finally": {},
	"for": {}, "from": {}, "global": {}, "if": {}, "import": {}, "in": {},
	"is": {}, "lambda": {}, "nonlocal": {}, "not": {}, "or": {}, "pass": {},
	"raise": {}, "return": {}, "try": {}, "while": {}, "with": {}, "yield": {},
}

// ValidateAppName checks that name is a legal Python identifier and not a
// reserved word.
func ValidateAppName(name string) error {
	if err := validation.Validate(name,
		validation.Required,
		validation.Match(appNameRe),
	); err != nil {
		return fmt.Errorf("django: invalid app name %q: %w", name, err)
	}
	if _, ok := pythonKeywords[name]; ok {
		return fmt.Errorf("django: invalid app name %q: reserved word", name)
	}
	return nil
}
