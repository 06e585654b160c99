package internal

import (
	"log/slog"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the toolkit configuration for one Django project.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Project  ProjectConfig     `yaml:"project"`
	Python   PythonConfig      `yaml:"python"`
	Django   DjangoConfig      `yaml:"django"`
	Database DatabaseConfig    `yaml:"database"`
	EnvFile  EnvFileConfig     `yaml:"envfile"`
	Tools    ToolsConfig       `yaml:"tools"`
	Serve    ServeConfig       `yaml:"serve"`
	Journal  JournalConfig     `yaml:"journal"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Project.Validate(); err != nil {
		return err
	}
	if err := c.Python.Validate(); err != nil {
		return err
	}
	if err := c.Django.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.EnvFile.Validate(); err != nil {
		return err
	}
	if err := c.Serve.Validate(); err != nil {
		return err
	}
	return nil
}

// ApplicationConfig holds toolkit-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// ProjectConfig locates the Django project on disk.
type ProjectConfig struct {
	// Root is the project root directory. When empty, the CLI discovers it
	// by walking up from the working directory looking for manage.py.
	Root string `yaml:"root"`
	// SourceDir is the directory containing manage.py, relative to Root.
	SourceDir string `yaml:"source_dir"`
}

// Validate validates the project configuration.
func (c *ProjectConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SourceDir, validation.Required),
	)
}

// PythonConfig holds interpreter and virtual environment settings.
type PythonConfig struct {
	Interpreter  string `yaml:"interpreter"`
	VenvDir      string `yaml:"venv_dir"`
	Requirements string `yaml:"requirements"`
}

// Validate validates the Python configuration.
func (c *PythonConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Interpreter, validation.Required),
		validation.Field(&c.VenvDir, validation.Required, validation.NotIn("/", ".", "..")),
		validation.Field(&c.Requirements, validation.Required),
	)
}

// DjangoConfig holds manage.py invocation settings.
type DjangoConfig struct {
	DevSettings  string `yaml:"dev_settings"`
	ProdSettings string `yaml:"prod_settings"`
	ServerAddr   string `yaml:"server_addr"`
	StaticRoot   string `yaml:"static_root"`
}

// Validate validates the Django configuration.
func (c *DjangoConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DevSettings, validation.Required),
		validation.Field(&c.ProdSettings, validation.Required),
		validation.Field(&c.ServerAddr, validation.Required),
	)
}

// SettingsModule returns the settings module for the requested environment.
func (c *DjangoConfig) SettingsModule(prod bool) string {
	if prod {
		return c.ProdSettings
	}
	return c.DevSettings
}

// DatabaseConfig holds the SQLite database file settings.
type DatabaseConfig struct {
	Path      string `yaml:"path"`
	BackupDir string `yaml:"backup_dir"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.BackupDir, validation.Required),
	)
}

// EnvFileConfig holds dotenv bootstrap settings.
type EnvFileConfig struct {
	Path    string `yaml:"path"`
	Example string `yaml:"example"`
}

// Validate validates the env file configuration.
func (c *EnvFileConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Example, validation.Required),
	)
}

// ToolsConfig names the optional formatter and linter.
type ToolsConfig struct {
	Formatter     string   `yaml:"formatter"`
	FormatterArgs []string `yaml:"formatter_args"`
	Linter        string   `yaml:"linter"`
	LinterArgs    []string `yaml:"linter_args"`
}

// ServeConfig holds the static preview server settings.
type ServeConfig struct {
	Port int `yaml:"port"`
}

// Validate validates the preview server configuration.
func (c *ServeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// JournalConfig holds task journal settings.
type JournalConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// Abs resolves a config-relative path against the project root.
func (c *Config) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Project.Root, rel)
}

// SourcePath returns the absolute path of the manage.py directory.
func (c *Config) SourcePath() string { return c.Abs(c.Project.SourceDir) }

// ManagePath returns the absolute path of manage.py.
func (c *Config) ManagePath() string { return filepath.Join(c.SourcePath(), "manage.py") }

// VenvPath returns the absolute path of the virtual environment.
func (c *Config) VenvPath() string { return c.Abs(c.Python.VenvDir) }

// RequirementsPath returns the absolute path of the requirements manifest.
func (c *Config) RequirementsPath() string { return c.Abs(c.Python.Requirements) }

// DatabasePath returns the absolute path of the SQLite database file.
func (c *Config) DatabasePath() string { return c.Abs(c.Database.Path) }

// BackupDirPath returns the absolute path of the backup directory.
func (c *Config) BackupDirPath() string { return c.Abs(c.Database.BackupDir) }

// StaticRootPath returns the absolute path of the collectstatic output.
func (c *Config) StaticRootPath() string { return c.Abs(c.Django.StaticRoot) }

// JournalPath returns the absolute path of the journal database.
func (c *Config) JournalPath() string { return c.Abs(c.Journal.Path) }

// NewDefaultConfig returns a new Config with defaults matching the
// conventional project layout (manage.py under src/, SQLite database next
// to it, venv and requirements.txt at the root).
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelWarn,
		},
		Project: ProjectConfig{
			SourceDir: "src",
		},
		Python: PythonConfig{
			Interpreter:  "python3",
			VenvDir:      "venv",
			Requirements: "requirements.txt",
		},
		Django: DjangoConfig{
			DevSettings:  "config.dev_settings",
			ProdSettings: "config.settings",
			ServerAddr:   "127.0.0.1:8000",
			StaticRoot:   "src/staticfiles",
		},
		Database: DatabaseConfig{
			Path:      "src/db.sqlite3",
			BackupDir: "backups",
		},
		EnvFile: EnvFileConfig{
			Path:    ".env",
			Example: ".env.example",
		},
		Tools: ToolsConfig{
			Formatter:     "black",
			FormatterArgs: []string{"src"},
			Linter:        "ruff",
			LinterArgs:    []string{"check", "src"},
		},
		Serve: ServeConfig{
			Port: 8800,
		},
		Journal: JournalConfig{
			Path: ".djx/journal.db",
		},
	}
}
