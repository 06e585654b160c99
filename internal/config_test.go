package internal

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestVenvDirRejectsRoot(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Python.VenvDir = "/"
	if err := cfg.Validate(); err == nil {
		t.Fatal("venv_dir = / should fail validation")
	}
}

func TestVenvDirRejectsEmpty(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Python.VenvDir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty venv_dir should fail validation")
	}
}

func TestServePortRange(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Serve.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("port above 65535 should fail validation")
	}
}

func TestSettingsModuleSelection(t *testing.T) {
	cfg := NewDefaultConfig()
	if got := cfg.Django.SettingsModule(false); got != "config.dev_settings" {
		t.Errorf("dev settings = %q", got)
	}
	if got := cfg.Django.SettingsModule(true); got != "config.settings" {
		t.Errorf("prod settings = %q", got)
	}
}

func TestAbsResolvesAgainstRoot(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Project.Root = "/tmp/proj"
	if got := cfg.ManagePath(); got != filepath.Join("/tmp/proj", "src", "manage.py") {
		t.Errorf("ManagePath = %q", got)
	}
	if got := cfg.Abs("/already/abs"); got != "/already/abs" {
		t.Errorf("Abs should keep absolute paths: %q", got)
	}
}
