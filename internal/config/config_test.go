package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/firefly-engineering/flatdeb/internal/errors"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/var/cache/test")
	cfg := Default()

	if cfg.BuildArea != "/var/cache/test/flatdeb" {
		t.Errorf("BuildArea = %q, want %q", cfg.BuildArea, "/var/cache/test/flatdeb")
	}
	if cfg.Repo != "/var/cache/test/flatdeb/repo" {
		t.Errorf("Repo = %q, want %q", cfg.Repo, "/var/cache/test/flatdeb/repo")
	}
	if cfg.Suite != DefaultSuite {
		t.Errorf("Suite = %q, want %q", cfg.Suite, DefaultSuite)
	}
	if cfg.OstreeMode != DefaultOstreeMode {
		t.Errorf("OstreeMode = %q, want %q", cfg.OstreeMode, DefaultOstreeMode)
	}
	if cfg.Remote.Enabled() {
		t.Error("remote should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/etc/xdg-test")
	if got := DefaultPath(); got != "/etc/xdg-test/flatdeb/config.toml" {
		t.Errorf("DefaultPath() = %q, want %q", got, "/etc/xdg-test/flatdeb/config.toml")
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
build_area = "/srv/flatdeb"
suite = "buster"
arch = "arm64"

[remote]
host = "builder.example.com"
user = "deb"
port = 2222
ostree_mode = "bare-user"

[nspawn]
env = ["LC_ALL=C.UTF-8"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.BuildArea != "/srv/flatdeb" {
		t.Errorf("BuildArea = %q, want %q", cfg.BuildArea, "/srv/flatdeb")
	}
	if cfg.Repo != "/srv/flatdeb/repo" {
		t.Errorf("Repo = %q, want %q", cfg.Repo, "/srv/flatdeb/repo")
	}
	if cfg.Suite != "buster" {
		t.Errorf("Suite = %q, want %q", cfg.Suite, "buster")
	}
	if cfg.Arch != "arm64" {
		t.Errorf("Arch = %q, want %q", cfg.Arch, "arm64")
	}
	if cfg.Remote.Host != "builder.example.com" || cfg.Remote.User != "deb" || cfg.Remote.Port != 2222 {
		t.Errorf("Remote = %+v", cfg.Remote)
	}
	if got := cfg.EffectiveOstreeMode(); got != "bare-user" {
		t.Errorf("EffectiveOstreeMode() = %q, want %q", got, "bare-user")
	}
	if !slices.Equal(cfg.Nspawn.Env, []string{"LC_ALL=C.UTF-8"}) {
		t.Errorf("Nspawn.Env = %v", cfg.Nspawn.Env)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
build_area: /srv/flatdeb
repo: /srv/repo
remote:
  host: builder
nspawn:
  env:
    - DEBIAN_FRONTEND=noninteractive
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Repo != "/srv/repo" {
		t.Errorf("Repo = %q, want %q", cfg.Repo, "/srv/repo")
	}
	if cfg.Remote.Host != "builder" {
		t.Errorf("Remote.Host = %q, want %q", cfg.Remote.Host, "builder")
	}
	if cfg.Suite != DefaultSuite {
		t.Errorf("Suite = %q, want default %q", cfg.Suite, DefaultSuite)
	}
	if got := cfg.EffectiveOstreeMode(); got != DefaultOstreeMode {
		t.Errorf("EffectiveOstreeMode() = %q, want %q", got, DefaultOstreeMode)
	}
}

func TestLoad_EmptyYAML(t *testing.T) {
	path := writeConfig(t, "config.yml", "")

	if _, err := Load(path); err != nil {
		t.Errorf("empty YAML file should load defaults: %v", err)
	}
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Suite != DefaultSuite {
		t.Errorf("Suite = %q, want %q", cfg.Suite, DefaultSuite)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		errMsg  string
	}{
		{"unknown TOML key", "c.toml", "bild_area = \"/x\"\n", "unknown key"},
		{"unknown YAML key", "c.yaml", "bild_area: /x\n", "bild_area"},
		{"bad syntax", "c.toml", "suite = \n", "failed to parse"},
		{"relative build area", "c.toml", "build_area = \"cache\"\n", "build_area must be an absolute path"},
		{"bad ostree mode", "c.toml", "ostree_mode = \"zip\"\n", "invalid ostree_mode"},
		{"bad env", "c.toml", "[nspawn]\nenv = [\"LC_ALL\"]\n", "not KEY=VALUE"},
		{"bad port", "c.toml", "[remote]\nhost = \"b\"\nport = 70000\n", "port out of range"},
		{"host with user", "c.toml", "[remote]\nhost = \"me@b\"\n", "invalid host"},
		{"relative identity", "c.toml", "[remote]\nhost = \"b\"\nidentity_file = \"id\"\n", "identity_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("Load should fail")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %q, should contain %q", err.Error(), tt.errMsg)
			}
			if got := errors.GetExitCode(err); got != errors.ExitConfigError {
				t.Errorf("GetExitCode() = %d, want %d", got, errors.ExitConfigError)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("Load should fail for a missing explicit file")
	}
	if got := errors.GetExitCode(err); got != errors.ExitConfigError {
		t.Errorf("GetExitCode() = %d, want %d", got, errors.ExitConfigError)
	}
}

func TestRemoteConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		remote  RemoteConfig
		wantErr bool
	}{
		{"disabled", RemoteConfig{}, false},
		{"disabled ignores fields", RemoteConfig{Port: -1}, false},
		{"host only", RemoteConfig{Host: "builder"}, false},
		{"negative timeout", RemoteConfig{Host: "builder", ConnectTimeout: -1}, true},
		{"bad ostree mode", RemoteConfig{Host: "builder", OstreeMode: "zip"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.remote.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
