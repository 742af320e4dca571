package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/firefly-engineering/flatdeb/internal/errors"
)

const (
	DefaultSuite      = "stretch"
	DefaultOstreeMode = "archive-z2"
	ConfigFileName    = "config.toml"
	AppName           = "flatdeb"
)

// validOstreeModes are the repository modes `ostree init --mode` accepts.
var validOstreeModes = map[string]bool{
	"bare":           true,
	"bare-user":      true,
	"bare-user-only": true,
	"archive":        true,
	"archive-z2":     true,
}

// Config is the builder configuration.
type Config struct {
	// BuildArea holds caches, tarballs and the default repository.
	BuildArea string `toml:"build_area" yaml:"build_area"`

	// Repo is the OSTree repository runtimes and apps are committed to.
	Repo string `toml:"repo" yaml:"repo"`

	Suite string `toml:"suite" yaml:"suite"`

	// Arch is the dpkg architecture to build for. Empty means the
	// architecture of the worker.
	Arch string `toml:"arch" yaml:"arch"`

	OstreeMode string `toml:"ostree_mode" yaml:"ostree_mode"`

	Remote RemoteConfig `toml:"remote" yaml:"remote"`
	Nspawn NspawnConfig `toml:"nspawn" yaml:"nspawn"`
}

// RemoteConfig describes a build machine reached over ssh. Host is empty
// when builds run locally.
type RemoteConfig struct {
	Host           string `toml:"host" yaml:"host"`
	User           string `toml:"user" yaml:"user"`
	Port           int    `toml:"port" yaml:"port"`
	ConnectTimeout int    `toml:"connect_timeout" yaml:"connect_timeout"`
	IdentityFile   string `toml:"identity_file" yaml:"identity_file"`

	// OstreeMode overrides the top-level mode for repositories on the
	// remote machine.
	OstreeMode string `toml:"ostree_mode" yaml:"ostree_mode"`
}

// Enabled reports whether a remote build machine is configured.
func (r RemoteConfig) Enabled() bool {
	return r.Host != ""
}

// NspawnConfig configures commands run inside container trees.
type NspawnConfig struct {
	// Env holds KEY=VALUE assignments passed to every command.
	Env []string `toml:"env" yaml:"env"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	buildArea := filepath.Join(cacheHome(), AppName)
	return &Config{
		BuildArea:  buildArea,
		Repo:       filepath.Join(buildArea, "repo"),
		Suite:      DefaultSuite,
		OstreeMode: DefaultOstreeMode,
	}
}

// EffectiveOstreeMode returns the repository mode to use, taking the
// remote override into account.
func (c *Config) EffectiveOstreeMode() string {
	if c.Remote.Enabled() && c.Remote.OstreeMode != "" {
		return c.Remote.OstreeMode
	}
	return c.OstreeMode
}

// Validate checks that the Config is valid.
func (c *Config) Validate() error {
	if c.BuildArea == "" || !filepath.IsAbs(c.BuildArea) {
		return fmt.Errorf("build_area must be an absolute path (got %q)", c.BuildArea)
	}
	if c.Repo == "" || !filepath.IsAbs(c.Repo) {
		return fmt.Errorf("repo must be an absolute path (got %q)", c.Repo)
	}
	if c.Suite == "" {
		return fmt.Errorf("suite is required")
	}
	if !validOstreeModes[c.OstreeMode] {
		return fmt.Errorf("invalid ostree_mode: %s", c.OstreeMode)
	}

	if err := c.Remote.Validate(); err != nil {
		return fmt.Errorf("remote: %w", err)
	}

	for _, kv := range c.Nspawn.Env {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			return fmt.Errorf("nspawn: env entry %q is not KEY=VALUE", kv)
		}
	}

	return nil
}

// Validate checks that the RemoteConfig is valid.
func (r *RemoteConfig) Validate() error {
	if !r.Enabled() {
		return nil
	}
	if strings.ContainsAny(r.Host, " @:/") {
		return fmt.Errorf("invalid host %q", r.Host)
	}
	if r.Port < 0 || r.Port > 65535 {
		return fmt.Errorf("port out of range (got %d)", r.Port)
	}
	if r.ConnectTimeout < 0 {
		return fmt.Errorf("connect_timeout cannot be negative (got %d)", r.ConnectTimeout)
	}
	if r.IdentityFile != "" && !filepath.IsAbs(r.IdentityFile) {
		return fmt.Errorf("identity_file must be an absolute path (got %q)", r.IdentityFile)
	}
	if r.OstreeMode != "" && !validOstreeModes[r.OstreeMode] {
		return fmt.Errorf("invalid ostree_mode: %s", r.OstreeMode)
	}
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/flatdeb/config.toml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(homeDir(), ".config")
	}
	return filepath.Join(dir, AppName, ConfigFileName)
}

// Load reads the configuration at path, decoding it as YAML for .yaml and
// .yml files and as TOML otherwise. Fields missing from the file keep
// their defaults. A missing file at the default path is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, errors.ConfigError("failed to read config", err)
	}

	if err := decode(path, data, cfg); err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("failed to parse %s", path), err)
	}

	// Repo follows a relocated build area unless it was set explicitly.
	if cfg.Repo == Default().Repo && cfg.BuildArea != Default().BuildArea {
		cfg.Repo = filepath.Join(cfg.BuildArea, "repo")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("invalid config %s", path), err)
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown key %s", undecoded[0])
		}
		return nil
	}
}

func cacheHome() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "/"
}
