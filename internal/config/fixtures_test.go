package config_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/firefly-engineering/flatdeb/internal/config"
	"github.com/firefly-engineering/flatdeb/internal/testutil"
)

func TestLoad_Fixtures(t *testing.T) {
	for _, name := range []string{testutil.ValidConfigTOML, testutil.ValidConfigYAML} {
		t.Run(name, func(t *testing.T) {
			cfg, err := config.Load(testutil.WriteFixture(t, name))
			if err != nil {
				t.Fatalf("Load error: %v", err)
			}

			if cfg.BuildArea != "/srv/flatdeb" || cfg.Repo != "/srv/flatdeb/repo" {
				t.Errorf("BuildArea, Repo = %q, %q", cfg.BuildArea, cfg.Repo)
			}
			if cfg.Arch != "amd64" {
				t.Errorf("Arch = %q, want %q", cfg.Arch, "amd64")
			}
			want := config.RemoteConfig{
				Host:           "builder.example.com",
				User:           "deb",
				Port:           2222,
				ConnectTimeout: 5,
				IdentityFile:   "/home/deb/.ssh/id_builder",
				OstreeMode:     "bare-user",
			}
			if cfg.Remote != want {
				t.Errorf("Remote = %+v, want %+v", cfg.Remote, want)
			}
			if !slices.Equal(cfg.Nspawn.Env, []string{"LC_ALL=C.UTF-8", "DEBIAN_FRONTEND=noninteractive"}) {
				t.Errorf("Nspawn.Env = %v", cfg.Nspawn.Env)
			}
		})
	}
}

func TestLoad_InvalidFixture(t *testing.T) {
	_, err := config.Load(testutil.WriteFixture(t, testutil.InvalidConfigTOML))
	if err == nil {
		t.Fatal("Load should reject the invalid fixture")
	}
	if !strings.Contains(err.Error(), "build_area") {
		t.Errorf("error = %q, should name build_area", err.Error())
	}
}
