package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/flatdeb/internal/app"
	"github.com/firefly-engineering/flatdeb/internal/config"
	"github.com/firefly-engineering/flatdeb/internal/errors"
	"github.com/firefly-engineering/flatdeb/internal/logging"
)

// logOutput receives structured log records.
var logOutput io.Writer = os.Stderr

var (
	verbose    bool
	jsonOutput bool
	configPath string
	remoteHost string
	archFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "flatdeb",
	Short: "Build Flatpak runtimes and apps from Debian packages",
	Long: `flatdeb drives debootstrap, apt, systemd-nspawn and ostree on the
local machine or on a remote build machine.

Commands run through a stack of workers:
  - host: the local machine, as the calling user
  - ssh: a remote build machine (--remote or [remote] in the config)
  - sudo: root on that machine (--sudo)
  - nspawn: a container tree on that machine (--nspawn ROOT)`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbose, jsonOutput, logOutput)
		return loadConfig()
	},
}

// Execute runs the command line. SIGINT and SIGTERM cancel the context;
// open workers still release what they acquired before it returns.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if ctx.Err() != nil {
		logging.UserWarning("interrupted")
	}
	if errors.HasCode(err, errors.ExitCleanupFailed) {
		logging.Error("temporary files or mounts may have been left behind", "error", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default $XDG_CONFIG_HOME/flatdeb/config.toml)")
	rootCmd.PersistentFlags().StringVar(&remoteHost, "remote", "", "Run commands on this host over ssh")
	rootCmd.PersistentFlags().StringVar(&archFlag, "arch", "", "dpkg architecture to build for")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads the configuration into the default app and applies the
// command-line overrides.
func loadConfig() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if remoteHost != "" {
		cfg.Remote.Host = remoteHost
	}
	if archFlag != "" {
		cfg.Arch = archFlag
	}
	if err := cfg.Validate(); err != nil {
		return errors.ConfigError("invalid command line", err)
	}

	app.Default.Config = cfg
	logging.Debug("configuration loaded", "build_area", cfg.BuildArea, "remote", cfg.Remote.Host, "arch", cfg.Arch)
	return nil
}

// logSuccess is the user-facing success line (delegates to logging package)
var logSuccess = logging.UserSuccess
