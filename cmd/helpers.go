package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/flatdeb/internal/app"
	"github.com/firefly-engineering/flatdeb/internal/arch"
	"github.com/firefly-engineering/flatdeb/internal/errors"
	"github.com/firefly-engineering/flatdeb/internal/worker"
)

// stackFlags are the layer-selection flags shared by several commands.
type stackFlags struct {
	sudo   bool
	nspawn string
}

func (f *stackFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.sudo, "sudo", false, "Run as root")
	cmd.Flags().StringVar(&f.nspawn, "nspawn", "", "Run inside a systemd-nspawn container rooted at `ROOT` (implies --sudo)")
}

func (f *stackFlags) reset() {
	*f = stackFlags{}
}

// stack builds the worker stack the flags select.
func (f *stackFlags) stack() *app.Stack {
	return app.Default.Stack(app.StackOptions{Sudo: f.sudo, NspawnRoot: f.nspawn})
}

// splitAtDash separates the arguments before "--" from the command after
// it. want is the number of arguments expected before the dash.
func splitAtDash(cmd *cobra.Command, args []string, want int, usage string) ([]string, []string, error) {
	dash := cmd.ArgsLenAtDash()
	if dash != want || len(args) == want {
		return nil, nil, errors.ValidationError("usage: flatdeb " + usage)
	}
	return args[:dash], args[dash:], nil
}

// childExit makes a failed command's own exit status the process exit
// code, the way env(1) and sudo(8) pass it through. Cleanup failures keep
// their own code.
func childExit(err error) error {
	if err == nil || errors.HasCode(err, errors.ExitCleanupFailed) {
		return err
	}
	if status, ok := errors.ExitStatus(err); ok && status > 0 {
		return errors.Wrap(status, "exec", err)
	}
	return err
}

// parseMode parses an octal permission string such as "0644" or "755".
func parseMode(s string) (uint32, error) {
	mode, err := strconv.ParseUint(s, 8, 32)
	if err != nil || mode > 0o7777 {
		return 0, errors.ValidationError("invalid mode " + strconv.Quote(s))
	}
	return uint32(mode), nil
}

// dpkgArch returns the configured architecture, or asks w for its own.
func dpkgArch(ctx context.Context, w worker.Worker) (string, error) {
	if a := app.Default.Config.Arch; a != "" {
		return a, nil
	}
	return arch.WorkerDpkg(ctx, w)
}
