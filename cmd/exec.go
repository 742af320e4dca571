package cmd

import (
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/flatdeb/internal/worker"
)

var (
	execStack stackFlags
	execStdin bool
)

var execCmd = &cobra.Command{
	Use:   "exec [--sudo] [--nspawn ROOT] -- <command>...",
	Short: "Run a command through a worker stack",
	Long: `Run a command through a worker stack and wait for it.

The command's exit status becomes flatdeb's exit status.`,
	Example: `  flatdeb exec -- uname -a
  flatdeb exec --remote builder --nspawn /srv/base -- apt-get update`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	execStack.register(execCmd)
	execCmd.Flags().BoolVar(&execStdin, "stdin", false, "Connect standard input to the command")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	_, argv, err := splitAtDash(cmd, args, 0, "exec [--sudo] [--nspawn ROOT] -- <command>...")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	opts := []worker.Option{
		worker.WithStdout(cmd.OutOrStdout()),
		worker.WithStderr(cmd.ErrOrStderr()),
	}
	if execStdin {
		opts = append(opts, worker.WithStdin(cmd.InOrStdin()))
	}

	err = execStack.stack().Run(ctx, func(w worker.Worker) error {
		return w.CheckCall(ctx, argv, opts...)
	})
	return childExit(err)
}
