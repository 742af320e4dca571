package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/flatdeb/internal/worker"
)

var remoteDirStack stackFlags

var remoteDirCmd = &cobra.Command{
	Use:   "remote-dir [--sudo] [--nspawn ROOT] <path> -- <command>...",
	Short: "Run a local command on a directory of a worker",
	Long: `Make <path>, as seen by the selected worker, available as a local
directory and run <command> on this machine with every {} replaced by the
local path. The directory is released when the command exits.`,
	Example: `  flatdeb remote-dir --remote builder /srv/repo -- ostree --repo={} refs`,
	Args:    cobra.MinimumNArgs(2),
	RunE:    runRemoteDir,
}

func init() {
	remoteDirStack.register(remoteDirCmd)
	rootCmd.AddCommand(remoteDirCmd)
}

func runRemoteDir(cmd *cobra.Command, args []string) error {
	before, argv, err := splitAtDash(cmd, args, 1, "remote-dir [--sudo] [--nspawn ROOT] <path> -- <command>...")
	if err != nil {
		return err
	}
	path := before[0]

	ctx := cmd.Context()
	stack := remoteDirStack.stack()
	err = stack.Run(ctx, func(w worker.Worker) error {
		return worker.WithRemoteDir(ctx, w, path, func(dir string) error {
			local := make([]string, len(argv))
			for i, arg := range argv {
				local[i] = strings.ReplaceAll(arg, "{}", dir)
			}
			return stack.Host.CheckCall(ctx, local,
				worker.WithStdout(cmd.OutOrStdout()),
				worker.WithStderr(cmd.ErrOrStderr()),
			)
		})
	})
	return childExit(err)
}
