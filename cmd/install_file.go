package cmd

import (
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/flatdeb/internal/worker"
)

var (
	installStack stackFlags
	installMode  string
)

var installFileCmd = &cobra.Command{
	Use:   "install-file [--sudo] [--nspawn ROOT] <source> <destination>",
	Short: "Copy a local file into a worker's filesystem",
	Long: `Copy a file readable by the calling user to a path as seen by the
selected worker. With --nspawn the destination is inside ROOT.`,
	Args: cobra.ExactArgs(2),
	RunE: runInstallFile,
}

func init() {
	installStack.register(installFileCmd)
	installFileCmd.Flags().StringVar(&installMode, "mode", "0644", "Permissions of the installed file, in octal")
	rootCmd.AddCommand(installFileCmd)
}

func runInstallFile(cmd *cobra.Command, args []string) error {
	source, destination := args[0], args[1]
	mode, err := parseMode(installMode)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	err = installStack.stack().Run(ctx, func(w worker.Worker) error {
		return w.InstallFile(ctx, source, destination, fs.FileMode(mode))
	})
	if err != nil {
		return err
	}

	logSuccess("Installed %s", destination)
	return nil
}
