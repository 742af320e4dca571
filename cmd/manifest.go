package cmd

import (
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/flatdeb/internal/worker"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest <root>",
	Short: "Record the packages installed in a container tree",
	Long:  "Write the list of installed packages of the tree at <root> to " + worker.ManifestPath + " inside it.",
	Args:  cobra.ExactArgs(1),
	RunE:  runManifest,
}

func init() {
	rootCmd.AddCommand(manifestCmd)
}

func runManifest(cmd *cobra.Command, args []string) error {
	var flags stackFlags
	flags.nspawn = args[0]
	stack := flags.stack()

	ctx := cmd.Context()
	err := stack.Run(ctx, func(worker.Worker) error {
		return stack.Nspawn.WriteManifest(ctx)
	})
	if err != nil {
		return err
	}

	logSuccess("Wrote %s in %s", worker.ManifestPath, args[0])
	return nil
}
