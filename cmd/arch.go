package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/flatdeb/internal/arch"
	"github.com/firefly-engineering/flatdeb/internal/errors"
	"github.com/firefly-engineering/flatdeb/internal/worker"
)

var (
	archUname     bool
	archMultiarch bool
)

var printArchCmd = &cobra.Command{
	Use:   "print-flatpak-architecture",
	Short: "Print the Flatpak architecture being built for",
	Long: `Print the Flatpak name of the architecture being built for: --arch,
the arch setting of the configuration, or the native architecture of the
(possibly remote) build machine.`,
	Args: cobra.NoArgs,
	RunE: runPrintArch,
}

var archMatchesCmd = &cobra.Command{
	Use:   "arch-matches <spec>...",
	Short: "Check architecture specifications against the build architecture",
	Long: `Check each specification, such as any-amd64 or linux-any, with
dpkg-architecture. Exits 1 if any of them does not match.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runArchMatches,
}

func init() {
	printArchCmd.Flags().BoolVar(&archUname, "uname", false, "Print the architecture of this machine instead")
	printArchCmd.Flags().BoolVar(&archMultiarch, "multiarch", false, "Also print the companion multiarch architecture, if any")
	rootCmd.AddCommand(printArchCmd)
	rootCmd.AddCommand(archMatchesCmd)
}

func runPrintArch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if archUname {
		name, err := arch.HostFlatpak()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, name)
		return nil
	}

	var host stackFlags
	ctx := cmd.Context()
	return host.stack().Run(ctx, func(w worker.Worker) error {
		dpkg, err := dpkgArch(ctx, w)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, arch.DpkgToFlatpak(dpkg))

		if archMultiarch {
			if other := arch.OtherMultiarch(dpkg); other != "" {
				fmt.Fprintln(out, arch.DpkgToFlatpak(other))
			}
		}
		return nil
	})
}

func runArchMatches(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	mismatched := 0

	var host stackFlags
	ctx := cmd.Context()
	err := host.stack().Run(ctx, func(w worker.Worker) error {
		dpkg, err := dpkgArch(ctx, w)
		if err != nil {
			return err
		}

		m := arch.NewMatcher(w, dpkg)
		for _, spec := range args {
			ok, err := m.Matches(ctx, spec)
			if err != nil {
				return err
			}
			if !ok {
				mismatched++
			}
			fmt.Fprintf(out, "%s\t%t\n", spec, ok)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if mismatched > 0 {
		return errors.New(errors.ExitGeneralError, fmt.Sprintf("%d of %d specifications do not match", mismatched, len(args)))
	}
	return nil
}
