// Package cli implements the elfinsight command line.
package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/elfinsight/pkg/version"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	globals := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "elfinsight",
		Short: "elfinsight - flash/RAM usage and call graphs for ARM ELF firmware",
		Long: `Inspect embedded ARM ELF binaries using the GNU binutils you already have.

elfinsight runs nm and objdump from your toolchain (arm-none-eabi- by default),
and turns their output into:
- A symbol table with per-section sizes and flash/RAM totals
- A static call graph reconstructed from branch-and-link instructions

Listings captured on another machine can be analysed with --nm-sizes,
--nm-defined and --objdump-listing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	globals.addFlags(cmd)

	cmd.AddCommand(newSymbolsCmd(globals))
	cmd.AddCommand(newGraphCmd(globals))
	cmd.AddCommand(newLoadCmd(globals))
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newConfigCmd(globals))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("elfinsight version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command. An interrupt cancels the running load.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
