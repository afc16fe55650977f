package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "treeline",
		Short: "Path-based reactive state runtime",
		Long: `Treeline is a reactive state-and-render runtime for Go.

State lives in a hierarchical path store; computations track the paths
they read and re-run when those paths (or their subtrees) change. A
dual-strategy reconciler applies the resulting trees to a render target.

This CLI hosts the development inspector and a synthetic benchmark for
profiling the runtime under mutation load.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		benchCmd(),
		inspectCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
