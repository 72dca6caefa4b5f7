// Package cli implements the patchpilot command line interface. It is a thin
// adapter over the library packages: it loads config, wires providers and
// stores, and prints results. All analysis behavior lives in the library.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Exit codes. The decision maps onto the exit code so CI can gate merges
// without parsing output.
const (
	ExitApprove       = 0
	ExitChangesNeeded = 1
	ExitBlocked       = 2
	ExitUsageError    = 3
	ExitRuntimeError  = 4
)

var (
	flagConfig string
	flagTrace  bool
)

var rootCmd = &cobra.Command{
	Use:   "patchpilot",
	Short: "AI-assisted pull request analysis",
	Long: "Patchpilot runs parallel security, quality, and logic reviewers over a\n" +
		"pull request and derives a deterministic merge decision.",
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitApprove

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (YAML)")
	rootCmd.PersistentFlags().BoolVar(&flagTrace, "trace", false, "Emit OpenTelemetry spans for workflow events")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}
	return exitCode
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print patchpilot version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "patchpilot version %s\n", version)
	},
}
