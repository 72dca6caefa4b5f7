package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/patchpilot/patchpilot/workflow"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the analyzer roles and their status",
	Run: func(cmd *cobra.Command, args []string) {
		roles := workflow.New(nil, nil, nil, nil).Status()
		out, err := json.MarshalIndent(roles, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return
		}
		fmt.Fprintln(os.Stdout, string(out))
	},
}
