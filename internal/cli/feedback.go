package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/patchpilot/patchpilot/feedback"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback [feedback.json]",
	Short: "Record reviewer feedback on a previous analysis",
	Long: "Feedback reads a feedback payload (JSON) from the given file or stdin\n" +
		"and adjusts the learned severity of each referenced issue type:\n" +
		"accepted issues are weighted down, rejected issues are weighted up.",
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runFeedback(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if exitCode == ExitApprove {
				exitCode = ExitRuntimeError
			}
		}
	},
}

func runFeedback(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		exitCode = ExitUsageError
		return err
	}

	raw, err := readInput(args)
	if err != nil {
		exitCode = ExitUsageError
		return err
	}
	var fb feedback.Feedback
	if err := json.Unmarshal(raw, &fb); err != nil {
		exitCode = ExitUsageError
		return fmt.Errorf("invalid feedback payload: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	recorder := feedback.NewRecorder(st, newEmitter(cfg))
	if !recorder.Record(cmd.Context(), fb) {
		exitCode = ExitRuntimeError
		return fmt.Errorf("feedback for %s was not fully recorded", fb.PRID)
	}
	fmt.Fprintf(os.Stdout, "feedback recorded for %s (%d accepted, %d rejected)\n",
		fb.PRID, len(fb.AcceptedIssues), len(fb.RejectedIssues))
	return nil
}
