package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/patchpilot/patchpilot/emit"
	"github.com/patchpilot/patchpilot/review"
)

var flagPreviousLimit int

var analyzeCmd = &cobra.Command{
	Use:   "analyze [context.json]",
	Short: "Analyze a pull request and print the merge decision",
	Long: "Analyze reads an analysis context (JSON) from the given file or stdin,\n" +
		"runs the security, quality, and logic reviewers in parallel, and prints\n" +
		"the decision as JSON. The exit code mirrors the decision: 0 approve,\n" +
		"1 request changes, 2 block.",
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runAnalyze(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if exitCode == ExitApprove {
				exitCode = ExitRuntimeError
			}
		}
	},
}

func init() {
	analyzeCmd.Flags().IntVar(&flagPreviousLimit, "previous-findings", 25,
		"Max stored findings used to seed previous issues when the context has none")
}

// analyzeResult is the stdout payload of the analyze command.
type analyzeResult struct {
	Decision         *review.Decision         `json:"decision"`
	SecurityFindings []review.SecurityFinding `json:"security_findings"`
	QualityFindings  []review.QualityFinding  `json:"quality_findings"`
	LogicFindings    []review.LogicFinding    `json:"logic_findings"`
	AnalysisErrors   map[string][]string      `json:"analysis_errors,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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
	var actx review.AnalysisContext
	if err := json.Unmarshal(raw, &actx); err != nil {
		exitCode = ExitUsageError
		return fmt.Errorf("invalid analysis context: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx := cmd.Context()
	em := newEmitter(cfg)
	if flagTrace {
		otelEmitter, shutdown := setupTracing()
		defer func() { _ = shutdown(ctx) }()
		em = emit.Multi(em, otelEmitter)
	}

	// Seed previous issues from run history when the caller didn't supply any.
	if len(actx.PreviousIssues) == 0 && actx.RepoName != "" {
		prev, err := st.RecentFindings(ctx, actx.RepoName, flagPreviousLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not load previous findings: %v\n", err)
		} else {
			actx.PreviousIssues = prev
		}
	}

	eng, cleanup, err := buildEngine(ctx, cfg, st, em)
	if err != nil {
		return err
	}
	defer cleanup()

	state, err := eng.AnalyzePullRequest(ctx, actx)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(analyzeResult{
		Decision:         state.Decision,
		SecurityFindings: state.SecurityResults,
		QualityFindings:  state.QualityResults,
		LogicFindings:    state.LogicResults,
		AnalysisErrors:   state.AnalysisErrors,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))

	switch state.Decision.Decision {
	case review.VerdictRequestChanges:
		exitCode = ExitChangesNeeded
	case review.VerdictBlock:
		exitCode = ExitBlocked
	default:
		exitCode = ExitApprove
	}
	return nil
}

func readInput(args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		// #nosec G304 -- path is operator-provided input path.
		return os.ReadFile(args[0])
	}
	return io.ReadAll(os.Stdin)
}
