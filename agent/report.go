// Package agent implements the analyzer roles (security, quality, logic),
// the context enricher, and the decision engine of the pull request analysis
// pipeline. Each role sends code snippets to a chat model with a
// role-specific instruction and parses the free-text response into typed
// findings.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/patchpilot/patchpilot/review"
)

// Role names, used for error bookkeeping, prompts, and status reporting.
const (
	RoleSecurity = "security"
	RoleQuality  = "quality"
	RoleLogic    = "logic"
	RoleContext  = "context"
	RoleDecision = "decision"
)

// Report is the outcome of one analyzer role over a snippet list.
//
// Findings appear in the same order as the input snippets. Errors are
// per-file: a failed file never blocks analysis of the remaining files.
type Report[F any] struct {
	Findings   []F
	Errors     []string
	TotalFiles int
}

// Success reports whether the role completed without per-file errors,
// regardless of how many findings were produced.
func (r Report[F]) Success() bool {
	return len(r.Errors) == 0
}

// analyzeEach drives the shared per-snippet loop of every analyzer role.
//
// Snippets with empty or whitespace-only content are skipped with an error
// entry. A failure from analyzeOne is recorded as
// "Error analyzing <file>: <msg>" and analysis continues with the next
// snippet. Context cancellation is the one fatal case: it aborts the loop so
// an expired deadline is not converted into a per-file error for every
// remaining snippet.
func analyzeEach[F any](
	ctx context.Context,
	snippets []review.CodeSnippet,
	analyzeOne func(ctx context.Context, snippet review.CodeSnippet) ([]F, error),
) (Report[F], error) {
	report := Report[F]{TotalFiles: len(snippets)}

	for _, snippet := range snippets {
		if err := ctx.Err(); err != nil {
			return Report[F]{}, err
		}

		if strings.TrimSpace(snippet.Content) == "" {
			report.Errors = append(report.Errors,
				fmt.Sprintf("Error analyzing %s: empty code snippet", snippet.FilePath))
			continue
		}

		findings, err := analyzeOne(ctx, snippet)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return Report[F]{}, err
			}
			report.Errors = append(report.Errors,
				fmt.Sprintf("Error analyzing %s: %v", snippet.FilePath, err))
			continue
		}

		report.Findings = append(report.Findings, findings...)
	}

	return report, nil
}
