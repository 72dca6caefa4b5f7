package agent

import (
	"fmt"

	"github.com/patchpilot/patchpilot/review"
)

// highSeverityBlockThreshold is the number of high severity findings above
// which a PR is blocked outright instead of sent back for changes.
const highSeverityBlockThreshold = 3

// Decide derives the merge decision from the aggregated findings of one run.
//
// It is a pure function: identical inputs always produce identical output.
// The rule table is evaluated in priority order, first match wins:
//
//  1. any critical security finding        -> BLOCK / CRITICAL
//  2. more than 3 high severity findings   -> BLOCK / HIGH
//  3. 1-3 high severity findings           -> REQUEST_CHANGES / HIGH
//  4. otherwise                            -> APPROVE / LOW
//
// Only security severity counts gate the decision. Quality and logic
// findings are non-gating signal surfaced through the summary and totals.
// The enrichment map is accepted for the same reason: advisory input that
// future rules may consume, never a block trigger.
func Decide(
	security []review.SecurityFinding,
	quality []review.QualityFinding,
	logic []review.LogicFinding,
	enrichment map[string]any,
) review.Decision {
	critical, high := 0, 0
	for _, f := range security {
		switch f.Severity {
		case review.SeverityCritical:
			critical++
		case review.SeverityHigh:
			high++
		}
	}

	d := review.Decision{
		CriticalIssues: critical,
		HighIssues:     high,
		TotalIssues:    len(security) + len(quality),
	}

	switch {
	case critical > 0:
		d.Decision = review.VerdictBlock
		d.RiskLevel = review.RiskCritical
		d.Summary = fmt.Sprintf("Found %d critical security %s", critical, issueWord(critical))
	case high > highSeverityBlockThreshold:
		d.Decision = review.VerdictBlock
		d.RiskLevel = review.RiskHigh
		d.Summary = fmt.Sprintf("Found %d high severity issues (>%d)", high, highSeverityBlockThreshold)
	case high > 0:
		d.Decision = review.VerdictRequestChanges
		d.RiskLevel = review.RiskHigh
		d.Summary = fmt.Sprintf("Found %d high severity %s", high, issueWord(high))
	default:
		d.Decision = review.VerdictApprove
		d.RiskLevel = review.RiskLow
		d.Summary = "No blocking security issues found"
	}

	if n := len(quality); n > 0 {
		d.Summary += fmt.Sprintf("; %d quality %s noted", n, issueWord(n))
	}
	if n := logicIssueCount(logic); n > 0 {
		d.Summary += fmt.Sprintf("; %d logic %s flagged", n, fileWord(n))
	}
	return d
}

func logicIssueCount(logic []review.LogicFinding) int {
	count := 0
	for _, f := range logic {
		if f.HasIssues {
			count++
		}
	}
	return count
}

func issueWord(n int) string {
	if n == 1 {
		return "issue"
	}
	return "issues"
}

func fileWord(n int) string {
	if n == 1 {
		return "file"
	}
	return "files"
}
