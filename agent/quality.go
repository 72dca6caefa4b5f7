package agent

import (
	"context"
	"fmt"

	"github.com/patchpilot/patchpilot/model"
	"github.com/patchpilot/patchpilot/review"
)

const qualityInstruction = `You are a code quality expert. Review this code for quality issues:

File: %s
Code:
%s

Check for:
1. Style violations (naming conventions, formatting)
2. Code complexity (long functions, deep nesting)
3. Missing documentation
4. Code duplication
5. Error handling issues
6. Performance problems
7. Maintainability issues

For each issue found, respond with JSON format:
[
    {
        "type": "quality_issue_type",
        "description": "detailed description",
        "line": line_number,
        "file": "filename",
        "severity": "low/medium/high",
        "rule_id": "optional_rule_id"
    }
]

If no issues found, return: []

Response (JSON only):`

// QualityAgent is the quality analyzer role. It reviews each snippet for
// style, complexity, documentation and maintainability issues.
type QualityAgent struct {
	chat     model.ChatModel
	fallback FallbackFunc[review.QualityFinding]
}

// NewQualityAgent creates a quality analyzer backed by chat.
func NewQualityAgent(chat model.ChatModel) *QualityAgent {
	return &QualityAgent{chat: chat, fallback: qualityFallback}
}

// Analyze runs the quality role over the snippet list.
func (a *QualityAgent) Analyze(ctx context.Context, snippets []review.CodeSnippet) (Report[review.QualityFinding], error) {
	return analyzeEach(ctx, snippets, a.analyzeSnippet)
}

func (a *QualityAgent) analyzeSnippet(ctx context.Context, snippet review.CodeSnippet) ([]review.QualityFinding, error) {
	prompt := fmt.Sprintf(qualityInstruction, snippet.FilePath, snippet.Content)
	out, err := a.chat.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}})
	if err != nil {
		return nil, err
	}
	return parseFindingsOrFallback(out.Text, snippet.FilePath, decodeQualityFinding, a.fallback), nil
}

func decodeQualityFinding(item map[string]any, filePath string) review.QualityFinding {
	return review.QualityFinding{
		Type:        stringField(item, "type", "Quality Issue"),
		Description: stringField(item, "description", ""),
		Line:        intField(item, "line", 0),
		File:        stringField(item, "file", filePath),
		Severity:    review.Severity(stringField(item, "severity", string(review.SeverityLow))),
		RuleID:      stringField(item, "rule_id", ""),
	}
}

// qualityFallback synthesizes a single low-severity finding when the
// response is not JSON but mentions any quality-domain keyword.
func qualityFallback(raw, filePath string) []review.QualityFinding {
	if !containsAny(raw, "style", "complexity", "documentation", "error") {
		return nil
	}
	return []review.QualityFinding{{
		Type:        "Code Quality Issue",
		Description: truncate(raw, 200),
		Line:        0,
		File:        filePath,
		Severity:    review.SeverityLow,
	}}
}
