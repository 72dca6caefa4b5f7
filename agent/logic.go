package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/patchpilot/patchpilot/model"
	"github.com/patchpilot/patchpilot/review"
)

const logicInstruction = `You are a logic analysis expert. Analyze this code for logical issues:

File: %s
Code:
%s

Look for:
1. Potential bugs and logical errors
2. Race conditions
3. Memory leaks
4. Null pointer exceptions
5. Infinite loops
6. Data flow issues
7. API contract violations
8. Edge case handling

Provide analysis in this format:
## Logic Analysis for %s

### Issues Found:
1. **Issue Type**: Description
   - Line: X
   - Severity: Low/Medium/High
   - Fix: Suggested solution

### Suggestions:
- Suggestion 1
- Suggestion 2

If no issues found, state: "No logic issues detected."

Response:`

// noLogicIssues is the sentinel phrase the logic role asks the model for
// when a file is clean.
const noLogicIssues = "no logic issues detected"

// LogicAgent is the logic analyzer role. Unlike the structured roles it
// keeps the model's free-text analysis, extracting fenced code suggestions
// and a clean/dirty flag per file.
type LogicAgent struct {
	chat model.ChatModel
}

// NewLogicAgent creates a logic analyzer backed by chat.
func NewLogicAgent(chat model.ChatModel) *LogicAgent {
	return &LogicAgent{chat: chat}
}

// Analyze runs the logic role over the snippet list. Each successfully
// analyzed snippet yields exactly one LogicFinding.
func (a *LogicAgent) Analyze(ctx context.Context, snippets []review.CodeSnippet) (Report[review.LogicFinding], error) {
	return analyzeEach(ctx, snippets, a.analyzeSnippet)
}

func (a *LogicAgent) analyzeSnippet(ctx context.Context, snippet review.CodeSnippet) ([]review.LogicFinding, error) {
	prompt := fmt.Sprintf(logicInstruction, snippet.FilePath, snippet.Content, snippet.FilePath)
	out, err := a.chat.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}})
	if err != nil {
		return nil, err
	}

	return []review.LogicFinding{{
		File:        snippet.FilePath,
		Analysis:    out.Text,
		Suggestions: parseCodeBlocks(out.Text),
		HasIssues:   !strings.Contains(strings.ToLower(out.Text), noLogicIssues),
	}}, nil
}
