package agent

import (
	"context"
	"fmt"

	"github.com/patchpilot/patchpilot/model"
	"github.com/patchpilot/patchpilot/review"
)

const securityInstruction = `You are a security expert. Analyze this code for security vulnerabilities:

File: %s
Code:
%s

Find these security issues:
1. Hardcoded passwords/secrets/API keys
2. SQL injection vulnerabilities
3. XSS vulnerabilities
4. Insecure file operations
5. Authentication bypass
6. Command injection
7. Path traversal
8. Insecure randomness
9. Weak encryption
10. Missing input validation

For each vulnerability found, respond with JSON format:
[
    {
        "type": "vulnerability_type",
        "severity": "low/medium/high/critical",
        "description": "detailed description",
        "line": line_number,
        "file": "filename",
        "confidence": confidence_score
    }
]

If no vulnerabilities found, return: []

Response (JSON only):`

// SecurityAgent is the security analyzer role. It inspects each snippet for
// vulnerabilities via the chat model and parses the response into
// SecurityFindings.
//
// The agent is stateless between snippets and safe for concurrent use.
type SecurityAgent struct {
	chat     model.ChatModel
	fallback FallbackFunc[review.SecurityFinding]
}

// NewSecurityAgent creates a security analyzer backed by chat.
func NewSecurityAgent(chat model.ChatModel) *SecurityAgent {
	return &SecurityAgent{chat: chat, fallback: securityFallback}
}

// Analyze runs the security role over the snippet list. See Report for the
// partial-failure semantics. The returned error is non-nil only for fatal
// conditions (context cancellation); provider failures become per-file
// errors.
func (a *SecurityAgent) Analyze(ctx context.Context, snippets []review.CodeSnippet) (Report[review.SecurityFinding], error) {
	return analyzeEach(ctx, snippets, a.analyzeSnippet)
}

func (a *SecurityAgent) analyzeSnippet(ctx context.Context, snippet review.CodeSnippet) ([]review.SecurityFinding, error) {
	prompt := fmt.Sprintf(securityInstruction, snippet.FilePath, snippet.Content)
	out, err := a.chat.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}})
	if err != nil {
		return nil, err
	}
	return parseFindingsOrFallback(out.Text, snippet.FilePath, decodeSecurityFinding, a.fallback), nil
}

// decodeSecurityFinding builds a finding from one parsed JSON object,
// applying the documented defaults for absent fields.
func decodeSecurityFinding(item map[string]any, filePath string) review.SecurityFinding {
	return review.SecurityFinding{
		Type:        stringField(item, "type", "Unknown"),
		Severity:    review.Severity(stringField(item, "severity", string(review.SeverityMedium))),
		Description: stringField(item, "description", ""),
		Line:        intField(item, "line", 0),
		File:        stringField(item, "file", filePath),
		Confidence:  floatField(item, "confidence", 0.8),
	}
}

// securityFallback synthesizes a single low-confidence finding when the
// response is not JSON but still talks about security. Anything else yields
// no findings for the file.
func securityFallback(raw, filePath string) []review.SecurityFinding {
	if !containsAny(raw, "vulnerability", "security") {
		return nil
	}
	return []review.SecurityFinding{{
		Type:        "Potential Security Issue",
		Severity:    review.SeverityMedium,
		Description: truncate(raw, 200),
		Line:        0,
		File:        filePath,
		Confidence:  0.6,
	}}
}
