package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/patchpilot/patchpilot/model"
	"github.com/patchpilot/patchpilot/review"
)

func testSnippets(paths ...string) []review.CodeSnippet {
	snippets := make([]review.CodeSnippet, len(paths))
	for i, p := range paths {
		snippets[i] = review.CodeSnippet{
			FilePath: p,
			Content:  "func main() {}",
			Language: "go",
		}
	}
	return snippets
}

func TestSecurityAgentAnalyze(t *testing.T) {
	mock := &model.MockChatModel{Responses: []model.ChatOut{
		{Text: `[{"type":"Hardcoded Credentials","severity":"high","description":"password literal","line":3,"file":"auth.py","confidence":0.95}]`},
	}}
	agent := NewSecurityAgent(mock)

	report, err := agent.Analyze(context.Background(), testSnippets("auth.py"))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if !report.Success() {
		t.Fatalf("unexpected per-file errors: %v", report.Errors)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(report.Findings))
	}
	f := report.Findings[0]
	if f.Type != "Hardcoded Credentials" || f.Severity != review.SeverityHigh {
		t.Errorf("finding = %+v", f)
	}
	if report.TotalFiles != 1 {
		t.Errorf("TotalFiles = %d, want 1", report.TotalFiles)
	}

	// The prompt carries the file path and content.
	if mock.CallCount() != 1 {
		t.Fatalf("CallCount = %d, want 1", mock.CallCount())
	}
	prompt := mock.Calls[0].Messages[0].Content
	if !strings.Contains(prompt, "auth.py") || !strings.Contains(prompt, "func main() {}") {
		t.Errorf("prompt missing file context: %q", prompt)
	}
}

// TestSecurityAgentPartialFailure verifies that a provider failure on one
// file does not block analysis of the remaining files.
func TestSecurityAgentPartialFailure(t *testing.T) {
	mock := &model.MockChatModel{
		Responses: []model.ChatOut{{Text: `[{"type":"XSS","severity":"medium"}]`}},
		ErrOn:     map[int]error{2: errors.New("rate limited")},
	}
	agent := NewSecurityAgent(mock)

	report, err := agent.Analyze(context.Background(), testSnippets("a.go", "b.go", "c.go"))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(report.Findings) != 2 {
		t.Errorf("got %d findings, want 2 (files a and c)", len(report.Findings))
	}
	if len(report.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(report.Errors))
	}
	want := "Error analyzing b.go: rate limited"
	if report.Errors[0] != want {
		t.Errorf("error = %q, want %q", report.Errors[0], want)
	}
	if report.Success() {
		t.Error("report with errors must not be Success")
	}
}

func TestSecurityAgentEmptySnippet(t *testing.T) {
	mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: `[]`}}}
	agent := NewSecurityAgent(mock)

	snippets := []review.CodeSnippet{
		{FilePath: "empty.go", Content: "   \n\t"},
		{FilePath: "real.go", Content: "package main"},
	}
	report, err := agent.Analyze(context.Background(), snippets)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(report.Errors) != 1 || report.Errors[0] != "Error analyzing empty.go: empty code snippet" {
		t.Errorf("errors = %v", report.Errors)
	}
	// Only the non-empty file reaches the model.
	if mock.CallCount() != 1 {
		t.Errorf("CallCount = %d, want 1", mock.CallCount())
	}
}

// TestSecurityAgentCancellationIsFatal verifies that an expired context
// aborts the role instead of becoming a per-file error for every remaining
// snippet.
func TestSecurityAgentCancellationIsFatal(t *testing.T) {
	mock := &model.MockChatModel{Delay: 50 * time.Millisecond}
	agent := NewSecurityAgent(mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agent.Analyze(ctx, testSnippets("a.go", "b.go"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestQualityAgentDefaults(t *testing.T) {
	mock := &model.MockChatModel{Responses: []model.ChatOut{
		{Text: `[{"description":"missing docs"}]`},
	}}
	agent := NewQualityAgent(mock)

	report, err := agent.Analyze(context.Background(), testSnippets("pkg.go"))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(report.Findings))
	}
	f := report.Findings[0]
	if f.Type != "Quality Issue" {
		t.Errorf("Type = %q, want default", f.Type)
	}
	if f.Severity != review.SeverityLow {
		t.Errorf("Severity = %q, want low default", f.Severity)
	}
	if f.File != "pkg.go" {
		t.Errorf("File = %q, want snippet path", f.File)
	}
}
