package agent

import (
	"context"
	"testing"

	"github.com/patchpilot/patchpilot/model"
)

func TestLogicAgentFlagsIssues(t *testing.T) {
	analysis := "## Logic Analysis for loop.go\n\n" +
		"### Issues Found:\n1. **Off-by-one**: loop bound excludes last element\n" +
		"   - Line: 12\n\n### Suggestions:\n```go\nfor i := 0; i <= n; i++ {\n```"

	mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: analysis}}}
	agent := NewLogicAgent(mock)

	report, err := agent.Analyze(context.Background(), testSnippets("loop.go"))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("got %d findings, want exactly one per snippet", len(report.Findings))
	}
	f := report.Findings[0]
	if f.File != "loop.go" {
		t.Errorf("File = %q", f.File)
	}
	if !f.HasIssues {
		t.Error("HasIssues = false, want true")
	}
	if f.Analysis != analysis {
		t.Error("Analysis should carry the raw model response")
	}
	if len(f.Suggestions) != 1 || f.Suggestions[0] != "for i := 0; i <= n; i++ {" {
		t.Errorf("Suggestions = %v", f.Suggestions)
	}
}

func TestLogicAgentCleanFile(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"exact sentinel", "No logic issues detected."},
		{"sentinel in prose", "After review: no logic issues detected in this file."},
		{"case insensitive", "NO LOGIC ISSUES DETECTED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: tt.text}}}
			agent := NewLogicAgent(mock)

			report, err := agent.Analyze(context.Background(), testSnippets("clean.go"))
			if err != nil {
				t.Fatalf("Analyze returned error: %v", err)
			}
			if report.Findings[0].HasIssues {
				t.Error("HasIssues = true for clean sentinel")
			}
		})
	}
}

func TestLogicAgentOneFindingPerSnippet(t *testing.T) {
	mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: "Found a bug."}}}
	agent := NewLogicAgent(mock)

	report, err := agent.Analyze(context.Background(), testSnippets("a.go", "b.go", "c.go"))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(report.Findings) != 3 {
		t.Fatalf("got %d findings, want 3", len(report.Findings))
	}
	for i, want := range []string{"a.go", "b.go", "c.go"} {
		if report.Findings[i].File != want {
			t.Errorf("finding %d file = %q, want %q (input order preserved)", i, report.Findings[i].File, want)
		}
	}
}
