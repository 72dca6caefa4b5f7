package agent

import (
	"reflect"
	"strings"
	"testing"

	"github.com/patchpilot/patchpilot/review"
)

func TestStripFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unfenced passes through", `[{"type":"x"}]`, `[{"type":"x"}]`},
		{"json fence", "```json\n[1,2]\n```", "[1,2]"},
		{"bare fence", "```\n[1,2]\n```", "[1,2]"},
		{"surrounding whitespace", "  ```json\n[]\n```  ", "[]"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFence(tt.input); got != tt.want {
				t.Errorf("stripFence(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripFenceIdempotent(t *testing.T) {
	inputs := []string{
		"```json\n[{\"a\":1}]\n```",
		"plain text",
		"[]",
	}
	for _, input := range inputs {
		once := stripFence(input)
		if twice := stripFence(once); twice != once {
			t.Errorf("stripFence not idempotent on %q: %q then %q", input, once, twice)
		}
	}
}

func TestParseFindingsOrFallback(t *testing.T) {
	decode := decodeSecurityFinding

	t.Run("valid JSON array", func(t *testing.T) {
		raw := `[{"type":"SQL Injection","severity":"critical","description":"raw query","line":10,"file":"db.go","confidence":0.9}]`
		findings := parseFindingsOrFallback(raw, "db.go", decode, securityFallback)
		if len(findings) != 1 {
			t.Fatalf("got %d findings, want 1", len(findings))
		}
		want := review.SecurityFinding{
			Type: "SQL Injection", Severity: review.SeverityCritical,
			Description: "raw query", Line: 10, File: "db.go", Confidence: 0.9,
		}
		if findings[0] != want {
			t.Errorf("finding = %+v, want %+v", findings[0], want)
		}
	})

	t.Run("fenced JSON array", func(t *testing.T) {
		raw := "```json\n[{\"type\":\"XSS\"}]\n```"
		findings := parseFindingsOrFallback(raw, "web.go", decode, securityFallback)
		if len(findings) != 1 {
			t.Fatalf("got %d findings, want 1", len(findings))
		}
		if findings[0].Type != "XSS" {
			t.Errorf("Type = %q, want XSS", findings[0].Type)
		}
	})

	t.Run("defaults applied for missing fields", func(t *testing.T) {
		findings := parseFindingsOrFallback(`[{}]`, "main.go", decode, securityFallback)
		if len(findings) != 1 {
			t.Fatalf("got %d findings, want 1", len(findings))
		}
		f := findings[0]
		if f.Type != "Unknown" {
			t.Errorf("Type = %q, want Unknown", f.Type)
		}
		if f.Severity != review.SeverityMedium {
			t.Errorf("Severity = %q, want medium", f.Severity)
		}
		if f.Line != 0 {
			t.Errorf("Line = %d, want 0", f.Line)
		}
		if f.File != "main.go" {
			t.Errorf("File = %q, want snippet path", f.File)
		}
		if f.Confidence != 0.8 {
			t.Errorf("Confidence = %v, want 0.8", f.Confidence)
		}
	})

	t.Run("empty array yields no findings", func(t *testing.T) {
		if findings := parseFindingsOrFallback(`[]`, "main.go", decode, securityFallback); len(findings) != 0 {
			t.Errorf("got %d findings, want 0", len(findings))
		}
	})

	t.Run("non-object elements skipped", func(t *testing.T) {
		findings := parseFindingsOrFallback(`[1, "x", {"type":"CSRF"}]`, "main.go", decode, securityFallback)
		if len(findings) != 1 || findings[0].Type != "CSRF" {
			t.Errorf("got %+v, want single CSRF finding", findings)
		}
	})

	t.Run("non-JSON routes to fallback", func(t *testing.T) {
		raw := "This code has a clear security vulnerability in its query handling."
		findings := parseFindingsOrFallback(raw, "db.go", decode, securityFallback)
		if len(findings) != 1 {
			t.Fatalf("got %d findings, want 1 fallback finding", len(findings))
		}
		if findings[0].Type != "Potential Security Issue" {
			t.Errorf("Type = %q", findings[0].Type)
		}
		if findings[0].Confidence != 0.6 {
			t.Errorf("Confidence = %v, want 0.6", findings[0].Confidence)
		}
	})

	t.Run("non-JSON without keywords yields nothing", func(t *testing.T) {
		if findings := parseFindingsOrFallback("looks fine to me", "db.go", decode, securityFallback); len(findings) != 0 {
			t.Errorf("got %d findings, want 0", len(findings))
		}
	})

	t.Run("nil fallback never panics", func(t *testing.T) {
		if findings := parseFindingsOrFallback("not json", "db.go", decode, nil); findings != nil {
			t.Errorf("got %v, want nil", findings)
		}
	})
}

func TestSecurityFallbackTruncates(t *testing.T) {
	raw := "security " + strings.Repeat("x", 300)
	findings := securityFallback(raw, "main.go")
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	desc := findings[0].Description
	if len(desc) != 203 { // 200 chars plus "..."
		t.Errorf("description length = %d, want 203", len(desc))
	}
	if !strings.HasSuffix(desc, "...") {
		t.Errorf("description %q should end with ellipsis", desc)
	}
}

func TestQualityFallbackKeywords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"style keyword", "The style here is inconsistent.", 1},
		{"complexity keyword", "High complexity in this function.", 1},
		{"documentation keyword", "Missing documentation for exported API.", 1},
		{"error keyword", "Error handling is absent.", 1},
		{"no keywords", "Nothing remarkable.", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := qualityFallback(tt.raw, "main.go")
			if len(findings) != tt.want {
				t.Fatalf("got %d findings, want %d", len(findings), tt.want)
			}
			if tt.want == 1 && findings[0].Severity != review.SeverityLow {
				t.Errorf("Severity = %q, want low", findings[0].Severity)
			}
		})
	}
}

func TestParseCodeBlocks(t *testing.T) {
	response := "Fix it like this:\n```go\nreturn nil\n```\nor:\n```\nx := 1\n```"
	got := parseCodeBlocks(response)
	want := []string{"return nil", "x := 1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseCodeBlocks = %v, want %v", got, want)
	}

	if blocks := parseCodeBlocks("no blocks here"); len(blocks) != 0 {
		t.Errorf("got %v, want none", blocks)
	}
}
