// Package review defines the data model shared by the pull request analysis
// pipeline: code snippets, findings produced by the analyzer roles, the
// immutable per-run AnalysisContext, and the mutable WorkflowState threaded
// through the orchestrator.
package review

// CodeSnippet is one file of a pull request submitted for analysis.
// Snippets are created once per run and never mutated.
type CodeSnippet struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// SecurityFinding is a single security issue reported by the security role.
//
// Findings are append-only within a run: once produced they are never edited.
type SecurityFinding struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Line        int      `json:"line"`
	File        string   `json:"file"`
	Confidence  float64  `json:"confidence"`
}

// QualityFinding is a single code quality issue reported by the quality role.
type QualityFinding struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Line        int      `json:"line"`
	File        string   `json:"file"`
	Severity    Severity `json:"severity"`
	RuleID      string   `json:"rule_id,omitempty"`
}

// LogicFinding is the per-file output of the logic role. The logic role
// produces free-text analysis rather than structured issues, so the record
// keeps the raw analysis plus any fenced code suggestions extracted from it.
type LogicFinding struct {
	File        string   `json:"file"`
	Analysis    string   `json:"analysis"`
	Suggestions []string `json:"suggestions,omitempty"`
	HasIssues   bool     `json:"has_issues"`
}

// Commit is one entry of a pull request's commit history.
type Commit struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// AnalysisContext is the immutable input bundle for one analysis run.
// It is constructed by the caller and read-only for the duration of the
// workflow.
type AnalysisContext struct {
	RepoName       string            `json:"repo_name"`
	PRID           string            `json:"pr_id"`
	Author         string            `json:"author"`
	CommitHistory  []Commit          `json:"commit_history"`
	PreviousIssues []SecurityFinding `json:"previous_issues"`
	CodeSnippets   []CodeSnippet     `json:"code_snippets"`
	AgentMemory    map[string]any    `json:"agent_memory,omitempty"`
}

// Decision is the terminal output of one analysis run.
type Decision struct {
	Decision       Verdict   `json:"decision"`
	RiskLevel      RiskLevel `json:"risk_level"`
	Summary        string    `json:"summary"`
	CriticalIssues int       `json:"critical_issues"`
	HighIssues     int       `json:"high_issues"`
	TotalIssues    int       `json:"total_issues"`
}

// Verdict is the merge decision for a pull request.
type Verdict string

// Possible merge decisions.
const (
	VerdictApprove        Verdict = "APPROVE"
	VerdictRequestChanges Verdict = "REQUEST_CHANGES"
	VerdictBlock          Verdict = "BLOCK"
)

// RiskLevel grades the overall risk that drove a decision.
type RiskLevel string

// Possible risk levels.
const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// WorkflowState is the single mutable aggregate threaded through the
// orchestrator for one run.
//
// Invariant: each result field is written by exactly one node and never by
// any other node. SecurityResults belongs to the security role,
// QualityResults to the quality role, LogicResults to the logic role,
// EnrichedContext to the enricher, and Decision to the decision node. The
// decision node is the only node allowed to read all four result fields, and
// it runs only after every producer has completed. This single-writer rule is
// what makes the parallel fan-out safe without locking.
type WorkflowState struct {
	Context         AnalysisContext   `json:"context"`
	SecurityResults []SecurityFinding `json:"security_results"`
	QualityResults  []QualityFinding  `json:"quality_results"`
	LogicResults    []LogicFinding    `json:"logic_results"`
	EnrichedContext map[string]any    `json:"enriched_context"`
	Decision        *Decision         `json:"decision"`

	// AnalysisErrors collects the per-file error strings of each analyzer
	// role, keyed by role name. The errors never abort a run; they are
	// carried so callers can report partially analyzed files.
	AnalysisErrors map[string][]string `json:"analysis_errors,omitempty"`
}

// NewWorkflowState wraps an AnalysisContext in a fresh state for one run.
func NewWorkflowState(ctx AnalysisContext) *WorkflowState {
	return &WorkflowState{
		Context:        ctx,
		AnalysisErrors: make(map[string][]string),
	}
}
