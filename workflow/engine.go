package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/patchpilot/patchpilot/agent"
	"github.com/patchpilot/patchpilot/emit"
	"github.com/patchpilot/patchpilot/review"
)

// NodeID names a node of the analysis state machine.
type NodeID string

// The nodes of the analysis graph.
//
//	start -> {security_analysis, quality_analysis, logic_analysis}   (fan-out)
//	each analyzer -> enrich_context | make_decision                  (conditional)
//	enrich_context -> make_decision
//	make_decision -> end
const (
	NodeStart            NodeID = "start"
	NodeSecurityAnalysis NodeID = "security_analysis"
	NodeQualityAnalysis  NodeID = "quality_analysis"
	NodeLogicAnalysis    NodeID = "logic_analysis"
	NodeEnrichContext    NodeID = "enrich_context"
	NodeMakeDecision     NodeID = "make_decision"
	NodeEnd              NodeID = "end"
)

// DefaultTimeout is the wall-clock budget for one full analysis run.
const DefaultTimeout = 2 * time.Minute

// SecurityAnalyzer produces security findings for a snippet list.
type SecurityAnalyzer interface {
	Analyze(ctx context.Context, snippets []review.CodeSnippet) (agent.Report[review.SecurityFinding], error)
}

// QualityAnalyzer produces quality findings for a snippet list.
type QualityAnalyzer interface {
	Analyze(ctx context.Context, snippets []review.CodeSnippet) (agent.Report[review.QualityFinding], error)
}

// LogicAnalyzer produces logic findings for a snippet list.
type LogicAnalyzer interface {
	Analyze(ctx context.Context, snippets []review.CodeSnippet) (agent.Report[review.LogicFinding], error)
}

// Enricher computes the advisory enrichment map from the immutable context.
// It must read only the context, never analyzer results, and must not fail.
type Enricher interface {
	Enrich(ctx context.Context, actx *review.AnalysisContext) map[string]any
}

// DecideFunc derives the final decision from the aggregated findings.
// It must be pure. agent.Decide is the default.
type DecideFunc func(
	security []review.SecurityFinding,
	quality []review.QualityFinding,
	logic []review.LogicFinding,
	enrichment map[string]any,
) review.Decision

// RunStore persists terminal workflow states for later correlation.
// Persistence is best-effort: a store failure never fails the run.
type RunStore interface {
	SaveRun(ctx context.Context, runID string, state *review.WorkflowState) error
}

// Engine orchestrates one analysis run end to end.
//
// The three analyzer roles run concurrently against the same immutable
// snippet list; their results are applied to the shared WorkflowState by the
// scheduling goroutine only, which preserves the single-writer-per-field
// invariant without locking. After each analyzer completes, the routing
// predicate re-evaluates the security results: any critical finding routes
// straight to make_decision, skipping enrichment. The whole run is bounded by
// a wall-clock budget; on timeout partial results are discarded and the
// caller sees ErrAnalysisTimeout.
type Engine struct {
	security SecurityAnalyzer
	quality  QualityAnalyzer
	logic    LogicAnalyzer
	enricher Enricher
	decide   DecideFunc

	emitter emit.Emitter
	metrics *Metrics
	runs    RunStore
	timeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides the default run budget. Zero or negative disables
// the deadline.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithEmitter sets the observability emitter.
func WithEmitter(em emit.Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}

// WithMetrics sets the Prometheus collector.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithDecider replaces the default decision rule table.
func WithDecider(fn DecideFunc) Option {
	return func(e *Engine) { e.decide = fn }
}

// WithRunStore enables best-effort persistence of terminal states.
func WithRunStore(rs RunStore) Option {
	return func(e *Engine) { e.runs = rs }
}

// New creates an Engine wiring the four pipeline roles together.
func New(security SecurityAnalyzer, quality QualityAnalyzer, logic LogicAnalyzer, enricher Enricher, opts ...Option) *Engine {
	e := &Engine{
		security: security,
		quality:  quality,
		logic:    logic,
		enricher: enricher,
		decide:   agent.Decide,
		emitter:  emit.NewNullEmitter(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.emitter == nil {
		e.emitter = emit.NewNullEmitter()
	}
	if e.decide == nil {
		e.decide = agent.Decide
	}
	return e
}

// transition returns the node that follows from for the given state. This is
// the whole routing table of the graph: keeping it a plain function keeps the
// control flow inspectable and testable on its own.
//
// The conditional edge out of each analyzer uses the same predicate — any
// critical security finding observed so far routes straight to
// make_decision. Because the predicate is re-evaluated as each parallel
// branch completes, the first branch to observe a critical finding
// short-circuits enrichment for the rest of the run.
func transition(from NodeID, state *review.WorkflowState) NodeID {
	switch from {
	case NodeSecurityAnalysis, NodeQualityAnalysis, NodeLogicAnalysis:
		if hasCriticalFinding(state.SecurityResults) {
			return NodeMakeDecision
		}
		return NodeEnrichContext
	case NodeEnrichContext:
		return NodeMakeDecision
	case NodeMakeDecision:
		return NodeEnd
	default:
		return NodeEnd
	}
}

func hasCriticalFinding(findings []review.SecurityFinding) bool {
	for _, f := range findings {
		if f.Severity == review.SeverityCritical {
			return true
		}
	}
	return false
}

// AnalyzePullRequest runs the full analysis pipeline over the given context.
//
// It returns either a complete WorkflowState with a non-nil Decision, or an
// error — never a partially populated state. Timeouts surface as
// ErrAnalysisTimeout; node-level failures surface as *EngineError.
func (e *Engine) AnalyzePullRequest(ctx context.Context, actx review.AnalysisContext) (*review.WorkflowState, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	e.emitter.Emit(emit.Event{
		RunID: runID,
		Msg:   "run_start",
		Meta: map[string]any{
			"repo":  actx.RepoName,
			"pr":    actx.PRID,
			"files": len(actx.CodeSnippets),
		},
	})

	started := time.Now()
	state, err := RunWithDeadline(ctx, e.timeout, func(runCtx context.Context) (*review.WorkflowState, error) {
		return e.run(runCtx, runID, actx)
	})

	switch {
	case errors.Is(err, ErrAnalysisTimeout):
		e.metrics.recordTimeout()
		e.metrics.recordRun("timeout")
		e.emitter.Emit(emit.Event{RunID: runID, Msg: "run_timeout", Meta: map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(started).Milliseconds(),
		}})
		return nil, err
	case err != nil:
		e.metrics.recordRun("error")
		e.emitter.Emit(emit.Event{RunID: runID, Msg: "run_error", Meta: map[string]any{"error": err.Error()}})
		return nil, err
	}

	e.recordFindings(state)
	e.metrics.recordRun(strings.ToLower(string(state.Decision.Decision)))
	e.emitter.Emit(emit.Event{RunID: runID, Msg: "run_complete", Meta: map[string]any{
		"decision":    string(state.Decision.Decision),
		"risk_level":  string(state.Decision.RiskLevel),
		"duration_ms": time.Since(started).Milliseconds(),
	}})

	if e.runs != nil {
		if serr := e.runs.SaveRun(ctx, runID, state); serr != nil {
			e.emitter.Emit(emit.Event{RunID: runID, Msg: "store_error", Meta: map[string]any{"error": serr.Error()}})
		}
	}
	return state, nil
}

// Status reports the configured roles. It has no side effects.
func (e *Engine) Status() map[string]string {
	return map[string]string{
		agent.RoleSecurity: "active",
		agent.RoleQuality:  "active",
		agent.RoleLogic:    "active",
		agent.RoleContext:  "active",
		agent.RoleDecision: "active",
	}
}

func (e *Engine) validate() error {
	switch {
	case e.security == nil:
		return &EngineError{NodeID: NodeSecurityAnalysis, Message: "security analyzer not configured", Code: "MISSING_NODE"}
	case e.quality == nil:
		return &EngineError{NodeID: NodeQualityAnalysis, Message: "quality analyzer not configured", Code: "MISSING_NODE"}
	case e.logic == nil:
		return &EngineError{NodeID: NodeLogicAnalysis, Message: "logic analyzer not configured", Code: "MISSING_NODE"}
	case e.enricher == nil:
		return &EngineError{NodeID: NodeEnrichContext, Message: "context enricher not configured", Code: "MISSING_NODE"}
	}
	return nil
}

// branchResult carries one completed analyzer branch back to the scheduler.
// The apply closure performs the branch's state write; it runs on the
// scheduler goroutine so the state has exactly one writer.
type branchResult struct {
	node  NodeID
	apply func(*review.WorkflowState)
	dur   time.Duration
	err   error
}

func (e *Engine) run(ctx context.Context, runID string, actx review.AnalysisContext) (*review.WorkflowState, error) {
	state := review.NewWorkflowState(actx)
	snippets := actx.CodeSnippets

	branchCtx, cancelBranches := context.WithCancel(ctx)
	defer cancelBranches()

	// Buffered so abandoned branches never block on send.
	results := make(chan branchResult, 3)
	step := 0

	launch := func(node NodeID, fn func(context.Context) (func(*review.WorkflowState), error)) {
		e.emitter.Emit(emit.Event{RunID: runID, NodeID: string(node), Msg: "node_start"})
		go func() {
			start := time.Now()
			apply, err := fn(branchCtx)
			results <- branchResult{node: node, apply: apply, dur: time.Since(start), err: err}
		}()
	}

	launch(NodeSecurityAnalysis, func(ctx context.Context) (func(*review.WorkflowState), error) {
		report, err := e.security.Analyze(ctx, snippets)
		if err != nil {
			return nil, err
		}
		return func(s *review.WorkflowState) {
			s.SecurityResults = report.Findings
			if len(report.Errors) > 0 {
				s.AnalysisErrors[agent.RoleSecurity] = report.Errors
			}
		}, nil
	})
	launch(NodeQualityAnalysis, func(ctx context.Context) (func(*review.WorkflowState), error) {
		report, err := e.quality.Analyze(ctx, snippets)
		if err != nil {
			return nil, err
		}
		return func(s *review.WorkflowState) {
			s.QualityResults = report.Findings
			if len(report.Errors) > 0 {
				s.AnalysisErrors[agent.RoleQuality] = report.Errors
			}
		}, nil
	})
	launch(NodeLogicAnalysis, func(ctx context.Context) (func(*review.WorkflowState), error) {
		report, err := e.logic.Analyze(ctx, snippets)
		if err != nil {
			return nil, err
		}
		return func(s *review.WorkflowState) {
			s.LogicResults = report.Findings
			if len(report.Errors) > 0 {
				s.AnalysisErrors[agent.RoleLogic] = report.Errors
			}
		}, nil
	})

	// Join: drain all three branches, applying each result as it arrives and
	// re-evaluating the conditional edge against the updated state.
	next := NodeEnrichContext
	for completed := 0; completed < 3; completed++ {
		var res branchResult
		select {
		case res = <-results:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		if res.err != nil {
			cancelBranches()
			return nil, &EngineError{
				NodeID:  res.node,
				Message: res.err.Error(),
				Code:    "NODE_FAILED",
				Cause:   res.err,
			}
		}

		step++
		res.apply(state)
		e.metrics.observeNode(res.node, res.dur)
		e.emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: string(res.node), Msg: "node_end",
			Meta: map[string]any{"duration_ms": res.dur.Milliseconds()}})

		if transition(res.node, state) == NodeMakeDecision && next != NodeMakeDecision {
			next = NodeMakeDecision
			e.metrics.recordShortCircuit()
			e.emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: string(res.node), Msg: "short_circuit"})
		}
	}

	if next == NodeEnrichContext {
		step++
		e.emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: string(NodeEnrichContext), Msg: "node_start"})
		start := time.Now()
		state.EnrichedContext = e.enricher.Enrich(ctx, &state.Context)
		e.metrics.observeNode(NodeEnrichContext, time.Since(start))
		e.emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: string(NodeEnrichContext), Msg: "node_end",
			Meta: map[string]any{"duration_ms": time.Since(start).Milliseconds()}})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	step++
	e.emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: string(NodeMakeDecision), Msg: "node_start"})
	start := time.Now()
	decision := e.decide(state.SecurityResults, state.QualityResults, state.LogicResults, state.EnrichedContext)
	state.Decision = &decision
	e.metrics.observeNode(NodeMakeDecision, time.Since(start))
	e.emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: string(NodeMakeDecision), Msg: "node_end",
		Meta: map[string]any{
			"decision":   string(decision.Decision),
			"risk_level": string(decision.RiskLevel),
		}})

	return state, nil
}

func (e *Engine) recordFindings(state *review.WorkflowState) {
	if e.metrics == nil {
		return
	}
	for _, f := range state.SecurityResults {
		e.metrics.recordFinding(agent.RoleSecurity, string(f.Severity))
	}
	for _, f := range state.QualityResults {
		e.metrics.recordFinding(agent.RoleQuality, string(f.Severity))
	}
	for _, f := range state.LogicResults {
		if f.HasIssues {
			e.metrics.recordFinding(agent.RoleLogic, "flagged")
		}
	}
}
