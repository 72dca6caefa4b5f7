package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/patchpilot/patchpilot/model"
	"github.com/patchpilot/patchpilot/review"
)

// ContextAgent derives a contextual summary for a run: languages touched,
// file counts, correlation with previously reported issues, and commit
// message patterns. Enrichment is advisory only; it never gates routing and
// never fails the workflow.
type ContextAgent struct {
	chat model.ChatModel
}

// NewContextAgent creates a context enricher. The chat model is optional:
// when non-nil the enricher adds a model-generated advisory note, and any
// model failure is swallowed.
func NewContextAgent(chat model.ChatModel) *ContextAgent {
	return &ContextAgent{chat: chat}
}

// Enrich computes the enrichment map from the analysis context. It reads
// only the immutable context, never analyzer results, so it is safe to run
// at any point of a run. Internal errors are swallowed; the caller gets a
// partial map at worst.
func (a *ContextAgent) Enrich(ctx context.Context, actx *review.AnalysisContext) (enrichment map[string]any) {
	enrichment = make(map[string]any)
	defer func() {
		// Enrichment is best-effort: keep whatever was built before a panic.
		_ = recover()
	}()

	enrichment["languages"] = distinctLanguages(actx.CodeSnippets)
	enrichment["file_count"] = len(actx.CodeSnippets)
	enrichment["previous_issue_count"] = len(actx.PreviousIssues)
	enrichment["recurring_files"] = recurringFiles(actx)
	enrichment["commit_patterns"] = commitPatterns(actx.CommitHistory)

	if a.chat != nil {
		if note := a.advisoryNote(ctx, actx); note != "" {
			enrichment["advisory"] = note
		}
	}
	return enrichment
}

// distinctLanguages returns the sorted set of languages across the snippets.
func distinctLanguages(snippets []review.CodeSnippet) []string {
	seen := make(map[string]bool)
	for _, s := range snippets {
		if s.Language != "" {
			seen[s.Language] = true
		}
	}
	languages := make([]string, 0, len(seen))
	for lang := range seen {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	return languages
}

// recurringFiles counts files in the current PR that already appeared in a
// previously reported issue.
func recurringFiles(actx *review.AnalysisContext) int {
	previous := make(map[string]bool, len(actx.PreviousIssues))
	for _, issue := range actx.PreviousIssues {
		previous[issue.File] = true
	}
	count := 0
	for _, snippet := range actx.CodeSnippets {
		if previous[snippet.FilePath] {
			count++
		}
	}
	return count
}

// commitPatterns counts soft historical signals in the commit messages.
func commitPatterns(history []review.Commit) map[string]int {
	patterns := map[string]int{
		"security_fixes": 0,
		"bug_fixes":      0,
		"features":       0,
	}
	for _, commit := range history {
		msg := strings.ToLower(commit.Message)
		if strings.Contains(msg, "fix") && strings.Contains(msg, "security") {
			patterns["security_fixes"]++
		}
		if strings.Contains(msg, "fix") && strings.Contains(msg, "bug") {
			patterns["bug_fixes"]++
		}
		if strings.Contains(msg, "feat") || strings.Contains(msg, "feature") {
			patterns["features"]++
		}
	}
	return patterns
}

// advisoryNote asks the model for a short historical-context note. Any error
// simply drops the note.
func (a *ContextAgent) advisoryNote(ctx context.Context, actx *review.AnalysisContext) string {
	prompt := fmt.Sprintf(
		"You are a context manager for code review. Repo: %s, PR: %s, Author: %s. "+
			"The author has %d previously reported issues. "+
			"In one short paragraph, note anything a reviewer should keep in mind.",
		actx.RepoName, actx.PRID, actx.Author, len(actx.PreviousIssues))

	out, err := a.chat.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}})
	if err != nil {
		return ""
	}
	return out.Text
}
