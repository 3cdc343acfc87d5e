package agentflow

import (
	"fmt"
	"strings"
)

// =============================================================================
// Summary Builders
// =============================================================================
// Pure rendering functions over State. No side effects, no collaborator
// calls; each is independently testable.

// BuildFullContext concatenates every accumulated context entry and the full
// feedback log into one text block for the planning-stage prompt.
func BuildFullContext(s *State) string {
	var b strings.Builder

	for _, entry := range s.ContextEntries() {
		b.WriteString(fmt.Sprintf("## %s\n%s\n\n", titleForKey(entry.Key), entry.Value))
	}

	if len(s.UserFeedback) > 0 {
		b.WriteString("## User Feedback\n")
		for _, fb := range s.UserFeedback {
			b.WriteString(fmt.Sprintf("- %s\n", fb))
		}
	}

	return strings.TrimSpace(b.String())
}

// SummarizeExecutionResults renders each execution pass as a numbered line.
func SummarizeExecutionResults(s *State) string {
	if len(s.ExecutionResults) == 0 {
		return "No executions recorded."
	}

	var b strings.Builder
	for i, res := range s.ExecutionResults {
		suffix := ""
		if !res.Success {
			suffix = " [failed]"
		}
		b.WriteString(fmt.Sprintf("Execution %d: %s%s\n", i+1, res.Result, suffix))
	}
	return strings.TrimSpace(b.String())
}

// CreateFinalSummary renders the fixed five-point recap shown when a
// workflow completes.
func CreateFinalSummary(s *State) string {
	analysis, _ := s.Context("analysis")
	review, _ := s.Context("review")

	planText := "(no plan recorded)"
	if s.CurrentPlan != nil {
		planText = s.CurrentPlan.Description
	}

	executions := "(no executions recorded)"
	if n := len(s.ExecutionResults); n > 0 {
		executions = fmt.Sprintf("%d execution pass(es) recorded", n)
	}

	var b strings.Builder
	b.WriteString("Workflow complete. Summary of what was accomplished:\n\n")
	b.WriteString(fmt.Sprintf("1. Request understood: %s\n", s.OriginalRequest))
	b.WriteString(fmt.Sprintf("2. Context and information gathered: %s\n", firstLine(analysis)))
	b.WriteString(fmt.Sprintf("3. Execution plan produced: %s\n", firstLine(planText)))
	b.WriteString(fmt.Sprintf("4. Plan executed and results generated: %s\n", executions))
	b.WriteString(fmt.Sprintf("5. Results reviewed and quality confirmed: %s\n", firstLine(review)))
	b.WriteString("\nSend a new request to start another workflow.")
	return b.String()
}

// titleForKey maps well-known context keys to display headings.
func titleForKey(key string) string {
	switch key {
	case "analysis":
		return "Request Analysis"
	case "gathered_info":
		return "Gathered Information"
	case "review":
		return "Review Notes"
	default:
		return key
	}
}

// firstLine truncates multi-line text to its first non-empty line.
func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "(none)"
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}
	if len(text) > 160 {
		text = text[:157] + "..."
	}
	return text
}
