package agentflow

import (
	"strings"
	"testing"
)

func TestBuildFullContext(t *testing.T) {
	s := NewState("req")
	s.SetContext("analysis", "the analysis")
	s.SetContext("gathered_info", "the background")
	s.SetContext("custom_key", "extra detail")
	s.AddFeedback("make it faster")
	s.AddFeedback("use the staging cluster")

	got := BuildFullContext(s)

	// Known keys get display headings, unknown keys pass through.
	for _, want := range []string{
		"## Request Analysis\nthe analysis",
		"## Gathered Information\nthe background",
		"## custom_key\nextra detail",
		"## User Feedback\n- make it faster\n- use the staging cluster",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("BuildFullContext missing %q in:\n%s", want, got)
		}
	}

	// Insertion order is preserved.
	if strings.Index(got, "Request Analysis") > strings.Index(got, "Gathered Information") {
		t.Error("context sections out of insertion order")
	}
}

func TestBuildFullContextEmpty(t *testing.T) {
	s := NewState("req")
	if got := BuildFullContext(s); got != "" {
		t.Errorf("BuildFullContext on empty state = %q, want empty", got)
	}
}

func TestSummarizeExecutionResults(t *testing.T) {
	s := NewState("req")

	if got := SummarizeExecutionResults(s); got != "No executions recorded." {
		t.Errorf("empty summary = %q", got)
	}

	s.AddExecutionResult("created the file", true)
	s.AddExecutionResult("tests did not run", false)

	got := SummarizeExecutionResults(s)
	want := "Execution 1: created the file\nExecution 2: tests did not run [failed]"
	if got != want {
		t.Errorf("SummarizeExecutionResults = %q, want %q", got, want)
	}
}

func TestCreateFinalSummary(t *testing.T) {
	s := NewState("ship the feature")
	s.SetContext("analysis", "needs a config flag\nplus docs")
	s.SetContext("review", "all good")
	s.CurrentPlan = &Plan{Description: "three step plan"}
	s.AddExecutionResult("done", true)

	got := CreateFinalSummary(s)

	for _, want := range []string{
		"Workflow complete. Summary of what was accomplished:",
		"1. Request understood: ship the feature",
		"2. Context and information gathered: needs a config flag",
		"3. Execution plan produced: three step plan",
		"4. Plan executed and results generated: 1 execution pass(es) recorded",
		"5. Results reviewed and quality confirmed: all good",
		"Send a new request to start another workflow.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("CreateFinalSummary missing %q in:\n%s", want, got)
		}
	}

	// Multi-line analysis is reduced to its first line.
	if strings.Contains(got, "plus docs") {
		t.Error("summary should only keep the first line of the analysis")
	}
}

func TestCreateFinalSummaryDefaults(t *testing.T) {
	s := NewState("bare request")

	got := CreateFinalSummary(s)

	for _, want := range []string{
		"(none)",
		"(no plan recorded)",
		"(no executions recorded)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("CreateFinalSummary missing placeholder %q in:\n%s", want, got)
		}
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "(none)"},
		{"   \n  ", "(none)"},
		{"single", "single"},
		{"first\nsecond", "first"},
		{"  padded  \nrest", "padded"},
	}

	for _, tt := range tests {
		if got := firstLine(tt.in); got != tt.want {
			t.Errorf("firstLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFirstLineTruncates(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := firstLine(long)
	if len(got) != 160 {
		t.Errorf("len(firstLine(long)) = %d, want 160", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated line should end with ellipsis: %q", got)
	}
}
