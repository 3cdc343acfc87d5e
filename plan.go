package agentflow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// =============================================================================
// Execution Plan
// =============================================================================

// Plan is the structured description of intended actions, produced once by
// the planning stage and subject to human approval before execution.
type Plan struct {
	Description string   `json:"description"`
	Steps       []string `json:"steps,omitempty"`
}

// Render formats the plan for display to the user.
func (p *Plan) Render() string {
	var b strings.Builder
	b.WriteString(p.Description)
	if len(p.Steps) > 0 {
		b.WriteString("\n")
		for i, step := range p.Steps {
			b.WriteString(fmt.Sprintf("\n%d. %s", i+1, step))
		}
	}
	return b.String()
}

// TaskDescription formats the plan as input for the tool-execution
// collaborator.
func (p *Plan) TaskDescription() string {
	var b strings.Builder
	b.WriteString(p.Description)
	if len(p.Steps) > 0 {
		b.WriteString("\n\nSteps:\n")
		for i, step := range p.Steps {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
		}
	}
	return b.String()
}

// numberedStep matches lines like "1. do something" or "2) do something".
var numberedStep = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+(.+)$`)

// ParsePlan extracts a Plan from model output. It first looks for a JSON
// object with description/steps fields; if none is found, the whole text
// becomes the description and numbered lines become steps.
func ParsePlan(text string) *Plan {
	text = strings.TrimSpace(text)

	if plan := parsePlanJSON(text); plan != nil {
		return plan
	}

	plan := &Plan{Description: text}
	for _, line := range strings.Split(text, "\n") {
		if m := numberedStep.FindStringSubmatch(line); m != nil {
			plan.Steps = append(plan.Steps, strings.TrimSpace(m[1]))
		}
	}
	if len(plan.Steps) > 0 {
		// Keep the prose before the first numbered line as the description.
		if idx := numberedStep.FindStringIndex(text); idx != nil && idx[0] > 0 {
			if desc := strings.TrimSpace(text[:idx[0]]); desc != "" {
				plan.Description = desc
			}
		}
	}
	return plan
}

// parsePlanJSON tries to decode a JSON plan embedded in the text.
func parsePlanJSON(text string) *Plan {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}

	var plan Plan
	if err := json.Unmarshal([]byte(text[start:end+1]), &plan); err != nil {
		return nil
	}
	if plan.Description == "" {
		return nil
	}
	return &plan
}
