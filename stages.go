package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/randalmurphal/agentflow/intent"
	"github.com/randalmurphal/agentflow/notify"
	"github.com/randalmurphal/agentflow/prompt"
	"github.com/randalmurphal/agentflow/task"
)

// =============================================================================
// Stage Handlers
// =============================================================================
// One handler per pipeline stage. Handlers mutate the working state they are
// given and return the reply shown to the user; the engine commits the state
// only when the handler succeeds.

const planApprovalMenu = `

Does this plan work for you?
  1. Approve and execute
  2. Request changes
  3. Start over with a new request`

const reviewMenu = `

How would you like to proceed?
  1. Accept the result and finish
  2. Request additional work
  3. Start a new request`

// runContextGathering analyzes the request and collects background context,
// then advances to planning. This handles the first turn of every workflow.
func (e *Engine) runContextGathering(ctx context.Context, s *State, stream StreamFunc) (string, error) {
	if err := s.Validate(RequireRequest); err != nil {
		return "", &StageError{Stage: s.Stage, Err: err}
	}

	analysis, err := e.generate(ctx, s, task.Analyze, prompt.Analyze, map[string]any{
		"Request": s.OriginalRequest,
	}, stream)
	if err != nil {
		return "", err
	}
	s.SetContext("analysis", analysis)

	gathered, err := e.generate(ctx, s, task.Gather, prompt.Gather, map[string]any{
		"Request":  s.OriginalRequest,
		"Analysis": analysis,
	}, nil)
	if err != nil {
		return "", err
	}
	s.SetContext("gathered_info", gathered)

	s.Stage = StagePlanning
	e.notify(ctx, notify.EventStageCompleted, StageContextGathering, "context gathered", notify.SeverityInfo)

	var b strings.Builder
	b.WriteString("I analyzed your request and gathered the context I need.\n\n")
	b.WriteString("## Request Analysis\n")
	b.WriteString(analysis)
	b.WriteString("\n\nNext I'll draft an execution plan. Reply with anything the plan should account for, or just tell me to continue.")
	return b.String(), nil
}

// runPlanning produces an execution plan from the accumulated context and
// asks the user to approve it.
func (e *Engine) runPlanning(ctx context.Context, s *State, stream StreamFunc) (string, error) {
	if err := s.Validate(RequireRequest, RequireContext); err != nil {
		return "", &StageError{Stage: s.Stage, Err: err}
	}

	text, err := e.generate(ctx, s, task.Plan, prompt.Plan, map[string]any{
		"Request": s.OriginalRequest,
		"Context": BuildFullContext(s),
	}, stream)
	if err != nil {
		return "", err
	}

	s.CurrentPlan = ParsePlan(text)
	s.Stage = StageExecution
	e.notify(ctx, notify.EventApprovalNeeded, StagePlanning, "plan ready for approval", notify.SeverityInfo)

	return "Here is the proposed plan.\n\n" + s.CurrentPlan.Render() + planApprovalMenu, nil
}

// runExecution waits for plan approval. Approval hands the plan to the tool
// collaborator; change requests revise the plan in place; anything that looks
// like a fresh request restarts the pipeline. An empty turn re-presents the
// plan, still awaiting approval.
func (e *Engine) runExecution(ctx context.Context, s *State, feedback string, stream StreamFunc) (string, error) {
	if err := s.Validate(RequirePlan); err != nil {
		return "", &StageError{Stage: s.Stage, Err: err}
	}

	switch {
	case feedback == "":
		return "The plan is still awaiting your approval.\n\n" + s.CurrentPlan.Render() + planApprovalMenu, nil

	case intent.PlanApproved(feedback):
		return e.executePlan(ctx, s)

	case intent.NewRequest(feedback):
		s.reset(feedback)
		return e.runContextGathering(ctx, s, stream)

	default:
		// Unapproved feedback is treated as a change request.
		text, err := e.generate(ctx, s, task.Plan, prompt.Revise, map[string]any{
			"Request":  s.OriginalRequest,
			"Plan":     s.CurrentPlan.Render(),
			"Feedback": feedback,
		}, stream)
		if err != nil {
			return "", err
		}

		s.CurrentPlan = ParsePlan(text)
		e.notify(ctx, notify.EventPlanRevised, StageExecution, "plan revised from feedback", notify.SeverityInfo)

		return "I revised the plan based on your feedback.\n\n" + s.CurrentPlan.Render() + planApprovalMenu, nil
	}
}

// executePlan runs the approved plan through the tool collaborator, records
// the result, and advances to review with generated review notes.
func (e *Engine) executePlan(ctx context.Context, s *State) (string, error) {
	result, err := e.agent.ExecuteTask(ctx, s.CurrentPlan.TaskDescription())
	if err != nil {
		return "", &StageError{Stage: s.Stage, Err: err}
	}

	text := strings.TrimSpace(result.Response)
	if text == "" {
		return "", &StageError{Stage: s.Stage, Err: ErrEmptyCompletion}
	}
	s.AddExecutionResult(text, true)

	review, err := e.generate(ctx, s, task.Review, prompt.Review, map[string]any{
		"Request": s.OriginalRequest,
		"Results": SummarizeExecutionResults(s),
	}, nil)
	if err != nil {
		return "", err
	}
	s.SetContext("review", review)

	s.Stage = StageReview
	e.notify(ctx, notify.EventStageCompleted, StageExecution, "plan executed", notify.SeverityInfo)

	var b strings.Builder
	b.WriteString("Execution finished.\n\n")
	b.WriteString(SummarizeExecutionResults(s))
	if len(result.UsedTools) > 0 {
		b.WriteString(fmt.Sprintf("\n\nTools used: %s", strings.Join(result.UsedTools, ", ")))
	}
	b.WriteString("\n\n## Review Notes\n")
	b.WriteString(review)
	b.WriteString(reviewMenu)
	return b.String(), nil
}

// runReview interprets the user's verdict on the delivered results. An
// unrecognized or empty reply re-prompts without changing anything.
func (e *Engine) runReview(ctx context.Context, s *State, feedback string, stream StreamFunc) (string, error) {
	if err := s.Validate(RequireResults); err != nil {
		return "", &StageError{Stage: s.Stage, Err: err}
	}

	decision := intent.DecideReview(feedback)
	e.logger.Debug("review decision",
		"run_id", e.runID,
		"decision", decision.String())

	switch decision {
	case intent.DecisionComplete:
		s.Stage = StageCompleted
		return CreateFinalSummary(s), nil

	case intent.DecisionAdditionalWork:
		// The feedback describes the extra work; plan it right away.
		s.Stage = StagePlanning
		return e.runPlanning(ctx, s, stream)

	case intent.DecisionNewRequest:
		s.reset(feedback)
		return e.runContextGathering(ctx, s, stream)

	default:
		return "I didn't catch a clear decision." + reviewMenu, nil
	}
}
