package agentflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph"

	"github.com/randalmurphal/agentflow/notify"
	"github.com/randalmurphal/agentflow/prompt"
	"github.com/randalmurphal/agentflow/task"
)

// =============================================================================
// Unattended Pipeline
// =============================================================================
// The interactive engine pauses after every stage for human feedback. The
// pipeline runs the same stages straight through on a flowgraph, with the
// model reviewing its own work instead of a human: a failed review loops
// back to planning, bounded by maxRevisions.

// Node names used in the pipeline graph.
const (
	nodeGather  = "gather"
	nodePlan    = "plan"
	nodeExecute = "execute"
	nodeReview  = "review"
)

// DefaultMaxRevisions bounds how many times the review node may send the
// pipeline back to planning before it gives up and accepts the result.
const DefaultMaxRevisions = 3

// PipelineResult is the outcome of an unattended run.
type PipelineResult struct {
	State   *State
	Summary string

	// Approved is false when the revision budget ran out before the
	// review node accepted the result.
	Approved bool

	Duration time.Duration
}

// Pipeline runs a complete workflow without human pauses. Plans are
// auto-approved and review verdicts come from the model.
type Pipeline struct {
	agent        Agent
	prompts      *prompt.Loader
	notifier     notify.Notifier
	maxRevisions int

	run func(ctx flowgraph.Context, state *State) (*State, error)
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelinePrompts sets the prompt loader for all pipeline nodes.
func WithPipelinePrompts(loader *prompt.Loader) PipelineOption {
	return func(p *Pipeline) { p.prompts = loader }
}

// WithPipelineNotifier sets the notifier for run lifecycle events.
func WithPipelineNotifier(n notify.Notifier) PipelineOption {
	return func(p *Pipeline) { p.notifier = n }
}

// WithMaxRevisions bounds review-driven replanning. Values below 1 keep
// the default.
func WithMaxRevisions(n int) PipelineOption {
	return func(p *Pipeline) {
		if n >= 1 {
			p.maxRevisions = n
		}
	}
}

// NewPipeline builds and compiles the stage graph. The returned pipeline
// is safe for sequential reuse across requests.
func NewPipeline(agent Agent, opts ...PipelineOption) (*Pipeline, error) {
	if agent == nil {
		return nil, ErrNoAgent
	}

	p := &Pipeline{
		agent:        agent,
		prompts:      prompt.NewLoader(""),
		notifier:     notify.NopNotifier{},
		maxRevisions: DefaultMaxRevisions,
	}
	for _, opt := range opts {
		opt(p)
	}

	compiled, err := flowgraph.NewGraph[*State]().
		AddNode(nodeGather, GatherNode).
		AddNode(nodePlan, PlanNode).
		AddNode(nodeExecute, ExecuteNode).
		AddNode(nodeReview, ReviewNode).
		AddEdge(nodeGather, nodePlan).
		AddEdge(nodePlan, nodeExecute).
		AddEdge(nodeExecute, nodeReview).
		AddConditionalEdge(nodeReview, reviewRouter(p.maxRevisions)).
		SetEntry(nodeGather).
		Compile()
	if err != nil {
		return nil, fmt.Errorf("compiling pipeline graph: %w", err)
	}
	p.run = func(ctx flowgraph.Context, state *State) (*State, error) {
		return compiled.Run(ctx, state)
	}

	return p, nil
}

// Run executes the full pipeline for one request and returns the final
// state with a summary of what was accomplished.
func (p *Pipeline) Run(ctx context.Context, request string) (*PipelineResult, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return nil, fmt.Errorf("pipeline: empty request")
	}

	start := time.Now()
	state := NewState(request)
	runID := newRunID()

	base := WithAgent(ctx, p.agent)
	base = WithPromptLoader(base, p.prompts)
	base = notify.WithNotifier(base, p.notifier)
	fgctx := flowgraph.NewContext(base)

	p.notifyEvent(ctx, notify.EventWorkflowStarted, runID, state.Stage, request, notify.SeverityInfo)

	final, err := p.run(fgctx, state)
	if err != nil {
		p.notifyEvent(ctx, notify.EventWorkflowFailed, runID, state.Stage, err.Error(), notify.SeverityError)
		return nil, fmt.Errorf("pipeline run: %w", err)
	}

	approved := final.Stage == StageCompleted
	final.Stage = StageCompleted
	p.notifyEvent(ctx, notify.EventWorkflowCompleted, runID, StageCompleted, "pipeline finished", notify.SeverityInfo)

	return &PipelineResult{
		State:    final,
		Summary:  CreateFinalSummary(final),
		Approved: approved,
		Duration: time.Since(start),
	}, nil
}

func (p *Pipeline) notifyEvent(ctx context.Context, typ notify.EventType, runID string, stage Stage, message, severity string) {
	// Notification failures never fail the pipeline.
	_ = p.notifier.Notify(ctx, notify.Event{
		Type:      typ,
		RunID:     runID,
		Stage:     stage.String(),
		Message:   message,
		Severity:  severity,
		Timestamp: time.Now(),
	})
}

// =============================================================================
// Pipeline Nodes
// =============================================================================

// GatherNode analyzes the request and collects background context.
//
// Updates: context "analysis", context "gathered_info", Stage
func GatherNode(ctx flowgraph.Context, state *State) (*State, error) {
	if err := state.Validate(RequireRequest); err != nil {
		return state, &StageError{Stage: StageContextGathering, Err: err}
	}

	analysis, err := generateInContext(ctx, task.Analyze, prompt.Analyze, map[string]any{
		"Request": state.OriginalRequest,
	})
	if err != nil {
		return state, err
	}
	state.SetContext("analysis", analysis)

	gathered, err := generateInContext(ctx, task.Gather, prompt.Gather, map[string]any{
		"Request":  state.OriginalRequest,
		"Analysis": analysis,
	})
	if err != nil {
		return state, err
	}
	state.SetContext("gathered_info", gathered)

	state.Stage = StagePlanning
	return state, nil
}

// PlanNode drafts an execution plan, or revises the current one when the
// review node sent the run back with findings.
//
// Updates: CurrentPlan, Iterations, Stage
func PlanNode(ctx flowgraph.Context, state *State) (*State, error) {
	if err := state.Validate(RequireRequest, RequireContext); err != nil {
		return state, &StageError{Stage: StagePlanning, Err: err}
	}

	var text string
	var err error
	if feedback, ok := state.LatestFeedback(); ok && state.CurrentPlan != nil {
		text, err = generateInContext(ctx, task.Plan, prompt.Revise, map[string]any{
			"Request":  state.OriginalRequest,
			"Plan":     state.CurrentPlan.Render(),
			"Feedback": feedback,
		})
	} else {
		text, err = generateInContext(ctx, task.Plan, prompt.Plan, map[string]any{
			"Request": state.OriginalRequest,
			"Context": BuildFullContext(state),
		})
	}
	if err != nil {
		return state, err
	}

	state.CurrentPlan = ParsePlan(text)
	state.Iterations++
	state.Stage = StageExecution
	return state, nil
}

// ExecuteNode hands the plan to the tool collaborator and records the
// result. No approval gate; unattended runs treat every plan as approved.
//
// Updates: ExecutionResults, Stage
func ExecuteNode(ctx flowgraph.Context, state *State) (*State, error) {
	if err := state.Validate(RequirePlan); err != nil {
		return state, &StageError{Stage: StageExecution, Err: err}
	}

	agent := AgentFromContext(ctx)
	if agent == nil {
		return state, &StageError{Stage: StageExecution, Err: ErrNoAgent}
	}

	result, err := agent.ExecuteTask(ctx, state.CurrentPlan.TaskDescription())
	if err != nil {
		return state, &StageError{Stage: StageExecution, Err: err}
	}

	text := strings.TrimSpace(result.Response)
	if text == "" {
		return state, &StageError{Stage: StageExecution, Err: ErrEmptyCompletion}
	}

	state.AddExecutionResult(text, true)
	state.Stage = StageReview
	return state, nil
}

// verdictMarker prefixes the machine-readable last line of a review.
const verdictMarker = "VERDICT:"

// ReviewNode asks the model to review the execution results against the
// original request and renders a verdict. Approval completes the run;
// anything else becomes revision feedback for the next planning pass.
//
// Updates: context "review", UserFeedback, Stage
func ReviewNode(ctx flowgraph.Context, state *State) (*State, error) {
	if err := state.Validate(RequireRequest, RequireResults); err != nil {
		return state, &StageError{Stage: StageReview, Err: err}
	}

	rendered, err := renderInContext(ctx, prompt.Review, map[string]any{
		"Request": state.OriginalRequest,
		"Results": SummarizeExecutionResults(state),
	})
	if err != nil {
		return state, &StageError{Stage: StageReview, Err: err}
	}
	rendered += "\n\nEnd your review with a single final line reading either \"VERDICT: approved\" or \"VERDICT: revise\"."

	review, err := completeInContext(ctx, task.Review, rendered)
	if err != nil {
		return state, err
	}
	state.SetContext("review", review)

	if verdictApproved(review) {
		state.Stage = StageCompleted
		return state, nil
	}

	// The review text doubles as change-request feedback for PlanNode.
	state.AddFeedback(review)
	state.Stage = StagePlanning
	return state, nil
}

// reviewRouter ends the run on approval or when the revision budget is
// spent; otherwise it loops back to planning.
func reviewRouter(maxRevisions int) func(ctx flowgraph.Context, state *State) string {
	return func(ctx flowgraph.Context, state *State) string {
		if state.Stage == StageCompleted {
			return flowgraph.END
		}
		if state.Iterations >= maxRevisions {
			return flowgraph.END
		}
		return nodePlan
	}
}

// verdictApproved scans the review from the bottom for the verdict line.
// A missing or malformed verdict counts as approval so an inarticulate
// reviewer cannot loop the pipeline forever.
func verdictApproved(review string) bool {
	lines := strings.Split(review, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if !strings.HasPrefix(strings.ToUpper(line), verdictMarker) {
			continue
		}
		verdict := strings.TrimSpace(line[len(verdictMarker):])
		return !strings.EqualFold(verdict, "revise")
	}
	return true
}

// =============================================================================
// Node Helpers
// =============================================================================

// generateInContext renders a named prompt and completes it with the
// context-injected agent.
func generateInContext(ctx flowgraph.Context, t task.Type, name string, vars map[string]any) (string, error) {
	rendered, err := renderInContext(ctx, name, vars)
	if err != nil {
		return "", &StageError{Stage: stageForTask(t), Err: err}
	}
	return completeInContext(ctx, t, rendered)
}

func renderInContext(ctx flowgraph.Context, name string, vars map[string]any) (string, error) {
	loader := PromptLoaderFromContext(ctx)
	if loader == nil {
		loader = prompt.NewLoader("")
	}
	return loader.Render(name, vars)
}

func completeInContext(ctx flowgraph.Context, t task.Type, rendered string) (string, error) {
	agent := AgentFromContext(ctx)
	if agent == nil {
		return "", &StageError{Stage: stageForTask(t), Err: ErrNoAgent}
	}

	result, err := agent.GenerateResponse(ctx, CompletionRequest{
		Task:   t,
		Prompt: rendered,
	}, nil)
	if err != nil {
		return "", &StageError{Stage: stageForTask(t), Err: err}
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", &StageError{Stage: stageForTask(t), Err: ErrEmptyCompletion}
	}
	return text, nil
}

// stageForTask maps a task type to the stage that issues it, for error
// attribution.
func stageForTask(t task.Type) Stage {
	switch t {
	case task.Analyze, task.Gather:
		return StageContextGathering
	case task.Plan:
		return StagePlanning
	case task.Execute:
		return StageExecution
	case task.Review, task.Summarize:
		return StageReview
	default:
		return StageContextGathering
	}
}
