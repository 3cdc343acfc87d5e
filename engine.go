package agentflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/randalmurphal/agentflow/notify"
	"github.com/randalmurphal/agentflow/prompt"
	"github.com/randalmurphal/agentflow/task"
	"github.com/randalmurphal/agentflow/transcript"
)

// =============================================================================
// Engine
// =============================================================================

// DefaultMaxIterations caps how many turns one workflow may consume before
// the engine forces completion.
const DefaultMaxIterations = 10

// Engine drives one interactive workflow at a time through the stage
// pipeline. Each Run call processes exactly one user message and pauses;
// the conversation advances only when the human comes back with feedback.
//
// Engine is safe for concurrent use; Run calls are serialized.
type Engine struct {
	mu            sync.Mutex
	agent         Agent
	prompts       *prompt.Loader
	notifier      notify.Notifier
	transcripts   transcript.Manager
	logger        *slog.Logger
	maxIterations int

	state *State
	runID string

	// token totals for the turn currently being processed
	turnTokensIn  int
	turnTokensOut int
}

// Option configures an Engine.
type Option func(*Engine)

// WithPrompts sets the prompt loader.
func WithPrompts(l *prompt.Loader) Option {
	return func(e *Engine) { e.prompts = l }
}

// WithNotifier sets the event notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithTranscripts sets the transcript manager. Nil disables recording.
func WithTranscripts(m transcript.Manager) Option {
	return func(e *Engine) { e.transcripts = m }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMaxIterations caps turns per workflow. Values below 1 keep the default.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.maxIterations = n
		}
	}
}

// NewEngine creates a workflow engine around the given agent.
func NewEngine(agent Agent, opts ...Option) *Engine {
	e := &Engine{
		agent:         agent,
		prompts:       prompt.NewLoader(""),
		notifier:      notify.NopNotifier{},
		logger:        slog.Default(),
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns a copy of the current workflow state, or nil when no
// workflow is active.
func (e *Engine) State() *State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Active reports whether a workflow is in flight.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != nil
}

// Run processes one user message and returns the engine's reply.
//
// The first non-empty message starts a workflow; every later message is
// recorded as feedback and routed to the handler for the current stage. A
// blank message with an active workflow still dispatches, proceeding with
// no additional feedback. Handlers run against a clone of the state which
// is committed only on success, so a failed turn reports the problem and
// leaves the workflow exactly where it was.
func (e *Engine) Run(ctx context.Context, message string, stream StreamFunc) (string, error) {
	if e.agent == nil {
		return "", ErrNoAgent
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	message = strings.TrimSpace(message)
	if message == "" && e.state == nil {
		return "Send a request to start a workflow.", nil
	}

	fresh := e.state == nil
	var work *State
	if fresh {
		work = NewState(message)
		e.runID = newRunID()
	} else {
		work = e.state.Clone()
		if message != "" {
			work.AddFeedback(message)
		}
		work.Iterations++
	}
	e.turnTokensIn, e.turnTokensOut = 0, 0

	stageBefore := work.Stage
	e.logger.Debug("processing turn",
		"run_id", e.runID,
		"stage", stageBefore.String(),
		"iteration", work.Iterations)

	var response string
	var err error
	if !fresh && work.Iterations > e.maxIterations {
		// Budget exhausted; close the workflow instead of looping forever.
		e.logger.Warn("iteration cap reached, forcing completion",
			"run_id", e.runID,
			"iterations", work.Iterations)
		work.Stage = StageCompleted
		response = CreateFinalSummary(work)
	} else {
		response, err = e.dispatch(ctx, work, message, stream)
	}

	if err != nil {
		e.logger.Error("turn failed",
			"run_id", e.runID,
			"stage", stageBefore.String(),
			"error", err)
		e.notify(ctx, notify.EventStageFailed, stageBefore, err.Error(), notify.SeverityError)
		if fresh {
			e.runID = ""
		}
		return fmt.Sprintf(
			"Something went wrong while handling that (%v). Your workflow is unchanged; please try again or rephrase.",
			err), nil
	}

	if fresh {
		e.startTranscript(work)
		e.notify(ctx, notify.EventWorkflowStarted, work.Stage, work.OriginalRequest, notify.SeverityInfo)
	}

	e.state = work
	e.recordTurn("user", stageBefore, message, e.turnTokensIn, 0)
	e.recordTurn("assistant", work.Stage, response, 0, e.turnTokensOut)

	if work.Stage == StageCompleted {
		e.logger.Info("workflow completed",
			"run_id", e.runID,
			"iterations", work.Iterations)
		e.notify(ctx, notify.EventWorkflowCompleted, work.Stage, work.OriginalRequest, notify.SeverityInfo)
		e.endTranscript(transcript.RunStatusCompleted)
		e.state = nil
		e.runID = ""
	}

	return response, nil
}

// Abort cancels the in-flight workflow, if any.
func (e *Engine) Abort(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil {
		return ErrNoActiveWorkflow
	}

	e.logger.Info("workflow aborted", "run_id", e.runID)
	e.notify(ctx, notify.EventWorkflowFailed, e.state.Stage, "aborted by user", notify.SeverityWarning)
	e.endTranscript(transcript.RunStatusCanceled)
	e.state = nil
	e.runID = ""
	return nil
}

// dispatch routes the turn to the handler for the current stage. The
// message is this turn's feedback; it may be empty, in which case the
// execution and review handlers see no new input rather than re-reading
// feedback from an earlier turn.
func (e *Engine) dispatch(ctx context.Context, s *State, message string, stream StreamFunc) (string, error) {
	switch s.Stage {
	case StageContextGathering:
		return e.runContextGathering(ctx, s, stream)
	case StagePlanning:
		return e.runPlanning(ctx, s, stream)
	case StageExecution:
		return e.runExecution(ctx, s, message, stream)
	case StageReview:
		return e.runReview(ctx, s, message, stream)
	case StageCompleted:
		// Completed workflows are destroyed on commit, so this is
		// unreachable through Run.
		return "", &StageError{Stage: s.Stage, Err: ErrNoActiveWorkflow}
	default:
		return "", &StageError{Stage: s.Stage, Err: fmt.Errorf("unhandled stage")}
	}
}

// generate renders the named prompt and calls the completion collaborator.
func (e *Engine) generate(ctx context.Context, s *State, t task.Type, name string, vars map[string]any, stream StreamFunc) (string, error) {
	promptText, err := e.prompts.Render(name, vars)
	if err != nil {
		return "", &StageError{Stage: s.Stage, Err: fmt.Errorf("render %s prompt: %w", name, err)}
	}

	start := time.Now()
	result, err := e.agent.GenerateResponse(ctx, CompletionRequest{Task: t, Prompt: promptText}, stream)
	if err != nil {
		return "", &StageError{Stage: s.Stage, Err: err}
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", &StageError{Stage: s.Stage, Err: ErrEmptyCompletion}
	}

	e.turnTokensIn += result.TokensIn
	e.turnTokensOut += result.TokensOut
	e.logger.Debug("completion finished",
		"run_id", e.runID,
		"task", string(t),
		"tokens_in", result.TokensIn,
		"tokens_out", result.TokensOut,
		"duration", time.Since(start).Round(time.Millisecond))

	return text, nil
}

func (e *Engine) notify(ctx context.Context, eventType notify.EventType, stage Stage, message, severity string) {
	if e.notifier == nil {
		return
	}
	err := e.notifier.Notify(ctx, notify.Event{
		Type:      eventType,
		RunID:     e.runID,
		Stage:     stage.String(),
		Message:   message,
		Severity:  severity,
		Timestamp: time.Now(),
	})
	if err != nil {
		e.logger.Warn("notification failed", "type", string(eventType), "error", err)
	}
}

func (e *Engine) startTranscript(s *State) {
	if e.transcripts == nil {
		return
	}
	err := e.transcripts.StartRun(e.runID, transcript.RunMetadata{Request: s.OriginalRequest})
	if err != nil {
		e.logger.Warn("transcript start failed", "run_id", e.runID, "error", err)
	}
}

func (e *Engine) recordTurn(role string, stage Stage, content string, tokensIn, tokensOut int) {
	if e.transcripts == nil || e.runID == "" {
		return
	}
	err := e.transcripts.RecordTurn(e.runID, transcript.Turn{
		Role:      role,
		Stage:     stage.String(),
		Content:   content,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
	})
	if err != nil {
		e.logger.Warn("transcript record failed", "run_id", e.runID, "error", err)
	}
}

func (e *Engine) endTranscript(status transcript.RunStatus) {
	if e.transcripts == nil || e.runID == "" {
		return
	}
	if err := e.transcripts.EndRun(e.runID, status); err != nil {
		e.logger.Warn("transcript end failed", "run_id", e.runID, "error", err)
	}
}

// newRunID returns a short unique run identifier.
func newRunID() string {
	id, err := gonanoid.New()
	if err != nil {
		// gonanoid only fails when the OS entropy source does.
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return "run-" + id
}
