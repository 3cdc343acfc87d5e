package agentflow

import (
	"fmt"
	"strings"
)

// =============================================================================
// Workflow State
// =============================================================================

// ExecutionResult records one completed execution pass.
type ExecutionResult struct {
	Result  string `json:"result"`
	Success bool   `json:"success"`
}

// ContextEntry is one accumulated piece of workflow knowledge.
type ContextEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// State is the complete record of one in-flight workflow.
//
// A State is owned exclusively by one Engine and mutated in place by stage
// handlers. It is not safe for concurrent use; the engine serializes access.
type State struct {
	// Stage is the current position in the pipeline.
	Stage Stage `json:"stage"`

	// OriginalRequest started the workflow. Set once at creation,
	// never mutated afterward.
	OriginalRequest string `json:"originalRequest"`

	// CurrentPlan is produced by the planning stage. Nil until planning
	// has run.
	CurrentPlan *Plan `json:"currentPlan,omitempty"`

	// UserFeedback is the append-only log of every raw message the user
	// sent while this workflow was active. The message that created the
	// workflow is OriginalRequest, not feedback.
	UserFeedback []string `json:"userFeedback,omitempty"`

	// ExecutionResults holds one entry per completed execution pass.
	ExecutionResults []ExecutionResult `json:"executionResults,omitempty"`

	// Iterations counts turns processed since the workflow began.
	Iterations int `json:"iterations"`

	// context holds accumulated knowledge in insertion order. Updating an
	// existing key keeps its original position.
	contextKeys   []string
	contextValues map[string]string
}

// NewState creates the state for a fresh workflow.
func NewState(request string) *State {
	return &State{
		Stage:           StageContextGathering,
		OriginalRequest: request,
	}
}

// SetContext stores a knowledge entry. New keys append to the insertion
// order; existing keys are updated in place.
func (s *State) SetContext(key, value string) {
	if s.contextValues == nil {
		s.contextValues = make(map[string]string)
	}
	if _, exists := s.contextValues[key]; !exists {
		s.contextKeys = append(s.contextKeys, key)
	}
	s.contextValues[key] = value
}

// Context returns the value stored under key.
func (s *State) Context(key string) (string, bool) {
	v, ok := s.contextValues[key]
	return v, ok
}

// ContextEntries returns all knowledge entries in insertion order.
func (s *State) ContextEntries() []ContextEntry {
	entries := make([]ContextEntry, 0, len(s.contextKeys))
	for _, key := range s.contextKeys {
		entries = append(entries, ContextEntry{Key: key, Value: s.contextValues[key]})
	}
	return entries
}

// AddFeedback appends one raw user message to the feedback log.
func (s *State) AddFeedback(message string) {
	s.UserFeedback = append(s.UserFeedback, message)
}

// LatestFeedback returns the most recent user message, if any.
func (s *State) LatestFeedback() (string, bool) {
	if len(s.UserFeedback) == 0 {
		return "", false
	}
	return s.UserFeedback[len(s.UserFeedback)-1], true
}

// AddExecutionResult appends one execution pass outcome.
func (s *State) AddExecutionResult(result string, success bool) {
	s.ExecutionResults = append(s.ExecutionResults, ExecutionResult{
		Result:  result,
		Success: success,
	})
}

// Clone returns a deep copy. The engine dispatches handlers against a clone
// and commits it only on success, so a failed turn leaves the original
// state untouched.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := &State{
		Stage:           s.Stage,
		OriginalRequest: s.OriginalRequest,
		Iterations:      s.Iterations,
	}
	if s.CurrentPlan != nil {
		plan := *s.CurrentPlan
		plan.Steps = append([]string(nil), s.CurrentPlan.Steps...)
		c.CurrentPlan = &plan
	}
	c.UserFeedback = append([]string(nil), s.UserFeedback...)
	c.ExecutionResults = append([]ExecutionResult(nil), s.ExecutionResults...)
	if s.contextValues != nil {
		c.contextValues = make(map[string]string, len(s.contextValues))
		for k, v := range s.contextValues {
			c.contextValues[k] = v
		}
		c.contextKeys = append([]string(nil), s.contextKeys...)
	}
	return c
}

// reset re-seeds the state in place for a brand-new request, as if this
// were the first call of a fresh workflow.
func (s *State) reset(request string) {
	*s = State{
		Stage:           StageContextGathering,
		OriginalRequest: request,
	}
}

// =============================================================================
// State Validation
// =============================================================================

// Requirement defines a state prerequisite for a stage handler.
type Requirement string

const (
	RequireRequest  Requirement = "request"
	RequireContext  Requirement = "context"
	RequirePlan     Requirement = "plan"
	RequireResults  Requirement = "results"
	RequireFeedback Requirement = "feedback"
)

// Validate checks that the state satisfies the given prerequisites.
func (s *State) Validate(requirements ...Requirement) error {
	for _, req := range requirements {
		switch req {
		case RequireRequest:
			if s.OriginalRequest == "" {
				return fmt.Errorf("original request required")
			}
		case RequireContext:
			if len(s.contextKeys) == 0 {
				return fmt.Errorf("gathered context required")
			}
		case RequirePlan:
			if s.CurrentPlan == nil {
				return fmt.Errorf("plan required")
			}
		case RequireResults:
			if len(s.ExecutionResults) == 0 {
				return fmt.Errorf("execution results required")
			}
		case RequireFeedback:
			if len(s.UserFeedback) == 0 {
				return fmt.Errorf("user feedback required")
			}
		default:
			return fmt.Errorf("unknown requirement: %s", req)
		}
	}
	return nil
}

// =============================================================================
// State Summary
// =============================================================================

// Summary returns a one-line human-readable description of the state.
func (s *State) Summary() string {
	if s == nil {
		return "no active workflow"
	}

	request := s.OriginalRequest
	if len(request) > 60 {
		request = request[:57] + "..."
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("stage=%s", s.Stage))
	parts = append(parts, fmt.Sprintf("turns=%d", s.Iterations))
	if s.CurrentPlan != nil {
		parts = append(parts, "planned")
	}
	if n := len(s.ExecutionResults); n > 0 {
		parts = append(parts, fmt.Sprintf("executions=%d", n))
	}

	return fmt.Sprintf("%q [%s]", request, strings.Join(parts, " "))
}
