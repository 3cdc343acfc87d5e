package notify

import (
	"context"
	"time"
)

// Notifier delivers workflow events to an external sink. Implementations
// must tolerate delivery failure; the engine treats notification as best
// effort and never aborts a run over it.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// =============================================================================
// Events
// =============================================================================

// EventType identifies what happened in the workflow.
type EventType string

const (
	EventWorkflowStarted   EventType = "workflow_started"
	EventWorkflowCompleted EventType = "workflow_completed"
	EventWorkflowFailed    EventType = "workflow_failed"
	EventStageCompleted    EventType = "stage_completed"
	EventStageFailed       EventType = "stage_failed"
	EventApprovalNeeded    EventType = "approval_needed"
	EventPlanRevised       EventType = "plan_revised"
)

// Severity levels, ordered from most to least urgent.
const (
	SeverityCritical = "critical"
	SeverityError    = "error"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Event is a single workflow notification. Stage is empty for run-level
// events; Metadata carries sink-specific extras such as step counts.
type Event struct {
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id"`
	Stage     string         `json:"stage,omitempty"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// =============================================================================
// Context Injection
// =============================================================================

type serviceContextKey string

const notifierServiceKey serviceContextKey = "agentflow.notifier"

// WithNotifier stores a Notifier in the context for downstream handlers.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierServiceKey, n)
}

// NotifierFromContext returns the context's Notifier, or nil when none
// was injected.
func NotifierFromContext(ctx context.Context) Notifier {
	n, _ := ctx.Value(notifierServiceKey).(Notifier)
	return n
}

// MustNotifierFromContext is NotifierFromContext but panics on absence.
func MustNotifierFromContext(ctx context.Context) Notifier {
	n := NotifierFromContext(ctx)
	if n == nil {
		panic("agentflow: Notifier not found in context")
	}
	return n
}
