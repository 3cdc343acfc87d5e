package agentflow

import "fmt"

// =============================================================================
// Workflow Stages
// =============================================================================

// Stage identifies a position in the fixed workflow pipeline.
//
// Stages only ever move forward through the ordered sequence
// ContextGathering -> Planning -> Execution -> Review -> Completed,
// with one permitted loop: Review may send the workflow back to Execution
// for additional work. A workflow never regresses earlier than Execution.
type Stage int

const (
	// StageContextGathering analyzes the request and collects background.
	StageContextGathering Stage = iota

	// StagePlanning produces the execution plan for human approval.
	StagePlanning

	// StageExecution carries out the approved plan.
	StageExecution

	// StageReview presents results and waits for a verdict.
	StageReview

	// StageCompleted is a transient terminal marker. The engine destroys
	// the workflow state in the same call that observes it.
	StageCompleted
)

// String returns the stage name used in logs and transcripts.
func (s Stage) String() string {
	switch s {
	case StageContextGathering:
		return "context_gathering"
	case StagePlanning:
		return "planning"
	case StageExecution:
		return "execution"
	case StageReview:
		return "review"
	case StageCompleted:
		return "completed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Terminal reports whether the stage ends the workflow.
func (s Stage) Terminal() bool {
	return s == StageCompleted
}

// MarshalText implements encoding.TextMarshaler for transcripts and events.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	switch string(text) {
	case "context_gathering":
		*s = StageContextGathering
	case "planning":
		*s = StagePlanning
	case "execution":
		*s = StageExecution
	case "review":
		*s = StageReview
	case "completed":
		*s = StageCompleted
	default:
		return fmt.Errorf("unknown stage: %q", text)
	}
	return nil
}
