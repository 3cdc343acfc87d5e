package agentflow

import (
	"errors"
	"fmt"
)

// Engine errors.
var (
	// ErrNoAgent indicates the engine was constructed without collaborators.
	ErrNoAgent = errors.New("agent not configured")

	// ErrNoActiveWorkflow indicates an operation that needs an in-flight
	// workflow was called while none exists.
	ErrNoActiveWorkflow = errors.New("no active workflow")

	// ErrEmptyCompletion indicates the completion collaborator returned
	// no usable text.
	ErrEmptyCompletion = errors.New("empty completion")
)

// StageError wraps a failure raised inside one stage handler. The engine
// catches it at the dispatch boundary, reports it to the user as plain text,
// and leaves the workflow state exactly as it was before the failing call.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements error.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}
