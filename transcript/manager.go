package transcript

import "time"

// Manager is what the engine needs from transcript storage. FileStore is
// the canonical implementation; tests may substitute their own.
type Manager interface {
	// Recording.
	StartRun(runID string, metadata RunMetadata) error
	RecordTurn(runID string, turn Turn) error
	RecordToolCall(runID string, tc ToolCall) error
	EndRun(runID string, status RunStatus) error
	EndRunWithError(runID string, err error) error

	// Retrieval.
	Load(runID string) (*Transcript, error)
	LoadMetadata(runID string) (*Meta, error)
	List(filter ListFilter) ([]Meta, error)

	// Maintenance.
	Delete(runID string) error
}

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	Status RunStatus
	After  time.Time
	Before time.Time
	Limit  int
}
