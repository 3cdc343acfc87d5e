package transcript

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// StoreConfig configures transcript storage.
type StoreConfig struct {
	BaseDir string
}

// FileStore keeps in-flight transcripts in memory and persists them under
// baseDir/runs/<runID>/ when a run ends. Finished runs are read back from
// disk; live runs are served from memory.
type FileStore struct {
	baseDir string

	mu   sync.RWMutex
	live map[string]*Transcript
}

// NewFileStore creates the store, preparing the runs directory.
func NewFileStore(config StoreConfig) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(config.BaseDir, "runs"), 0755); err != nil {
		return nil, err
	}
	return &FileStore{
		baseDir: config.BaseDir,
		live:    make(map[string]*Transcript),
	}, nil
}

// BaseDir returns the store's base directory.
func (s *FileStore) BaseDir() string { return s.baseDir }

func (s *FileStore) runDir(runID string) string {
	return filepath.Join(s.baseDir, "runs", runID)
}

// StartRun begins recording a new run. The run ID must be unused, both
// among live runs and on disk.
func (s *FileStore) StartRun(runID string, meta RunMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live[runID]; ok {
		return ErrRunAlreadyExists
	}
	if _, err := os.Stat(s.runDir(runID)); err == nil {
		return ErrRunAlreadyExists
	}
	if err := os.MkdirAll(s.runDir(runID), 0755); err != nil {
		return err
	}

	tr := New(runID, meta.Request)
	if err := s.writeMetadata(runID, &tr.Metadata); err != nil {
		return err
	}
	s.live[runID] = tr
	return nil
}

// RecordTurn appends a turn to a live run.
func (s *FileStore) RecordTurn(runID string, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.live[runID]
	if !ok {
		return ErrRunNotStarted
	}
	tr.AddTurn(turn)
	return nil
}

// RecordToolCall attaches a tool call to the most recent turn of a live run.
func (s *FileStore) RecordToolCall(runID string, tc ToolCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.live[runID]
	if !ok {
		return ErrRunNotStarted
	}
	if len(tr.Turns) == 0 {
		return errors.New("no turns to attach tool call to")
	}

	last := &tr.Turns[len(tr.Turns)-1]
	last.ToolCalls = append(last.ToolCalls, tc)
	return nil
}

// EndRun finalizes a live run with the given status and persists it.
func (s *FileStore) EndRun(runID string, status RunStatus) error {
	return s.finish(runID, func(tr *Transcript) {
		tr.Metadata.Status = status
		tr.Metadata.EndedAt = time.Now()
	})
}

// EndRunWithError finalizes a live run as failed, recording the error.
func (s *FileStore) EndRunWithError(runID string, err error) error {
	return s.finish(runID, func(tr *Transcript) {
		tr.Fail(err)
	})
}

// finish applies the terminal mutation, flushes transcript and metadata to
// disk, and drops the run from the live set.
func (s *FileStore) finish(runID string, mutate func(*Transcript)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.live[runID]
	if !ok {
		return ErrRunNotStarted
	}

	mutate(tr)
	if err := tr.Save(s.baseDir); err != nil {
		return err
	}
	if err := s.writeMetadata(runID, &tr.Metadata); err != nil {
		return err
	}

	delete(s.live, runID)
	return nil
}

// Load returns the complete transcript for a run. Live runs are returned
// as a deep copy so callers cannot race with ongoing recording.
func (s *FileStore) Load(runID string) (*Transcript, error) {
	s.mu.RLock()
	tr, ok := s.live[runID]
	s.mu.RUnlock()

	if ok {
		return cloneTranscript(tr)
	}
	return Load(s.baseDir, runID)
}

func cloneTranscript(tr *Transcript) (*Transcript, error) {
	data, err := json.Marshal(tr)
	if err != nil {
		return nil, err
	}
	var out Transcript
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadMetadata returns just the run metadata.
func (s *FileStore) LoadMetadata(runID string) (*Meta, error) {
	s.mu.RLock()
	if tr, ok := s.live[runID]; ok {
		meta := tr.Metadata
		s.mu.RUnlock()
		return &meta, nil
	}
	s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.runDir(runID), "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// List returns metadata for runs matching the filter, newest first.
func (s *FileStore) List(filter ListFilter) ([]Meta, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, "runs"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var results []Meta
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.LoadMetadata(entry.Name())
		if err != nil {
			// Partially written or foreign directory; skip it.
			continue
		}
		if matchesFilter(meta, filter) {
			results = append(results, *meta)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

func matchesFilter(meta *Meta, filter ListFilter) bool {
	if filter.Status != "" && meta.Status != filter.Status {
		return false
	}
	if !filter.After.IsZero() && meta.StartedAt.Before(filter.After) {
		return false
	}
	if !filter.Before.IsZero() && meta.StartedAt.After(filter.Before) {
		return false
	}
	return true
}

// Delete removes a run from memory and disk. Deleting a missing run is
// not an error.
func (s *FileStore) Delete(runID string) error {
	s.mu.Lock()
	delete(s.live, runID)
	s.mu.Unlock()

	if err := os.RemoveAll(s.runDir(runID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// GetActive returns the live transcript for a run, if any. The returned
// pointer is shared with the recorder; treat it as read-only.
func (s *FileStore) GetActive(runID string) (*Transcript, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tr, ok := s.live[runID]
	return tr, ok
}

// ListActive returns the IDs of all runs still recording.
func (s *FileStore) ListActive() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	return ids
}

func (s *FileStore) writeMetadata(runID string, meta *Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.runDir(runID), "metadata.json"), data, 0644)
}
