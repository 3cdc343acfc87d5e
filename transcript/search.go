package transcript

import (
	"strings"
	"time"
)

// Searcher answers queries over stored transcripts. All search runs
// in-process over the store's run records; nothing shells out.
type Searcher struct {
	store *FileStore
}

// NewSearcher creates a searcher over the base directory. Only runs that
// have been persisted are visible; use NewStoreSearcher to also search a
// live store's active runs.
func NewSearcher(baseDir string) (*Searcher, error) {
	store, err := NewFileStore(StoreConfig{BaseDir: baseDir})
	if err != nil {
		return nil, err
	}
	return &Searcher{store: store}, nil
}

// NewStoreSearcher creates a searcher backed by an existing store.
func NewStoreSearcher(store *FileStore) *Searcher {
	return &Searcher{store: store}
}

// SearchOptions configures content search.
type SearchOptions struct {
	CaseSensitive bool
	// Roles limits matches to turns with these roles. Empty means all.
	Roles []string
	// MaxResults caps the number of matches. Zero means unlimited.
	MaxResults int
}

// SearchResult is one matching turn.
type SearchResult struct {
	RunID   string `json:"runId"`
	TurnID  int    `json:"turnId"`
	Role    string `json:"role"`
	Stage   string `json:"stage,omitempty"`
	Snippet string `json:"snippet"`
}

// snippetRadius is how many characters around a match the snippet keeps.
const snippetRadius = 80

// SearchContent finds turns whose content contains the query.
func (s *Searcher) SearchContent(query string, opts SearchOptions) ([]SearchResult, error) {
	if query == "" {
		return nil, nil
	}

	needle := query
	if !opts.CaseSensitive {
		needle = strings.ToLower(query)
	}

	metas, err := s.store.List(ListFilter{})
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, meta := range metas {
		tr, err := s.store.Load(meta.RunID)
		if err != nil {
			continue
		}

		for _, turn := range tr.Turns {
			if !roleAllowed(turn.Role, opts.Roles) {
				continue
			}

			haystack := turn.Content
			if !opts.CaseSensitive {
				haystack = strings.ToLower(turn.Content)
			}
			idx := strings.Index(haystack, needle)
			if idx < 0 {
				continue
			}

			results = append(results, SearchResult{
				RunID:   tr.RunID,
				TurnID:  turn.ID,
				Role:    turn.Role,
				Stage:   turn.Stage,
				Snippet: snippet(turn.Content, idx, len(query)),
			})
			if opts.MaxResults > 0 && len(results) >= opts.MaxResults {
				return results, nil
			}
		}
	}

	return results, nil
}

// FindByStatus returns run metadata with the given status.
func (s *Searcher) FindByStatus(status RunStatus) ([]Meta, error) {
	return s.store.List(ListFilter{Status: status})
}

// FindByDateRange returns runs started inside the range.
func (s *Searcher) FindByDateRange(start, end time.Time) ([]Meta, error) {
	return s.store.List(ListFilter{After: start, Before: end})
}

// TotalTokens sums token usage over matching runs.
func (s *Searcher) TotalTokens(filter ListFilter) (in, out int, err error) {
	runs, err := s.store.List(filter)
	if err != nil {
		return 0, 0, err
	}

	for _, run := range runs {
		in += run.TotalTokensIn
		out += run.TotalTokensOut
	}
	return in, out, nil
}

// RunStats aggregates statistics over matching runs.
func (s *Searcher) RunStats(filter ListFilter) (*Statistics, error) {
	runs, err := s.store.List(filter)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{}
	for _, run := range runs {
		stats.TotalRuns++
		stats.TotalTokensIn += run.TotalTokensIn
		stats.TotalTokensOut += run.TotalTokensOut

		switch run.Status {
		case RunStatusCompleted:
			stats.CompletedRuns++
		case RunStatusFailed:
			stats.FailedRuns++
		case RunStatusCanceled:
			stats.CanceledRuns++
		case RunStatusRunning:
			stats.ActiveRuns++
		}
	}

	if stats.TotalRuns > 0 {
		stats.AvgTokensIn = stats.TotalTokensIn / stats.TotalRuns
		stats.AvgTokensOut = stats.TotalTokensOut / stats.TotalRuns
	}
	return stats, nil
}

// Statistics holds aggregated run statistics.
type Statistics struct {
	TotalRuns      int
	CompletedRuns  int
	FailedRuns     int
	CanceledRuns   int
	ActiveRuns     int
	TotalTokensIn  int
	TotalTokensOut int
	AvgTokensIn    int
	AvgTokensOut   int
}

func roleAllowed(role string, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// snippet cuts a window of content around the match, trimming to whole
// runes is not attempted; transcripts are overwhelmingly ASCII.
func snippet(content string, idx, matchLen int) string {
	start := idx - snippetRadius
	if start < 0 {
		start = 0
	}
	end := idx + matchLen + snippetRadius
	if end > len(content) {
		end = len(content)
	}

	out := strings.ReplaceAll(content[start:end], "\n", " ")
	if start > 0 {
		out = "..." + out
	}
	if end < len(content) {
		out += "..."
	}
	return strings.TrimSpace(out)
}
