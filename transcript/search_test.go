package transcript

import (
	"strings"
	"testing"
)

// seedSearchStore writes a few finished runs for search tests.
func seedSearchStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFileStore(StoreConfig{BaseDir: dir})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	runs := []struct {
		id     string
		status RunStatus
		turns  []Turn
	}{
		{
			id:     "run-greet",
			status: RunStatusCompleted,
			turns: []Turn{
				{Role: "user", Content: "Add a Greet helper to the utils package", TokensIn: 12},
				{Role: "assistant", Stage: "planning", Content: "I will add Greet and a table test.", TokensOut: 20},
			},
		},
		{
			id:     "run-retry",
			status: RunStatusCompleted,
			turns: []Turn{
				{Role: "user", Content: "Add retry handling to the fetcher", TokensIn: 10},
				{Role: "assistant", Stage: "execution", Content: "Wrapped the fetch call with backoff.", TokensOut: 30},
			},
		},
		{
			id:     "run-broken",
			status: RunStatusFailed,
			turns: []Turn{
				{Role: "user", Content: "Refactor the GREET rendering", TokensIn: 8},
			},
		},
	}

	for _, r := range runs {
		if err := store.StartRun(r.id, RunMetadata{Request: r.turns[0].Content}); err != nil {
			t.Fatalf("StartRun(%s): %v", r.id, err)
		}
		for _, turn := range r.turns {
			if err := store.RecordTurn(r.id, turn); err != nil {
				t.Fatalf("RecordTurn(%s): %v", r.id, err)
			}
		}
		if err := store.EndRun(r.id, r.status); err != nil {
			t.Fatalf("EndRun(%s): %v", r.id, err)
		}
	}

	return store, dir
}

func TestSearchContent(t *testing.T) {
	store, _ := seedSearchStore(t)
	searcher := NewStoreSearcher(store)

	results, err := searcher.SearchContent("greet", SearchOptions{})
	if err != nil {
		t.Fatalf("SearchContent: %v", err)
	}
	// Case-insensitive by default, so run-greet (twice) and run-broken match.
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, r := range results {
		if r.RunID != "run-greet" && r.RunID != "run-broken" {
			t.Errorf("unexpected run %q in results", r.RunID)
		}
		if r.Snippet == "" {
			t.Error("result has empty snippet")
		}
	}
}

func TestSearchContentCaseSensitive(t *testing.T) {
	store, _ := seedSearchStore(t)
	searcher := NewStoreSearcher(store)

	results, err := searcher.SearchContent("GREET", SearchOptions{CaseSensitive: true})
	if err != nil {
		t.Fatalf("SearchContent: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].RunID != "run-broken" {
		t.Errorf("RunID = %q, want run-broken", results[0].RunID)
	}
}

func TestSearchContentRoleFilter(t *testing.T) {
	store, _ := seedSearchStore(t)
	searcher := NewStoreSearcher(store)

	results, err := searcher.SearchContent("greet", SearchOptions{Roles: []string{"assistant"}})
	if err != nil {
		t.Fatalf("SearchContent: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Role != "assistant" {
		t.Errorf("Role = %q, want assistant", results[0].Role)
	}
	if results[0].Stage != "planning" {
		t.Errorf("Stage = %q, want planning", results[0].Stage)
	}
}

func TestSearchContentMaxResults(t *testing.T) {
	store, _ := seedSearchStore(t)
	searcher := NewStoreSearcher(store)

	results, err := searcher.SearchContent("the", SearchOptions{MaxResults: 2})
	if err != nil {
		t.Fatalf("SearchContent: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestSearchContentEmptyQuery(t *testing.T) {
	store, _ := seedSearchStore(t)
	searcher := NewStoreSearcher(store)

	results, err := searcher.SearchContent("", SearchOptions{})
	if err != nil {
		t.Fatalf("SearchContent: %v", err)
	}
	if results != nil {
		t.Errorf("got %d results for empty query, want none", len(results))
	}
}

func TestFindByStatus(t *testing.T) {
	_, dir := seedSearchStore(t)
	searcher, err := NewSearcher(dir)
	if err != nil {
		t.Fatalf("NewSearcher: %v", err)
	}

	failed, err := searcher.FindByStatus(RunStatusFailed)
	if err != nil {
		t.Fatalf("FindByStatus: %v", err)
	}
	if len(failed) != 1 || failed[0].RunID != "run-broken" {
		t.Errorf("failed runs = %v, want [run-broken]", runIDs(failed))
	}
}

func TestTotalTokens(t *testing.T) {
	store, _ := seedSearchStore(t)
	searcher := NewStoreSearcher(store)

	in, out, err := searcher.TotalTokens(ListFilter{})
	if err != nil {
		t.Fatalf("TotalTokens: %v", err)
	}
	if in != 30 {
		t.Errorf("tokens in = %d, want 30", in)
	}
	if out != 50 {
		t.Errorf("tokens out = %d, want 50", out)
	}
}

func TestRunStats(t *testing.T) {
	store, _ := seedSearchStore(t)
	searcher := NewStoreSearcher(store)

	stats, err := searcher.RunStats(ListFilter{})
	if err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	if stats.TotalRuns != 3 {
		t.Errorf("TotalRuns = %d, want 3", stats.TotalRuns)
	}
	if stats.CompletedRuns != 2 {
		t.Errorf("CompletedRuns = %d, want 2", stats.CompletedRuns)
	}
	if stats.FailedRuns != 1 {
		t.Errorf("FailedRuns = %d, want 1", stats.FailedRuns)
	}
	if stats.AvgTokensIn != 10 {
		t.Errorf("AvgTokensIn = %d, want 10", stats.AvgTokensIn)
	}
}

func TestSnippetTruncation(t *testing.T) {
	long := strings.Repeat("x", 300) + " needle " + strings.Repeat("y", 300)
	idx := strings.Index(long, "needle")

	got := snippet(long, idx, len("needle"))
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Errorf("snippet = %q, want ellipsis on both ends", got)
	}
	if !strings.Contains(got, "needle") {
		t.Errorf("snippet %q does not contain the match", got)
	}
}

func runIDs(metas []Meta) []string {
	ids := make([]string, len(metas))
	for i, m := range metas {
		ids[i] = m.RunID
	}
	return ids
}
