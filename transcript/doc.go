// Package transcript records workflow conversations and makes them
// queryable after the fact.
//
// A run's record is a Transcript: run metadata (request, status, token
// totals) plus an ordered list of Turns, each tagged with its role and the
// workflow stage it happened in. FileStore keeps live runs in memory and
// persists them under baseDir/runs/<runID>/ when they end; large
// transcripts are gzip-compressed on disk. Searcher and Viewer layer
// querying and display on top of the store.
//
// Recording a run:
//
//	store, _ := transcript.NewFileStore(transcript.StoreConfig{BaseDir: ".agentflow"})
//	store.StartRun("run-123", transcript.RunMetadata{Request: "add retry handling"})
//	store.RecordTurn("run-123", transcript.Turn{
//	    Role:    "assistant",
//	    Stage:   "planning",
//	    Content: "Here is the proposed plan...",
//	})
//	store.EndRun("run-123", transcript.RunStatusCompleted)
package transcript
