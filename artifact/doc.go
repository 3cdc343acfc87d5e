// Package artifact manages the lifecycle of workflow run records on disk.
//
// The transcript store writes each run under baseDir/runs/<runID>. This
// package applies a retention policy to that layout: old completed runs are
// compressed into baseDir/archive/<month>/<runID>.tar.gz, very old runs and
// stale archives are deleted, and failed or running runs are kept.
//
// Example usage:
//
//	lm := artifact.NewLifecycleManager(store.BaseDir(), artifact.DefaultRetentionConfig())
//	result, err := lm.Cleanup(false)
package artifact
