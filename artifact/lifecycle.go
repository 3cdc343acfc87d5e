package artifact

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/randalmurphal/agentflow/transcript"
)

// RetentionConfig defines how long workflow run records are kept on disk.
type RetentionConfig struct {
	RetentionDays        int  // Days to keep runs before deletion
	ArchiveAfterDays     int  // Days before a run is compressed into the archive
	ArchiveRetentionDays int  // Days to keep archived runs
	KeepFailed           bool // Never expire failed runs
	KeepMinRuns          int  // Minimum runs to keep regardless of age
}

// DefaultRetentionConfig returns the default retention policy.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		RetentionDays:        30,
		ArchiveAfterDays:     7,
		ArchiveRetentionDays: 90,
		KeepFailed:           true,
		KeepMinRuns:          50,
	}
}

// LifecycleManager applies retention policy to a transcript store directory.
// It operates on the same baseDir/runs/<runID> layout the transcript store
// writes, reading each run's metadata.json to decide its fate.
type LifecycleManager struct {
	baseDir string
	config  RetentionConfig
}

// NewLifecycleManager creates a lifecycle manager rooted at the transcript
// store's base directory.
func NewLifecycleManager(baseDir string, config RetentionConfig) *LifecycleManager {
	return &LifecycleManager{baseDir: baseDir, config: config}
}

// CleanupResult summarizes what a cleanup pass did.
type CleanupResult struct {
	Archived   []string `json:"archived"`
	Deleted    []string `json:"deleted"`
	Kept       []string `json:"kept"`
	Errors     []string `json:"errors,omitempty"`
	SpaceSaved int64    `json:"spaceSaved"`
}

// Cleanup applies the retention policy to completed runs. Running runs and,
// when configured, failed runs are always kept. With dryRun set, the result
// reports what would happen without touching disk.
func (m *LifecycleManager) Cleanup(dryRun bool) (*CleanupResult, error) {
	result := &CleanupResult{
		Archived: []string{},
		Deleted:  []string{},
		Kept:     []string{},
	}

	runsDir := filepath.Join(m.baseDir, "runs")
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, err
	}

	now := time.Now()
	archiveBefore := now.Add(-time.Duration(m.config.ArchiveAfterDays) * 24 * time.Hour)
	deleteBefore := now.Add(-time.Duration(m.config.RetentionDays) * 24 * time.Hour)

	type run struct {
		id   string
		meta *transcript.Meta
		size int64
	}

	var runs []run
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		meta, err := loadMeta(filepath.Join(runsDir, id))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("load %s: %v", id, err))
			continue
		}
		runs = append(runs, run{id: id, meta: meta, size: dirSize(filepath.Join(runsDir, id))})
	}

	// Oldest first, so the newest runs survive the KeepMinRuns floor.
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].meta.EndedAt.Before(runs[j].meta.EndedAt)
	})

	removed := 0
	for _, r := range runs {
		if r.meta.Status == transcript.RunStatusRunning {
			result.Kept = append(result.Kept, r.id)
			continue
		}
		if m.config.KeepFailed && r.meta.Status == transcript.RunStatusFailed {
			result.Kept = append(result.Kept, r.id)
			continue
		}
		if len(runs)-removed-1 < m.config.KeepMinRuns {
			result.Kept = append(result.Kept, r.id)
			continue
		}

		runDir := filepath.Join(runsDir, r.id)
		switch {
		case r.meta.EndedAt.Before(deleteBefore):
			if !dryRun {
				if err := os.RemoveAll(runDir); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", r.id, err))
					continue
				}
			}
			result.Deleted = append(result.Deleted, r.id)
			result.SpaceSaved += r.size
			removed++

		case r.meta.EndedAt.Before(archiveBefore):
			if !dryRun {
				if err := m.archiveRun(r.id, r.meta); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("archive %s: %v", r.id, err))
					continue
				}
			}
			result.Archived = append(result.Archived, r.id)
			result.SpaceSaved += r.size / 2 // compressed estimate
			removed++

		default:
			result.Kept = append(result.Kept, r.id)
		}
	}

	return result, nil
}

// archiveRun compresses a run directory into archive/<month>/<runID>.tar.gz
// and removes the original. The month bucket comes from the run's end time.
func (m *LifecycleManager) archiveRun(runID string, meta *transcript.Meta) error {
	runDir := filepath.Join(m.baseDir, "runs", runID)

	archiveDir := filepath.Join(m.baseDir, "archive", monthBucket(meta))
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return err
	}
	archivePath := filepath.Join(archiveDir, runID+".tar.gz")

	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	walkErr := filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(runDir, path)
		header.Name = filepath.Join(runID, rel)
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})

	tw.Close()
	gz.Close()
	f.Close()

	if walkErr != nil {
		os.Remove(archivePath)
		return walkErr
	}

	return os.RemoveAll(runDir)
}

// RestoreArchive extracts an archived run back into the runs directory.
func (m *LifecycleManager) RestoreArchive(runID string) error {
	archivePath := m.findArchive(runID)
	if archivePath == "" {
		return fmt.Errorf("archive not found: %s", runID)
	}

	runDir := filepath.Join(m.baseDir, "runs", runID)
	if _, err := os.Stat(runDir); err == nil {
		return fmt.Errorf("run already exists: %s", runID)
	}

	return m.extractArchive(archivePath, filepath.Dir(runDir))
}

// ListArchives returns the IDs of all archived runs.
func (m *LifecycleManager) ListArchives() ([]string, error) {
	var archives []string

	err := filepath.Walk(filepath.Join(m.baseDir, "archive"), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".tar.gz") {
			archives = append(archives, strings.TrimSuffix(info.Name(), ".tar.gz"))
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return archives, nil
}

// DeleteArchive removes an archived run.
func (m *LifecycleManager) DeleteArchive(runID string) error {
	archivePath := m.findArchive(runID)
	if archivePath == "" {
		return fmt.Errorf("archive not found: %s", runID)
	}
	return os.Remove(archivePath)
}

// CleanupArchives removes archives older than the archive retention period.
func (m *LifecycleManager) CleanupArchives(dryRun bool) (*CleanupResult, error) {
	result := &CleanupResult{Deleted: []string{}, Kept: []string{}}
	threshold := time.Now().Add(-time.Duration(m.config.ArchiveRetentionDays) * 24 * time.Hour)

	err := filepath.Walk(filepath.Join(m.baseDir, "archive"), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".tar.gz") {
			return nil
		}

		runID := strings.TrimSuffix(info.Name(), ".tar.gz")
		if info.ModTime().Before(threshold) {
			if !dryRun {
				if err := os.Remove(path); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("delete archive %s: %v", runID, err))
					return nil
				}
			}
			result.Deleted = append(result.Deleted, runID)
			result.SpaceSaved += info.Size()
		} else {
			result.Kept = append(result.Kept, runID)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return result, nil
}

// DiskUsageStats reports how much space the store occupies.
type DiskUsageStats struct {
	RunCount     int   `json:"runCount"`
	ArchiveCount int   `json:"archiveCount"`
	ActiveSize   int64 `json:"activeSize"`
	ArchiveSize  int64 `json:"archiveSize"`
	TotalSize    int64 `json:"totalSize"`
}

// DiskUsage computes disk usage for active runs and archives.
func (m *LifecycleManager) DiskUsage() (*DiskUsageStats, error) {
	stats := &DiskUsageStats{}

	runsDir := filepath.Join(m.baseDir, "runs")
	if entries, err := os.ReadDir(runsDir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				stats.RunCount++
				stats.ActiveSize += dirSize(filepath.Join(runsDir, entry.Name()))
			}
		}
	}

	filepath.Walk(filepath.Join(m.baseDir, "archive"), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".tar.gz") {
			stats.ArchiveCount++
			stats.ArchiveSize += info.Size()
		}
		return nil
	})

	stats.TotalSize = stats.ActiveSize + stats.ArchiveSize
	return stats, nil
}

func (m *LifecycleManager) findArchive(runID string) string {
	var found string
	filepath.Walk(filepath.Join(m.baseDir, "archive"), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.Name() == runID+".tar.gz" {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

func (m *LifecycleManager) extractArchive(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		target := filepath.Join(destDir, header.Name)
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(destDir)) {
			return fmt.Errorf("invalid path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			out, err := os.Create(target)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
			if err := os.Chmod(target, os.FileMode(header.Mode)); err != nil {
				return err
			}
		}
	}

	return nil
}

func loadMeta(runDir string) (*transcript.Meta, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta transcript.Meta
	return &meta, json.Unmarshal(data, &meta)
}

func monthBucket(meta *transcript.Meta) string {
	if !meta.EndedAt.IsZero() {
		return meta.EndedAt.Format("2006-01")
	}
	return time.Now().Format("2006-01")
}

func dirSize(path string) int64 {
	var size int64
	filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}
