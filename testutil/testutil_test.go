package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTestContext(t *testing.T) {
	ctx := TestContext(t)

	select {
	case <-ctx.Done():
		t.Error("context should not be canceled during the test")
	default:
	}
}

func TestTestContextWithTimeout(t *testing.T) {
	ctx := TestContextWithTimeout(t, time.Minute)

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("context should have a deadline")
	}
	if time.Until(deadline) > time.Minute {
		t.Errorf("deadline too far out: %v", deadline)
	}
}

func TestTempFileString(t *testing.T) {
	path := TempFileString(t, "config.yaml", "key: value\n")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "key: value\n" {
		t.Errorf("content = %q, want %q", string(data), "key: value\n")
	}
}

func TestWriteTree(t *testing.T) {
	files := map[string]string{
		"prompts/plan.txt":   "Plan: {{.Request}}\n",
		"nested/deep/x.json": "{}",
	}

	dir := WriteTree(t, files)

	for path := range files {
		if _, err := os.Stat(filepath.Join(dir, path)); err != nil {
			t.Errorf("file %s missing: %v", path, err)
		}
	}
}
