package agentflow

import (
	"errors"
	"testing"
)

func TestStageString(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageContextGathering, "context_gathering"},
		{StagePlanning, "planning"},
		{StageExecution, "execution"},
		{StageReview, "review"},
		{StageCompleted, "completed"},
		{Stage(99), "stage(99)"},
	}

	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q, want %q", tt.stage, got, tt.want)
		}
	}
}

func TestStageTerminal(t *testing.T) {
	for _, stage := range []Stage{StageContextGathering, StagePlanning, StageExecution, StageReview} {
		if stage.Terminal() {
			t.Errorf("%v should not be terminal", stage)
		}
	}
	if !StageCompleted.Terminal() {
		t.Error("StageCompleted should be terminal")
	}
}

func TestStageTextRoundTrip(t *testing.T) {
	for _, stage := range []Stage{StageContextGathering, StagePlanning, StageExecution, StageReview, StageCompleted} {
		text, err := stage.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", stage, err)
		}

		var back Stage
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if back != stage {
			t.Errorf("round trip %v -> %q -> %v", stage, text, back)
		}
	}
}

func TestStageUnmarshalUnknown(t *testing.T) {
	var s Stage
	if err := s.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("UnmarshalText should reject unknown stage names")
	}
}

func TestStageError(t *testing.T) {
	inner := errors.New("boom")
	err := &StageError{Stage: StagePlanning, Err: inner}

	if got := err.Error(); got != "planning stage: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should reach the wrapped error")
	}
}
