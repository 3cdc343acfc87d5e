package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func sampleEvent(typ EventType, severity string) Event {
	return Event{
		Type:      typ,
		RunID:     "run-77",
		Stage:     "planning",
		Message:   "plan is ready",
		Severity:  severity,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNopNotifierSwallowsEverything(t *testing.T) {
	if err := (NopNotifier{}).Notify(context.Background(), sampleEvent(EventWorkflowStarted, SeverityInfo)); err != nil {
		t.Errorf("Notify() = %v, want nil", err)
	}
}

// =============================================================================
// LogNotifier
// =============================================================================

func capturedLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestLogNotifierWritesEventAttrs(t *testing.T) {
	logger, buf := capturedLogger()

	err := NewLogNotifier(logger).Notify(context.Background(), sampleEvent(EventApprovalNeeded, SeverityInfo))
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"plan is ready", "run-77", "stage=planning", "approval_needed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestLogNotifierOmitsEmptyStage(t *testing.T) {
	logger, buf := capturedLogger()

	event := sampleEvent(EventWorkflowStarted, SeverityInfo)
	event.Stage = ""
	if err := NewLogNotifier(logger).Notify(context.Background(), event); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if strings.Contains(buf.String(), "stage=") {
		t.Errorf("empty stage should not be logged: %s", buf.String())
	}
}

func TestSeverityLevel(t *testing.T) {
	tests := []struct {
		severity string
		want     slog.Level
	}{
		{SeverityInfo, slog.LevelInfo},
		{SeverityWarning, slog.LevelWarn},
		{SeverityError, slog.LevelError},
		{SeverityCritical, slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := severityLevel(tt.severity); got != tt.want {
			t.Errorf("severityLevel(%q) = %v, want %v", tt.severity, got, tt.want)
		}
	}
}

func TestLogNotifierDefaultsLogger(t *testing.T) {
	if NewLogNotifier(nil).Logger == nil {
		t.Error("nil logger should fall back to slog.Default")
	}
}

// =============================================================================
// WebhookNotifier
// =============================================================================

func TestWebhookNotifierDeliversJSON(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer server.Close()

	err := NewWebhookNotifier(server.URL, map[string]string{"X-Token": "s3cret"}).
		Notify(context.Background(), sampleEvent(EventWorkflowCompleted, SeverityInfo))
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}

	var delivered Event
	if err := json.Unmarshal(gotBody, &delivered); err != nil {
		t.Fatalf("unmarshal delivered body: %v", err)
	}
	if delivered.Type != EventWorkflowCompleted {
		t.Errorf("delivered type = %q, want workflow_completed", delivered.Type)
	}
	if delivered.RunID != "run-77" {
		t.Errorf("delivered run = %q, want run-77", delivered.RunID)
	}
}

func TestWebhookNotifierSendsHeaders(t *testing.T) {
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("Authorization")
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, map[string]string{"Authorization": "Bearer abc"})
	if err := n.Notify(context.Background(), sampleEvent(EventWorkflowStarted, SeverityInfo)); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if gotToken != "Bearer abc" {
		t.Errorf("Authorization = %q, want Bearer abc", gotToken)
	}
}

func TestWebhookNotifierRejectsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewWebhookNotifier(server.URL, nil).
		Notify(context.Background(), sampleEvent(EventWorkflowFailed, SeverityError))
	if err == nil {
		t.Fatal("want error for 502 response")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error = %v, want status code mentioned", err)
	}
}

func TestWebhookNotifierUnreachableHost(t *testing.T) {
	n := NewWebhookNotifier("http://127.0.0.1:1", nil)
	if err := n.Notify(context.Background(), sampleEvent(EventWorkflowStarted, SeverityInfo)); err == nil {
		t.Error("want error when nothing is listening")
	}
}

// =============================================================================
// SlackNotifier
// =============================================================================

func TestSlackNotifierPayload(t *testing.T) {
	var got slackPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer server.Close()

	n := NewSlackNotifier(server.URL,
		WithSlackChannel("#workflows"),
		WithSlackUsername("flowbot"),
	)

	event := sampleEvent(EventApprovalNeeded, SeverityInfo)
	event.Metadata = map[string]any{"steps": 3}
	if err := n.Notify(context.Background(), event); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if got.Channel != "#workflows" {
		t.Errorf("channel = %q, want #workflows", got.Channel)
	}
	if got.Username != "flowbot" {
		t.Errorf("username = %q, want flowbot", got.Username)
	}
	if len(got.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(got.Attachments))
	}

	att := got.Attachments[0]
	if !strings.Contains(att.Title, "approval_needed") {
		t.Errorf("title = %q, want event type in it", att.Title)
	}
	if !strings.Contains(att.Footer, "run-77") {
		t.Errorf("footer = %q, want run id in it", att.Footer)
	}
	if len(att.Fields) != 1 || att.Fields[0].Title != "steps" {
		t.Errorf("fields = %v, want one steps field", att.Fields)
	}
}

func TestSlackColorForSeverity(t *testing.T) {
	n := &SlackNotifier{}
	tests := []struct {
		severity string
		want     string
	}{
		{SeverityInfo, "good"},
		{SeverityWarning, "warning"},
		{SeverityError, "danger"},
		{SeverityCritical, "danger"},
	}
	for _, tt := range tests {
		if got := n.colorForSeverity(tt.severity); got != tt.want {
			t.Errorf("colorForSeverity(%q) = %q, want %q", tt.severity, got, tt.want)
		}
	}
}

func TestSlackUnknownEventGetsDefaultEmoji(t *testing.T) {
	n := &SlackNotifier{}
	payload := n.buildPayload(Event{Type: EventType("something_else")})
	if !strings.HasPrefix(payload.Attachments[0].Title, "📢") {
		t.Errorf("title = %q, want default emoji prefix", payload.Attachments[0].Title)
	}
}

// =============================================================================
// MultiNotifier
// =============================================================================

type recordingNotifier struct {
	name  string
	calls *[]string
	err   error
}

func (r *recordingNotifier) Notify(ctx context.Context, event Event) error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func TestMultiNotifierFansOutInOrder(t *testing.T) {
	var calls []string
	multi := NewMultiNotifier(
		&recordingNotifier{name: "first", calls: &calls},
		&recordingNotifier{name: "second", calls: &calls},
	)

	if err := multi.Notify(context.Background(), sampleEvent(EventWorkflowStarted, SeverityInfo)); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("calls = %v, want [first second]", calls)
	}
}

func TestMultiNotifierKeepsGoingAfterFailure(t *testing.T) {
	var calls []string
	failure := errors.New("sink down")
	logger, _ := capturedLogger()

	multi := NewMultiNotifier(
		&recordingNotifier{name: "broken", calls: &calls, err: failure},
		&recordingNotifier{name: "healthy", calls: &calls},
	)
	multi.Logger = logger

	err := multi.Notify(context.Background(), sampleEvent(EventWorkflowStarted, SeverityInfo))
	if !errors.Is(err, failure) {
		t.Errorf("err = %v, want wrapped sink error", err)
	}
	if len(calls) != 2 {
		t.Errorf("calls = %v, want both sinks reached", calls)
	}
}

// =============================================================================
// Context Injection
// =============================================================================

func TestNotifierContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if NotifierFromContext(ctx) != nil {
		t.Error("empty context should carry no notifier")
	}

	ctx = WithNotifier(ctx, NopNotifier{})
	if _, ok := NotifierFromContext(ctx).(NopNotifier); !ok {
		t.Error("injected notifier not returned")
	}
}

func TestMustNotifierPanicsWhenMissing(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("want panic when no notifier is injected")
		}
	}()
	MustNotifierFromContext(context.Background())
}
