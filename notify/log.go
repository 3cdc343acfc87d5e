package notify

import (
	"context"
	"log/slog"
)

// =============================================================================
// LogNotifier
// =============================================================================

// LogNotifier writes events to a slog logger. It is the sink of choice for
// local development and for piggybacking on existing log shipping.
type LogNotifier struct {
	Logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier. A nil logger falls back to
// slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Logger: logger}
}

// severityLevel maps an event severity onto a slog level.
func severityLevel(severity string) slog.Level {
	switch severity {
	case SeverityError, SeverityCritical:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	attrs := []any{
		"type", event.Type,
		"run_id", event.RunID,
	}
	if event.Stage != "" {
		attrs = append(attrs, "stage", event.Stage)
	}
	if len(event.Metadata) > 0 {
		attrs = append(attrs, "metadata", event.Metadata)
	}

	n.Logger.Log(ctx, severityLevel(event.Severity), event.Message, attrs...)
	return nil
}
