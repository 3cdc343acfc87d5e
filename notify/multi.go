package notify

import (
	"context"
	"errors"
	"log/slog"
)

// =============================================================================
// MultiNotifier
// =============================================================================

// MultiNotifier fans an event out to several notifiers in order. A failing
// sink never blocks the others; failures are logged and joined into the
// returned error.
type MultiNotifier struct {
	Notifiers []Notifier
	Logger    *slog.Logger
}

// NewMultiNotifier combines notifiers into one.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{
		Notifiers: notifiers,
		Logger:    slog.Default(),
	}
}

// Notify implements Notifier.
func (n *MultiNotifier) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, sink := range n.Notifiers {
		err := sink.Notify(ctx, event)
		if err == nil {
			continue
		}
		errs = append(errs, err)
		if n.Logger != nil {
			n.Logger.Warn("notifier failed",
				"event_type", string(event.Type),
				"run_id", event.RunID,
				"error", err)
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// NopNotifier
// =============================================================================

// NopNotifier discards every event. It is the engine's default when no
// notifier is configured.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(ctx context.Context, event Event) error { return nil }
