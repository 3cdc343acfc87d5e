// Package notify delivers workflow lifecycle events to external sinks.
//
// The engine emits an Event when a run starts, finishes, or fails, when a
// stage completes, and when a plan needs approval or gets revised. Sinks
// implement the Notifier interface:
//
//   - SlackNotifier posts colored attachments to a Slack incoming webhook
//   - WebhookNotifier POSTs the raw event JSON to any HTTP endpoint
//   - LogNotifier writes events through slog
//   - MultiNotifier fans one event out to several sinks
//   - NopNotifier discards everything and is the default
//
// Typical wiring:
//
//	notifier := notify.NewMultiNotifier(
//	    notify.NewLogNotifier(nil),
//	    notify.NewSlackNotifier(webhookURL, notify.WithSlackChannel("#agent-alerts")),
//	)
//	err := notifier.Notify(ctx, notify.Event{
//	    Type:    notify.EventWorkflowCompleted,
//	    RunID:   runID,
//	    Message: "workflow completed",
//	})
package notify
