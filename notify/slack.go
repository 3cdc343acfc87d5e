package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// =============================================================================
// SlackNotifier
// =============================================================================

// SlackNotifier posts events to a Slack incoming webhook as colored
// attachments.
type SlackNotifier struct {
	WebhookURL string
	Channel    string
	Username   string
	Client     *http.Client
}

// SlackOption configures a SlackNotifier.
type SlackOption func(*SlackNotifier)

// WithSlackChannel overrides the webhook's default channel.
func WithSlackChannel(channel string) SlackOption {
	return func(n *SlackNotifier) { n.Channel = channel }
}

// WithSlackUsername sets the bot display name.
func WithSlackUsername(username string) SlackOption {
	return func(n *SlackNotifier) { n.Username = username }
}

// WithSlackClient substitutes the HTTP client, mainly for tests.
func WithSlackClient(client *http.Client) SlackOption {
	return func(n *SlackNotifier) { n.Client = client }
}

// NewSlackNotifier creates a Slack webhook notifier with a 10s timeout.
func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	n := &SlackNotifier{
		WebhookURL: webhookURL,
		Username:   "agentflow",
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(n.buildPayload(event))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	return nil
}

func (n *SlackNotifier) buildPayload(event Event) slackPayload {
	attachment := slackAttachment{
		Color:     n.colorForSeverity(event.Severity),
		Title:     fmt.Sprintf("%s %s", eventEmoji[event.Type], event.Type),
		Text:      event.Message,
		Footer:    fmt.Sprintf("Stage: %s | Run: %s", event.Stage, event.RunID),
		Timestamp: event.Timestamp.Unix(),
	}
	if _, ok := eventEmoji[event.Type]; !ok {
		attachment.Title = fmt.Sprintf("📢 %s", event.Type)
	}

	for k, v := range event.Metadata {
		attachment.Fields = append(attachment.Fields, slackField{
			Title: k,
			Value: fmt.Sprintf("%v", v),
			Short: true,
		})
	}

	return slackPayload{
		Username:    n.Username,
		Channel:     n.Channel,
		Attachments: []slackAttachment{attachment},
	}
}

// eventEmoji decorates attachment titles per event type.
var eventEmoji = map[EventType]string{
	EventWorkflowStarted:   "🚀",
	EventWorkflowCompleted: "✅",
	EventWorkflowFailed:    "❌",
	EventApprovalNeeded:    "👀",
	EventPlanRevised:       "✏️",
	EventStageCompleted:    "✓",
	EventStageFailed:       "⚠️",
}

func (n *SlackNotifier) colorForSeverity(severity string) string {
	switch severity {
	case SeverityError, SeverityCritical:
		return "danger"
	case SeverityWarning:
		return "warning"
	default:
		return "good"
	}
}

// Slack incoming-webhook wire types.
type slackPayload struct {
	Username    string            `json:"username,omitempty"`
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color     string       `json:"color,omitempty"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Footer    string       `json:"footer,omitempty"`
	Timestamp int64        `json:"ts,omitempty"`
	Fields    []slackField `json:"fields,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
