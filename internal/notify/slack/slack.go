// Package slack notifies health workers of community outbreak alerts via a
// Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/ashabot/internal/outbreak"
)

const httpTimeout = 10 * time.Second

// Notifier posts outbreak alerts to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	now        func() time.Time
}

// New creates a new Slack notifier. If webhookURL is empty, NotifyOutbreak
// is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		now:        time.Now,
	}
}

// NotifyOutbreak posts st to the configured webhook.
func (n *Notifier) NotifyOutbreak(ctx context.Context, st outbreak.Status) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(st, n.now()))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(st outbreak.Status, at time.Time) map[string]any {
	return map[string]any{
		"text": fmt.Sprintf("Possible fever outbreak: %d reports in the last %s", st.Count, windowText()),
		"blocks": []map[string]any{
			headerBlock(),
			{"type": "divider"},
			fieldsBlock(st),
			guidanceBlock(),
			contextBlock(at),
		},
	}
}

func headerBlock() map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": "\U0001f534 Community outbreak alert", // red circle
		},
	}
}

func fieldsBlock(st outbreak.Status) map[string]any {
	return map[string]any{
		"type": "section",
		"fields": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Fever reports:* %d", st.Count),
			},
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Threshold:* more than %d", st.Threshold),
			},
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Window:* last %s", windowText()),
			},
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Since:* %s", st.WindowStart.UTC().Format("2006-01-02 15:04 UTC")),
			},
		},
	}
}

func guidanceBlock() map[string]any {
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": "Fever reports from the community exceed the alert threshold. Please follow up with local health workers.",
		},
	}
}

func contextBlock(at time.Time) map[string]any {
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("ashabot • outbreak monitor • %s", at.UTC().Format("2006-01-02 15:04 UTC")),
			},
		},
	}
}

func windowText() string {
	return fmt.Sprintf("%dh", int(outbreak.Window.Hours()))
}
