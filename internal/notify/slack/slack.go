// Package slack sends incident lifecycle notifications to Slack via
// incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const httpTimeout = 10 * time.Second

// Notifier posts incident events to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, all sends are
// no-ops.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// IncidentOpened announces a newly ingested incident.
func (n *Notifier) IncidentOpened(ctx context.Context, incidentID, alertType, severity string) error {
	title := fmt.Sprintf("%s New incident: %s", severityEmoji(severity), alertType)
	return n.post(ctx, buildMessage(title, incidentID, []field{
		{"Severity", severity},
		{"Status", "investigating"},
	}))
}

// IncidentResolved announces an incident reaching resolved.
func (n *Notifier) IncidentResolved(ctx context.Context, incidentID string) error {
	return n.post(ctx, buildMessage("\U0001f7e2 Incident resolved", incidentID, []field{
		{"Status", "resolved"},
	}))
}

func (n *Notifier) post(ctx context.Context, msg map[string]any) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(msg)
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

type field struct {
	name  string
	value string
}

func buildMessage(title, incidentID string, fields []field) map[string]any {
	fieldBlocks := make([]map[string]any, 0, len(fields))
	for _, f := range fields {
		fieldBlocks = append(fieldBlocks, map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*%s:* %s", f.name, f.value),
		})
	}

	return map[string]any{
		"blocks": []map[string]any{
			{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": title,
				},
			},
			{
				"type":   "section",
				"fields": fieldBlocks,
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": fmt.Sprintf("warden • incident %s • %s", incidentID, time.Now().UTC().Format("2006-01-02 15:04 UTC")),
					},
				},
			},
		},
	}
}

func severityEmoji(severity string) string {
	switch strings.ToLower(severity) {
	case "critical":
		return "\U0001f534" // red circle
	case "warning":
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}
