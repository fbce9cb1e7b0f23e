package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/driftwatch/driftwatch/internal/models"
)

// WebhookConfig holds webhook notifier configuration.
type WebhookConfig struct {
	URL string // endpoint receiving the JSON payload
}

// Validate validates the webhook configuration.
func (c *WebhookConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if !strings.HasPrefix(c.URL, "https://") && !strings.HasPrefix(c.URL, "http://") {
		return fmt.Errorf("webhook URL must be http(s)")
	}
	return nil
}

// WebhookNotifier POSTs alert events as JSON to a configured endpoint.
type WebhookNotifier struct {
	config     WebhookConfig
	httpClient *http.Client
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(config WebhookConfig) (*WebhookNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid webhook config: %w", err)
	}
	return &WebhookNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name returns "webhook".
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// webhookPayload is the wire form of an alert notification.
type webhookPayload struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Source    string `json:"source"`
	Severity  string `json:"severity"`
	State     string `json:"state"`
	Summary   string `json:"summary"`
	Color     string `json:"color"`
	Timestamp string `json:"timestamp"`
}

// Send POSTs the event to the webhook endpoint.
func (w *WebhookNotifier) Send(ctx context.Context, event *models.AlertEvent) error {
	ts := event.CreatedAt
	if event.State == models.AlertStateResolved {
		ts = event.ResolvedAt
	}

	jsonData, err := json.Marshal(webhookPayload{
		ID:        event.ID,
		Subject:   event.Subject,
		Source:    string(event.Source),
		Severity:  string(event.Severity),
		State:     string(event.State),
		Summary:   event.Summary,
		Color:     severityColor(event.Severity, event.State),
		Timestamp: ts.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close is a no-op for the webhook notifier.
func (w *WebhookNotifier) Close() error {
	return nil
}

// severityColor maps severity and state to a display color hint.
func severityColor(severity models.Severity, state models.AlertState) string {
	if state == models.AlertStateResolved {
		return "#2eb886" // green
	}
	switch severity {
	case models.SeverityCritical:
		return "#cc0000"
	case models.SeverityHigh:
		return "#e06000"
	case models.SeverityMedium:
		return "#e0b000"
	default:
		return "#808080"
	}
}
