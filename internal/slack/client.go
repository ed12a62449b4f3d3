// Package slack sends fire-and-forget messages to a Slack incoming-webhook
// URL. Every send is a single attempt with a bounded timeout; callers are
// expected to log and continue on failure.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// DeliveryError reports a notification that did not reach the webhook,
// either because of a transport failure or a non-2xx response.
type DeliveryError struct {
	StatusCode int // zero when the request never completed
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("slack delivery failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("slack delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Field is a single title/value pair in a structured attachment.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// ServiceStatus is one entry in a system status report.
type ServiceStatus struct {
	Name        string
	Status      string // healthy, warning, critical or unknown
	Description string
}

type attachment struct {
	Color  string  `json:"color,omitempty"`
	Title  string  `json:"title,omitempty"`
	Text   string  `json:"text,omitempty"`
	Fields []Field `json:"fields,omitempty"`
	Footer string  `json:"footer,omitempty"`
	Ts     int64   `json:"ts,omitempty"`
}

type message struct {
	Text        string       `json:"text,omitempty"`
	Attachments []attachment `json:"attachments,omitempty"`
}

// Client posts messages to a single pre-shared webhook URL.
type Client struct {
	webhookURL string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a Slack webhook client.
func NewClient(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		now: time.Now,
	}
}

// SendSimpleMessage posts a plain-text message.
func (c *Client) SendSimpleMessage(ctx context.Context, text string) error {
	return c.post(ctx, message{Text: text})
}

// SendDeploymentNotification posts a colored attachment describing a
// deployment outcome. Anything other than "success" renders as a failure.
func (c *Client) SendDeploymentNotification(ctx context.Context, status, version, environment string) error {
	color := "danger"
	if status == "success" {
		color = "good"
	}
	return c.post(ctx, message{
		Attachments: []attachment{{
			Color: color,
			Fields: []Field{{
				Title: "Deployment " + strings.ToUpper(status),
				Value: fmt.Sprintf("Version: %s\nEnvironment: %s", version, environment),
			}},
			Footer: "DevOps Bot",
			Ts:     c.now().Unix(),
		}},
	})
}

// SendAlertNotification posts a colored attachment for a fired alert.
// "critical" renders red; every other severity is treated as warning-tier.
func (c *Client) SendAlertNotification(ctx context.Context, name, severity, description string) error {
	color := "warning"
	if severity == "critical" {
		color = "danger"
	}
	return c.post(ctx, message{
		Attachments: []attachment{{
			Color: color,
			Fields: []Field{{
				Title: "ALERT: " + name,
				Value: fmt.Sprintf("Severity: %s\nDescription: %s", severity, description),
			}},
			Footer: "Monitoring System",
			Ts:     c.now().Unix(),
		}},
	})
}

// SendEnhancedMessage posts a generic structured attachment with
// caller-supplied fields.
func (c *Client) SendEnhancedMessage(ctx context.Context, title, text, color string, fields []Field) error {
	if color == "" {
		color = "good"
	}
	return c.post(ctx, message{
		Attachments: []attachment{{
			Color:  color,
			Title:  title,
			Text:   text,
			Fields: fields,
			Footer: "DevOps Monitor",
			Ts:     c.now().Unix(),
		}},
	})
}

// SendSystemStatus posts a plain-text summary of per-service health.
func (c *Client) SendSystemStatus(ctx context.Context, services []ServiceStatus) error {
	var b strings.Builder
	b.WriteString("*System Status Update*\n\n")
	for _, svc := range services {
		b.WriteString(fmt.Sprintf("[%s] *%s*: %s\n", statusTag(svc.Status), svc.Name, svc.Description))
	}
	return c.SendSimpleMessage(ctx, b.String())
}

// SendMetricsReport posts a plain-text bullet list of metric values. Keys are
// sorted for a stable message body.
func (c *Client) SendMetricsReport(ctx context.Context, metrics map[string]string) error {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("*Performance Metrics Report*\n\n")
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("- *%s*: %s\n", k, metrics[k]))
	}
	return c.SendSimpleMessage(ctx, b.String())
}

func statusTag(status string) string {
	switch status {
	case "healthy":
		return "OK"
	case "warning":
		return "WARN"
	case "critical":
		return "CRIT"
	default:
		return "?"
	}
}

func (c *Client) post(ctx context.Context, msg message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{StatusCode: resp.StatusCode}
	}
	return nil
}
