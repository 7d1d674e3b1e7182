// Package notify posts data-quality alerts to an operator webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Alert struct {
	TokenID   string         `json:"token_id,omitempty"`
	Severity  Severity       `json:"severity"`
	Title     string         `json:"title"`
	Messages  []string       `json:"messages"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Webhook sends alerts as JSON POST requests. An empty URL disables sending.
type Webhook struct {
	URL        string
	Headers    map[string]string
	RetryCount int
	httpClient *http.Client
	logger     *zap.Logger
}

func NewWebhook(url string, timeout time.Duration, logger *zap.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Webhook{
		URL:        strings.TrimSpace(url),
		RetryCount: 2,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (w *Webhook) Enabled() bool {
	return w != nil && w.URL != ""
}

func (w *Webhook) Notify(ctx context.Context, alert Alert) error {
	if !w.Enabled() {
		return nil
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= w.RetryCount; attempt++ {
		if lastErr = w.send(ctx, body); lastErr == nil {
			return nil
		}
		w.logger.Warn("alert webhook failed",
			zap.Int("attempt", attempt+1), zap.Error(lastErr))
		if attempt == w.RetryCount {
			break
		}
		select {
		case <-time.After(time.Duration(attempt+1) * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("alert webhook failed after retries: %w", lastErr)
}

func (w *Webhook) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.Headers {
		req.Header.Set(k, v)
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
