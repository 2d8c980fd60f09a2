// Package discord implements the notification sender boundary: a rate-limited
// webhook poster for production and a log-only sender for development.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// WebhookSender posts notification messages to a Discord webhook.
type WebhookSender struct {
	httpClient *http.Client
	webhookURL string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewWebhookSender creates a webhook sender with token-bucket rate limiting.
// Returns nil when webhookURL is empty; callers should fall back to the log
// sender.
func NewWebhookSender(webhookURL string, requestsPerSecond float64, logger *slog.Logger) *WebhookSender {
	if webhookURL == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &WebhookSender{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		webhookURL: webhookURL,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:     logger,
	}
}

// webhookPayload is the minimal Discord webhook body.
type webhookPayload struct {
	Content string `json:"content"`
}

// Send posts one message. Discord returns 204 on success; 429 and other
// failures surface as errors for the caller to log.
func (s *WebhookSender) Send(ctx context.Context, profile, message string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(webhookPayload{Content: message})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, snippet)
	}

	s.logger.Debug("notification delivered", "profile", profile, "status", resp.StatusCode)
	return nil
}

// LogSender writes notifications to the log instead of Discord. Used when no
// webhook is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a log-only sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the message and succeeds.
func (s *LogSender) Send(ctx context.Context, profile, message string) error {
	s.logger.Info("notification (log sender)", "profile", profile, "message", message)
	return nil
}
