package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"

	steperrors "github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/errors"
)

// RetryConfig holds retry configuration for webhook deliveries.
type RetryConfig struct {
	// MaxAttempts is the maximum number of delivery attempts (default: 3).
	MaxAttempts int

	// Backoff strategy: linear, exponential, fixed (default: exponential).
	Backoff string

	// InitialWait is the initial wait time between retries.
	InitialWait time.Duration
}

func defaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		Backoff:     "exponential",
		InitialWait: 1 * time.Second,
	}
}

func (r *RetryConfig) applyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
	if r.Backoff == "" {
		r.Backoff = "exponential"
	}
	if r.InitialWait == 0 {
		r.InitialWait = 1 * time.Second
	}
}

// wait calculates the sleep duration before the next attempt.
func (r *RetryConfig) wait(attempt int) time.Duration {
	switch strings.ToLower(r.Backoff) {
	case "linear":
		return r.InitialWait * time.Duration(attempt)
	case "exponential":
		multiplier := 1 << (attempt - 1)
		return r.InitialWait * time.Duration(multiplier)
	case "fixed":
		return r.InitialWait
	default:
		return r.InitialWait
	}
}

// postWithRetry delivers payload, retrying failed attempts per the retry
// config. accepted decides which status codes count as success. Responses
// that are not worth retrying (4xx, auth failures) fail immediately.
func postWithRetry(ctx context.Context, client *http.Client, method, targetURL string, headers map[string]string, payload []byte, retry *RetryConfig, accepted func(int) bool) error {
	doSend := func() error {
		req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), targetURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if !accepted(resp.StatusCode) {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		attempts = attempt
		err := doSend()
		if err == nil {
			return nil
		}
		lastErr = err

		if !steperrors.IsRetryable(err) {
			break
		}

		// Don't sleep after the last attempt
		if attempt < retry.MaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retry.wait(attempt)):
			}
		}
	}

	return fmt.Errorf("webhook failed after %d attempts: %w", attempts, lastErr)
}

func acceptedSuccessRange(code int) bool {
	return code >= 200 && code < 300
}

// WebhookConfig holds configuration for generic webhook notifications.
type WebhookConfig struct {
	// Name is a human-readable name for this webhook.
	Name string

	// URL is the webhook endpoint URL.
	URL string

	// Method is the HTTP method to use (default: POST).
	Method string

	// Headers are additional HTTP headers to include.
	Headers map[string]string

	// Events specifies which rollout events trigger notifications.
	// If empty, all events are sent.
	Events []string

	// PayloadTemplate is a Go template for the request body.
	// If empty, a default JSON payload is used.
	PayloadTemplate string

	// Retry configuration.
	Retry *RetryConfig

	// Timeout for the HTTP request.
	Timeout time.Duration
}

// WebhookProvider sends rollout notifications to an arbitrary JSON endpoint.
type WebhookProvider struct {
	config   WebhookConfig
	client   *http.Client
	template *template.Template
}

// NewWebhookProvider creates a new webhook notification provider.
func NewWebhookProvider(config WebhookConfig) *WebhookProvider {
	if config.Method == "" {
		config.Method = "POST"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Retry == nil {
		config.Retry = defaultRetryConfig()
	}
	config.Retry.applyDefaults()

	provider := &WebhookProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}

	if config.PayloadTemplate != "" {
		tmpl, err := template.New("payload").Parse(config.PayloadTemplate)
		if err == nil {
			provider.template = tmpl
		}
	}

	return provider
}

// Name returns the provider name.
func (p *WebhookProvider) Name() string {
	if p.config.Name != "" {
		return "webhook:" + p.config.Name
	}
	return "webhook"
}

// SupportsEvent returns true if this provider handles the given event type.
func (p *WebhookProvider) SupportsEvent(eventType EventType) bool {
	return supportsEvent(p.config.Events, eventType)
}

// Validate checks if the provider configuration is valid.
func (p *WebhookProvider) Validate(ctx context.Context) error {
	if p.config.URL == "" {
		return fmt.Errorf("URL is required")
	}

	parsed, err := url.Parse(p.config.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid URL: %s", p.config.URL)
	}

	method := strings.ToUpper(p.config.Method)
	switch method {
	case "POST", "PUT", "PATCH", "":
	default:
		return fmt.Errorf("invalid method: %s (must be POST, PUT, or PATCH)", p.config.Method)
	}

	if p.config.Retry != nil && p.config.Retry.Backoff != "" {
		switch strings.ToLower(p.config.Retry.Backoff) {
		case "linear", "exponential", "fixed":
		default:
			return fmt.Errorf("invalid backoff strategy: %s (must be linear, exponential, or fixed)", p.config.Retry.Backoff)
		}
	}

	return nil
}

// Send delivers a webhook notification for the given rollout event.
func (p *WebhookProvider) Send(ctx context.Context, event RolloutEvent) error {
	payload, err := p.buildPayload(event)
	if err != nil {
		return fmt.Errorf("failed to build payload: %w", err)
	}

	return postWithRetry(ctx, p.client, p.config.Method, p.config.URL, p.config.Headers, payload, p.config.Retry, acceptedSuccessRange)
}

// webhookTemplateData provides template-friendly access to event data.
type webhookTemplateData struct {
	Type           string
	Package        string
	Track          string
	Release        string
	CurrentPercent float64
	NextPercent    float64
	Timestamp      string
	Metadata       map[string]string
}

// buildPayload creates the request body.
func (p *WebhookProvider) buildPayload(event RolloutEvent) ([]byte, error) {
	if p.template != nil {
		data := webhookTemplateData{
			Type:           string(event.Type),
			Package:        event.PackageName,
			Track:          event.Track,
			Release:        event.ReleaseName,
			CurrentPercent: event.CurrentPercent(),
			NextPercent:    event.NextPercent(),
			Timestamp:      event.Timestamp.Format(time.RFC3339),
			Metadata:       event.Metadata,
		}

		var buf bytes.Buffer
		if err := p.template.Execute(&buf, data); err == nil {
			return buf.Bytes(), nil
		}
		// Fall back to the default payload on template error
	}

	payload := map[string]interface{}{
		"event":           string(event.Type),
		"package_name":    event.PackageName,
		"track":           event.Track,
		"current_percent": event.CurrentPercent(),
		"timestamp":       event.Timestamp.Format(time.RFC3339),
	}

	if event.Type == EventTypeIncrease {
		payload["next_percent"] = event.NextPercent()
	}

	if event.ReleaseName != "" {
		payload["release"] = event.ReleaseName
	}

	if len(event.VersionCodes) > 0 {
		payload["version_codes"] = event.VersionCodes
	}

	if len(event.Metadata) > 0 {
		payload["metadata"] = event.Metadata
	}

	return json.Marshal(payload)
}

// supportsEvent reports whether eventType is in the configured list; an
// empty list means all events.
func supportsEvent(events []string, eventType EventType) bool {
	if len(events) == 0 {
		return true
	}

	eventStr := string(eventType)
	for _, e := range events {
		if strings.EqualFold(e, eventStr) {
			return true
		}
	}
	return false
}
