package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// SlackConfig holds configuration for Slack webhook notifications.
type SlackConfig struct {
	// WebhookURL is the Slack incoming webhook URL.
	WebhookURL string

	// Channel is the Slack channel to post to (optional, uses webhook default).
	Channel string

	// Events specifies which rollout events trigger notifications.
	// If empty, all events are sent.
	Events []string

	// Retry configuration.
	Retry *RetryConfig
}

// SlackProvider sends rollout notifications to Slack via webhooks.
type SlackProvider struct {
	config SlackConfig
	client *http.Client
}

// NewSlackProvider creates a new Slack notification provider.
func NewSlackProvider(config SlackConfig) *SlackProvider {
	if config.Retry == nil {
		config.Retry = defaultRetryConfig()
	}
	config.Retry.applyDefaults()

	return &SlackProvider{
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the provider name.
func (p *SlackProvider) Name() string {
	return "slack"
}

// SupportsEvent returns true if this provider handles the given event type.
func (p *SlackProvider) SupportsEvent(eventType EventType) bool {
	return supportsEvent(p.config.Events, eventType)
}

// Validate checks if the provider configuration is valid.
func (p *SlackProvider) Validate(ctx context.Context) error {
	if p.config.WebhookURL == "" {
		return fmt.Errorf("webhook URL is required")
	}

	parsed, err := url.Parse(p.config.WebhookURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid webhook URL: %s", p.config.WebhookURL)
	}

	return nil
}

// Send posts a Block Kit message to Slack for the given rollout event.
func (p *SlackProvider) Send(ctx context.Context, event RolloutEvent) error {
	body, err := json.Marshal(p.buildMessage(event))
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	return postWithRetry(ctx, p.client, http.MethodPost, p.config.WebhookURL, nil, body, p.config.Retry, acceptedSuccessRange)
}

// buildMessage creates a Block Kit formatted Slack message.
func (p *SlackProvider) buildMessage(event RolloutEvent) map[string]interface{} {
	var headerText string
	if event.Type == EventTypeCeiling {
		headerText = ":vertical_traffic_light: Rollout at configured ceiling"
	} else {
		headerText = ":rocket: Staged rollout increasing"
	}

	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]interface{}{
				"type":  "plain_text",
				"text":  headerText,
				"emoji": true,
			},
		},
		{
			"type": "section",
			"fields": []map[string]interface{}{
				{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Package:*\n%s", event.PackageName),
				},
				{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Track:*\n%s", event.Track),
				},
			},
		},
	}

	var rolloutText string
	if event.Type == EventTypeCeiling {
		rolloutText = fmt.Sprintf("*Rollout:*\nat %g%%, no higher step configured", event.CurrentPercent())
	} else {
		rolloutText = fmt.Sprintf("*Rollout:*\n%g%% → %g%%", event.CurrentPercent(), event.NextPercent())
	}

	fields := []map[string]interface{}{
		{
			"type": "mrkdwn",
			"text": rolloutText,
		},
	}
	if event.ReleaseName != "" {
		fields = append(fields, map[string]interface{}{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Release:*\n%s", event.ReleaseName),
		})
	}
	blocks = append(blocks, map[string]interface{}{
		"type":   "section",
		"fields": fields,
	})

	blocks = append(blocks, map[string]interface{}{
		"type": "context",
		"elements": []map[string]interface{}{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("Observed at %s", event.Timestamp.Format(time.RFC1123)),
			},
		},
	})

	message := map[string]interface{}{
		"blocks": blocks,
	}
	if p.config.Channel != "" {
		message["channel"] = p.config.Channel
	}

	return message
}
