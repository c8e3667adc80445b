package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	adaptiveCardSchema      = "http://adaptivecards.io/schemas/adaptive-card.json"
	adaptiveCardContentType = "application/vnd.microsoft.card.adaptive"
	adaptiveCardVersion     = "1.2"

	defaultCardHeader = "Bitrise"
	defaultCardTitle  = "Google Console Rollout Updater"
	defaultAvatarURL  = "https://classic.battle.net/war3/images/orc/units/portraits/peon.gif"
	defaultAvatarAlt  = "Worker Peon"
)

// HaltAction is an OpenUrl button pointing at a Play Console release page so
// responders can halt the rollout straight from the chat message.
type HaltAction struct {
	// Title is the button label.
	Title string

	// URL is the Play Console track page to open.
	URL string

	// IconURL is an optional button icon.
	IconURL string
}

// TeamsConfig holds configuration for Microsoft Teams webhook notifications.
type TeamsConfig struct {
	// WebhookURL is the Teams incoming webhook or workflow URL.
	WebhookURL string

	// Header is the bold card header (default: "Bitrise").
	Header string

	// Title is the card title next to the avatar.
	Title string

	// AvatarURL is the small image shown beside the title.
	AvatarURL string

	// AvatarAltText is the avatar's alt text.
	AvatarAltText string

	// IncreaseTimeHint completes the announcement sentence, e.g.
	// "at 11 AM today". Empty means "shortly".
	IncreaseTimeHint string

	// Note is an optional extra paragraph appended to the card body.
	Note string

	// HaltActions are rendered as destructive OpenUrl buttons.
	HaltActions []HaltAction

	// Events specifies which rollout events trigger notifications.
	// If empty, all events are sent.
	Events []string

	// Retry configuration.
	Retry *RetryConfig

	// Timeout for the HTTP request.
	Timeout time.Duration
}

// TeamsProvider sends rollout notifications to Microsoft Teams as Adaptive
// Cards.
type TeamsProvider struct {
	config TeamsConfig
	client *http.Client
}

// NewTeamsProvider creates a new Teams notification provider.
func NewTeamsProvider(config TeamsConfig) *TeamsProvider {
	if config.Header == "" {
		config.Header = defaultCardHeader
	}
	if config.Title == "" {
		config.Title = defaultCardTitle
	}
	if config.AvatarURL == "" {
		config.AvatarURL = defaultAvatarURL
	}
	if config.AvatarAltText == "" {
		config.AvatarAltText = defaultAvatarAlt
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Retry == nil {
		config.Retry = defaultRetryConfig()
	}
	config.Retry.applyDefaults()

	return &TeamsProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name.
func (p *TeamsProvider) Name() string {
	return "teams"
}

// SupportsEvent returns true if this provider handles the given event type.
func (p *TeamsProvider) SupportsEvent(eventType EventType) bool {
	return supportsEvent(p.config.Events, eventType)
}

// Validate checks if the provider configuration is valid.
func (p *TeamsProvider) Validate(ctx context.Context) error {
	if p.config.WebhookURL == "" {
		return fmt.Errorf("webhook URL is required")
	}

	parsed, err := url.Parse(p.config.WebhookURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid webhook URL: %s", p.config.WebhookURL)
	}

	for _, action := range p.config.HaltActions {
		if action.URL == "" {
			return fmt.Errorf("halt action '%s' has no URL", action.Title)
		}
	}

	return nil
}

// Send posts an Adaptive Card to Teams for the given rollout event.
// Teams incoming webhooks answer 200, workflow-based webhooks answer 202;
// both count as delivered.
func (p *TeamsProvider) Send(ctx context.Context, event RolloutEvent) error {
	body, err := json.Marshal(p.BuildMessage(event))
	if err != nil {
		return fmt.Errorf("failed to marshal Teams message: %w", err)
	}

	accepted := func(code int) bool {
		return code == http.StatusOK || code == http.StatusAccepted
	}

	return postWithRetry(ctx, p.client, http.MethodPost, p.config.WebhookURL, nil, body, p.config.Retry, accepted)
}

// BuildMessage creates the Teams message envelope with an Adaptive Card
// attachment. Exported so the check command can render it in dry-run mode.
func (p *TeamsProvider) BuildMessage(event RolloutEvent) map[string]interface{} {
	body := []map[string]interface{}{
		{
			"type":   "TextBlock",
			"size":   "Medium",
			"weight": "Bolder",
			"text":   p.config.Header,
		},
		{
			"type": "ColumnSet",
			"columns": []map[string]interface{}{
				{
					"type": "Column",
					"items": []map[string]interface{}{
						{
							"type":    "Image",
							"style":   "Person",
							"url":     p.config.AvatarURL,
							"altText": p.config.AvatarAltText,
							"size":    "Small",
						},
					},
					"width": "auto",
				},
				{
					"type": "Column",
					"items": []map[string]interface{}{
						{
							"type":   "TextBlock",
							"weight": "Bolder",
							"text":   p.config.Title,
							"wrap":   true,
						},
					},
					"width":                    "stretch",
					"verticalContentAlignment": "Center",
				},
			},
		},
		{
			"type": "TextBlock",
			"text": p.announcementText(event),
			"wrap": true,
		},
	}

	if detail := p.releaseDetailText(event); detail != "" {
		body = append(body, map[string]interface{}{
			"type":     "TextBlock",
			"text":     detail,
			"wrap":     true,
			"isSubtle": true,
		})
	}

	if p.config.Note != "" {
		body = append(body, map[string]interface{}{
			"type": "TextBlock",
			"text": p.config.Note,
			"wrap": true,
		})
	}

	card := map[string]interface{}{
		"$schema": adaptiveCardSchema,
		"type":    "AdaptiveCard",
		"version": adaptiveCardVersion,
		"body":    body,
	}

	if len(p.config.HaltActions) > 0 {
		actions := make([]map[string]interface{}, 0, len(p.config.HaltActions))
		for _, halt := range p.config.HaltActions {
			action := map[string]interface{}{
				"type":  "Action.OpenUrl",
				"title": halt.Title,
				"url":   halt.URL,
				"style": "destructive",
			}
			if halt.IconURL != "" {
				action["iconUrl"] = halt.IconURL
			}
			actions = append(actions, action)
		}
		card["actions"] = actions
	}

	return map[string]interface{}{
		"type": "message",
		"attachments": []map[string]interface{}{
			{
				"contentType": adaptiveCardContentType,
				"content":     card,
			},
		},
	}
}

func (p *TeamsProvider) announcementText(event RolloutEvent) string {
	timeHint := p.config.IncreaseTimeHint
	if timeHint == "" {
		timeHint = "shortly"
	}

	if event.Type == EventTypeCeiling {
		return fmt.Sprintf(
			"The staged release of %s on the %s track is at %g%%, which is at or above the highest configured rollout step. No further automatic increase is planned.",
			event.PackageName, event.Track, event.CurrentPercent(),
		)
	}

	return fmt.Sprintf(
		"The current staged release will automatically increase from %g%% to %g%% %s.",
		event.CurrentPercent(), event.NextPercent(), timeHint,
	)
}

func (p *TeamsProvider) releaseDetailText(event RolloutEvent) string {
	if event.ReleaseName == "" && len(event.VersionCodes) == 0 {
		return ""
	}
	detail := fmt.Sprintf("Package: %s, track: %s", event.PackageName, event.Track)
	if event.ReleaseName != "" {
		detail += fmt.Sprintf(", release: %s", event.ReleaseName)
	}
	if len(event.VersionCodes) > 0 {
		detail += fmt.Sprintf(", version codes: %v", event.VersionCodes)
	}
	return detail
}
