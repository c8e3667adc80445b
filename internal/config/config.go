// Package config resolves the step's runtime configuration from Bitrise-style
// environment variables and command-line flags.
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	steperrors "github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/errors"
	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/logging"
)

// Config holds the runtime configuration shared across commands.
type Config struct {
	Logger *logging.Logger
	Inputs Inputs
}

// Inputs are the step inputs. Bitrise exports each declared input as an
// environment variable named after the input id; flags override the
// environment.
type Inputs struct {
	// Track is the release channel to inspect (e.g. "production").
	Track string

	// RolloutIncreaseSteps is the raw comma-separated percentage ladder.
	RolloutIncreaseSteps string

	// PackageName is the application package (e.g. "com.example.app").
	PackageName string

	// TeamsWebhookURL is the Microsoft Teams incoming webhook (sensitive).
	TeamsWebhookURL string

	// SlackWebhookURL is an optional Slack incoming webhook (sensitive).
	SlackWebhookURL string

	// ServiceAccountKey is the service-account key input: a path, a file://
	// URL, or the raw JSON document (sensitive).
	ServiceAccountKey string

	// ExtraWebhookURL is an optional generic JSON webhook notified alongside
	// the chat channels, e.g. an audit or automation endpoint (sensitive).
	ExtraWebhookURL string

	// ExtraWebhookTemplate is an optional Go template for the extra webhook
	// request body. Empty means the default JSON payload.
	ExtraWebhookTemplate string

	// IncreaseTimeHint completes the Teams announcement sentence,
	// e.g. "at 11 AM today".
	IncreaseTimeHint string

	// CardNote is an optional extra paragraph for the Teams card.
	CardNote string

	// HaltActionsYAML is an optional YAML list of halt buttons for the card.
	HaltActionsYAML string
}

// FillFromEnv populates any empty input from its step.yml environment
// variable.
func (i *Inputs) FillFromEnv() {
	fromEnv := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}

	fromEnv(&i.Track, "track")
	fromEnv(&i.RolloutIncreaseSteps, "rollout_increase_steps")
	fromEnv(&i.PackageName, "package_name")
	fromEnv(&i.TeamsWebhookURL, "teams_webhook_url")
	fromEnv(&i.SlackWebhookURL, "slack_webhook_url")
	fromEnv(&i.ServiceAccountKey, "service_account_json_key_path")
	fromEnv(&i.ExtraWebhookURL, "extra_webhook_url")
	fromEnv(&i.ExtraWebhookTemplate, "extra_webhook_payload_template")
	fromEnv(&i.IncreaseTimeHint, "increase_time_hint")
	fromEnv(&i.CardNote, "card_note")
	fromEnv(&i.HaltActionsYAML, "halt_actions")
}

// Validate checks that every required input is present.
func (i Inputs) Validate() error {
	required := []struct {
		value, name, hint string
	}{
		{i.Track, "track", "Set the release channel to inspect, e.g. production"},
		{i.RolloutIncreaseSteps, "rollout_increase_steps", "Set a comma-separated percentage list, e.g. 1,20,50,100"},
		{i.PackageName, "package_name", "Set the application package, e.g. com.example.app"},
		{i.TeamsWebhookURL, "teams_webhook_url", "Create an incoming webhook in the Teams channel and paste its URL"},
		{i.ServiceAccountKey, "service_account_json_key_path", "Point this at the Play Console service account JSON key"},
	}

	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return steperrors.InputError{
				Input:      r.name,
				Message:    "required input is missing",
				Suggestion: r.hint,
			}
		}
	}
	return nil
}

// Secrets returns the sensitive input values for log redaction.
func (i Inputs) Secrets() []string {
	return []string{i.TeamsWebhookURL, i.SlackWebhookURL, i.ServiceAccountKey, i.ExtraWebhookURL}
}

// HaltActionConfig is one halt button declared in the halt_actions input.
type HaltActionConfig struct {
	Title   string `yaml:"title"`
	URL     string `yaml:"url"`
	IconURL string `yaml:"icon_url,omitempty"`
}

// HaltActions parses the halt_actions YAML input.
func (i Inputs) HaltActions() ([]HaltActionConfig, error) {
	if strings.TrimSpace(i.HaltActionsYAML) == "" {
		return nil, nil
	}

	var actions []HaltActionConfig
	if err := yaml.Unmarshal([]byte(i.HaltActionsYAML), &actions); err != nil {
		return nil, steperrors.InputError{
			Input:      "halt_actions",
			Message:    "invalid YAML list",
			Suggestion: "Provide a list of {title, url, icon_url} entries",
		}
	}

	for _, action := range actions {
		if action.URL == "" {
			return nil, steperrors.InputError{
				Input:      "halt_actions",
				Value:      action.Title,
				Message:    "halt action is missing a url",
				Suggestion: "Point each halt action at the Play Console track page",
			}
		}
	}

	return actions, nil
}
