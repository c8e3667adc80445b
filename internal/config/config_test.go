package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeInputs() Inputs {
	return Inputs{
		Track:                "production",
		RolloutIncreaseSteps: "1,20,50,100",
		PackageName:          "com.example.app",
		TeamsWebhookURL:      "https://example.webhook.office.com/hook",
		ServiceAccountKey:    "/bitrise/secrets/key.json",
	}
}

func TestInputs_FillFromEnv(t *testing.T) {
	t.Setenv("track", "internal")
	t.Setenv("rollout_increase_steps", "10,50,100")
	t.Setenv("package_name", "com.example.other")
	t.Setenv("teams_webhook_url", "https://example.webhook.office.com/env")
	t.Setenv("service_account_json_key_path", "/tmp/key.json")
	t.Setenv("increase_time_hint", "at 11 AM today")
	t.Setenv("extra_webhook_url", "https://audit.example.com/hook")

	var inputs Inputs
	inputs.FillFromEnv()

	assert.Equal(t, "internal", inputs.Track)
	assert.Equal(t, "10,50,100", inputs.RolloutIncreaseSteps)
	assert.Equal(t, "com.example.other", inputs.PackageName)
	assert.Equal(t, "https://example.webhook.office.com/env", inputs.TeamsWebhookURL)
	assert.Equal(t, "/tmp/key.json", inputs.ServiceAccountKey)
	assert.Equal(t, "at 11 AM today", inputs.IncreaseTimeHint)
	assert.Equal(t, "https://audit.example.com/hook", inputs.ExtraWebhookURL)
}

func TestInputs_FlagsWinOverEnv(t *testing.T) {
	t.Setenv("track", "internal")

	inputs := Inputs{Track: "production"}
	inputs.FillFromEnv()
	assert.Equal(t, "production", inputs.Track)
}

func TestInputs_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, completeInputs().Validate())

	tests := []struct {
		name   string
		mutate func(*Inputs)
		errMsg string
	}{
		{
			name:   "missing track",
			mutate: func(i *Inputs) { i.Track = "" },
			errMsg: "'track'",
		},
		{
			name:   "missing rollout steps",
			mutate: func(i *Inputs) { i.RolloutIncreaseSteps = " " },
			errMsg: "'rollout_increase_steps'",
		},
		{
			name:   "missing package name",
			mutate: func(i *Inputs) { i.PackageName = "" },
			errMsg: "'package_name'",
		},
		{
			name:   "missing webhook",
			mutate: func(i *Inputs) { i.TeamsWebhookURL = "" },
			errMsg: "'teams_webhook_url'",
		},
		{
			name:   "missing credentials",
			mutate: func(i *Inputs) { i.ServiceAccountKey = "" },
			errMsg: "'service_account_json_key_path'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			inputs := completeInputs()
			tt.mutate(&inputs)
			err := inputs.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Contains(t, err.Error(), "required input is missing")
		})
	}
}

func TestInputs_Secrets(t *testing.T) {
	t.Parallel()

	inputs := completeInputs()
	inputs.SlackWebhookURL = "https://hooks.slack.com/services/T/B/x"
	inputs.ExtraWebhookURL = "https://audit.example.com/hook"
	secrets := inputs.Secrets()
	assert.Contains(t, secrets, inputs.TeamsWebhookURL)
	assert.Contains(t, secrets, inputs.SlackWebhookURL)
	assert.Contains(t, secrets, inputs.ServiceAccountKey)
	assert.Contains(t, secrets, inputs.ExtraWebhookURL)
}

func TestInputs_HaltActions(t *testing.T) {
	t.Parallel()

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		actions, err := Inputs{}.HaltActions()
		require.NoError(t, err)
		assert.Nil(t, actions)
	})

	t.Run("valid list", func(t *testing.T) {
		t.Parallel()
		inputs := Inputs{HaltActionsYAML: `
- title: "BQ: Click here to halt"
  url: https://play.google.com/console/app/bq/tracks/production
  icon_url: https://example.com/bq.png
- title: "TP: Click here to halt"
  url: https://play.google.com/console/app/tp/tracks/production
`}
		actions, err := inputs.HaltActions()
		require.NoError(t, err)
		require.Len(t, actions, 2)
		assert.Equal(t, "BQ: Click here to halt", actions[0].Title)
		assert.Equal(t, "https://example.com/bq.png", actions[0].IconURL)
		assert.Empty(t, actions[1].IconURL)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()
		_, err := Inputs{HaltActionsYAML: "{not a list"}.HaltActions()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid YAML list")
	})

	t.Run("missing url", func(t *testing.T) {
		t.Parallel()
		_, err := Inputs{HaltActionsYAML: "- title: Halt"}.HaltActions()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing a url")
	})
}
