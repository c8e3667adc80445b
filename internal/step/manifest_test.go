package step

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifestFixture = `
title: Google Console Rollout Messenger
summary: Announces phased rollout increases.
project_type_tags:
  - android
inputs:
  - track: production
    opts:
      title: Track
      is_required: true
      value_options:
        - production
        - internal
  - rollout_increase_steps: "1,20,50,100"
    opts:
      title: Rollout increase steps
      is_required: true
  - teams_webhook_url:
    opts:
      title: Teams webhook URL
      is_required: true
      is_sensitive: true
  - card_note:
    opts:
      title: Card note
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "step.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	manifest, err := Load(writeManifest(t, manifestFixture))
	require.NoError(t, err)

	assert.Equal(t, "Google Console Rollout Messenger", manifest.Title)
	assert.Equal(t, []string{"android"}, manifest.ProjectTypeTags)
	require.Len(t, manifest.Inputs, 4)

	track, ok := manifest.Input("track")
	require.True(t, ok)
	assert.Equal(t, "production", track.Default)
	assert.True(t, track.Opts.IsRequired)
	assert.Equal(t, []string{"production", "internal"}, track.Opts.ValueOptions)

	webhook, ok := manifest.Input("teams_webhook_url")
	require.True(t, ok)
	assert.Empty(t, webhook.Default)
	assert.True(t, webhook.Opts.IsSensitive)

	_, ok = manifest.Input("nonexistent")
	assert.False(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "step.yml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "step manifest not found")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeManifest(t, "title: [unclosed"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid YAML")
	})

	t.Run("no inputs", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeManifest(t, "title: Empty step"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "declares no inputs")
	})
}

func TestManifest_SensitiveInputIDs(t *testing.T) {
	t.Parallel()

	manifest, err := Load(writeManifest(t, manifestFixture))
	require.NoError(t, err)
	assert.Equal(t, []string{"teams_webhook_url"}, manifest.SensitiveInputIDs())
}

func TestManifest_ValidateValues(t *testing.T) {
	t.Parallel()

	manifest, err := Load(writeManifest(t, manifestFixture))
	require.NoError(t, err)

	t.Run("all required present", func(t *testing.T) {
		t.Parallel()
		err := manifest.ValidateValues(map[string]string{
			"track":                  "internal",
			"rollout_increase_steps": "5,50",
			"teams_webhook_url":      "https://example.webhook.office.com/hook",
		})
		assert.NoError(t, err)
	})

	t.Run("defaults satisfy required inputs", func(t *testing.T) {
		t.Parallel()
		err := manifest.ValidateValues(map[string]string{
			"teams_webhook_url": "https://example.webhook.office.com/hook",
		})
		assert.NoError(t, err)
	})

	t.Run("missing required input", func(t *testing.T) {
		t.Parallel()
		err := manifest.ValidateValues(map[string]string{"track": "production"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'teams_webhook_url'")
	})

	t.Run("value outside options", func(t *testing.T) {
		t.Parallel()
		err := manifest.ValidateValues(map[string]string{
			"track":             "nightly",
			"teams_webhook_url": "https://example.webhook.office.com/hook",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not one of the declared options")
	})
}

func TestLoad_RepoManifest(t *testing.T) {
	t.Parallel()

	manifest, err := Load(filepath.Join("..", "..", "step.yml"))
	require.NoError(t, err)

	for _, id := range []string{"track", "rollout_increase_steps", "package_name", "teams_webhook_url", "service_account_json_key_path"} {
		input, ok := manifest.Input(id)
		require.True(t, ok, "step.yml must declare input %s", id)
		assert.True(t, input.Opts.IsRequired, "%s must be required", id)
	}

	assert.Contains(t, manifest.SensitiveInputIDs(), "teams_webhook_url")
	assert.Contains(t, manifest.SensitiveInputIDs(), "service_account_json_key_path")
	assert.Contains(t, manifest.SensitiveInputIDs(), "extra_webhook_url")
}
