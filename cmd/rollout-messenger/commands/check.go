package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/config"
	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/credentials"
	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/logging"
	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/notifications"
	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/playstore"
	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/rollout"
)

func NewCheckCommand(cfg *config.Config) *cobra.Command {
	var (
		dryRun      bool
		apiEndpoint string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the rollout state and announce the next increase",
		Long: `Check the staged-rollout state of the configured track and post a chat
message announcing the next rollout increase.

Inputs are read from the step environment variables declared in step.yml;
flags override the environment. Completed and halted releases produce no
message.

Examples:
  # Run as the Bitrise step (inputs from the environment)
  rollout-messenger check

  # Render the Teams card without posting it
  rollout-messenger check --dry-run

  # Override inputs locally
  rollout-messenger check --track internal --rollout-steps 10,50,100 \
    --package com.example.app --teams-webhook https://... --credentials key.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Inputs.FillFromEnv()
			cfg.Logger.SetSecrets(cfg.Inputs.Secrets()...)
			if err := cfg.Inputs.Validate(); err != nil {
				return err
			}
			cfg.Logger.Debug("configured webhooks: teams=%s slack=%s extra=%s",
				logging.Secret(cfg.Inputs.TeamsWebhookURL),
				logging.Secret(cfg.Inputs.SlackWebhookURL),
				logging.Secret(cfg.Inputs.ExtraWebhookURL))

			ladder, err := rollout.ParseLadder(cfg.Inputs.RolloutIncreaseSteps)
			if err != nil {
				return err
			}
			cfg.Logger.Info("rollout steps are: %s", ladder)

			key, err := credentials.Resolve(cfg.Inputs.ServiceAccountKey)
			if err != nil {
				return err
			}
			// Removes the materialized key file on every exit path.
			defer func() { _ = key.Close() }()
			cfg.Logger.Debug("authenticating as %s", key.ClientEmail)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			teams, dispatcher, err := buildNotifiers(ctx, cfg)
			if err != nil {
				return err
			}

			playKey := key
			var opts []option.ClientOption
			if apiEndpoint != "" {
				opts = append(opts, option.WithoutAuthentication(), option.WithEndpoint(apiEndpoint))
				playKey = nil
			}
			client, err := playstore.NewClient(ctx, playKey, cfg.Logger, opts...)
			if err != nil {
				return err
			}

			editID, err := client.InsertEdit(ctx, cfg.Inputs.PackageName)
			if err != nil {
				return err
			}
			defer func() {
				if err := client.DeleteEdit(ctx, cfg.Inputs.PackageName, editID); err != nil {
					cfg.Logger.Debug("edit cleanup: %v", err)
				}
			}()

			track, err := client.GetTrack(ctx, cfg.Inputs.PackageName, editID, cfg.Inputs.Track)
			if err != nil {
				return err
			}

			if len(track.Releases) == 0 {
				cfg.Logger.Warn("track '%s' has no releases, skipping messages", cfg.Inputs.Track)
				return nil
			}

			for _, release := range track.Releases {
				cfg.Logger.Info("release '%s' status is: %s", release.Name, release.Status)

				outcome := rollout.Evaluate(release, ladder)
				if !outcome.Notify {
					cfg.Logger.Info("%s", outcome.Reason)
					continue
				}

				event := notifications.RolloutEvent{
					Type:            notifications.EventTypeIncrease,
					PackageName:     cfg.Inputs.PackageName,
					Track:           cfg.Inputs.Track,
					ReleaseName:     release.Name,
					VersionCodes:    release.VersionCodes,
					CurrentFraction: outcome.Current,
					NextFraction:    outcome.Next,
					Metadata:        buildMetadata(),
					Timestamp:       time.Now(),
				}

				if outcome.AtCeiling {
					cfg.Logger.Warn("%s", outcome.Reason)
					event.Type = notifications.EventTypeCeiling
				} else {
					cfg.Logger.Info("announcing rollout increase from %g%% to %g%%",
						event.CurrentPercent(), event.NextPercent())
				}

				if dryRun {
					rendered, err := json.MarshalIndent(teams.BuildMessage(event), "", "  ")
					if err != nil {
						return fmt.Errorf("failed to render message: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(rendered))
					continue
				}

				if err := dispatcher.Send(ctx, event); err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Inputs.Track, "track", "", "Release channel to inspect (overrides $track)")
	cmd.Flags().StringVar(&cfg.Inputs.RolloutIncreaseSteps, "rollout-steps", "", "Comma-separated rollout percentages (overrides $rollout_increase_steps)")
	cmd.Flags().StringVar(&cfg.Inputs.PackageName, "package", "", "Application package name (overrides $package_name)")
	cmd.Flags().StringVar(&cfg.Inputs.TeamsWebhookURL, "teams-webhook", "", "Teams webhook URL (overrides $teams_webhook_url)")
	cmd.Flags().StringVar(&cfg.Inputs.SlackWebhookURL, "slack-webhook", "", "Optional Slack webhook URL (overrides $slack_webhook_url)")
	cmd.Flags().StringVar(&cfg.Inputs.ExtraWebhookURL, "extra-webhook", "", "Optional generic JSON webhook URL (overrides $extra_webhook_url)")
	cmd.Flags().StringVar(&cfg.Inputs.ExtraWebhookTemplate, "extra-webhook-template", "", "Payload template for the extra webhook (overrides $extra_webhook_payload_template)")
	cmd.Flags().StringVar(&cfg.Inputs.ServiceAccountKey, "credentials", "", "Service account key path or JSON (overrides $service_account_json_key_path)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render the Teams card instead of posting it")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "Override the Play API endpoint (testing only)")
	_ = cmd.Flags().MarkHidden("api-endpoint")

	return cmd
}

// buildNotifiers builds the Teams provider plus the dispatcher with every
// configured channel registered.
func buildNotifiers(ctx context.Context, cfg *config.Config) (*notifications.TeamsProvider, *notifications.Dispatcher, error) {
	notifications.InitMetrics()

	haltActions, err := cfg.Inputs.HaltActions()
	if err != nil {
		return nil, nil, err
	}
	actions := make([]notifications.HaltAction, 0, len(haltActions))
	for _, action := range haltActions {
		actions = append(actions, notifications.HaltAction{
			Title:   action.Title,
			URL:     action.URL,
			IconURL: action.IconURL,
		})
	}

	teams := notifications.NewTeamsProvider(notifications.TeamsConfig{
		WebhookURL:       cfg.Inputs.TeamsWebhookURL,
		IncreaseTimeHint: cfg.Inputs.IncreaseTimeHint,
		Note:             cfg.Inputs.CardNote,
		HaltActions:      actions,
	})

	dispatcher := notifications.NewDispatcher(cfg.Logger)
	if err := dispatcher.Register(ctx, teams); err != nil {
		return nil, nil, err
	}

	if cfg.Inputs.SlackWebhookURL != "" {
		slack := notifications.NewSlackProvider(notifications.SlackConfig{
			WebhookURL: cfg.Inputs.SlackWebhookURL,
		})
		if err := dispatcher.Register(ctx, slack); err != nil {
			return nil, nil, err
		}
	}

	if cfg.Inputs.ExtraWebhookURL != "" {
		extra := notifications.NewWebhookProvider(notifications.WebhookConfig{
			Name:            "extra",
			URL:             cfg.Inputs.ExtraWebhookURL,
			PayloadTemplate: cfg.Inputs.ExtraWebhookTemplate,
		})
		if err := dispatcher.Register(ctx, extra); err != nil {
			return nil, nil, err
		}
	}

	return teams, dispatcher, nil
}

// buildMetadata collects Bitrise build context when present.
func buildMetadata() map[string]string {
	metadata := make(map[string]string)
	if buildURL := os.Getenv("BITRISE_BUILD_URL"); buildURL != "" {
		metadata["build_url"] = buildURL
	}
	if appTitle := os.Getenv("BITRISE_APP_TITLE"); appTitle != "" {
		metadata["app_title"] = appTitle
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}
