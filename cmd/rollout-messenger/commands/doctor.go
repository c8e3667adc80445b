package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/config"
	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/credentials"
	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/notifications"
	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/playstore"
	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/rollout"
	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/step"
)

// checkResult is one row of the doctor report.
type checkResult struct {
	Name   string
	Status string
	Detail string
}

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var (
		manifestPath string
		probe        bool
		sendTest     bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check step configuration and connectivity",
		Long: `Verify that the step is properly configured before a pipeline run.

This command checks:
- step.yml manifest validity and required inputs
- rollout_increase_steps syntax
- service account key shape
- webhook URL validity

Use --probe to also open (and abandon) a Play Console edit, and --send-test
to post a test message to the configured webhooks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Inputs.FillFromEnv()
			cfg.Logger.SetSecrets(cfg.Inputs.Secrets()...)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var results []checkResult
			record := func(name string, err error, okDetail string) {
				if err != nil {
					results = append(results, checkResult{Name: name, Status: "error", Detail: err.Error()})
					return
				}
				results = append(results, checkResult{Name: name, Status: "ok", Detail: okDetail})
			}

			// Manifest
			manifest, err := step.Load(manifestPath)
			if err != nil {
				record("step.yml", err, "")
			} else {
				values := map[string]string{
					"track":                         cfg.Inputs.Track,
					"rollout_increase_steps":        cfg.Inputs.RolloutIncreaseSteps,
					"package_name":                  cfg.Inputs.PackageName,
					"teams_webhook_url":             cfg.Inputs.TeamsWebhookURL,
					"slack_webhook_url":             cfg.Inputs.SlackWebhookURL,
					"service_account_json_key_path": cfg.Inputs.ServiceAccountKey,
					"extra_webhook_url":             cfg.Inputs.ExtraWebhookURL,
				}
				// Inputs the manifest declares sensitive must not reach the log.
				for _, id := range manifest.SensitiveInputIDs() {
					cfg.Logger.SetSecrets(values[id])
				}
				record("step.yml", manifest.ValidateValues(values),
					fmt.Sprintf("%d inputs declared", len(manifest.Inputs)))
			}

			// Rollout ladder
			ladder, err := rollout.ParseLadder(cfg.Inputs.RolloutIncreaseSteps)
			if err != nil {
				record("rollout steps", err, "")
			} else {
				record("rollout steps", nil, ladder.String())
			}

			// Credentials
			var key *credentials.Key
			if cfg.Inputs.ServiceAccountKey == "" {
				record("credentials", fmt.Errorf("service_account_json_key_path is not set"), "")
			} else {
				key, err = credentials.Resolve(cfg.Inputs.ServiceAccountKey)
				if err != nil {
					record("credentials", err, "")
				} else {
					defer func() { _ = key.Close() }()
					record("credentials", nil, fmt.Sprintf("service account %s", key.ClientEmail))
				}
			}

			// Webhooks
			_, dispatcher, err := buildNotifiers(ctx, cfg)
			if err != nil {
				record("webhooks", err, "")
			} else {
				names := make([]string, 0, len(dispatcher.Providers()))
				for _, provider := range dispatcher.Providers() {
					names = append(names, provider.Name())
				}
				record("webhooks", nil, fmt.Sprintf("configured: %v", names))

				if sendTest {
					record("webhook test message", dispatcher.Send(ctx, testEvent(cfg)), "delivered")
				}
			}

			// Play API probe
			if probe {
				if key == nil {
					record("play api", fmt.Errorf("no valid credentials to probe with"), "")
				} else if cfg.Inputs.PackageName == "" {
					record("play api", fmt.Errorf("package_name is not set"), "")
				} else {
					client, err := playstore.NewClient(ctx, key, cfg.Logger)
					if err != nil {
						record("play api", err, "")
					} else {
						record("play api", client.ValidateAccess(ctx, cfg.Inputs.PackageName), "edit opened and abandoned")
					}
				}
			}

			// Report
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CHECK\tSTATUS\tDETAIL")
			failed := false
			for _, result := range results {
				if result.Status != "ok" {
					failed = true
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", result.Name, result.Status, result.Detail)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if failed {
				return fmt.Errorf("doctor found problems, see the report above")
			}
			cfg.Logger.Info("all checks passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "step.yml", "Path to the step manifest")
	cmd.Flags().BoolVar(&probe, "probe", false, "Open and abandon a Play Console edit to verify API access")
	cmd.Flags().BoolVar(&sendTest, "send-test", false, "Post a test message to the configured webhooks")
	cmd.Flags().StringVar(&cfg.Inputs.Track, "track", "", "Release channel (overrides $track)")
	cmd.Flags().StringVar(&cfg.Inputs.RolloutIncreaseSteps, "rollout-steps", "", "Rollout percentages (overrides $rollout_increase_steps)")
	cmd.Flags().StringVar(&cfg.Inputs.PackageName, "package", "", "Application package name (overrides $package_name)")
	cmd.Flags().StringVar(&cfg.Inputs.TeamsWebhookURL, "teams-webhook", "", "Teams webhook URL (overrides $teams_webhook_url)")
	cmd.Flags().StringVar(&cfg.Inputs.SlackWebhookURL, "slack-webhook", "", "Slack webhook URL (overrides $slack_webhook_url)")
	cmd.Flags().StringVar(&cfg.Inputs.ExtraWebhookURL, "extra-webhook", "", "Generic JSON webhook URL (overrides $extra_webhook_url)")
	cmd.Flags().StringVar(&cfg.Inputs.ServiceAccountKey, "credentials", "", "Service account key path or JSON (overrides $service_account_json_key_path)")

	return cmd
}

// testEvent is the payload for --send-test deliveries.
func testEvent(cfg *config.Config) notifications.RolloutEvent {
	return notifications.RolloutEvent{
		Type:            notifications.EventTypeIncrease,
		PackageName:     cfg.Inputs.PackageName,
		Track:           cfg.Inputs.Track,
		ReleaseName:     "doctor-test",
		CurrentFraction: 0.2,
		NextFraction:    0.5,
		Timestamp:       time.Now(),
	}
}
