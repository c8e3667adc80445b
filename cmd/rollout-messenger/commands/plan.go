package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/config"
	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/rollout"
)

func NewPlanCommand(cfg *config.Config) *cobra.Command {
	var current float64

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Validate the rollout ladder and show the next step",
		Long: `Parse the configured rollout increase steps and print the resulting
ladder. With --current, also print the step the rollout would be increased
to next.

Runs entirely locally, useful for validating pipeline configuration before
committing it.

Examples:
  rollout-messenger plan --rollout-steps 1,20,50,100
  rollout-messenger plan --rollout-steps 1,20,50,100 --current 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Inputs.FillFromEnv()

			ladder, err := rollout.ParseLadder(cfg.Inputs.RolloutIncreaseSteps)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rollout ladder: %s\n", ladder)

			if cmd.Flags().Changed("current") {
				if current < 0 || current > 100 {
					return fmt.Errorf("--current must be a percentage between 0 and 100")
				}
				next, ok := ladder.Next(current / 100)
				if !ok {
					fmt.Fprintf(out, "At %g%% the rollout is at or above the highest configured step\n", current)
					return nil
				}
				fmt.Fprintf(out, "At %g%% the next step is %g%%\n", current, next*100)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Inputs.RolloutIncreaseSteps, "rollout-steps", "", "Comma-separated rollout percentages (overrides $rollout_increase_steps)")
	cmd.Flags().Float64Var(&current, "current", 0, "Current rollout percentage to look up")

	return cmd
}
