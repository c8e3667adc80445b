package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/cmd/rollout-messenger/commands"
	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/config"
	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Wipe any key material left in protected buffers before exiting.
	defer memguard.Purge()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		memguard.Purge()
		os.Exit(1)
	}
}

func run() error {
	var (
		noColor bool
		debug   bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "rollout-messenger",
		Short: "Announce Google Play phased-rollout increases to a team chat",
		Long: `rollout-messenger checks the staged-rollout percentage of an Android app
on the Play Console and posts a webhook message announcing the next
configured rollout increase.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewCheckCommand(cfg),
		commands.NewPlanCommand(cfg),
		commands.NewDoctorCommand(cfg),
	)

	return rootCmd.Execute()
}
