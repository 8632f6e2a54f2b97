package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

// errRejected marks a request the server refused for domain reasons.
var errRejected = errors.New("rejected")

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenderctl",
		Short: "tenderctl - operator tool for bid evaluation",
		Long: `tenderctl evaluates bid packages offline, checks criteria weights and
seeds a running tender server with a demo package.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newEvaluateCommand())
	cmd.AddCommand(newWeightsCommand())
	cmd.AddCommand(newSeedCommand())

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}
