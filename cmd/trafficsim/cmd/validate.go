package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/trafficapp/config"
)

var validateScenario bool

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Check schedule documents, or scenarios with --scenario",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0

		for _, path := range args {
			summary, err := validateFile(path)
			if err != nil {
				failed++
				fmt.Fprintf(out, "FAIL %v\n", err)

				continue
			}

			fmt.Fprintf(out, "OK   %s: %s\n", path, summary)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d files are invalid", failed, len(args))
		}

		return nil
	},
}

func validateFile(path string) (string, error) {
	if validateScenario {
		sc, err := config.LoadScenarioFile(path)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%d endpoints", len(sc.Endpoints)), nil
	}

	doc, err := config.LoadScheduleFile(path)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d messages from %s",
		len(doc.MessageList), doc.Sender), nil
}

func init() {
	validateCmd.Flags().BoolVar(&validateScenario, "scenario", false,
		"treat the files as TOML scenarios")

	rootCmd.AddCommand(validateCmd)
}
