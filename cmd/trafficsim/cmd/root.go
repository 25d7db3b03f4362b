// Package cmd provides the command-line interface of trafficsim.
package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/skycoin/skycoin/src/util/logging"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// Environment variables read by the CLI. They can also be set in a .env file
// in the working directory.
const (
	EnvLogLevel  = "TRAFFICSIM_LOG_LEVEL"
	EnvOutputDir = "TRAFFICSIM_OUTPUT_DIR"
)

var logLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trafficsim",
	Short: "Run synthetic traffic between simulated endpoints.",
	Long: `trafficsim loads a scenario of endpoints and their message schedules, ` +
		`runs the traffic in virtual time, and exports per-message latency records.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		level := logLevel
		if !cmd.Flags().Changed("log-level") {
			if env, ok := os.LookupEnv(EnvLogLevel); ok {
				level = env
			}
		}

		lvl, err := logging.LevelFromString(level)
		if err != nil {
			return err
		}

		logging.SetLevel(lvl)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level: debug, info, warn, error, fatal or panic")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
