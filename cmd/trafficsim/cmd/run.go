package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/trafficapp/config"
	"github.com/sarchlab/trafficapp/simulation"
)

var (
	scenarioFile string
	outputDir    string
	noMonitor    bool
	openBrowser  bool
	logEvents    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sc, err := config.LoadScenarioFile(scenarioFile)
		if err != nil {
			return err
		}

		builder := simulation.MakeBuilder().WithScenario(sc)

		dir := outputDir
		if dir == "" {
			dir = os.Getenv(EnvOutputDir)
		}

		if dir != "" {
			builder = builder.WithOutputDir(dir)
		}

		if noMonitor {
			builder = builder.WithoutMonitoring()
		}

		if openBrowser {
			builder = builder.WithBrowser()
		}

		if logEvents {
			builder = builder.WithEventLogging()
		}

		s := builder.Build()
		defer s.Terminate()

		err = s.Run()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s finished at %d ms\n",
			s.Name(), s.Engine().CurrentTime())

		for _, e := range s.Endpoints() {
			fmt.Fprintf(out, "%s: %s\n", e.Name(), e.Counters())
		}

		fmt.Fprintf(out, "average transit %.1f ms over %d messages\n",
			s.Transit().AverageTime(), s.Transit().TotalCount())

		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&scenarioFile, "scenario", "s", "",
		"scenario file in TOML")
	runCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "",
		"directory of the result files, overrides the scenario")
	runCmd.Flags().BoolVar(&noMonitor, "no-monitor", false,
		"do not start the monitoring server")
	runCmd.Flags().BoolVar(&openBrowser, "open-browser", false,
		"open the monitoring page in a browser")
	runCmd.Flags().BoolVar(&logEvents, "log-events", false,
		"log every event at debug level")

	err := runCmd.MarkFlagRequired("scenario")
	if err != nil {
		panic(err)
	}

	rootCmd.AddCommand(runCmd)
}
