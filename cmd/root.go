package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	_ "github.com/inference-sim/actorsim/sim/resource"
	"github.com/inference-sim/actorsim/sim/trace"
)

var (
	// CLI flags for the run command
	scenarioPath      string   // Scenario YAML file
	logLevel          string   // Log verbosity level
	workers           int      // Workers resuming actors, overrides the scenario
	simulationHorizon float64  // Simulated date at which the run stops
	traceLevel        string   // Lifecycle trace level
	traceCategories   []string // Tracing categories to record
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "actorsim",
	Short: "Discrete-event simulator of actors and activities on a simulated platform",
}

// runCmd executes a scenario file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)

		if scenarioPath == "" {
			logrus.Fatalf("Scenario file not provided. Exiting simulation.")
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s (valid: none, lifecycle, full)", traceLevel)
		}
		sc, err := LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		cfg := sc.Engine
		if cmd.Flags().Changed("workers") {
			cfg.Workers = workers
		}
		var st *trace.SimulationTrace
		if traceLevel != "" && trace.TraceLevel(traceLevel) != trace.TraceLevelNone {
			st = trace.NewSimulationTrace(trace.TraceConfig{
				Level:      trace.TraceLevel(traceLevel),
				Categories: traceCategories,
			})
		}
		world, err := sc.Build(cfg, st)
		if err != nil {
			logrus.Fatalf("Building scenario: %v", err)
		}
		defer world.Engine.Shutdown()

		logrus.Infof("Starting simulation %s with %d host(s), %d activity(ies), %d actor(s)",
			world.Engine.ID(), len(sc.Hosts), len(world.Activities), len(world.Actors))
		runErr := world.Engine.RunUntil(simulationHorizon)
		if runErr != nil {
			logrus.Warnf("Simulation ended abnormally: %v", runErr)
		}
		printScenarioReport(os.Stdout, world, st, runErr)
		logrus.Info("Simulation complete.")
	},
}

func setLogLevel(name string) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", name)
	}
	logrus.SetLevel(level)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Register flags for subcommands
func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to the scenario YAML file")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().IntVar(&workers, "workers", 1, "Workers resuming actors (1 runs serially)")
	runCmd.Flags().Float64Var(&simulationHorizon, "horizon", -1, "Simulated date at which the run stops (negative runs to the end)")
	runCmd.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelLifecycle), "Trace level (none, lifecycle, full)")
	runCmd.Flags().StringSliceVar(&traceCategories, "trace-category", nil, "Only trace activities of these categories")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dagCmd)
}
