package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/actorsim/sim"
	"github.com/inference-sim/actorsim/sim/dagsched"
)

var (
	// CLI flags for the dag command
	workflowPath string  // Workflow YAML or JSON file, random workflow when empty
	dagHosts     int     // Hosts of the generated platform
	dagSpeed     float64 // Speed of the first host, doubled for each next one
	dagBandwidth float64 // Bandwidth of the link between two hosts
	genConfig    dagsched.GeneratorConfig
	dagLogLevel  string
)

// dagCmd schedules a workflow on a fully connected platform with Min-Min
var dagCmd = &cobra.Command{
	Use:   "dag",
	Short: "Schedule a workflow with the Min-Min heuristic",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(dagLogLevel)

		w, err := loadOrGenerate(workflowPath, genConfig)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		r, err := scheduleWorkflow(w, dagHosts, dagSpeed, dagBandwidth)
		if err != nil {
			logrus.Fatalf("Scheduling workflow %s: %v", w.Name, err)
		}
		printScheduleReport(os.Stdout, w.Name, r)
	},
}

func loadOrGenerate(path string, cfg dagsched.GeneratorConfig) (*dagsched.Workflow, error) {
	if path == "" {
		logrus.Infof("Generating random workflow: %d task(s), seed %d", cfg.Tasks, cfg.Seed)
		return dagsched.Generate(cfg)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening workflow %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return dagsched.LoadWorkflow(f)
}

// scheduleWorkflow builds hosts h0..h(n-1), host i running at speed*2^i,
// each pair joined by its own link, then runs Min-Min on w.
func scheduleWorkflow(w *dagsched.Workflow, hosts int, speed, bandwidth float64) (*dagsched.Report, error) {
	if hosts < 1 {
		return nil, fmt.Errorf("at least one host is needed, got %d", hosts)
	}
	e := sim.NewEngine(sim.EngineConfig{})
	defer e.Shutdown()
	hs := make([]*sim.Host, 0, hosts)
	for i := 0; i < hosts; i++ {
		h, err := e.AddHost(fmt.Sprintf("h%d", i), speed*float64(uint(1)<<i))
		if err != nil {
			return nil, err
		}
		hs = append(hs, h)
	}
	for i := range hs {
		for j := i + 1; j < len(hs); j++ {
			l, err := e.AddLink(fmt.Sprintf("%s-%s", hs[i].Name(), hs[j].Name()), bandwidth)
			if err != nil {
				return nil, err
			}
			if err := e.AddRoute(hs[i], hs[j], l); err != nil {
				return nil, err
			}
		}
	}
	d, err := w.Build(e)
	if err != nil {
		return nil, err
	}
	return dagsched.NewMinMin(e, d).Run()
}

func init() {
	dagCmd.Flags().StringVar(&workflowPath, "workflow", "", "Workflow file (YAML or JSON); a random workflow is generated when empty")
	dagCmd.Flags().IntVar(&dagHosts, "hosts", 3, "Number of hosts")
	dagCmd.Flags().Float64Var(&dagSpeed, "speed", 1, "Speed of the first host, doubled for each next host")
	dagCmd.Flags().Float64Var(&dagBandwidth, "bandwidth", 10, "Bandwidth of each link")
	dagCmd.Flags().StringVar(&dagLogLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	dagCmd.Flags().IntVar(&genConfig.Tasks, "tasks", 20, "Compute tasks of the random workflow")
	dagCmd.Flags().IntVar(&genConfig.MaxWidth, "width", 4, "Maximum compute tasks per layer")
	dagCmd.Flags().Float64Var(&genConfig.MeanFlops, "mean-flops", 10, "Mean computation amount")
	dagCmd.Flags().Float64Var(&genConfig.MeanBytes, "mean-bytes", 10, "Mean transfer size")
	dagCmd.Flags().Float64Var(&genConfig.EdgeProb, "edge-prob", 0.3, "Probability of an edge between consecutive layers")
	dagCmd.Flags().Uint64Var(&genConfig.Seed, "seed", 42, "Seed of the random workflow")
}
