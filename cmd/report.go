package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/inference-sim/actorsim/sim/dagsched"
	"github.com/inference-sim/actorsim/sim/trace"
)

// printScenarioReport writes the outcome of a scenario run to w.
func printScenarioReport(w io.Writer, world *World, st *trace.SimulationTrace, runErr error) {
	e := world.Engine
	_, _ = fmt.Fprintln(w, "=== Simulation Report ===")
	_, _ = fmt.Fprintf(w, "Engine ID          : %s\n", e.ID())
	_, _ = fmt.Fprintf(w, "Final clock        : %.6f\n", e.Clock())
	status := "completed"
	if runErr != nil {
		status = runErr.Error()
	}
	_, _ = fmt.Fprintf(w, "Status             : %s\n", status)
	_, _ = fmt.Fprintf(w, "Actors alive       : %d\n", e.ActorCount())

	_, _ = fmt.Fprintln(w, "=== Activities ===")
	for _, a := range world.Activities {
		b := a.(interface {
			StartTime() float64
			FinishTime() float64
		})
		_, _ = fmt.Fprintf(w, "%-18s : %-5s %-9s start=%.6f finish=%.6f remaining=%.6f\n",
			a.Name(), a.Kind(), a.State(), b.StartTime(), b.FinishTime(), a.Remaining())
	}

	if st == nil {
		return
	}
	s := trace.Summarize(st)
	_, _ = fmt.Fprintln(w, "=== Trace Summary ===")
	_, _ = fmt.Fprintf(w, "Starts             : %d\n", s.Starts)
	_, _ = fmt.Fprintf(w, "Vetoes             : %d (%d distinct)\n", s.Vetoes, s.VetoedActivities)
	_, _ = fmt.Fprintf(w, "Completions        : %d\n", s.Completions)
	for _, state := range sortedKeys(s.CompletionStates) {
		_, _ = fmt.Fprintf(w, "  %-16s : %d\n", state, s.CompletionStates[state])
	}
	_, _ = fmt.Fprintf(w, "Actors created     : %d\n", s.ActorsCreated)
	_, _ = fmt.Fprintf(w, "Actors terminated  : %d\n", s.ActorsTerminated)
	_, _ = fmt.Fprintf(w, "Makespan           : %.6f\n", s.Makespan)
}

// printScheduleReport writes a workflow schedule to w.
func printScheduleReport(w io.Writer, name string, r *dagsched.Report) {
	_, _ = fmt.Fprintln(w, "=== Workflow Schedule ===")
	_, _ = fmt.Fprintf(w, "Workflow           : %s\n", name)
	_, _ = fmt.Fprintf(w, "Makespan           : %.6f\n", r.Makespan)
	_, _ = fmt.Fprintf(w, "Scheduling rounds  : %d\n", r.Rounds)
	_, _ = fmt.Fprintf(w, "Placed tasks       : %d\n", len(r.Placements))
	for _, p := range r.Placements {
		_, _ = fmt.Fprintf(w, "%-18s : %-8s est=%.6f start=%.6f finish=%.6f\n",
			p.Task, p.Host, p.EstimatedFinish, p.Start, p.Finish)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
