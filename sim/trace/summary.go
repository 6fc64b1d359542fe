package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	Starts            int
	Vetoes            int
	Completions       int
	VetoedActivities  int            // distinct activities vetoed at least once
	CompletionStates  map[string]int // terminal state → count
	CompletionsByKind map[string]int // activity kind → count
	ActorsCreated     int
	ActorsTerminated  int
	Makespan          float64 // date of the last completion
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		CompletionStates:  make(map[string]int),
		CompletionsByKind: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	vetoed := make(map[string]bool)
	for _, r := range st.Activities {
		switch r.Event {
		case EventStart:
			summary.Starts++
		case EventVeto:
			summary.Vetoes++
			vetoed[r.Kind+"/"+r.Name] = true
		case EventCompletion:
			summary.Completions++
			summary.CompletionStates[r.State]++
			summary.CompletionsByKind[r.Kind]++
			if r.Clock > summary.Makespan {
				summary.Makespan = r.Clock
			}
		}
	}
	summary.VetoedActivities = len(vetoed)

	for _, r := range st.Actors {
		switch r.Event {
		case EventCreation:
			summary.ActorsCreated++
		case EventTermination:
			summary.ActorsTerminated++
		}
	}

	return summary
}
