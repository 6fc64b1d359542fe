package trace

// TraceLevel controls the verbosity of lifecycle tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelLifecycle captures activity starts, vetoes and completions
	// plus actor creations and terminations.
	TraceLevelLifecycle TraceLevel = "lifecycle"
	// TraceLevelFull also captures activity suspensions and resumptions.
	TraceLevelFull TraceLevel = "full"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelLifecycle: true,
	TraceLevelFull:      true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	// Categories restricts activity records to these tracing categories.
	// Empty records every activity.
	Categories []string
}

// Enabled reports whether anything is recorded at all.
func (c TraceConfig) Enabled() bool {
	return c.Level == TraceLevelLifecycle || c.Level == TraceLevelFull
}

// Accepts reports whether an activity of category is recorded.
func (c TraceConfig) Accepts(category string) bool {
	if len(c.Categories) == 0 {
		return true
	}
	for _, cat := range c.Categories {
		if cat == category {
			return true
		}
	}
	return false
}

// SimulationTrace collects lifecycle records during a simulation.
type SimulationTrace struct {
	Config     TraceConfig
	Activities []ActivityRecord
	Actors     []ActorRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:     config,
		Activities: make([]ActivityRecord, 0),
		Actors:     make([]ActorRecord, 0),
	}
}

// RecordActivity appends an activity event record.
func (st *SimulationTrace) RecordActivity(record ActivityRecord) {
	st.Activities = append(st.Activities, record)
}

// RecordActor appends an actor event record.
func (st *SimulationTrace) RecordActor(record ActorRecord) {
	st.Actors = append(st.Actors, record)
}
