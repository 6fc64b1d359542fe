// Package trace provides lifecycle-trace recording for activity and actor analysis.
// It does not import sim/ and only stores plain data.
package trace

// ActivityEvent names a point of an activity's lifecycle.
type ActivityEvent string

const (
	EventStart      ActivityEvent = "start"
	EventVeto       ActivityEvent = "veto"
	EventCompletion ActivityEvent = "completion"
	EventSuspend    ActivityEvent = "suspend"
	EventResume     ActivityEvent = "resume"
)

// ActivityRecord captures a single activity lifecycle event.
type ActivityRecord struct {
	Name      string
	Kind      string
	Category  string
	Clock     float64
	Event     ActivityEvent
	State     string  // state right after the event
	Remaining float64 // work left right after the event
}

// ActorEvent names a point of an actor's lifecycle.
type ActorEvent string

const (
	EventCreation    ActorEvent = "creation"
	EventTermination ActorEvent = "termination"
)

// ActorRecord captures a single actor lifecycle event.
type ActorRecord struct {
	Name  string
	Pid   uint64
	Host  string
	Clock float64
	Event ActorEvent
}
