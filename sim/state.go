package sim

// ActivityState is the lifecycle position of an Activity.
type ActivityState string

const (
	StateInited   ActivityState = "inited"
	StateStarting ActivityState = "starting"
	StateStarted  ActivityState = "started"
	StateFailed   ActivityState = "failed"
	StateCanceled ActivityState = "canceled"
	StateFinished ActivityState = "finished"
)

// IsTerminal reports whether no further transition is possible from s.
func (s ActivityState) IsTerminal() bool {
	return s == StateFailed || s == StateCanceled || s == StateFinished
}

// ActivityKind names one of the closed set of activity variants.
type ActivityKind string

const (
	KindExec  ActivityKind = "exec"
	KindComm  ActivityKind = "comm"
	KindIo    ActivityKind = "io"
	KindSleep ActivityKind = "sleep"
)

// Kinds lists every activity kind in a stable order.
var Kinds = []ActivityKind{KindExec, KindComm, KindIo, KindSleep}

// ActorState is the externally visible scheduling state of an Actor.
type ActorState string

const (
	ActorCreated   ActorState = "created"
	ActorRunning   ActorState = "running"
	ActorBlocked   ActorState = "blocked"
	ActorSuspended ActorState = "suspended"
	ActorFinished  ActorState = "finished"
)
