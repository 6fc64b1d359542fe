package sim

import (
	"github.com/inference-sim/actorsim/sim/trace"
)

// AttachTrace records the lifecycle of every activity and actor of the
// engine into st, according to st.Config.
func (e *Engine) AttachTrace(st *trace.SimulationTrace) {
	if st == nil || !st.Config.Enabled() {
		return
	}
	record := func(ev trace.ActivityEvent) func(Activity) {
		return func(a Activity) {
			b := a.base()
			if !st.Config.Accepts(b.category) {
				return
			}
			st.RecordActivity(trace.ActivityRecord{
				Name:      b.name,
				Kind:      string(b.kind),
				Category:  b.category,
				Clock:     e.clock,
				Event:     ev,
				State:     string(b.state),
				Remaining: a.Remaining(),
			})
		}
	}
	for _, k := range Kinds {
		h := e.Hooks(k)
		h.OnStart.Connect(record(trace.EventStart))
		h.OnVeto.Connect(record(trace.EventVeto))
		h.OnCompletion.Connect(record(trace.EventCompletion))
		if st.Config.Level == trace.TraceLevelFull {
			h.OnSuspend.Connect(record(trace.EventSuspend))
			h.OnResume.Connect(record(trace.EventResume))
		}
	}
	recordActor := func(ev trace.ActorEvent) func(*Actor) {
		return func(a *Actor) {
			st.RecordActor(trace.ActorRecord{
				Name:  a.name,
				Pid:   uint64(a.pid),
				Host:  a.host.name,
				Clock: e.clock,
				Event: ev,
			})
		}
	}
	e.OnActorCreation.Connect(recordActor(trace.EventCreation))
	e.OnActorTermination.Connect(recordActor(trace.EventTermination))
}
