package sim

import (
	"github.com/sirupsen/logrus"
)

// Activity is a unit of simulated work. The set of implementations is
// closed: *Exec, *Comm, *Io and the internal *Sleep.
//
// Kernel operations (Start, Cancel, Suspend, Resume, edge edits) must be
// issued by maestro, by kernel callbacks, or by actor code in serial mode.
// Actor code that may run in parallel goes through the Actor methods.
type Activity interface {
	Kind() ActivityKind
	Name() string
	State() ActivityState
	// IsAssigned reports whether the activity has every placement it needs
	// to be started.
	IsAssigned() bool
	Demand() Demand
	DependenciesSolved() bool
	AddSuccessor(b Activity) error
	RemoveSuccessor(b Activity) error
	Successors() []Activity
	Start() error
	Cancel()
	Suspend()
	Resume()
	IsSuspended() bool
	Remaining() float64

	base() *ActivityBase
}

// timerDriven activities progress on the timer heap instead of the
// resource model.
type timerDriven interface {
	arm()
	disarm()
	timeLeft() float64
}

// ActivityBase holds the state machine, the dependency edges and the
// callbacks shared by every activity variant. Variants embed it and pass
// themselves as self so that the base can reach IsAssigned and Demand.
type ActivityBase struct {
	engine   *Engine
	self     Activity
	kind     ActivityKind
	name     string
	category string
	state    ActivityState

	amount     float64
	remains    float64
	startTime  float64
	finishTime float64

	dependencies map[*ActivityBase]struct{}
	successors   []Activity

	suspended bool
	marked    bool
	detached  bool
	owner     *Actor
	waiters   []*Actor
	data      any

	onStart      Signal[Activity]
	onCompletion Signal[Activity]
	onSuspend    Signal[Activity]
	onResume     Signal[Activity]
	onVeto       Signal[Activity]
}

func (b *ActivityBase) init(e *Engine, kind ActivityKind, self Activity, name string, amount float64) {
	if name == "" {
		name = string(kind)
	}
	b.engine = e
	b.self = self
	b.kind = kind
	b.name = name
	b.state = StateInited
	b.amount = amount
	b.startTime = -1
	b.finishTime = -1
	b.dependencies = make(map[*ActivityBase]struct{})
}

func (b *ActivityBase) base() *ActivityBase { return b }

func (b *ActivityBase) Kind() ActivityKind      { return b.kind }
func (b *ActivityBase) Name() string            { return b.name }
func (b *ActivityBase) State() ActivityState    { return b.state }
func (b *ActivityBase) IsSuspended() bool       { return b.suspended }
func (b *ActivityBase) IsDetached() bool        { return b.detached }
func (b *ActivityBase) TracingCategory() string { return b.category }
func (b *ActivityBase) Data() any               { return b.data }
func (b *ActivityBase) SetData(data any)        { b.data = data }

// StartTime returns the date the activity entered StateStarted, or -1.
func (b *ActivityBase) StartTime() float64 { return b.startTime }

// FinishTime returns the date the activity reached a terminal state, or -1.
func (b *ActivityBase) FinishTime() float64 { return b.finishTime }

// Mark, Unmark and IsMarked give graph traversals a scratch bit.
func (b *ActivityBase) Mark()          { b.marked = true }
func (b *ActivityBase) Unmark()        { b.marked = false }
func (b *ActivityBase) IsMarked() bool { return b.marked }

// SetName renames the activity. Only allowed before the first Start.
func (b *ActivityBase) SetName(name string) error {
	if b.state != StateInited {
		return ErrActivityStarted.GenWithStackByArgs("name", b.name, b.state)
	}
	b.name = name
	return nil
}

// SetTracingCategory tags the activity for tracing. Only allowed before the first Start.
func (b *ActivityBase) SetTracingCategory(category string) error {
	if b.state != StateInited {
		return ErrActivityStarted.GenWithStackByArgs("tracing category", b.name, b.state)
	}
	b.category = category
	return nil
}

func (b *ActivityBase) setAmount(what string, amount float64) error {
	if b.state != StateInited {
		return ErrActivityStarted.GenWithStackByArgs(what, b.name, b.state)
	}
	b.amount = amount
	return nil
}

// Remaining returns the work left: the initial amount before the start,
// the live value while started, and the value frozen at termination.
func (b *ActivityBase) Remaining() float64 {
	switch {
	case b.state == StateStarted:
		return b.engine.remainingOf(b.self)
	case b.state.IsTerminal():
		return b.remains
	default:
		return b.amount
	}
}

// DependenciesSolved reports whether no predecessor is pending.
func (b *ActivityBase) DependenciesSolved() bool { return len(b.dependencies) == 0 }

// DependencyCount returns the number of pending predecessors.
func (b *ActivityBase) DependencyCount() int { return len(b.dependencies) }

// Dependencies returns the pending predecessors, in no particular order.
func (b *ActivityBase) Dependencies() []Activity {
	out := make([]Activity, 0, len(b.dependencies))
	for pred := range b.dependencies {
		out = append(out, pred.self)
	}
	return out
}

// Successors returns a copy of the successor list in insertion order.
func (b *ActivityBase) Successors() []Activity {
	out := make([]Activity, len(b.successors))
	copy(out, b.successors)
	return out
}

// AddSuccessor makes next depend on b.
func (b *ActivityBase) AddSuccessor(next Activity) error {
	b.engine.checkKernel()
	nb := next.base()
	if nb == b {
		return ErrSelfDependency.GenWithStackByArgs(b.name)
	}
	if _, ok := nb.dependencies[b]; ok {
		return ErrDuplicateEdge.GenWithStackByArgs(nb.name, b.name)
	}
	b.successors = append(b.successors, next)
	nb.dependencies[b] = struct{}{}
	return nil
}

// RemoveSuccessor deletes the edge from b to next.
func (b *ActivityBase) RemoveSuccessor(next Activity) error {
	b.engine.checkKernel()
	nb := next.base()
	if nb == b {
		return ErrSelfDependency.GenWithStackByArgs(b.name)
	}
	if !b.dropSuccessor(nb) {
		return ErrNoSuchEdge.GenWithStackByArgs(nb.name, b.name)
	}
	delete(nb.dependencies, b)
	return nil
}

func (b *ActivityBase) dropSuccessor(nb *ActivityBase) bool {
	for i, s := range b.successors {
		if s.base() == nb {
			b.successors = append(b.successors[:i], b.successors[i+1:]...)
			return true
		}
	}
	return false
}

// Start asks for the activity to run. It becomes started when every
// dependency is solved and it is assigned; otherwise it stays starting and
// is vetoed. A vetoed activity can be started again later.
func (b *ActivityBase) Start() error {
	b.engine.checkKernel()
	if b.state != StateInited && b.state != StateStarting {
		return ErrInvalidState.GenWithStackByArgs(b.name, b.state)
	}
	b.state = StateStarting
	if b.DependenciesSolved() && b.self.IsAssigned() {
		b.doStart()
	} else {
		b.veto()
	}
	return nil
}

func (b *ActivityBase) doStart() {
	e := b.engine
	b.state = StateStarted
	b.startTime = e.clock
	if e.vetoSink != nil {
		e.vetoSink.Remove(b.self)
	}
	e.track(b.self)
	logrus.Debugf("[t=%.6f] %s %s started", e.clock, b.kind, b.name)
	e.Hooks(b.kind).OnStart.fire(b.self)
	b.onStart.fire(b.self)
}

func (b *ActivityBase) veto() {
	e := b.engine
	logrus.Debugf("[t=%.6f] %s %s vetoed (pending deps=%d, assigned=%v)",
		e.clock, b.kind, b.name, len(b.dependencies), b.self.IsAssigned())
	if e.vetoSink != nil {
		e.vetoSink.Add(b.self)
	}
	e.Hooks(b.kind).OnVeto.fire(b.self)
	b.onVeto.fire(b.self)
}

// Cancel forces the activity to StateCanceled. Its dependency edges are
// released but successors are not started. Canceling a terminal activity
// is a no-op.
func (b *ActivityBase) Cancel() {
	e := b.engine
	e.checkKernel()
	if b.state.IsTerminal() {
		return
	}
	remains := b.Remaining()
	switch b.state {
	case StateStarted:
		e.untrack(b.self)
	case StateStarting:
		if e.vetoSink != nil {
			e.vetoSink.Remove(b.self)
		}
	}
	for pred := range b.dependencies {
		pred.dropSuccessor(b)
	}
	b.dependencies = make(map[*ActivityBase]struct{})
	b.complete(StateCanceled, remains)
}

// Suspend pauses the activity. Its progress is frozen until Resume.
func (b *ActivityBase) Suspend() {
	e := b.engine
	e.checkKernel()
	if b.suspended || b.state.IsTerminal() {
		return
	}
	b.suspended = true
	if b.state == StateStarted {
		if t, ok := b.self.(timerDriven); ok {
			t.disarm()
		} else {
			e.model.NotifySuspended(b.self)
		}
	}
	e.Hooks(b.kind).OnSuspend.fire(b.self)
	b.onSuspend.fire(b.self)
}

// Resume undoes Suspend.
func (b *ActivityBase) Resume() {
	e := b.engine
	e.checkKernel()
	if !b.suspended || b.state.IsTerminal() {
		return
	}
	b.suspended = false
	if b.state == StateStarted {
		if t, ok := b.self.(timerDriven); ok {
			t.arm()
		} else {
			e.model.NotifyResumed(b.self)
		}
	}
	e.Hooks(b.kind).OnResume.fire(b.self)
	b.onResume.fire(b.self)
}

// Detach declares that nobody will wait for the activity. It is dropped
// from its owner's activities and started if it was never started.
func (b *ActivityBase) Detach() error {
	b.detached = true
	if b.owner != nil {
		b.owner.forget(b)
	}
	if b.state == StateInited {
		return b.Start()
	}
	return nil
}

// complete moves the activity to a terminal state. On StateFinished the
// successors lose this dependency and those left without any are started.
func (b *ActivityBase) complete(state ActivityState, remains float64) {
	if b.state.IsTerminal() {
		return
	}
	e := b.engine
	b.state = state
	b.remains = remains
	b.finishTime = e.clock
	if b.owner != nil {
		b.owner.forget(b)
	}
	logrus.Debugf("[t=%.6f] %s %s %s", e.clock, b.kind, b.name, state)
	e.Hooks(b.kind).OnCompletion.fire(b.self)
	b.onCompletion.fire(b.self)
	switch state {
	case StateFinished:
		b.releaseDependencies(true)
	case StateCanceled:
		b.releaseDependencies(false)
	}
	b.wakeWaiters()
}

func (b *ActivityBase) releaseDependencies(cascade bool) {
	successors := b.successors
	b.successors = nil
	for _, next := range successors {
		nb := next.base()
		delete(nb.dependencies, b)
		if !cascade || !nb.DependenciesSolved() {
			continue
		}
		if nb.state == StateInited || nb.state == StateStarting {
			if err := next.Start(); err != nil {
				logrus.Warnf("[t=%.6f] cascade start of %s: %v", b.engine.clock, nb.name, err)
			}
		}
	}
}

// result is what a waiter observes once the activity is terminal.
func (b *ActivityBase) result() error {
	switch b.state {
	case StateCanceled:
		return ErrCanceled.GenWithStackByArgs(b.name)
	case StateFailed:
		return ErrFailed.GenWithStackByArgs(b.name)
	}
	return nil
}

func (b *ActivityBase) wakeWaiters() {
	waiters := b.waiters
	b.waiters = nil
	err := b.result()
	for _, a := range waiters {
		b.engine.wake(a, err)
	}
}

func (b *ActivityBase) dropWaiter(a *Actor) {
	for i, w := range b.waiters {
		if w == a {
			b.waiters = append(b.waiters[:i], b.waiters[i+1:]...)
			return
		}
	}
}

// Per-instance callbacks. They fire after the kind-wide hooks of the same event.

func (b *ActivityBase) OnStart(slot func(Activity))      { b.onStart.Connect(slot) }
func (b *ActivityBase) OnCompletion(slot func(Activity)) { b.onCompletion.Connect(slot) }
func (b *ActivityBase) OnSuspend(slot func(Activity))    { b.onSuspend.Connect(slot) }
func (b *ActivityBase) OnResume(slot func(Activity))     { b.onResume.Connect(slot) }
func (b *ActivityBase) OnVeto(slot func(Activity))       { b.onVeto.Connect(slot) }
