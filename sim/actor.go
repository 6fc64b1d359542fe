package sim

import (
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/sirupsen/logrus"
)

// Pid identifies an actor. Pid 0 is maestro.
type Pid uint64

// ActorCode is the entry function of an actor. It receives its own handle,
// through which every blocking operation is issued.
type ActorCode func(self *Actor)

// actorTemplate keeps what is needed to recreate an actor.
type actorTemplate struct {
	name        string
	host        *Host
	code        ActorCode
	daemon      bool
	autoRestart bool
	killTime    float64
	props       map[string]string
	onExit      []func(failed bool)
}

// Actor is a simulated sequential process running on a host. Its code runs
// in its own Context and blocks only through the Actor methods.
//
// Methods documented as actor-side must be called from the actor's own
// code. The others are kernel operations: call them from maestro, from
// kernel callbacks, or from actor code in serial mode (Kernel wraps them
// for parallel mode).
type Actor struct {
	engine  *Engine
	pid     Pid
	ppid    Pid
	name    string
	host    *Host
	code    ActorCode
	context *Context
	props   map[string]string

	daemon      bool
	autoRestart bool
	wannaDie    bool
	suspended   bool
	scheduled   bool
	finished    bool

	waitingOn    Activity
	timeoutTimer *Timer
	killTimer    *Timer
	killTime     float64

	// outcome of the last blocking operation
	result error
	// simcall deferred to the barrier in parallel mode
	pending func() (bool, error)

	activities []Activity
	onExit     []func(failed bool)
}

func (a *Actor) Pid() Pid          { return a.pid }
func (a *Actor) PPid() Pid         { return a.ppid }
func (a *Actor) Name() string      { return a.name }
func (a *Actor) Host() *Host       { return a.host }
func (a *Actor) Engine() *Engine   { return a.engine }
func (a *Actor) IsDaemon() bool    { return a.daemon }
func (a *Actor) KillTime() float64 { return a.killTime }

// Clock returns the current simulated date.
func (a *Actor) Clock() float64 { return a.engine.clock }

// WaitingOn returns the activity the actor is blocked on, or nil.
func (a *Actor) WaitingOn() Activity { return a.waitingOn }

// State returns the scheduling state of the actor.
func (a *Actor) State() ActorState {
	switch {
	case a.finished:
		return ActorFinished
	case a.suspended:
		return ActorSuspended
	case a.waitingOn != nil:
		return ActorBlocked
	case !a.context.started:
		return ActorCreated
	}
	return ActorRunning
}

// Property returns a user property, or "" if unset.
func (a *Actor) Property(key string) string { return a.props[key] }

// SetProperty sets a user property.
func (a *Actor) SetProperty(key, value string) {
	if a.props == nil {
		a.props = make(map[string]string)
	}
	a.props[key] = value
}

// IsAlive reports whether the actor neither finished nor was asked to die.
func (a *Actor) IsAlive() bool { return !a.dead() }

func (a *Actor) dead() bool { return a.wannaDie || a.finished }

func (a *Actor) template() *actorTemplate {
	props := make(map[string]string, len(a.props))
	for k, v := range a.props {
		props[k] = v
	}
	return &actorTemplate{
		name:        a.name,
		host:        a.host,
		code:        a.code,
		daemon:      a.daemon,
		autoRestart: a.autoRestart,
		killTime:    a.killTime,
		props:       props,
		onExit:      append([]func(bool){}, a.onExit...),
	}
}

func (a *Actor) own(b *ActivityBase) {
	if b.detached || b.owner == a {
		return
	}
	b.owner = a
	a.activities = append(a.activities, b.self)
}

func (a *Actor) forget(b *ActivityBase) {
	if b.owner != a {
		return
	}
	b.owner = nil
	for i, act := range a.activities {
		if act.base() == b {
			a.activities = append(a.activities[:i], a.activities[i+1:]...)
			return
		}
	}
}

// runOnce resumes the actor if it is still due to run.
func (a *Actor) runOnce() {
	if !a.scheduled || a.context.finished {
		return
	}
	a.scheduled = false
	a.context.resume()
}

// ---- kernel operations ----

// Kill asks the actor to terminate. The actor unwinds at its next
// resumption; an activity it was blocked on is detached from it, not
// canceled. Killing a terminated actor is a no-op.
func (a *Actor) Kill() {
	e := a.engine
	e.checkKernel()
	if a.dead() {
		return
	}
	logrus.Debugf("[t=%.6f] killing actor %s (pid %d)", e.clock, a.name, a.pid)
	a.wannaDie = true
	a.suspended = false
	if act := a.waitingOn; act != nil {
		b := act.base()
		b.dropWaiter(a)
		a.forget(b)
		a.waitingOn = nil
		if s, ok := act.(*Sleep); ok {
			s.Cancel()
		}
	}
	a.timeoutTimer.Remove()
	a.timeoutTimer = nil
	e.scheduleActor(a)
}

// Suspend stops scheduling the actor and suspends its activities until Resume.
func (a *Actor) Suspend() {
	a.engine.checkKernel()
	if a.dead() || a.suspended {
		return
	}
	logrus.Debugf("[t=%.6f] suspending actor %s (pid %d)", a.engine.clock, a.name, a.pid)
	a.suspended = true
	for _, act := range a.activities {
		act.Suspend()
	}
	if a.waitingOn != nil && a.waitingOn.base().owner != a {
		a.waitingOn.Suspend()
	}
}

// Resume undoes Suspend.
func (a *Actor) Resume() {
	e := a.engine
	e.checkKernel()
	if a.dead() || !a.suspended {
		return
	}
	logrus.Debugf("[t=%.6f] resuming actor %s (pid %d)", e.clock, a.name, a.pid)
	a.suspended = false
	for _, act := range a.activities {
		act.Resume()
	}
	if a.waitingOn != nil && a.waitingOn.base().owner != a {
		a.waitingOn.Resume()
	}
	if a.waitingOn == nil {
		e.scheduleActor(a)
	}
}

// SetHost migrates the actor. Its running activities stay where they are.
func (a *Actor) SetHost(h *Host) error {
	a.engine.checkKernel()
	if a.dead() {
		return ErrActorDead.GenWithStackByArgs(a.name, a.pid)
	}
	if h == nil {
		return fmt.Errorf("actor %s: nil host", a.name)
	}
	delete(a.host.actors, a.pid)
	a.host = h
	h.actors[a.pid] = a
	return nil
}

// OnExit registers a callback run once at termination, in registration
// order. failed is true when the actor was killed.
func (a *Actor) OnExit(cb func(failed bool)) error {
	if a.finished {
		return ErrActorDead.GenWithStackByArgs(a.name, a.pid)
	}
	a.onExit = append(a.onExit, cb)
	return nil
}

// Daemonize marks the actor as a daemon: it is killed as soon as only
// daemons remain.
func (a *Actor) Daemonize() {
	if a.daemon || a.dead() {
		return
	}
	a.daemon = true
	a.engine.daemons++
}

// SetAutoRestart makes the actor be recreated when its host turns back on
// after a failure.
func (a *Actor) SetAutoRestart(autoRestart bool) { a.autoRestart = autoRestart }

// SetKillTime schedules the actor's death at date. A non-positive date
// removes the deadline.
func (a *Actor) SetKillTime(date float64) {
	e := a.engine
	a.killTimer.Remove()
	a.killTimer = nil
	a.killTime = date
	if date <= 0 || a.dead() {
		return
	}
	a.killTimer = e.timers.Schedule(math.Max(date, e.clock), func() {
		a.killTimer = nil
		logrus.Debugf("[t=%.6f] kill time of actor %s (pid %d) reached", e.clock, a.name, a.pid)
		a.Kill()
	})
}

// Restart kills the actor and starts a fresh copy with the same code,
// host, properties and exit callbacks.
func (a *Actor) Restart() (*Actor, error) {
	a.engine.checkKernel()
	if a.dead() {
		return nil, ErrActorDead.GenWithStackByArgs(a.name, a.pid)
	}
	tpl := a.template()
	a.Kill()
	return a.engine.spawn(tpl, a.ppid)
}

// ---- actor-side operations ----

// simcall runs fn in the kernel. In serial mode fn runs right away; in
// parallel mode it runs at the next barrier, in a stable order. If fn
// reports that the call is not done, the actor stays blocked until the
// kernel wakes it up with a result.
func (a *Actor) simcall(fn func() (bool, error)) error {
	a.result = nil
	if !a.engine.deferSimcalls {
		done, err := fn()
		if a.wannaDie {
			runtime.Goexit()
		}
		if done {
			return err
		}
		a.park()
		return a.result
	}
	a.pending = fn
	a.park()
	return a.result
}

// park suspends the actor's context until the kernel resumes it. It
// unwinds the actor if it was killed meanwhile.
func (a *Actor) park() {
	a.context.suspend()
	for {
		if a.wannaDie {
			runtime.Goexit()
		}
		if !a.suspended {
			return
		}
		a.context.suspend()
	}
}

// Kernel runs fn as a kernel operation. Actor-side.
func (a *Actor) Kernel(fn func()) {
	_ = a.simcall(func() (bool, error) {
		fn()
		return true, nil
	})
}

// Start starts act on behalf of the actor, which then owns it until it
// completes or is detached. Actor-side.
func (a *Actor) Start(act Activity) error {
	return a.simcall(func() (bool, error) {
		if act.State() == StateInited {
			a.own(act.base())
		}
		return true, act.Start()
	})
}

// Cancel cancels act. Actor-side.
func (a *Actor) Cancel(act Activity) {
	a.Kernel(act.Cancel)
}

// Detach gives up act: nobody will wait for it. Actor-side.
func (a *Actor) Detach(act Activity) error {
	return a.simcall(func() (bool, error) {
		return true, act.base().Detach()
	})
}

// Test starts act if needed and reports whether it is over. Actor-side.
func (a *Actor) Test(act Activity) bool {
	var over bool
	a.Kernel(func() {
		if act.State() == StateInited {
			a.own(act.base())
			_ = act.Start()
		}
		over = act.State().IsTerminal()
	})
	return over
}

// Wait blocks until act is over. act is started first if it never was.
// Actor-side.
func (a *Actor) Wait(act Activity) error {
	return a.wait(act, -1, false)
}

// WaitFor is Wait with a timeout in simulated seconds. A negative timeout
// never expires; a zero timeout still sees completions happening at the
// current date. Actor-side.
func (a *Actor) WaitFor(act Activity, timeout float64) error {
	return a.wait(act, timeout, false)
}

// WaitUntil is Wait with an absolute deadline. Actor-side.
func (a *Actor) WaitUntil(act Activity, date float64) error {
	return a.wait(act, math.Max(0, date-a.engine.clock), false)
}

// WaitForOrCancel is WaitFor that cancels act when the timeout expires.
// Actor-side.
func (a *Actor) WaitForOrCancel(act Activity, timeout float64) error {
	return a.wait(act, timeout, true)
}

func (a *Actor) wait(act Activity, timeout float64, cancelOnTimeout bool) error {
	return a.simcall(func() (bool, error) {
		return a.engine.registerWait(a, act, timeout, cancelOnTimeout)
	})
}

// Sleep blocks the actor for duration simulated seconds. Actor-side.
func (a *Actor) Sleep(duration float64) {
	s := a.engine.newSleep("sleep", math.Max(0, duration))
	_ = a.Wait(s)
}

// SleepUntil blocks the actor until date. Actor-side.
func (a *Actor) SleepUntil(date float64) {
	a.Sleep(date - a.engine.clock)
}

// Yield lets the other ready actors run before continuing. Actor-side.
func (a *Actor) Yield() {
	_ = a.simcall(func() (bool, error) {
		a.engine.scheduleActor(a)
		return false, nil
	})
}

// Execute runs flops on the actor's host and waits for them. Actor-side.
func (a *Actor) Execute(flops float64) error {
	x := a.engine.NewExec("exec", flops)
	x.host = a.host
	return a.Wait(x)
}

// Join blocks until target terminates or timeout expires. A negative
// timeout never expires. Joining a terminated actor returns at once.
// Actor-side.
func (a *Actor) Join(target *Actor, timeout float64) error {
	if target == a {
		return fmt.Errorf("actor %s (pid %d) cannot join itself", a.name, a.pid)
	}
	return a.simcall(func() (bool, error) {
		if target.finished {
			return true, nil
		}
		s := a.engine.newSleep(fmt.Sprintf("join %s", target.name), -1)
		target.onExit = append(target.onExit, func(bool) { s.finish() })
		return a.engine.registerWait(a, s, timeout, true)
	})
}

// Spawn creates a child actor. Actor-side.
func (a *Actor) Spawn(name string, host *Host, code ActorCode) (*Actor, error) {
	var child *Actor
	err := a.simcall(func() (bool, error) {
		var err error
		child, err = a.engine.spawn(&actorTemplate{name: name, host: host, code: code}, a.pid)
		return true, err
	})
	return child, err
}

// Exit terminates the calling actor. Actor-side; never returns.
func (a *Actor) Exit() {
	a.Kernel(a.Kill)
	runtime.Goexit()
}

// SuspendSelf suspends the calling actor until someone resumes it. Actor-side.
func (a *Actor) SuspendSelf() {
	_ = a.simcall(func() (bool, error) {
		a.Suspend()
		return false, nil
	})
}

// ---- engine side ----

// CreateActor starts a new actor running code on host. The actor first
// runs at the next run phase.
func (e *Engine) CreateActor(name string, host *Host, code ActorCode) (*Actor, error) {
	e.checkKernel()
	return e.spawn(&actorTemplate{name: name, host: host, code: code}, 0)
}

func (e *Engine) spawn(tpl *actorTemplate, ppid Pid) (*Actor, error) {
	if tpl.host == nil {
		return nil, fmt.Errorf("actor %s: nil host", tpl.name)
	}
	if !tpl.host.on {
		return nil, ErrHostFailure.GenWithStackByArgs(tpl.host.name)
	}
	if tpl.code == nil {
		return nil, fmt.Errorf("actor %s: nil code", tpl.name)
	}
	e.nextPid++
	a := &Actor{
		engine:      e,
		pid:         e.nextPid,
		ppid:        ppid,
		name:        tpl.name,
		host:        tpl.host,
		code:        tpl.code,
		props:       tpl.props,
		autoRestart: tpl.autoRestart,
		onExit:      tpl.onExit,
	}
	a.context = newContext(a)
	e.actors[a.pid] = a
	tpl.host.actors[a.pid] = a
	if tpl.daemon {
		a.Daemonize()
	}
	if tpl.killTime > 0 {
		a.SetKillTime(tpl.killTime)
	}
	logrus.Debugf("[t=%.6f] created actor %s (pid %d) on %s", e.clock, a.name, a.pid, a.host.name)
	e.OnActorCreation.fire(a)
	e.scheduleActor(a)
	return a, nil
}

// registerWait blocks a on act unless act is already over.
func (e *Engine) registerWait(a *Actor, act Activity, timeout float64, cancelOnTimeout bool) (bool, error) {
	b := act.base()
	if b.state == StateInited {
		a.own(b)
		if err := act.Start(); err != nil {
			return true, err
		}
	}
	if b.state.IsTerminal() {
		return true, b.result()
	}
	a.waitingOn = act
	b.waiters = append(b.waiters, a)
	if timeout >= 0 {
		a.timeoutTimer = e.timers.Schedule(e.clock+timeout, func() {
			a.timeoutTimer = nil
			if a.waitingOn != act {
				return
			}
			b.dropWaiter(a)
			a.waitingOn = nil
			a.result = ErrTimeout.GenWithStackByArgs(b.name)
			logrus.Debugf("[t=%.6f] actor %s timed out on %s", e.clock, a.name, b.name)
			e.scheduleActor(a)
			if cancelOnTimeout {
				act.Cancel()
			}
		})
	}
	return false, nil
}

// wake unblocks a actor waiting on a terminated activity.
func (e *Engine) wake(a *Actor, err error) {
	if a.waitingOn == nil {
		return
	}
	a.waitingOn = nil
	a.timeoutTimer.Remove()
	a.timeoutTimer = nil
	a.result = err
	e.scheduleActor(a)
}

// scheduleActor appends a to the ready queue once.
func (e *Engine) scheduleActor(a *Actor) {
	if a.scheduled || a.finished || a.context.finished {
		return
	}
	if a.suspended && !a.wannaDie {
		return
	}
	a.scheduled = true
	e.toRun.PushBack(a)
}

// cleanupActor tears down an actor whose context finished.
func (e *Engine) cleanupActor(a *Actor) {
	if a.finished {
		return
	}
	a.finished = true
	failed := a.wannaDie
	if p := a.context.panicked; p != nil {
		failed = true
		logrus.Errorf("[t=%.6f] actor %s (pid %d) panicked: %v", e.clock, a.name, a.pid, p)
		if e.fatal == nil {
			e.fatal = ErrActorPanic.GenWithStackByArgs(a.name, a.pid, p)
		}
	}
	a.killTimer.Remove()
	a.killTimer = nil
	a.timeoutTimer.Remove()
	a.timeoutTimer = nil

	owned := a.activities
	a.activities = nil
	for _, act := range owned {
		act.base().owner = nil
		act.Cancel()
	}

	callbacks := a.onExit
	a.onExit = nil
	for _, cb := range callbacks {
		cb(failed)
	}

	delete(e.actors, a.pid)
	delete(a.host.actors, a.pid)
	if a.daemon {
		e.daemons--
	}
	logrus.Debugf("[t=%.6f] actor %s (pid %d) terminated (failed=%v)", e.clock, a.name, a.pid, failed)
	e.OnActorTermination.fire(a)
}

// Actors returns the live actors ordered by pid.
func (e *Engine) Actors() []*Actor {
	out := make([]*Actor, 0, len(e.actors))
	for _, a := range e.actors {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].pid < out[j].pid })
	return out
}

// ActorCount returns the number of live actors.
func (e *Engine) ActorCount() int { return len(e.actors) }
