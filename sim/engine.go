package sim

import (
	"fmt"
	"math"

	"github.com/edwingeng/deque"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// EngineConfig configures an Engine. The zero value runs serially with the
// registered resource model.
type EngineConfig struct {
	// Workers is the number of workers resuming actors. 1 is serial.
	Workers int `yaml:"workers"`
	// ParallelThreshold is the smallest batch of ready actors run in parallel.
	ParallelThreshold int `yaml:"parallel_threshold"`
	// Model overrides NewResourceModelFunc.
	Model ResourceModel `yaml:"-"`
}

// Engine owns the simulated clock, the platform, the actors and the
// activities, and runs the kernel loop.
type Engine struct {
	id       string
	clock    float64
	model    ResourceModel
	platform *Platform
	timers   *TimerHeap

	actors  map[Pid]*Actor
	nextPid Pid
	daemons int
	toRun   deque.Deque

	factory       ContextFactory
	deferSimcalls bool
	parallelPhase *atomic.Bool

	vetoSink VetoSink
	hooks    map[ActivityKind]*ActivityHooks

	OnActorCreation    Signal[*Actor]
	OnActorTermination Signal[*Actor]
	OnDeadlock         Signal[*Engine]

	fatal             error
	deadlocked        bool
	blockedAtDeadlock int
}

// NewEngine creates an engine with an empty platform at date 0.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.ParallelThreshold < 1 {
		cfg.ParallelThreshold = 2
	}
	model := cfg.Model
	if model == nil {
		if NewResourceModelFunc == nil {
			panic("NewResourceModelFunc not registered: import sim/resource to register it " +
				"(add: import _ \"github.com/inference-sim/actorsim/sim/resource\")")
		}
		model = NewResourceModelFunc()
	}
	e := &Engine{
		id:            uuid.NewString(),
		model:         model,
		platform:      newPlatform(),
		timers:        NewTimerHeap(),
		actors:        make(map[Pid]*Actor),
		toRun:         deque.NewDeque(),
		parallelPhase: atomic.NewBool(false),
		hooks:         make(map[ActivityKind]*ActivityHooks, len(Kinds)),
	}
	for _, k := range Kinds {
		e.hooks[k] = &ActivityHooks{}
	}
	if cfg.Workers > 1 {
		e.factory = &ParallelFactory{Workers: cfg.Workers, Threshold: cfg.ParallelThreshold, phase: e.parallelPhase}
		e.deferSimcalls = true
	} else {
		e.factory = SerialFactory{}
	}
	logrus.Debugf("engine %s created (%s contexts, %d worker(s))", e.id, e.factory.Name(), cfg.Workers)
	return e
}

// ID returns the unique identifier of the engine, for log correlation.
func (e *Engine) ID() string { return e.id }

// Clock returns the current simulated date in seconds.
func (e *Engine) Clock() float64 { return e.clock }

// Platform returns the hosts, links and routes of the simulation.
func (e *Engine) Platform() *Platform { return e.platform }

// Hooks returns the callbacks shared by every activity of kind.
func (e *Engine) Hooks(kind ActivityKind) *ActivityHooks { return e.hooks[kind] }

// SetVetoSink registers where vetoed activities are reported. nil disables
// the reporting.
func (e *Engine) SetVetoSink(sink VetoSink) { e.vetoSink = sink }

// VetoSink returns the registered sink, or nil.
func (e *Engine) VetoSink() VetoSink { return e.vetoSink }

// checkKernel rejects kernel mutations issued from a running actor while
// actors run in parallel.
func (e *Engine) checkKernel() {
	if e.parallelPhase.Load() {
		panic("kernel operation issued by a running actor in parallel mode: go through the Actor methods")
	}
}

func (e *Engine) track(a Activity) {
	if t, ok := a.(timerDriven); ok {
		t.arm()
		return
	}
	e.model.NotifyStarted(a, e.clock)
	if a.IsSuspended() {
		e.model.NotifySuspended(a)
	}
}

func (e *Engine) untrack(a Activity) {
	if t, ok := a.(timerDriven); ok {
		t.disarm()
		return
	}
	e.model.NotifyCanceled(a)
}

func (e *Engine) remainingOf(a Activity) float64 {
	if t, ok := a.(timerDriven); ok {
		return t.timeLeft()
	}
	return e.model.Remaining(a)
}

// Run runs the simulation until nothing can progress anymore, or until a
// vetoed activity is waiting for the scheduler registered with SetVetoSink.
func (e *Engine) Run() error {
	return e.RunUntil(-1)
}

// RunUntil is Run bounded by maxDate. A negative maxDate means no bound.
func (e *Engine) RunUntil(maxDate float64) error {
	e.checkKernel()
	logrus.Debugf("[t=%.6f] engine %s running until %g", e.clock, e.id, maxDate)
	for {
		for e.toRun.Len() > 0 {
			e.runAllActors()
			if e.fatal != nil {
				return e.fatal
			}
			if len(e.actors) > 0 && len(e.actors) == e.daemons {
				for _, a := range e.Actors() {
					logrus.Debugf("[t=%.6f] only daemons left, killing %s", e.clock, a.name)
					a.Kill()
				}
			}
		}

		next := e.timers.NextDate()
		if maxDate >= 0 && (next < 0 || next > maxDate) {
			next = math.Max(maxDate, e.clock)
		}
		elapsed := e.advance(next)

		if elapsed < 0 && e.toRun.Len() == 0 && len(e.actors) > 0 {
			e.handleDeadlock()
		}
		if e.vetoSink != nil && e.vetoSink.Len() > 0 {
			break
		}
		reachedMax := maxDate >= 0 && e.clock >= maxDate
		if (elapsed < 0 || reachedMax) && e.toRun.Len() == 0 {
			break
		}
	}
	if e.deadlocked {
		e.deadlocked = false
		return ErrDeadlock.GenWithStackByArgs(e.clock, e.blockedAtDeadlock)
	}
	logrus.Debugf("[t=%.6f] engine %s stopped", e.clock, e.id)
	return nil
}

// runAllActors resumes every ready actor, then terminates the finished
// ones and answers the deferred simcalls in batch order.
func (e *Engine) runAllActors() {
	batch := make([]*Actor, 0, e.toRun.Len())
	for !e.toRun.Empty() {
		batch = append(batch, e.toRun.PopFront().(*Actor))
	}
	e.factory.RunAll(batch)
	for _, a := range batch {
		if a.context.finished {
			e.cleanupActor(a)
			continue
		}
		if fn := a.pending; fn != nil {
			a.pending = nil
			// Killed by an earlier call of this batch: already rescheduled to unwind.
			if a.wannaDie {
				continue
			}
			if done, err := fn(); done {
				a.result = err
				e.scheduleActor(a)
			}
		}
	}
}

// advance moves the clock to the next completion or to limit, completes
// the activities that ended, then fires the due timers. It returns the
// elapsed simulated time, or -1 when nothing can happen anymore.
func (e *Engine) advance(limit float64) float64 {
	date, done := e.model.NextEvent(e.clock, limit)
	if date < 0 {
		if limit < 0 {
			return -1
		}
		date = limit
	}
	if date < e.clock {
		panic(fmt.Sprintf("Clock went backwards: %f < %f", date, e.clock))
	}
	elapsed := date - e.clock
	e.clock = date
	for _, c := range done {
		c.Activity.base().complete(c.State, c.Remaining)
	}
	e.timers.ExecuteAll(e.clock)
	return elapsed
}

// handleDeadlock reports the actors that can never be woken up and kills
// them. Actors may legitimately wait on vetoed activities while a
// scheduler is pending, so nothing is reported then.
func (e *Engine) handleDeadlock() {
	if e.vetoSink != nil && e.vetoSink.Len() > 0 {
		return
	}
	actors := e.Actors()
	if len(actors) <= e.daemons {
		logrus.Errorf("[t=%.6f] daemon actors cannot block once the simulation is over; check the on_exit callbacks", e.clock)
	} else {
		logrus.Errorf("[t=%.6f] deadlock detected: activities are still around but will never complete", e.clock)
	}
	for _, a := range actors {
		if w := a.waitingOn; w != nil {
			logrus.Errorf("  actor %s (pid %d) on %s: %s, waiting on %s %s (%s)",
				a.name, a.pid, a.host.name, a.State(), w.Kind(), w.Name(), w.State())
		} else {
			logrus.Errorf("  actor %s (pid %d) on %s: %s", a.name, a.pid, a.host.name, a.State())
		}
	}
	e.OnDeadlock.fire(e)
	e.deadlocked = true
	e.blockedAtDeadlock = len(actors)
	for _, a := range actors {
		a.Kill()
	}
}

// Shutdown kills every remaining actor and lets them unwind, without
// advancing the clock.
func (e *Engine) Shutdown() {
	e.checkKernel()
	for _, a := range e.Actors() {
		a.Kill()
	}
	for e.toRun.Len() > 0 {
		e.runAllActors()
	}
	e.fatal = nil
}
