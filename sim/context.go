package sim

import (
	"context"
	"runtime/pprof"
	"strconv"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// Context is the execution context of one actor: a goroutine that only runs
// while its resumer is blocked, so that control is handed back and forth
// symmetrically. The goroutine is created at the first resume.
type Context struct {
	actor    *Actor
	resumeCh chan struct{}
	yieldCh  chan struct{}
	started  bool
	finished bool
	panicked any
}

func newContext(a *Actor) *Context {
	return &Context{
		actor:    a,
		resumeCh: make(chan struct{}),
		yieldCh:  make(chan struct{}),
	}
}

// IsFinished reports whether the entry function returned or was unwound.
func (c *Context) IsFinished() bool { return c.finished }

func (c *Context) run() {
	<-c.resumeCh
	defer func() {
		if r := recover(); r != nil {
			c.panicked = r
		}
		c.finished = true
		c.yieldCh <- struct{}{}
	}()
	a := c.actor
	if a.wannaDie {
		return
	}
	labels := pprof.Labels("actor", a.name, "pid", strconv.FormatUint(uint64(a.pid), 10))
	pprof.SetGoroutineLabels(pprof.WithLabels(context.Background(), labels))
	a.code(a)
}

// resume runs the context until it suspends or finishes. Called by maestro
// or a worker, never by the context itself.
func (c *Context) resume() {
	if c.finished {
		logrus.Fatalf("cannot resume the finished context of actor %s (pid %d)", c.actor.name, c.actor.pid)
	}
	if !c.started {
		c.started = true
		go c.run()
	}
	c.resumeCh <- struct{}{}
	<-c.yieldCh
}

// suspend hands control back to the resumer. Called from the context's own goroutine.
func (c *Context) suspend() {
	c.yieldCh <- struct{}{}
	<-c.resumeCh
}

// ContextFactory runs a batch of ready actors until each of them suspends
// or finishes.
type ContextFactory interface {
	Name() string
	RunAll(batch []*Actor)
}

// SerialFactory resumes the actors one after the other from maestro.
type SerialFactory struct{}

func (SerialFactory) Name() string { return "serial" }

func (SerialFactory) RunAll(batch []*Actor) {
	for _, a := range batch {
		a.runOnce()
	}
}

// ParallelFactory resumes the actors from a fixed pool of workers pulling
// from the batch. Batches smaller than Threshold run serially, still under
// the parallel kernel guard.
type ParallelFactory struct {
	Workers   int
	Threshold int
	phase     *atomic.Bool
}

func (f *ParallelFactory) Name() string { return "parallel" }

func (f *ParallelFactory) RunAll(batch []*Actor) {
	f.phase.Store(true)
	defer f.phase.Store(false)
	if len(batch) < f.Threshold || f.Workers < 2 {
		SerialFactory{}.RunAll(batch)
		return
	}

	cursor := atomic.NewInt64(0)
	var g errgroup.Group
	g.SetLimit(f.Workers)
	for w := 0; w < f.Workers && w < len(batch); w++ {
		g.Go(func() error {
			for {
				i := cursor.Inc() - 1
				if i >= int64(len(batch)) {
					return nil
				}
				batch[i].runOnce()
			}
		})
	}
	_ = g.Wait()
}
