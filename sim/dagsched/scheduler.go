package dagsched

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/actorsim/sim"
)

// Placement records where and when a compute task ran.
type Placement struct {
	Task            string
	Host            string
	EstimatedFinish float64
	Start           float64
	Finish          float64
}

// Report summarizes a scheduled workflow.
type Report struct {
	Makespan   float64
	Rounds     int
	Placements []Placement
}

// MinMin places ready compute tasks with the Min-Min heuristic: among the
// ready tasks, the one with the earliest estimated completion on its best
// host is placed first, then the estimates are updated and the next one is
// picked.
type MinMin struct {
	engine *sim.Engine
	dag    *DAG
	sink   *sim.VetoSet
	// estimated date each host becomes free
	readyAt map[*sim.Host]float64
	placed  []*sim.Exec
	est     map[*sim.Exec]float64
}

// NewMinMin prepares the scheduling of dag on the engine's platform. It
// registers its own veto sink on e.
func NewMinMin(e *sim.Engine, dag *DAG) *MinMin {
	s := &MinMin{
		engine:  e,
		dag:     dag,
		sink:    sim.NewVetoSet(),
		readyAt: make(map[*sim.Host]float64),
		est:     make(map[*sim.Exec]float64),
	}
	e.SetVetoSink(s.sink)
	// A transfer can start no earlier than the end of the task producing its data.
	e.Hooks(sim.KindExec).OnCompletion.Connect(func(a sim.Activity) {
		x, ok := a.(*sim.Exec)
		if !ok || x.State() != sim.StateFinished {
			return
		}
		for _, succ := range x.Successors() {
			if c, ok := succ.(*sim.Comm); ok {
				c.SetData(x.FinishTime())
			}
		}
	})
	return s
}

// Run starts every task, then alternates engine runs and scheduling rounds
// until no task is left vetoed.
func (s *MinMin) Run() (*Report, error) {
	for _, a := range s.dag.Activities {
		if err := a.Start(); err != nil {
			return nil, err
		}
	}
	rounds := 0
	for {
		if err := s.engine.Run(); err != nil {
			return nil, err
		}
		if s.sink.Len() == 0 {
			break
		}
		rounds++
		ready := s.readyTasks()
		s.sink.Clear()
		logrus.Debugf("[t=%.6f] scheduling round %d: %d ready task(s)", s.engine.Clock(), rounds, len(ready))
		if err := s.schedule(ready); err != nil {
			return nil, err
		}
	}

	var stalled []string
	for _, a := range s.dag.Activities {
		if a.State() != sim.StateFinished {
			stalled = append(stalled, a.Name())
		}
	}
	if len(stalled) > 0 {
		return nil, fmt.Errorf("workflow stalled at t=%.6f: %d task(s) never finished, first %s",
			s.engine.Clock(), len(stalled), stalled[0])
	}

	report := &Report{Makespan: s.engine.Clock(), Rounds: rounds}
	for _, x := range s.placed {
		report.Placements = append(report.Placements, Placement{
			Task:            x.Name(),
			Host:            x.Host().Name(),
			EstimatedFinish: s.est[x],
			Start:           x.StartTime(),
			Finish:          x.FinishTime(),
		})
	}
	logrus.Infof("[t=%.6f] workflow done: %d task(s) placed in %d round(s)", report.Makespan, len(s.placed), rounds)
	return report, nil
}

// readyTasks returns the unplaced compute tasks whose inputs only wait for
// a destination: every predecessor still pending is a transfer whose own
// producer is done.
func (s *MinMin) readyTasks() []*sim.Exec {
	var ready []*sim.Exec
	for _, x := range s.dag.Execs {
		if x.IsAssigned() || x.State().IsTerminal() {
			continue
		}
		ok := true
		for _, pred := range x.Dependencies() {
			c, isComm := pred.(*sim.Comm)
			if !isComm || !c.DependenciesSolved() {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, x)
		}
	}
	return ready
}

func (s *MinMin) schedule(ready []*sim.Exec) error {
	hosts := s.engine.Platform().Hosts()
	for len(ready) > 0 {
		best, bestHost, bestFinish := -1, (*sim.Host)(nil), math.Inf(1)
		for i, x := range ready {
			h, finish := s.bestHost(x, hosts)
			if h != nil && finish < bestFinish {
				best, bestHost, bestFinish = i, h, finish
			}
		}
		if best < 0 {
			return sim.ErrNotAssignable.GenWithStackByArgs(ready[0].Name(), "any host")
		}
		x := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		if err := s.place(x, bestHost, bestFinish); err != nil {
			return err
		}
	}
	return nil
}

func (s *MinMin) bestHost(x *sim.Exec, hosts []*sim.Host) (*sim.Host, float64) {
	var best *sim.Host
	bestFinish := math.Inf(1)
	for _, h := range hosts {
		if !h.IsOn() {
			continue
		}
		if finish := s.finishOnAt(x, h); finish < bestFinish {
			best, bestFinish = h, finish
		}
	}
	return best, bestFinish
}

// finishOnAt estimates when x would end on h: once h is free and every
// input has been moved to h, plus the computation time.
func (s *MinMin) finishOnAt(x *sim.Exec, h *sim.Host) float64 {
	dataAvailable := s.engine.Clock()
	for _, pred := range x.Dependencies() {
		c, ok := pred.(*sim.Comm)
		if !ok {
			continue
		}
		produced, _ := c.Data().(float64)
		dataAvailable = math.Max(dataAvailable, produced+s.transferTime(c, h))
	}
	return math.Max(s.readyAt[h], dataAvailable) + x.Remaining()/h.Speed()
}

func (s *MinMin) transferTime(c *sim.Comm, h *sim.Host) float64 {
	if c.Remaining() <= 1e-6 {
		return 0
	}
	bandwidth := math.Inf(1)
	for _, l := range s.engine.Platform().Route(c.Source(), h) {
		bandwidth = math.Min(bandwidth, l.Bandwidth())
	}
	if math.IsInf(bandwidth, 1) {
		return 0
	}
	return c.Remaining() / bandwidth
}

// place assigns x to h, binds the transfers around it and restarts what
// became startable.
func (s *MinMin) place(x *sim.Exec, h *sim.Host, estimatedFinish float64) error {
	logrus.Infof("[t=%.6f] schedule %s on %s (estimated finish %.6f)", s.engine.Clock(), x.Name(), h.Name(), estimatedFinish)
	if err := x.SetHost(h); err != nil {
		return err
	}
	if err := bindEndpoints(x, h); err != nil {
		return err
	}
	s.readyAt[h] = estimatedFinish
	s.placed = append(s.placed, x)
	s.est[x] = estimatedFinish
	for _, pred := range x.Dependencies() {
		if err := restart(pred); err != nil {
			return err
		}
	}
	return restart(x)
}

// restart starts a vetoed activity once it can actually run.
func restart(a sim.Activity) error {
	if a.State() != sim.StateStarting || !a.IsAssigned() || !a.DependenciesSolved() {
		return nil
	}
	return a.Start()
}
