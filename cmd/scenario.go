package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/actorsim/sim"
	"github.com/inference-sim/actorsim/sim/trace"
)

// Scenario is the content of a scenario file: a platform, activities
// wired into a graph, and actors running step scripts.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Scenario struct {
	Engine     sim.EngineConfig `yaml:"engine"`
	Hosts      []HostSpec       `yaml:"hosts"`
	Links      []LinkSpec       `yaml:"links"`
	Routes     []RouteSpec      `yaml:"routes"`
	Activities []ActivitySpec   `yaml:"activities"`
	Actors     []ActorSpec      `yaml:"actors"`
}

type HostSpec struct {
	Name  string     `yaml:"name"`
	Speed float64    `yaml:"speed"`
	Disks []DiskSpec `yaml:"disks"`
}

type DiskSpec struct {
	Name           string  `yaml:"name"`
	ReadBandwidth  float64 `yaml:"read_bandwidth"`
	WriteBandwidth float64 `yaml:"write_bandwidth"`
}

type LinkSpec struct {
	Name      string  `yaml:"name"`
	Bandwidth float64 `yaml:"bandwidth"`
}

type RouteSpec struct {
	Src   string   `yaml:"src"`
	Dst   string   `yaml:"dst"`
	Links []string `yaml:"links"`
}

// ActivitySpec declares an activity. Placement fields depend on the kind:
// host for exec, source and destination for comm, disk ("host:disk") and
// op for io. Missing placements leave the activity to be vetoed.
type ActivitySpec struct {
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"`
	Amount      float64  `yaml:"amount"`
	Host        string   `yaml:"host,omitempty"`
	Source      string   `yaml:"source,omitempty"`
	Destination string   `yaml:"destination,omitempty"`
	Disk        string   `yaml:"disk,omitempty"`
	Op          string   `yaml:"op,omitempty"`
	Category    string   `yaml:"category,omitempty"`
	After       []string `yaml:"after,omitempty"`
	// Start starts the activity before the simulation runs.
	Start bool `yaml:"start,omitempty"`
}

type ActorSpec struct {
	Name        string  `yaml:"name"`
	Host        string  `yaml:"host"`
	Daemon      bool    `yaml:"daemon,omitempty"`
	KillTime    float64 `yaml:"kill_time,omitempty"`
	AutoRestart bool    `yaml:"auto_restart,omitempty"`
	Steps       []Step  `yaml:"steps"`
}

// Step is one instruction of an actor script. Exactly one field is set.
type Step struct {
	Exec    *float64      `yaml:"exec,omitempty"`
	Sleep   *float64      `yaml:"sleep,omitempty"`
	Start   string        `yaml:"start,omitempty"`
	Wait    string        `yaml:"wait,omitempty"`
	WaitFor *WaitForStep  `yaml:"wait_for,omitempty"`
	Cancel  string        `yaml:"cancel,omitempty"`
	Detach  string        `yaml:"detach,omitempty"`
	Join    string        `yaml:"join,omitempty"`
	Kill    string        `yaml:"kill,omitempty"`
	Suspend string        `yaml:"suspend,omitempty"`
	Resume  string        `yaml:"resume,omitempty"`
	Yield   bool          `yaml:"yield,omitempty"`
	Log     string        `yaml:"log,omitempty"`
	Loop    *LoopStep     `yaml:"loop,omitempty"`
	HostOp  *HostOperStep `yaml:"host,omitempty"`
}

type WaitForStep struct {
	Activity string  `yaml:"activity"`
	Timeout  float64 `yaml:"timeout"`
	// Cancel cancels the activity when the timeout expires.
	Cancel bool `yaml:"cancel,omitempty"`
}

// LoopStep repeats its steps Times times, forever when Times is 0.
type LoopStep struct {
	Times int    `yaml:"times,omitempty"`
	Steps []Step `yaml:"steps"`
}

// HostOperStep turns a host off or on.
type HostOperStep struct {
	Name string `yaml:"name"`
	On   bool   `yaml:"on"`
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{
		s.Exec != nil, s.Sleep != nil, s.Start != "", s.Wait != "", s.WaitFor != nil,
		s.Cancel != "", s.Detach != "", s.Join != "", s.Kill != "", s.Suspend != "",
		s.Resume != "", s.Yield, s.Log != "", s.Loop != nil, s.HostOp != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// LoadScenario reads and strictly parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	return ParseScenario(data)
}

// ParseScenario parses a scenario with strict field checking: typos must cause errors.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}
	return &sc, nil
}

// World is a scenario instantiated on an engine.
type World struct {
	Engine     *sim.Engine
	Activities []sim.Activity
	Actors     []*sim.Actor
	activities map[string]sim.Activity
	actors     map[string]*sim.Actor
}

// Activity looks up an activity by name.
func (w *World) Activity(name string) sim.Activity { return w.activities[name] }

// Actor looks up an actor by name.
func (w *World) Actor(name string) *sim.Actor { return w.actors[name] }

// Build creates the platform, the activities and the actors of the
// scenario on a new engine configured with cfg. A non-nil st is attached
// before anything is created.
func (sc *Scenario) Build(cfg sim.EngineConfig, st *trace.SimulationTrace) (_ *World, err error) {
	e := sim.NewEngine(cfg)
	e.AttachTrace(st)
	defer func() {
		if err != nil {
			e.Shutdown()
		}
	}()
	w := &World{
		Engine:     e,
		activities: make(map[string]sim.Activity),
		actors:     make(map[string]*sim.Actor),
	}
	if err = sc.buildPlatform(e); err != nil {
		return nil, err
	}
	if err = sc.buildActivities(w); err != nil {
		return nil, err
	}
	if err = sc.checkScripts(w); err != nil {
		return nil, err
	}
	for _, as := range sc.Actors {
		h := e.Platform().Host(as.Host)
		if h == nil {
			return nil, fmt.Errorf("actor %q: unknown host %q", as.Name, as.Host)
		}
		if _, dup := w.actors[as.Name]; dup {
			return nil, fmt.Errorf("duplicate actor %q", as.Name)
		}
		steps := as.Steps
		a, err := e.CreateActor(as.Name, h, func(self *sim.Actor) { w.runSteps(self, steps) })
		if err != nil {
			return nil, fmt.Errorf("actor %q: %w", as.Name, err)
		}
		if as.Daemon {
			a.Daemonize()
		}
		if as.KillTime > 0 {
			a.SetKillTime(as.KillTime)
		}
		a.SetAutoRestart(as.AutoRestart)
		w.Actors = append(w.Actors, a)
		w.actors[as.Name] = a
	}
	for i, as := range sc.Activities {
		if as.Start {
			if err := w.Activities[i].Start(); err != nil {
				return nil, fmt.Errorf("starting %q: %w", as.Name, err)
			}
		}
	}
	return w, nil
}

func (sc *Scenario) buildPlatform(e *sim.Engine) error {
	for _, hs := range sc.Hosts {
		h, err := e.AddHost(hs.Name, hs.Speed)
		if err != nil {
			return err
		}
		for _, ds := range hs.Disks {
			if ds.ReadBandwidth <= 0 || ds.WriteBandwidth <= 0 {
				return fmt.Errorf("disk %s:%s: bandwidths must be positive", hs.Name, ds.Name)
			}
			h.AddDisk(ds.Name, ds.ReadBandwidth, ds.WriteBandwidth)
		}
	}
	for _, ls := range sc.Links {
		if _, err := e.AddLink(ls.Name, ls.Bandwidth); err != nil {
			return err
		}
	}
	p := e.Platform()
	for _, rs := range sc.Routes {
		src, dst := p.Host(rs.Src), p.Host(rs.Dst)
		if src == nil || dst == nil {
			return fmt.Errorf("route %s -> %s: unknown host", rs.Src, rs.Dst)
		}
		links := make([]*sim.Link, 0, len(rs.Links))
		for _, name := range rs.Links {
			l := p.Link(name)
			if l == nil {
				return fmt.Errorf("route %s -> %s: unknown link %q", rs.Src, rs.Dst, name)
			}
			links = append(links, l)
		}
		if err := e.AddRoute(src, dst, links...); err != nil {
			return err
		}
	}
	return nil
}

func (sc *Scenario) buildActivities(w *World) error {
	e := w.Engine
	p := e.Platform()
	host := func(act, name string) (*sim.Host, error) {
		if name == "" {
			return nil, nil
		}
		if h := p.Host(name); h != nil {
			return h, nil
		}
		return nil, sim.ErrNotAssignable.GenWithStackByArgs(act, name)
	}
	for _, as := range sc.Activities {
		if _, dup := w.activities[as.Name]; dup || as.Name == "" {
			return fmt.Errorf("activity names must be unique and non-empty, got %q", as.Name)
		}
		var a sim.Activity
		switch as.Kind {
		case string(sim.KindExec):
			x := e.NewExec(as.Name, as.Amount)
			h, err := host(as.Name, as.Host)
			if err != nil {
				return err
			}
			if h != nil {
				if err := x.SetHost(h); err != nil {
					return err
				}
			}
			a = x
		case string(sim.KindComm):
			c := e.NewComm(as.Name, as.Amount)
			src, err := host(as.Name, as.Source)
			if err != nil {
				return err
			}
			dst, err := host(as.Name, as.Destination)
			if err != nil {
				return err
			}
			if src != nil {
				_ = c.SetSource(src)
			}
			if dst != nil {
				_ = c.SetDestination(dst)
			}
			a = c
		case string(sim.KindIo):
			if as.Op != "" && as.Op != string(sim.IoRead) && as.Op != string(sim.IoWrite) {
				return fmt.Errorf("activity %q: unknown io op %q (valid: read, write)", as.Name, as.Op)
			}
			io := e.NewIo(as.Name, as.Amount, sim.IoOp(as.Op))
			if as.Disk != "" {
				hostName, diskName, ok := strings.Cut(as.Disk, ":")
				h := p.Host(hostName)
				if !ok || h == nil || h.Disk(diskName) == nil {
					return sim.ErrNotAssignable.GenWithStackByArgs(as.Name, as.Disk)
				}
				if err := io.SetDisk(h.Disk(diskName)); err != nil {
					return err
				}
			}
			a = io
		default:
			return fmt.Errorf("activity %q: unknown kind %q (valid: exec, comm, io)", as.Name, as.Kind)
		}
		if as.Category != "" {
			if err := a.(interface{ SetTracingCategory(string) error }).SetTracingCategory(as.Category); err != nil {
				return err
			}
		}
		w.Activities = append(w.Activities, a)
		w.activities[as.Name] = a
	}
	for _, as := range sc.Activities {
		for _, pred := range as.After {
			before, ok := w.activities[pred]
			if !ok {
				return fmt.Errorf("activity %q: unknown predecessor %q", as.Name, pred)
			}
			if err := before.AddSuccessor(w.activities[as.Name]); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkScripts validates every step and every name it references.
func (sc *Scenario) checkScripts(w *World) error {
	actorNames := make(map[string]bool, len(sc.Actors))
	for _, as := range sc.Actors {
		actorNames[as.Name] = true
	}
	hostNames := make(map[string]bool, len(sc.Hosts))
	for _, hs := range sc.Hosts {
		hostNames[hs.Name] = true
	}
	var check func(actor string, steps []Step) error
	check = func(actor string, steps []Step) error {
		for i, s := range steps {
			if n := s.actions(); n != 1 {
				return fmt.Errorf("actor %q step %d: exactly one action expected, got %d", actor, i, n)
			}
			for _, ref := range []string{s.Start, s.Wait, s.Cancel, s.Detach} {
				if ref != "" && w.activities[ref] == nil {
					return fmt.Errorf("actor %q step %d: unknown activity %q", actor, i, ref)
				}
			}
			if s.WaitFor != nil && w.activities[s.WaitFor.Activity] == nil {
				return fmt.Errorf("actor %q step %d: unknown activity %q", actor, i, s.WaitFor.Activity)
			}
			for _, ref := range []string{s.Join, s.Kill, s.Suspend, s.Resume} {
				if ref != "" && !actorNames[ref] {
					return fmt.Errorf("actor %q step %d: unknown actor %q", actor, i, ref)
				}
			}
			if s.HostOp != nil && !hostNames[s.HostOp.Name] {
				return fmt.Errorf("actor %q step %d: unknown host %q", actor, i, s.HostOp.Name)
			}
			if s.Loop != nil {
				if err := check(actor, s.Loop.Steps); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, as := range sc.Actors {
		if err := check(as.Name, as.Steps); err != nil {
			return err
		}
	}
	return nil
}

// runSteps interprets a script on behalf of self. Failed waits are logged
// and the script goes on.
func (w *World) runSteps(self *sim.Actor, steps []Step) {
	for _, s := range steps {
		var err error
		switch {
		case s.Exec != nil:
			err = self.Execute(*s.Exec)
		case s.Sleep != nil:
			self.Sleep(*s.Sleep)
		case s.Start != "":
			err = self.Start(w.activities[s.Start])
		case s.Wait != "":
			err = self.Wait(w.activities[s.Wait])
		case s.WaitFor != nil:
			act := w.activities[s.WaitFor.Activity]
			if s.WaitFor.Cancel {
				err = self.WaitForOrCancel(act, s.WaitFor.Timeout)
			} else {
				err = self.WaitFor(act, s.WaitFor.Timeout)
			}
		case s.Cancel != "":
			self.Cancel(w.activities[s.Cancel])
		case s.Detach != "":
			err = self.Detach(w.activities[s.Detach])
		case s.Join != "":
			err = self.Join(w.actors[s.Join], -1)
		case s.Kill != "":
			self.Kernel(w.actors[s.Kill].Kill)
		case s.Suspend != "":
			target := w.actors[s.Suspend]
			if target == self {
				self.SuspendSelf()
			} else {
				self.Kernel(target.Suspend)
			}
		case s.Resume != "":
			self.Kernel(w.actors[s.Resume].Resume)
		case s.Yield:
			self.Yield()
		case s.Log != "":
			logrus.Infof("[t=%.6f] %s: %s", self.Clock(), self.Name(), s.Log)
		case s.Loop != nil:
			for i := 0; s.Loop.Times == 0 || i < s.Loop.Times; i++ {
				w.runSteps(self, s.Loop.Steps)
			}
		case s.HostOp != nil:
			h := self.Engine().Platform().Host(s.HostOp.Name)
			if s.HostOp.On {
				self.Kernel(h.TurnOn)
			} else {
				self.Kernel(h.TurnOff)
			}
		}
		if err != nil {
			logrus.Infof("[t=%.6f] %s: %v", self.Clock(), self.Name(), err)
		}
	}
}
