// Package dagsched schedules workflows of computations and transfers on a
// simulated platform. Tasks are started unplaced; the kernel vetoes them and
// the scheduler places the ready ones between two runs of the engine.
package dagsched

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/actorsim/sim"
)

// TaskType is the kind of a workflow task.
type TaskType string

const (
	TaskCompute  TaskType = "compute"
	TaskTransfer TaskType = "transfer"
)

// TaskSpec describes one task of a workflow file.
type TaskSpec struct {
	Name    string   `yaml:"name"`
	Type    TaskType `yaml:"type"`
	Flops   float64  `yaml:"flops,omitempty"`
	Bytes   float64  `yaml:"bytes,omitempty"`
	Parents []string `yaml:"parents,omitempty"`
	// Host pins a compute task. Empty leaves the placement to the scheduler.
	Host string `yaml:"host,omitempty"`
}

// Workflow is a DAG of tasks. A transfer carries the output of its single
// compute parent to its single compute child.
type Workflow struct {
	Name  string     `yaml:"name"`
	Tasks []TaskSpec `yaml:"tasks"`
}

// LoadWorkflow decodes a workflow in YAML or JSON. Unknown fields are errors.
func LoadWorkflow(r io.Reader) (*Workflow, error) {
	var w Workflow
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("parsing workflow: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// Validate checks names, types, amounts and parent references.
func (w *Workflow) Validate() error {
	if len(w.Tasks) == 0 {
		return fmt.Errorf("workflow %q has no task", w.Name)
	}
	types := make(map[string]TaskType, len(w.Tasks))
	for _, t := range w.Tasks {
		if t.Name == "" {
			return fmt.Errorf("workflow %q: task without a name", w.Name)
		}
		if _, dup := types[t.Name]; dup {
			return fmt.Errorf("workflow %q: duplicate task %q", w.Name, t.Name)
		}
		switch t.Type {
		case TaskCompute:
			if t.Flops < 0 {
				return fmt.Errorf("task %q: negative flops %g", t.Name, t.Flops)
			}
		case TaskTransfer:
			if t.Bytes < 0 {
				return fmt.Errorf("task %q: negative bytes %g", t.Name, t.Bytes)
			}
			if t.Host != "" {
				return fmt.Errorf("task %q: transfers cannot be pinned to a host", t.Name)
			}
		default:
			return fmt.Errorf("task %q: unknown type %q (valid: compute, transfer)", t.Name, t.Type)
		}
		types[t.Name] = t.Type
	}
	children := make(map[string]int)
	for _, t := range w.Tasks {
		for _, p := range t.Parents {
			pt, ok := types[p]
			if !ok {
				return fmt.Errorf("task %q: unknown parent %q", t.Name, p)
			}
			if pt == TaskTransfer && t.Type == TaskTransfer {
				return fmt.Errorf("task %q: a transfer cannot follow transfer %q", t.Name, p)
			}
			children[p]++
		}
		if t.Type == TaskTransfer && len(t.Parents) != 1 {
			return fmt.Errorf("transfer %q must have exactly one parent, has %d", t.Name, len(t.Parents))
		}
	}
	for _, t := range w.Tasks {
		if t.Type == TaskTransfer && children[t.Name] != 1 {
			return fmt.Errorf("transfer %q must feed exactly one task, feeds %d", t.Name, children[t.Name])
		}
	}
	return nil
}

// DAG is a workflow instantiated as kernel activities.
type DAG struct {
	// Activities in workflow order.
	Activities []sim.Activity
	Execs      []*sim.Exec
	Comms      []*sim.Comm
	byName     map[string]sim.Activity
}

// Activity looks up a task by name.
func (d *DAG) Activity(name string) sim.Activity { return d.byName[name] }

// Build creates one activity per task on e and wires the dependencies.
// Pinned compute tasks get their host, and the transfers around them the
// matching endpoint. Nothing is started.
func (w *Workflow) Build(e *sim.Engine) (*DAG, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	d := &DAG{byName: make(map[string]sim.Activity, len(w.Tasks))}
	for _, t := range w.Tasks {
		var a sim.Activity
		switch t.Type {
		case TaskCompute:
			x := e.NewExec(t.Name, t.Flops)
			if t.Host != "" {
				h := e.Platform().Host(t.Host)
				if h == nil {
					return nil, sim.ErrNotAssignable.GenWithStackByArgs(t.Name, t.Host)
				}
				if err := x.SetHost(h); err != nil {
					return nil, err
				}
			}
			d.Execs = append(d.Execs, x)
			a = x
		case TaskTransfer:
			c := e.NewComm(t.Name, t.Bytes)
			d.Comms = append(d.Comms, c)
			a = c
		}
		d.Activities = append(d.Activities, a)
		d.byName[t.Name] = a
	}
	for _, t := range w.Tasks {
		for _, p := range t.Parents {
			if err := d.byName[p].AddSuccessor(d.byName[t.Name]); err != nil {
				return nil, err
			}
		}
	}
	for _, x := range d.Execs {
		if h := x.Host(); h != nil {
			if err := bindEndpoints(x, h); err != nil {
				return nil, err
			}
		}
	}
	if !d.acyclic() {
		return nil, fmt.Errorf("workflow %q has a cycle", w.Name)
	}
	return d, nil
}

// bindEndpoints sets h as the destination of the transfers feeding x and
// as the source of the transfers leaving it.
func bindEndpoints(x *sim.Exec, h *sim.Host) error {
	for _, pred := range x.Dependencies() {
		if c, ok := pred.(*sim.Comm); ok {
			if err := c.SetDestination(h); err != nil {
				return err
			}
		}
	}
	for _, succ := range x.Successors() {
		if c, ok := succ.(*sim.Comm); ok {
			if err := c.SetSource(h); err != nil {
				return err
			}
		}
	}
	return nil
}

// acyclic peels the graph from its exit tasks: a task is marked once all its
// successors are. Tasks left unmarked sit on a cycle.
func (d *DAG) acyclic() bool {
	defer func() {
		for _, a := range d.Activities {
			base(a).Unmark()
		}
	}()
	var current []sim.Activity
	for _, a := range d.Activities {
		if len(a.Successors()) == 0 {
			current = append(current, a)
		}
	}
	for len(current) > 0 {
		var next []sim.Activity
		for _, a := range current {
			if base(a).IsMarked() {
				continue
			}
			base(a).Mark()
			for _, pred := range base(a).Dependencies() {
				if allMarked(pred.Successors()) {
					next = append(next, pred)
				}
			}
		}
		current = next
	}
	for _, a := range d.Activities {
		if !base(a).IsMarked() {
			return false
		}
	}
	return true
}

func allMarked(as []sim.Activity) bool {
	for _, a := range as {
		if !base(a).IsMarked() {
			return false
		}
	}
	return true
}

// marker is the part of sim.ActivityBase the graph walks need.
type marker interface {
	Mark()
	Unmark()
	IsMarked() bool
	Dependencies() []sim.Activity
}

func base(a sim.Activity) marker { return a.(marker) }
