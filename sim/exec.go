package sim

import "fmt"

// Exec is a computation of a number of flops on a host.
type Exec struct {
	ActivityBase
	host     *Host
	bound    float64
	priority float64
}

// NewExec creates an unassigned computation of flops.
func (e *Engine) NewExec(name string, flops float64) *Exec {
	x := &Exec{priority: 1}
	x.init(e, KindExec, x, name, flops)
	return x
}

// IsAssigned reports whether a host was set.
func (x *Exec) IsAssigned() bool { return x.host != nil }

// Host returns the host the computation runs on, or nil.
func (x *Exec) Host() *Host { return x.host }

// SetHost places the computation. Allowed until the activity is started.
func (x *Exec) SetHost(h *Host) error {
	if x.state != StateInited && x.state != StateStarting {
		return ErrActivityStarted.GenWithStackByArgs("host", x.name, x.state)
	}
	x.host = h
	return nil
}

// SetFlopsAmount changes the amount of work. Only allowed before the first Start.
func (x *Exec) SetFlopsAmount(flops float64) error {
	return x.setAmount("flops amount", flops)
}

// SetBound caps the computation speed in flops/s. Zero removes the cap.
func (x *Exec) SetBound(bound float64) error {
	if x.state != StateInited && x.state != StateStarting {
		return ErrActivityStarted.GenWithStackByArgs("bound", x.name, x.state)
	}
	x.bound = bound
	return nil
}

// SetPriority sets the share of the host given to this computation relative
// to its competitors. The default is 1.
func (x *Exec) SetPriority(priority float64) error {
	if priority <= 0 {
		return fmt.Errorf("exec %s: priority must be positive, got %g", x.name, priority)
	}
	if x.state != StateInited && x.state != StateStarting {
		return ErrActivityStarted.GenWithStackByArgs("priority", x.name, x.state)
	}
	x.priority = priority
	return nil
}

// Demand claims the host's speed.
func (x *Exec) Demand() Demand {
	return Demand{
		Amount:   x.amount,
		Claims:   []Claim{{Resource: &x.host.Resource, Weight: 1}},
		Bound:    x.bound,
		Priority: x.priority,
	}
}
