// Package resource implements the sharing of hosts, links and disks between
// the activities that run on them.
package resource

import (
	"math"

	"github.com/inference-sim/actorsim/sim"
)

// precision is the relative tolerance under which work or capacity counts as exhausted.
const precision = 1e-9

type action struct {
	activity  sim.Activity
	amount    float64
	remaining float64
	claims    []sim.Claim
	bound     float64
	priority  float64
	suspended bool
	rate      float64
}

func (a *action) failed() bool {
	for _, c := range a.claims {
		if !c.Resource.IsOn() {
			return true
		}
	}
	return false
}

func (a *action) done() bool {
	return a.remaining <= precision*math.Max(1, a.amount)
}

// MaxMinModel shares every resource between the actions claiming it with
// weighted max-min fairness: rates grow together, in proportion to the
// actions' priorities, until a resource saturates or an action reaches its
// bound, then the remaining actions keep growing. A claim's weight is the
// resource consumed per unit of progress.
type MaxMinModel struct {
	actions []*action
	index   map[sim.Activity]*action
}

// NewMaxMinModel creates an empty model.
func NewMaxMinModel() *MaxMinModel {
	return &MaxMinModel{index: make(map[sim.Activity]*action)}
}

// NotifyStarted implements sim.ResourceModel.
func (m *MaxMinModel) NotifyStarted(a sim.Activity, now float64) {
	if _, ok := m.index[a]; ok {
		return
	}
	d := a.Demand()
	act := &action{
		activity:  a,
		amount:    d.Amount,
		remaining: math.Max(0, d.Amount),
		claims:    d.Claims,
		bound:     d.Bound,
		priority:  d.Priority,
	}
	if act.priority <= 0 {
		act.priority = 1
	}
	m.actions = append(m.actions, act)
	m.index[a] = act
}

// Remaining implements sim.ResourceModel.
func (m *MaxMinModel) Remaining(a sim.Activity) float64 {
	if act, ok := m.index[a]; ok {
		return act.remaining
	}
	return 0
}

// NotifySuspended implements sim.ResourceModel.
func (m *MaxMinModel) NotifySuspended(a sim.Activity) {
	if act, ok := m.index[a]; ok {
		act.suspended = true
	}
}

// NotifyResumed implements sim.ResourceModel.
func (m *MaxMinModel) NotifyResumed(a sim.Activity) {
	if act, ok := m.index[a]; ok {
		act.suspended = false
	}
}

// NotifyCanceled implements sim.ResourceModel.
func (m *MaxMinModel) NotifyCanceled(a sim.Activity) {
	if act, ok := m.index[a]; ok {
		m.remove(act)
	}
}

// Len returns the number of tracked actions.
func (m *MaxMinModel) Len() int { return len(m.actions) }

// Rate returns the current progress rate of a tracked activity as of the
// last NextEvent.
func (m *MaxMinModel) Rate(a sim.Activity) float64 {
	if act, ok := m.index[a]; ok {
		return act.rate
	}
	return 0
}

func (m *MaxMinModel) remove(act *action) {
	delete(m.index, act.activity)
	for i, a := range m.actions {
		if a == act {
			m.actions = append(m.actions[:i], m.actions[i+1:]...)
			return
		}
	}
}

// NextEvent implements sim.ResourceModel. Actions claiming a resource that
// is off fail at now before anything else progresses.
func (m *MaxMinModel) NextEvent(now, limit float64) (float64, []sim.Completion) {
	var failed []sim.Completion
	for _, act := range m.actions {
		if act.failed() {
			failed = append(failed, sim.Completion{Activity: act.activity, State: sim.StateFailed, Remaining: act.remaining})
		}
	}
	if len(failed) > 0 {
		for _, c := range failed {
			m.remove(m.index[c.Activity])
		}
		return now, failed
	}

	m.share()
	dt := math.Inf(1)
	for _, act := range m.actions {
		switch {
		case act.suspended:
			continue
		case act.done() || math.IsInf(act.rate, 1):
			dt = 0
		case act.rate > 0:
			dt = math.Min(dt, act.remaining/act.rate)
		}
	}
	if math.IsInf(dt, 1) {
		return -1, nil
	}
	if limit >= 0 && now+dt > limit {
		m.progress(limit - now)
		return limit, nil
	}
	m.progress(dt)

	var done []sim.Completion
	for _, act := range m.actions {
		if !act.suspended && act.done() {
			done = append(done, sim.Completion{Activity: act.activity, State: sim.StateFinished})
		}
	}
	for _, c := range done {
		m.remove(m.index[c.Activity])
	}
	return now + dt, done
}

func (m *MaxMinModel) progress(dt float64) {
	for _, act := range m.actions {
		if act.suspended || act.rate == 0 {
			continue
		}
		if math.IsInf(act.rate, 1) {
			act.remaining = 0
			continue
		}
		act.remaining = math.Max(0, act.remaining-act.rate*dt)
	}
}

// share computes the weighted max-min fair rate of every running action
// by progressive filling.
func (m *MaxMinModel) share() {
	unsat := make([]*action, 0, len(m.actions))
	for _, act := range m.actions {
		act.rate = 0
		if !act.suspended {
			unsat = append(unsat, act)
		}
	}
	residual := make(map[*sim.Resource]float64)

	for len(unsat) > 0 {
		load := make(map[*sim.Resource]float64)
		for _, act := range unsat {
			for _, c := range act.claims {
				if c.Weight <= 0 {
					continue
				}
				if _, ok := residual[c.Resource]; !ok {
					residual[c.Resource] = c.Resource.Capacity()
				}
				load[c.Resource] += c.Weight * act.priority
			}
		}

		inc := math.Inf(1)
		for r, l := range load {
			inc = math.Min(inc, math.Max(0, residual[r])/l)
		}
		for _, act := range unsat {
			if act.bound > 0 {
				inc = math.Min(inc, (act.bound-act.rate)/act.priority)
			}
		}
		if math.IsInf(inc, 1) {
			for _, act := range unsat {
				act.rate = math.Inf(1)
			}
			return
		}

		for _, act := range unsat {
			act.rate += inc * act.priority
		}
		for r, l := range load {
			residual[r] -= inc * l
		}

		next := unsat[:0]
		for _, act := range unsat {
			if !saturated(act, residual) {
				next = append(next, act)
			}
		}
		unsat = next
	}
}

func saturated(act *action, residual map[*sim.Resource]float64) bool {
	if act.bound > 0 && act.rate >= act.bound*(1-precision) {
		return true
	}
	for _, c := range act.claims {
		if c.Weight > 0 && residual[c.Resource] <= precision*c.Resource.Capacity() {
			return true
		}
	}
	return false
}
