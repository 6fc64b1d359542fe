package sim

import "container/heap"

// Timer is a callback scheduled at a simulated date.
type Timer struct {
	date     float64
	seq      uint64
	callback func()
	removed  bool
}

// Date returns the date the timer fires at.
func (t *Timer) Date() float64 { return t.date }

// Remove cancels the timer. Removing an already fired timer is a no-op.
func (t *Timer) Remove() {
	if t != nil {
		t.removed = true
	}
}

// TimerHeap is a priority queue of timers with deterministic ordering.
// Ordering: date → insertion sequence.
type TimerHeap struct {
	timers []*Timer
	seq    uint64
}

// NewTimerHeap creates an empty timer heap.
func NewTimerHeap() *TimerHeap {
	h := &TimerHeap{timers: make([]*Timer, 0)}
	heap.Init(h)
	return h
}

// Len implements heap.Interface
func (h *TimerHeap) Len() int { return len(h.timers) }

// Less implements heap.Interface
func (h *TimerHeap) Less(i, j int) bool {
	ti, tj := h.timers[i], h.timers[j]
	if ti.date != tj.date {
		return ti.date < tj.date
	}
	return ti.seq < tj.seq
}

// Swap implements heap.Interface
func (h *TimerHeap) Swap(i, j int) { h.timers[i], h.timers[j] = h.timers[j], h.timers[i] }

// Push implements heap.Interface
func (h *TimerHeap) Push(x interface{}) { h.timers = append(h.timers, x.(*Timer)) }

// Pop implements heap.Interface
func (h *TimerHeap) Pop() interface{} {
	old := h.timers
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.timers = old[:n-1]
	return item
}

// Schedule registers callback to fire at date.
func (h *TimerHeap) Schedule(date float64, callback func()) *Timer {
	h.seq++
	t := &Timer{date: date, seq: h.seq, callback: callback}
	heap.Push(h, t)
	return t
}

// NextDate returns the date of the earliest live timer, or -1 if there is none.
func (h *TimerHeap) NextDate() float64 {
	h.dropRemoved()
	if h.Len() == 0 {
		return -1
	}
	return h.timers[0].date
}

// ExecuteAll fires every live timer due at or before now, in order, and
// reports whether any fired. Callbacks may schedule further timers.
func (h *TimerHeap) ExecuteAll(now float64) bool {
	fired := false
	for {
		h.dropRemoved()
		if h.Len() == 0 || h.timers[0].date > now {
			return fired
		}
		t := heap.Pop(h).(*Timer)
		t.removed = true
		t.callback()
		fired = true
	}
}

func (h *TimerHeap) dropRemoved() {
	for h.Len() > 0 && h.timers[0].removed {
		heap.Pop(h)
	}
}
