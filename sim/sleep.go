package sim

import "math"

// Sleep is a pause of the simulated clock for one actor. It progresses on
// the timer heap, not on the resource model. A negative duration never ends
// on its own.
type Sleep struct {
	ActivityBase
	timer    *Timer
	deadline float64
	left     float64
}

func (e *Engine) newSleep(name string, duration float64) *Sleep {
	if duration < 0 {
		duration = math.Inf(1)
	}
	s := &Sleep{left: duration}
	s.init(e, KindSleep, s, name, duration)
	return s
}

func (s *Sleep) IsAssigned() bool { return true }

func (s *Sleep) Demand() Demand { return Demand{Amount: s.amount} }

func (s *Sleep) arm() {
	if s.suspended || math.IsInf(s.left, 1) {
		return
	}
	now := s.engine.clock
	s.deadline = now + s.left
	s.timer = s.engine.timers.Schedule(s.deadline, func() {
		s.timer = nil
		s.left = 0
		s.complete(StateFinished, 0)
	})
}

func (s *Sleep) disarm() {
	if s.timer == nil {
		return
	}
	s.timer.Remove()
	s.timer = nil
	s.left = math.Max(0, s.deadline-s.engine.clock)
}

func (s *Sleep) timeLeft() float64 {
	if s.timer != nil {
		return math.Max(0, s.deadline-s.engine.clock)
	}
	return s.left
}

// finish ends the sleep early with success.
func (s *Sleep) finish() {
	if s.state.IsTerminal() {
		return
	}
	s.disarm()
	s.complete(StateFinished, s.left)
}
