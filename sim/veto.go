package sim

// VetoSink receives the activities whose Start was vetoed, so that an
// external scheduler can assign them and start them again. The kernel
// removes an activity from the sink when it finally starts or is canceled.
// While the sink is not empty, Engine.Run returns after each scheduling
// round to let the scheduler act.
type VetoSink interface {
	Add(a Activity)
	Remove(a Activity)
	Len() int
}

// VetoSet is a VetoSink keeping activities in veto order.
type VetoSet struct {
	items []Activity
	index map[Activity]struct{}
}

// NewVetoSet creates an empty VetoSet.
func NewVetoSet() *VetoSet {
	return &VetoSet{index: make(map[Activity]struct{})}
}

// Add records a, once.
func (s *VetoSet) Add(a Activity) {
	if _, ok := s.index[a]; ok {
		return
	}
	s.index[a] = struct{}{}
	s.items = append(s.items, a)
}

// Remove forgets a.
func (s *VetoSet) Remove(a Activity) {
	if _, ok := s.index[a]; !ok {
		return
	}
	delete(s.index, a)
	for i, it := range s.items {
		if it == a {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// Len returns the number of recorded activities.
func (s *VetoSet) Len() int { return len(s.items) }

// Contains reports whether a is recorded.
func (s *VetoSet) Contains(a Activity) bool {
	_, ok := s.index[a]
	return ok
}

// Activities returns a copy of the recorded activities in veto order.
func (s *VetoSet) Activities() []Activity {
	out := make([]Activity, len(s.items))
	copy(out, s.items)
	return out
}

// Clear forgets every activity.
func (s *VetoSet) Clear() {
	s.items = nil
	s.index = make(map[Activity]struct{})
}
