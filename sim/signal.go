package sim

// Signal is an ordered list of callbacks fired synchronously by the kernel.
// Slots run in connection order.
type Signal[T any] struct {
	slots []func(T)
}

// Connect appends a slot.
func (s *Signal[T]) Connect(slot func(T)) {
	s.slots = append(s.slots, slot)
}

// Len returns the number of connected slots.
func (s *Signal[T]) Len() int {
	return len(s.slots)
}

func (s *Signal[T]) fire(v T) {
	for _, slot := range s.slots {
		slot(v)
	}
}

// ActivityHooks holds the callbacks shared by every activity of one kind.
// They fire before the per-instance callbacks of the same event.
type ActivityHooks struct {
	OnStart      Signal[Activity]
	OnCompletion Signal[Activity]
	OnSuspend    Signal[Activity]
	OnResume     Signal[Activity]
	OnVeto       Signal[Activity]
}
