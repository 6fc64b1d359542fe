package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimerHeap_SameDate_FiresInScheduleOrder(t *testing.T) {
	// GIVEN timers scheduled out of date order, two at the same date
	h := NewTimerHeap()
	var fired []string
	h.Schedule(2, func() { fired = append(fired, "late") })
	h.Schedule(1, func() { fired = append(fired, "first") })
	h.Schedule(1, func() { fired = append(fired, "second") })

	// WHEN everything due at t=1 fires
	assert.True(t, h.ExecuteAll(1))

	// THEN same-date timers kept their scheduling order
	assert.Equal(t, []string{"first", "second"}, fired)
	assert.Equal(t, 2.0, h.NextDate())
}

func TestTimerHeap_Remove_SkipsTimer(t *testing.T) {
	h := NewTimerHeap()
	fired := false
	tm := h.Schedule(1, func() { fired = true })

	tm.Remove()

	assert.Equal(t, -1.0, h.NextDate())
	assert.False(t, h.ExecuteAll(5))
	assert.False(t, fired)
}

func TestTimerHeap_CallbackSchedulesDueTimer_FiresInSamePass(t *testing.T) {
	h := NewTimerHeap()
	count := 0
	h.Schedule(1, func() {
		count++
		h.Schedule(1, func() { count++ })
	})

	h.ExecuteAll(1)

	assert.Equal(t, 2, count)
	assert.Zero(t, h.Len())
}

func TestTimer_RemoveNil_NoPanic(t *testing.T) {
	var tm *Timer
	assert.NotPanics(t, tm.Remove)
}
