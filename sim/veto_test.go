package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVetoSet_KeepsVetoOrderWithoutDuplicates(t *testing.T) {
	e := newTestEngine(t, 1)
	a, b, c := e.NewExec("a", 1), e.NewExec("b", 1), e.NewExec("c", 1)
	s := NewVetoSet()

	s.Add(b)
	s.Add(a)
	s.Add(b)
	s.Add(c)
	s.Remove(a)
	s.Remove(a)

	assert.Equal(t, []Activity{b, c}, s.Activities())
	assert.True(t, s.Contains(c))
	assert.False(t, s.Contains(a))

	s.Clear()
	assert.Zero(t, s.Len())
}
