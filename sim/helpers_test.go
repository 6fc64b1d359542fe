package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestEngine creates an engine that is shut down when the test ends, so
// that no actor goroutine outlives it.
func newTestEngine(t *testing.T, workers int) *Engine {
	t.Helper()
	e := NewEngine(EngineConfig{Workers: workers})
	t.Cleanup(e.Shutdown)
	return e
}

func mustHost(t *testing.T, e *Engine, name string, speed float64) *Host {
	t.Helper()
	h, err := e.AddHost(name, speed)
	require.NoError(t, err)
	return h
}

func mustActor(t *testing.T, e *Engine, name string, h *Host, code ActorCode) *Actor {
	t.Helper()
	a, err := e.CreateActor(name, h, code)
	require.NoError(t, err)
	return a
}

// placedExec creates an exec already assigned to h.
func placedExec(t *testing.T, e *Engine, name string, flops float64, h *Host) *Exec {
	t.Helper()
	x := e.NewExec(name, flops)
	require.NoError(t, x.SetHost(h))
	return x
}
