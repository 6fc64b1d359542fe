package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/actorsim/sim"
	"github.com/inference-sim/actorsim/sim/trace"
)

func buildScenario(t *testing.T, src string) *World {
	t.Helper()
	sc, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	w, err := sc.Build(sc.Engine, nil)
	require.NoError(t, err)
	t.Cleanup(w.Engine.Shutdown)
	return w
}

func TestLoadScenario_Pipeline_RunsActivityGraph(t *testing.T) {
	// GIVEN produce (4 flops on h0) feeding a 20 B transfer to h1 and a
	// 10 B disk write, the transfer feeding consume (2 flops at speed 2)
	sc, err := LoadScenario("testdata/pipeline.yaml")
	require.NoError(t, err)
	w, err := sc.Build(sc.Engine, nil)
	require.NoError(t, err)
	t.Cleanup(w.Engine.Shutdown)

	// WHEN the simulation runs
	require.NoError(t, w.Engine.Run())

	// THEN the chain ends at 4 + 2 + 1, the write at 4 + 1
	for _, a := range w.Activities {
		assert.Equal(t, sim.StateFinished, a.State(), a.Name())
	}
	assert.InDelta(t, 6.0, w.Activity("ship").(*sim.Comm).FinishTime(), 1e-9)
	assert.InDelta(t, 5.0, w.Activity("save").(*sim.Io).FinishTime(), 1e-9)
	assert.InDelta(t, 7.0, w.Engine.Clock(), 1e-9)
}

func TestScenario_ActorScript_DaemonStopsWithLastActor(t *testing.T) {
	w := buildScenario(t, `
hosts: [{name: h0, speed: 1}]
actors:
  - name: worker
    host: h0
    steps:
      - exec: 3
      - sleep: 2
      - log: done
  - name: ticker
    host: h0
    daemon: true
    steps:
      - loop: {steps: [{sleep: 1}]}
`)

	require.NoError(t, w.Engine.Run())

	assert.InDelta(t, 5.0, w.Engine.Clock(), 1e-9)
	assert.Zero(t, w.Engine.ActorCount())
}

func TestScenario_WaitForWithCancel_CancelsAtTimeout(t *testing.T) {
	w := buildScenario(t, `
hosts: [{name: h0, speed: 1}]
activities:
  - {name: big, kind: exec, amount: 10, host: h0}
actors:
  - name: impatient
    host: h0
    steps:
      - start: big
      - wait_for: {activity: big, timeout: 2, cancel: true}
`)

	require.NoError(t, w.Engine.Run())

	assert.Equal(t, sim.StateCanceled, w.Activity("big").State())
	assert.InDelta(t, 2.0, w.Engine.Clock(), 1e-9)
}

func TestScenario_JoinAndKill(t *testing.T) {
	// GIVEN a sleeper killed at 1 by a killer, and a waiter joining the sleeper
	w := buildScenario(t, `
hosts: [{name: h0, speed: 1}]
actors:
  - {name: sleeper, host: h0, steps: [{sleep: 100}]}
  - {name: killer, host: h0, steps: [{sleep: 1}, {kill: sleeper}]}
  - {name: waiter, host: h0, steps: [{join: sleeper}, {exec: 2}]}
`)

	require.NoError(t, w.Engine.Run())

	// THEN the waiter computed from 1 to 3
	assert.InDelta(t, 3.0, w.Engine.Clock(), 1e-9)
	assert.False(t, w.Actor("sleeper").IsAlive())
}

func TestScenario_UnplacedActivity_Deadlocks(t *testing.T) {
	// GIVEN an actor waiting on an exec that no host was given
	w := buildScenario(t, `
hosts: [{name: h0, speed: 1}]
activities:
  - {name: orphan, kind: exec, amount: 1}
actors:
  - {name: a, host: h0, steps: [{start: orphan}, {wait: orphan}]}
`)

	err := w.Engine.Run()

	assert.ErrorIs(t, err, sim.ErrDeadlock)
}

func TestScenario_Invalid_Rejected(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown field", `hosts: [{name: h0, speed: 1, cores: 4}]`, "cores"},
		{"unknown kind", "hosts: [{name: h0, speed: 1}]\nactivities: [{name: x, kind: gpu, amount: 1}]", "unknown kind"},
		{"unknown predecessor", "hosts: [{name: h0, speed: 1}]\nactivities: [{name: x, kind: exec, amount: 1, after: [y]}]", "unknown predecessor"},
		{"two actions", "hosts: [{name: h0, speed: 1}]\nactors: [{name: a, host: h0, steps: [{exec: 1, sleep: 1}]}]", "exactly one action"},
		{"no action", "hosts: [{name: h0, speed: 1}]\nactors: [{name: a, host: h0, steps: [{}]}]", "exactly one action"},
		{"unknown activity ref", "hosts: [{name: h0, speed: 1}]\nactors: [{name: a, host: h0, steps: [{wait: nope}]}]", "unknown activity"},
		{"unknown actor ref", "hosts: [{name: h0, speed: 1}]\nactors: [{name: a, host: h0, steps: [{kill: nope}]}]", "unknown actor"},
		{"unknown actor host", `actors: [{name: a, host: nowhere, steps: []}]`, "unknown host"},
		{"bad io op", "hosts: [{name: h0, speed: 1}]\nactivities: [{name: x, kind: io, amount: 1, op: erase}]", "unknown io op"},
		{"bad route", "hosts: [{name: h0, speed: 1}]\nroutes: [{src: h0, dst: h9, links: []}]", "unknown host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := ParseScenario([]byte(tt.src))
			if err == nil {
				var w *World
				w, err = sc.Build(sc.Engine, nil)
				if w != nil {
					w.Engine.Shutdown()
				}
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScenario_PlacementOnUnknownHost_NotAssignable(t *testing.T) {
	sc, err := ParseScenario([]byte("hosts: [{name: h0, speed: 1}]\nactivities: [{name: x, kind: exec, amount: 1, host: h7}]"))
	require.NoError(t, err)

	_, err = sc.Build(sc.Engine, nil)

	assert.ErrorIs(t, err, sim.ErrNotAssignable)
}

func TestPrintScenarioReport_IncludesTraceSummary(t *testing.T) {
	// GIVEN a traced run of the pipeline scenario
	sc, err := LoadScenario("testdata/pipeline.yaml")
	require.NoError(t, err)
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelLifecycle})
	w, err := sc.Build(sc.Engine, st)
	require.NoError(t, err)
	t.Cleanup(w.Engine.Shutdown)
	require.NoError(t, w.Engine.Run())

	// WHEN the report is printed
	var buf bytes.Buffer
	printScenarioReport(&buf, w, st, nil)

	// THEN it carries the header, every activity and the summary
	out := buf.String()
	assert.Contains(t, out, "=== Simulation Report ===")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "consume")
	assert.Contains(t, out, "=== Trace Summary ===")
	assert.Contains(t, out, "Starts             : 4")
	assert.Contains(t, out, "Completions        : 4")
}
