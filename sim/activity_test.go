package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivity_NewExec_DefaultState_IsInited(t *testing.T) {
	// GIVEN a fresh exec
	e := newTestEngine(t, 1)
	x := e.NewExec("", 10)

	// THEN it is inited, unassigned, unnamed after its kind, with no deps
	assert.Equal(t, StateInited, x.State())
	assert.Equal(t, "exec", x.Name())
	assert.False(t, x.IsAssigned())
	assert.True(t, x.DependenciesSolved())
	assert.Equal(t, 10.0, x.Remaining())
	assert.Equal(t, -1.0, x.StartTime())
	assert.Equal(t, -1.0, x.FinishTime())
}

func TestActivity_AddSuccessor_EdgeIsSymmetric(t *testing.T) {
	// GIVEN two activities
	e := newTestEngine(t, 1)
	a, b := e.NewExec("a", 1), e.NewExec("b", 1)

	// WHEN b is made to depend on a
	require.NoError(t, a.AddSuccessor(b))

	// THEN a lists b and b counts a as pending
	assert.Equal(t, []Activity{b}, a.Successors())
	assert.Equal(t, 1, b.DependencyCount())
	assert.False(t, b.DependenciesSolved())

	// WHEN the edge is removed
	require.NoError(t, a.RemoveSuccessor(b))

	// THEN both sides forget it
	assert.Empty(t, a.Successors())
	assert.True(t, b.DependenciesSolved())
}

func TestActivity_AddSuccessor_Self_Rejected(t *testing.T) {
	e := newTestEngine(t, 1)
	a := e.NewExec("a", 1)

	err := a.AddSuccessor(a)

	assert.ErrorIs(t, err, ErrSelfDependency)
	assert.Empty(t, a.Successors())
	assert.True(t, a.DependenciesSolved())
}

func TestActivity_AddSuccessor_Duplicate_Rejected(t *testing.T) {
	e := newTestEngine(t, 1)
	a, b := e.NewExec("a", 1), e.NewExec("b", 1)
	require.NoError(t, a.AddSuccessor(b))

	err := a.AddSuccessor(b)

	assert.ErrorIs(t, err, ErrDuplicateEdge)
	assert.Len(t, a.Successors(), 1)
	assert.Equal(t, 1, b.DependencyCount())
}

func TestActivity_RemoveSuccessor_Missing_Rejected(t *testing.T) {
	e := newTestEngine(t, 1)
	a, b := e.NewExec("a", 1), e.NewExec("b", 1)

	assert.ErrorIs(t, a.RemoveSuccessor(b), ErrNoSuchEdge)
	assert.ErrorIs(t, a.RemoveSuccessor(a), ErrSelfDependency)
}

func TestActivity_Start_Assigned_GoesStarted(t *testing.T) {
	// GIVEN an assigned exec with no dependency
	e := newTestEngine(t, 1)
	h := mustHost(t, e, "h0", 1)
	x := placedExec(t, e, "x", 4, h)
	starts := 0
	x.OnStart(func(Activity) { starts++ })

	// WHEN it is started
	require.NoError(t, x.Start())

	// THEN it is started exactly once, at the current date
	assert.Equal(t, StateStarted, x.State())
	assert.Equal(t, 1, starts)
	assert.Equal(t, 0.0, x.StartTime())

	// AND a second Start is rejected
	assert.ErrorIs(t, x.Start(), ErrInvalidState)
}

func TestActivity_Start_WithPendingDependency_VetoesOncePerCall(t *testing.T) {
	// GIVEN b depending on a, with global and per-instance veto callbacks
	e := newTestEngine(t, 1)
	h := mustHost(t, e, "h0", 1)
	a, b := placedExec(t, e, "a", 1, h), placedExec(t, e, "b", 1, h)
	require.NoError(t, a.AddSuccessor(b))
	var order []string
	e.Hooks(KindExec).OnVeto.Connect(func(Activity) { order = append(order, "global") })
	b.OnVeto(func(Activity) { order = append(order, "instance") })

	// WHEN b is started twice
	require.NoError(t, b.Start())
	require.NoError(t, b.Start())

	// THEN each call produced exactly one veto, global hooks first
	assert.Equal(t, []string{"global", "instance", "global", "instance"}, order)
	assert.Equal(t, StateStarting, b.State())
}

func TestActivity_Start_Unassigned_VetoedIntoSink(t *testing.T) {
	// GIVEN an unassigned exec and a registered veto sink
	e := newTestEngine(t, 1)
	sink := NewVetoSet()
	e.SetVetoSink(sink)
	x := e.NewExec("x", 1)

	// WHEN it is started
	require.NoError(t, x.Start())

	// THEN it waits in the sink
	assert.Equal(t, StateStarting, x.State())
	assert.True(t, sink.Contains(x))

	// WHEN it is assigned and started again
	require.NoError(t, x.SetHost(mustHost(t, e, "h0", 1)))
	require.NoError(t, x.Start())

	// THEN it runs and left the sink
	assert.Equal(t, StateStarted, x.State())
	assert.Zero(t, sink.Len())
}

func TestActivity_Setters_AfterStart_Rejected(t *testing.T) {
	e := newTestEngine(t, 1)
	h := mustHost(t, e, "h0", 1)
	x := placedExec(t, e, "x", 1, h)
	require.NoError(t, x.Start())

	assert.ErrorIs(t, x.SetName("y"), ErrActivityStarted)
	assert.ErrorIs(t, x.SetTracingCategory("c"), ErrActivityStarted)
	assert.ErrorIs(t, x.SetFlopsAmount(2), ErrActivityStarted)
	assert.ErrorIs(t, x.SetHost(h), ErrActivityStarted)
	assert.Equal(t, "x", x.Name())
}

func TestActivity_Cancel_IsIdempotent(t *testing.T) {
	// GIVEN a started exec with a successor
	e := newTestEngine(t, 1)
	h := mustHost(t, e, "h0", 1)
	a, b := placedExec(t, e, "a", 5, h), placedExec(t, e, "b", 1, h)
	require.NoError(t, a.AddSuccessor(b))
	completions := 0
	a.OnCompletion(func(Activity) { completions++ })
	require.NoError(t, a.Start())

	// WHEN it is canceled twice
	a.Cancel()
	a.Cancel()

	// THEN it completed once, kept its remaining work and did not start b
	assert.Equal(t, StateCanceled, a.State())
	assert.Equal(t, 1, completions)
	assert.InDelta(t, 5.0, a.Remaining(), 1e-9)
	assert.Equal(t, StateInited, b.State())
	assert.True(t, b.DependenciesSolved(), "the edge is released")
}

func TestActivity_Cancel_Starting_DetachesFromPredecessors(t *testing.T) {
	// GIVEN b vetoed because it depends on a
	e := newTestEngine(t, 1)
	sink := NewVetoSet()
	e.SetVetoSink(sink)
	h := mustHost(t, e, "h0", 1)
	a, b := placedExec(t, e, "a", 1, h), placedExec(t, e, "b", 1, h)
	require.NoError(t, a.AddSuccessor(b))
	require.NoError(t, b.Start())
	require.True(t, sink.Contains(b))

	// WHEN b is canceled
	b.Cancel()

	// THEN a no longer lists it and the sink forgot it
	assert.Empty(t, a.Successors())
	assert.False(t, sink.Contains(b))
}

func TestActivity_SuspendResume_RoundTrip_KeepsRemaining(t *testing.T) {
	// GIVEN a started exec
	e := newTestEngine(t, 1)
	h := mustHost(t, e, "h0", 1)
	x := placedExec(t, e, "x", 10, h)
	require.NoError(t, x.Start())
	before := x.Remaining()

	// WHEN it is suspended then resumed at the same date
	x.Suspend()
	assert.True(t, x.IsSuspended())
	x.Resume()

	// THEN nothing changed
	assert.False(t, x.IsSuspended())
	assert.Equal(t, StateStarted, x.State())
	assert.InDelta(t, before, x.Remaining(), 1e-9)
}

func TestActivity_Suspended_DoesNotProgress(t *testing.T) {
	// GIVEN a started exec of 10 flops on a host of speed 1, suspended
	e := newTestEngine(t, 1)
	h := mustHost(t, e, "h0", 1)
	x := placedExec(t, e, "x", 10, h)
	require.NoError(t, x.Start())
	x.Suspend()

	// WHEN the clock moves to 5
	require.NoError(t, e.RunUntil(5))

	// THEN no work was done
	assert.InDelta(t, 5.0, e.Clock(), 1e-9)
	assert.InDelta(t, 10.0, x.Remaining(), 1e-9)

	// WHEN it is resumed and the simulation runs out
	x.Resume()
	require.NoError(t, e.Run())

	// THEN it ends 10 seconds after the resumption
	assert.Equal(t, StateFinished, x.State())
	assert.InDelta(t, 15.0, x.FinishTime(), 1e-9)
}

func TestActivity_SuspendedBeforeStart_StartsSuspended(t *testing.T) {
	e := newTestEngine(t, 1)
	h := mustHost(t, e, "h0", 1)
	x := placedExec(t, e, "x", 2, h)

	x.Suspend()
	require.NoError(t, x.Start())
	require.NoError(t, e.RunUntil(3))

	assert.Equal(t, StateStarted, x.State())
	assert.InDelta(t, 2.0, x.Remaining(), 1e-9)
}

func TestActivity_Cascade_AllAssigned_RunsChain(t *testing.T) {
	// GIVEN A -> B -> C, all assigned, only A started
	e := newTestEngine(t, 1)
	h := mustHost(t, e, "h0", 1)
	a := placedExec(t, e, "A", 1, h)
	b := placedExec(t, e, "B", 1, h)
	c := placedExec(t, e, "C", 1, h)
	require.NoError(t, a.AddSuccessor(b))
	require.NoError(t, b.AddSuccessor(c))
	require.NoError(t, a.Start())

	// WHEN the simulation runs
	require.NoError(t, e.Run())

	// THEN B and C were started by the kernel, one after the other
	for _, x := range []*Exec{a, b, c} {
		assert.Equal(t, StateFinished, x.State(), x.Name())
	}
	assert.InDelta(t, 1.0, b.StartTime(), 1e-9)
	assert.InDelta(t, 2.0, c.StartTime(), 1e-9)
	assert.InDelta(t, 3.0, c.FinishTime(), 1e-9)
}

func TestActivity_Cascade_UnassignedSuccessor_VetoedOnce(t *testing.T) {
	// GIVEN A -> B -> C where C has no host
	e := newTestEngine(t, 1)
	h := mustHost(t, e, "h0", 1)
	a := placedExec(t, e, "A", 1, h)
	b := placedExec(t, e, "B", 1, h)
	c := e.NewExec("C", 1)
	require.NoError(t, a.AddSuccessor(b))
	require.NoError(t, b.AddSuccessor(c))
	vetoes := 0
	c.OnVeto(func(Activity) { vetoes++ })
	require.NoError(t, a.Start())

	// WHEN the simulation runs
	require.NoError(t, e.Run())

	// THEN C was vetoed once when B finished and stays starting
	assert.Equal(t, StateFinished, b.State())
	assert.Equal(t, StateStarting, c.State())
	assert.Equal(t, 1, vetoes)
	assert.True(t, c.DependenciesSolved())
}

func TestActivity_Cascade_StartsInInsertionOrder(t *testing.T) {
	// GIVEN A with successors B then C
	e := newTestEngine(t, 1)
	h := mustHost(t, e, "h0", 1)
	a := placedExec(t, e, "A", 1, h)
	b := placedExec(t, e, "B", 1, h)
	c := placedExec(t, e, "C", 1, h)
	require.NoError(t, a.AddSuccessor(b))
	require.NoError(t, a.AddSuccessor(c))
	var started []string
	e.Hooks(KindExec).OnStart.Connect(func(x Activity) { started = append(started, x.Name()) })
	require.NoError(t, a.Start())

	// WHEN A finishes
	require.NoError(t, e.RunUntil(1))

	// THEN B started before C
	assert.Equal(t, []string{"A", "B", "C"}, started)
}

func TestActivity_Cascade_SuccessorWithOtherPendingPredecessor_Waits(t *testing.T) {
	// GIVEN C depending on both A and B, B never started
	e := newTestEngine(t, 1)
	h := mustHost(t, e, "h0", 1)
	a := placedExec(t, e, "A", 1, h)
	b := placedExec(t, e, "B", 1, h)
	c := placedExec(t, e, "C", 1, h)
	require.NoError(t, a.AddSuccessor(c))
	require.NoError(t, b.AddSuccessor(c))
	require.NoError(t, a.Start())

	// WHEN A finishes
	require.NoError(t, e.Run())

	// THEN C still waits for B
	assert.Equal(t, StateInited, c.State())
	assert.Equal(t, 1, c.DependencyCount())
}

func TestActivity_Detach_StartsUnstarted(t *testing.T) {
	e := newTestEngine(t, 1)
	h := mustHost(t, e, "h0", 1)
	x := placedExec(t, e, "x", 1, h)

	require.NoError(t, x.Detach())

	assert.True(t, x.IsDetached())
	assert.Equal(t, StateStarted, x.State())
}

func TestActivity_Mark_ScratchBit(t *testing.T) {
	e := newTestEngine(t, 1)
	x := e.NewExec("x", 1)

	x.Mark()
	assert.True(t, x.IsMarked())
	x.Unmark()
	assert.False(t, x.IsMarked())
}

func TestComm_Route_FinishesAtLinkRate(t *testing.T) {
	// GIVEN two hosts joined by a link of 10 bytes/s
	e := newTestEngine(t, 1)
	src, dst := mustHost(t, e, "src", 1), mustHost(t, e, "dst", 1)
	l, err := e.AddLink("l0", 10)
	require.NoError(t, err)
	require.NoError(t, e.AddRoute(src, dst, l))
	c := e.NewComm("c", 100)
	assert.False(t, c.IsAssigned())
	require.NoError(t, c.SetSource(src))
	require.NoError(t, c.SetDestination(dst))

	// WHEN the comm runs
	require.NoError(t, c.Start())
	require.NoError(t, e.Run())

	// THEN it took 100/10 seconds
	assert.Equal(t, StateFinished, c.State())
	assert.InDelta(t, 10.0, c.FinishTime(), 1e-9)
}

func TestIo_Write_UsesWriteBandwidth(t *testing.T) {
	e := newTestEngine(t, 1)
	h := mustHost(t, e, "h0", 1)
	d := h.AddDisk("d0", 100, 20)
	io := e.NewIo("w", 40, IoWrite)
	require.NoError(t, io.SetDisk(d))

	require.NoError(t, io.Start())
	require.NoError(t, e.Run())

	assert.Equal(t, StateFinished, io.State())
	assert.InDelta(t, 2.0, io.FinishTime(), 1e-9)
}
