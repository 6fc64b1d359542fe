package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/actorsim/sim/dagsched"
)

func TestScheduleWorkflow_FromFile(t *testing.T) {
	// GIVEN a two-task chain in a workflow file
	path := filepath.Join(t.TempDir(), "chain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: chain
tasks:
  - {name: a, type: compute, flops: 2}
  - {name: a_b, type: transfer, bytes: 10, parents: [a]}
  - {name: b, type: compute, flops: 2, parents: [a_b]}
`), 0o644))
	w, err := loadOrGenerate(path, dagsched.GeneratorConfig{})
	require.NoError(t, err)

	// WHEN it is scheduled on one host of speed 1
	r, err := scheduleWorkflow(w, 1, 1, 10)

	// THEN both tasks run back to back on h0
	require.NoError(t, err)
	assert.InDelta(t, 4.0, r.Makespan, 1e-9)
	require.Len(t, r.Placements, 2)
	assert.Equal(t, "h0", r.Placements[1].Host)

	var buf bytes.Buffer
	printScheduleReport(&buf, w.Name, r)
	assert.Contains(t, buf.String(), "=== Workflow Schedule ===")
	assert.Contains(t, buf.String(), "Placed tasks       : 2")
}

func TestScheduleWorkflow_Generated_PlacesEveryTask(t *testing.T) {
	w, err := loadOrGenerate("", dagsched.GeneratorConfig{Tasks: 15, MaxWidth: 4, MeanFlops: 5, MeanBytes: 5, EdgeProb: 0.3, Seed: 3})
	require.NoError(t, err)

	r, err := scheduleWorkflow(w, 3, 1, 10)

	require.NoError(t, err)
	assert.Len(t, r.Placements, 15)
}

func TestScheduleWorkflow_NoHost_Rejected(t *testing.T) {
	w := &dagsched.Workflow{Name: "w", Tasks: []dagsched.TaskSpec{{Name: "a", Type: dagsched.TaskCompute, Flops: 1}}}

	_, err := scheduleWorkflow(w, 0, 1, 1)

	assert.Error(t, err)
}

func TestLoadOrGenerate_MissingFile(t *testing.T) {
	_, err := loadOrGenerate(filepath.Join(t.TempDir(), "absent.yaml"), dagsched.GeneratorConfig{})

	assert.Error(t, err)
}
