package sim_test

// Blank import triggers sim/resource's init(), which registers NewResourceModelFunc.
// This allows package sim's internal test files to create engines without
// directly importing sim/resource (which would create an import cycle).
import _ "github.com/inference-sim/actorsim/sim/resource"
