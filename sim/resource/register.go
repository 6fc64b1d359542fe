// register.go wires the sim/resource constructor into the sim package's
// registration variable (NewResourceModelFunc). This init() runs when any
// package imports sim/resource, breaking the import cycle between sim/
// (interface owner) and sim/resource/ (implementation). Production code
// imports sim/resource directly; test code in package sim uses
// resource_import_test.go for the blank import.
package resource

import "github.com/inference-sim/actorsim/sim"

func init() {
	sim.NewResourceModelFunc = func() sim.ResourceModel { return NewMaxMinModel() }
}
