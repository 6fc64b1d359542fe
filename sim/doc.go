// Package sim provides the discrete-event simulation kernel of actorsim.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - activity.go: Activity lifecycle (inited → starting → started → terminal), dependency edges and vetoes
//   - actor.go: Actors, their blocking operations and their termination
//   - engine.go: The kernel loop alternating run phases and clock advances
//
// # Architecture
//
// The sim package defines the kernel and the collaborator interfaces;
// implementations live in sub-packages:
//   - sim/resource/: Max-min fair sharing of hosts, links and disks
//   - sim/dagsched/: Min-Min scheduler placing vetoed DAG tasks
//   - sim/trace/: Activity and actor lifecycle recording
//
// Sub-packages register their implementations via init() functions that set
// package-level factory variables (NewResourceModelFunc).
//
// # Key Interfaces
//
//   - Activity: Exec, Comm, Io and the internal Sleep share ActivityBase
//   - ResourceModel: progress of started activities and the date of the next completion
//   - VetoSink: where vetoed activities wait for an external scheduler
//   - ContextFactory: serial or parallel resumption of ready actors
//
// # Threading
//
// Only one actor runs at a time in serial mode, and actor code may call any
// kernel operation directly. With EngineConfig.Workers > 1, ready actors run
// concurrently and every kernel mutation goes through the Actor methods,
// which defer it to the end of the round where maestro applies it in a
// stable order.
package sim
