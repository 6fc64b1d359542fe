package sim

import (
	"github.com/pingcap/errors"
)

// Usage errors: the caller asked for something the activity graph forbids.
var (
	ErrSelfDependency = errors.Normalize(
		"activity %s cannot depend on itself",
		errors.RFCCodeText("SIM:ErrSelfDependency"),
	)
	ErrDuplicateEdge = errors.Normalize(
		"activity %s is already a successor of %s",
		errors.RFCCodeText("SIM:ErrDuplicateEdge"),
	)
	ErrNoSuchEdge = errors.Normalize(
		"activity %s is not a successor of %s",
		errors.RFCCodeText("SIM:ErrNoSuchEdge"),
	)
	ErrActivityStarted = errors.Normalize(
		"cannot change the %s of activity %s once it is %s",
		errors.RFCCodeText("SIM:ErrActivityStarted"),
	)
	ErrInvalidState = errors.Normalize(
		"activity %s cannot be started from state %s",
		errors.RFCCodeText("SIM:ErrInvalidState"),
	)
	ErrNotAssignable = errors.Normalize(
		"activity %s cannot be placed on %s",
		errors.RFCCodeText("SIM:ErrNotAssignable"),
	)
)

// Errors reported to actors blocked on an activity.
var (
	ErrTimeout = errors.Normalize(
		"timeout while waiting for %s",
		errors.RFCCodeText("SIM:ErrTimeout"),
	)
	ErrCanceled = errors.Normalize(
		"activity %s was canceled",
		errors.RFCCodeText("SIM:ErrCanceled"),
	)
	ErrFailed = errors.Normalize(
		"activity %s failed",
		errors.RFCCodeText("SIM:ErrFailed"),
	)
	ErrHostFailure = errors.Normalize(
		"host %s is turned off",
		errors.RFCCodeText("SIM:ErrHostFailure"),
	)
)

// Actor and engine errors.
var (
	ErrActorDead = errors.Normalize(
		"actor %s (pid %d) is terminated",
		errors.RFCCodeText("SIM:ErrActorDead"),
	)
	ErrActorPanic = errors.Normalize(
		"actor %s (pid %d) panicked: %v",
		errors.RFCCodeText("SIM:ErrActorPanic"),
	)
	ErrDeadlock = errors.Normalize(
		"deadlock at t=%.6f: %d actor(s) blocked with nothing left to progress",
		errors.RFCCodeText("SIM:ErrDeadlock"),
	)
)
