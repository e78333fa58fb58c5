// Package executor defines an optional seam for handing work to a remote
// function-as-a-service executor (for example Globus Compute) instead of
// submitting to a local batch scheduler. ScheduledPool does not use it:
// ScheduledPool always launches through its Scheduler.
//
// No concrete implementation ships here: the example corpus this module
// was built from contains no FaaS SDK to bind against, so Remote is left
// as an extension point for callers who have one.
package executor

import "context"

// Remote submits a callable for out-of-process execution and returns a
// handle for its eventual outcome.
type Remote interface {
	Submit(ctx context.Context, fn Func) (Handle, error)
}

// Func is an opaque unit of remote work; its shape is intentionally left
// to the concrete Remote implementation to define via a closure or a
// serializable reference the remote side knows how to execute.
type Func func(ctx context.Context) (string, error)

// Handle represents a submitted remote invocation.
type Handle interface {
	// Wait blocks until the remote invocation finishes and returns its
	// result.
	Wait(ctx context.Context) (string, error)

	// Cancel requests cancellation of the remote invocation.
	Cancel(ctx context.Context) error
}
