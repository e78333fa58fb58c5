// Package task defines the authoritative representation of a unit of work
// exchanged between a Management Engine and a Worker Pool through EQ-SQL.
//
// A Task carries a caller-supplied payload plus the scheduling and lifecycle
// metadata that the queue engine maintains: its status, the worker pool that
// claimed it (if any), and its priority.
//
// Task values returned by claim, report, and query operations are snapshots
// of storage state at the time of the call. Mutating a Task's fields does
// not change the underlying row; transitions happen only through the
// Puller interface.
package task
