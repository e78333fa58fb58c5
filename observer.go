package eqsql

import (
	"context"

	"github.com/emews/EQ-SQL/task"
)

// Observer provides read-only access to tasks and queue state.
//
// Observer does not modify task state and does not participate in claim or
// report transitions. It is intended for ME polling, diagnostic, and
// administrative use.
//
// Methods of Observer return authoritative snapshots of storage state at
// the time of the call. Returned Task values must be treated as immutable
// views; mutating them does not affect the underlying queue.
type Observer interface {

	// QueryStatus returns the current snapshot of the task identified by
	// id together with a short human-readable status description (for
	// example "COMPLETE"). It does not return the task's result payload;
	// use QueryResult for that.
	//
	// If no task with the given id exists, QueryStatus returns
	// (nil, "", ErrTaskLost).
	QueryStatus(ctx context.Context, id int64) (*task.Task, string, error)

	// QueryResult returns the reported result payload for a Complete
	// task. It returns ErrQueueEmpty if the task has not yet reached
	// Complete, which lets callers building a single poll loop
	// distinguish "not done yet" from "task vanished" (ErrTaskLost).
	//
	// QueryResult pops the result off the delivery queue: once read, the
	// same unread-result row will not be returned to another caller. A
	// durable copy of the result remains attached to the task itself, so
	// a second QueryResult call for the same id still succeeds.
	QueryResult(ctx context.Context, id int64) (string, error)

	// QueryWorkerPool returns the worker pool currently (or most
	// recently) assigned to the task identified by id, and the empty
	// string if the task has never been claimed.
	QueryWorkerPool(ctx context.Context, id int64) (string, error)

	// QueryPriorities returns the current priority of each task named by
	// ids, in the same order. Tasks that no longer exist are reported
	// with ErrTaskLost wrapped per-id in the returned error, using
	// errors.Join, while priorities for tasks that do exist are still
	// populated.
	QueryPriorities(ctx context.Context, ids []int64) ([]int64, error)

	// AreQueuesEmpty reports whether no Queued or Running tasks of the
	// given type belonging to expId remain. expId is matched exactly;
	// there is no value that matches all experiments.
	AreQueuesEmpty(ctx context.Context, expId, taskType string) (bool, error)
}
