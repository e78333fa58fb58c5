package eqsql

import (
	"context"

	"github.com/emews/EQ-SQL/submission"
	"github.com/emews/EQ-SQL/task"
)

// Pusher defines the write-side entry point of the queue: submitting new
// tasks on behalf of a Management Engine.
type Pusher interface {

	// Submit enqueues a new task and returns its assigned task, with Id
	// populated from the storage-owned id sequence and Status set to
	// Queued.
	//
	// Submit assigns the task id and creation timestamp; it does not
	// accept a caller-supplied id, since task ids are a storage-owned
	// sequence shared across all experiments.
	//
	// If Submit returns a non-nil error, the task must not be considered
	// enqueued.
	Submit(ctx context.Context, s submission.Submission) (*task.Task, error)

	// SubmitBatch enqueues multiple tasks as a single round trip. It is
	// equivalent to calling Submit for each entry but avoids one round
	// trip per task when a Management Engine submits a batch together.
	//
	// SubmitBatch is all-or-nothing: if any submission fails validation
	// (for example, an explicit priority of -1), no task in the batch is
	// persisted.
	SubmitBatch(ctx context.Context, batch []submission.Submission) ([]*task.Task, error)
}
