package task

import (
	"time"

	"github.com/emews/EQ-SQL/submission"
)

// Task represents a submission as managed by the queue storage.
//
// It embeds submission.Submission and augments it with lifecycle state.
//
// CreatedAt records when the task was originally submitted.
// UpdatedAt records the last state transition.
// StartedAt records when the task was claimed (nil until Running).
// StoppedAt records when the task was reported (nil until Complete).
//
// Status represents the current position in the task lifecycle.
// WorkerPool names the pool that currently owns (or last owned) the task;
// it is empty until the task is claimed.
// Priority mirrors the current scheduling priority; it may be changed after
// submission via update-priority operations and is re-read from storage on
// every claim, so a Task snapshot's Priority can go stale.
// Result holds the durable copy of the reported payload, populated once the
// task reaches Complete; it survives independently of the emews_queue_in
// delivery row, which QueryResult pops on read.
//
// Task instances are snapshots of storage state. Mutating fields directly
// does not change the underlying row; transitions must be performed through
// the Puller interface.
type Task struct {
	submission.Submission

	Id int64

	CreatedAt time.Time
	UpdatedAt time.Time
	StartedAt *time.Time
	StoppedAt *time.Time

	Status     Status
	WorkerPool string
	Result     *string
}
