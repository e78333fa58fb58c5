package eqsql

import (
	"context"
	"errors"

	"github.com/emews/EQ-SQL/task"
)

var (
	// ErrTaskLost indicates that the referenced task no longer exists in
	// storage, or cannot be found in the state the caller expected.
	//
	// This can happen if the task was concurrently canceled, requeued, or
	// reported by another actor.
	ErrTaskLost = errors.New("eqsql: task lost")

	// ErrAlreadyClaimed indicates that ReportTask or RequeueTask was
	// called for a task that is not currently Running under the calling
	// worker pool.
	ErrAlreadyClaimed = errors.New("eqsql: task already claimed elsewhere")

	// ErrQueueEmpty indicates that ClaimTask found no eligible task.
	// Callers performing a blocking wait should treat this as "try
	// again", not as a failure.
	ErrQueueEmpty = errors.New("eqsql: queue empty")
)

// Puller defines the read-write contract for claiming and finishing tasks.
//
// Puller provides single-claim-owner semantics: once ClaimTask returns a
// task to a worker pool, no other pool may claim it. There is no
// visibility timeout — a claimed task remains Running until ReportTask,
// CancelTasks, or RequeueTask changes its status. A crashed worker pool
// leaves its claimed tasks Running indefinitely unless an operator
// explicitly cancels and requeues them through the controller package.
type Puller interface {

	// ClaimTask selects the single highest-priority eligible task of the
	// given type and transitions it from Queued to Running, recording
	// workerPool as its owner.
	//
	// Eligibility ordering is priority descending, then task id
	// ascending (oldest task wins ties within a priority band).
	//
	// ClaimTask must perform the selection and transition atomically
	// (SELECT ... FOR UPDATE SKIP LOCKED followed by an UPDATE in the
	// same transaction, or equivalent) so that concurrent callers never
	// observe or claim the same task twice.
	//
	// If no eligible task exists, ClaimTask returns (nil, ErrQueueEmpty).
	// If ctx is canceled, ClaimTask aborts and returns ctx.Err().
	ClaimTask(ctx context.Context, taskType, workerPool string) (*task.Task, error)

	// ClaimTasks is the batched form of ClaimTask: it selects and claims
	// up to n eligible tasks of the given type in the same ordering and
	// atomicity as ClaimTask, recording workerPool as their owner.
	//
	// ClaimTasks returns a nil or short slice, never ErrQueueEmpty, when
	// fewer than n tasks are eligible — an empty result is a normal
	// outcome for the batched form, not an error. QueryMoreTasks builds
	// in-flight-accounted batching on top of ClaimTasks.
	ClaimTasks(ctx context.Context, taskType, workerPool string, n int) ([]*task.Task, error)

	// ReportTask records the result of a Running task and transitions it
	// to Complete.
	//
	// ReportTask is deliberately split into two transactions: first the
	// eq_tasks row is updated to Complete, then the result payload is
	// inserted into the result queue. If the process crashes between the
	// two, the task is durably Complete and a caller can recover the
	// result by re-running the insert from the stored payload; the
	// alternative — a single all-or-nothing transaction — would instead
	// risk losing a computed result if only the second half failed.
	//
	// ReportTask returns ErrAlreadyClaimed if the task is not Running
	// under workerPool, and ErrTaskLost if the task does not exist.
	ReportTask(ctx context.Context, id int64, workerPool string, result string) error

	// CancelTasks transitions the given tasks to Canceled and returns the
	// ones actually canceled. Only a task still sitting unclaimed (Queued)
	// can be canceled this way; a Running task is left untouched, not
	// errored, since only QUEUED -> CANCELED is a legal transition.
	//
	// CancelTasks must determine which ids were actually canceled from
	// the claim queue itself (for example a DELETE ... RETURNING against
	// the claimable-rows table), not from a status read followed by a
	// separate update, so that a task concurrently claimed by ClaimTask
	// can never also end up canceled.
	//
	// Requeuing work that is in flight on a pool being shut down is a
	// separate path: the controller package calls RequeueTask directly
	// on Running tasks rather than routing through CancelTasks.
	CancelTasks(ctx context.Context, ids []int64) ([]*task.Task, error)

	// RequeueTask transitions a Canceled or Running task back to Queued
	// by inserting a fresh task carrying the same submission fields
	// (ExpId, Type, Priority, Payload, Tag) and marking the original as
	// Requeued. RequeueTask returns the new task.
	//
	// RequeueTask never mutates the original row's payload in place: the
	// original stays a permanent, auditable record of what ran where,
	// and the new row gets a new task id.
	RequeueTask(ctx context.Context, id int64) (*task.Task, error)

	// UpdatePriorities updates the priority of each task named by ids to
	// the corresponding value in priorities. ids and priorities must be
	// the same length. Tasks that are already terminal are left
	// unchanged. A priority of -1 is reserved as the stop-worker-pool
	// sentinel and is rejected with an error if supplied here.
	UpdatePriorities(ctx context.Context, ids []int64, priorities []int64) error

	// StopWorkerPool submits the stop sentinel (a task of the given type
	// with priority -1). The sentinel sorts after every pending task of
	// that type, so a ClaimTask for the type returns it once the pending
	// work is drained, and the claiming pool ends its claim loop instead
	// of blocking. The sentinel is not bound to workerPool.
	StopWorkerPool(ctx context.Context, taskType, workerPool string) error
}

// QueryMoreTasks implements the in-flight-accounted batched claim a worker
// pool uses to top up its local work queue: given the ids it currently
// believes are Running, it re-checks each against obs (some may have been
// canceled or requeued out from under the pool since the last round),
// keeps only those still Running, and — provided the resulting shortfall
// against batchSize is at least threshold — claims enough fresh tasks via
// puller to refill it.
//
// Checking threshold before claiming avoids a worker pool hammering
// ClaimTasks for a single newly-freed slot; callers typically set
// threshold to some fraction of batchSize.
//
// QueryMoreTasks returns the still-Running subset of running (in the same
// relative order) and any newly claimed tasks. If the shortfall is below
// threshold, it returns the still-Running subset and a nil claimed slice
// without calling ClaimTasks at all.
func QueryMoreTasks(ctx context.Context, obs Observer, puller Puller, taskType, workerPool string, running []int64, batchSize, threshold int) ([]int64, []*task.Task, error) {
	stillRunning := make([]int64, 0, len(running))
	for _, id := range running {
		t, _, err := obs.QueryStatus(ctx, id)
		if err != nil {
			if errors.Is(err, ErrTaskLost) {
				continue
			}
			return nil, nil, err
		}
		if t.Status == task.Running {
			stillRunning = append(stillRunning, id)
		}
	}

	n := batchSize - len(stillRunning)
	if n < threshold {
		return stillRunning, nil, nil
	}

	claimed, err := puller.ClaimTasks(ctx, taskType, workerPool, n)
	if err != nil {
		return nil, nil, err
	}
	return stillRunning, claimed, nil
}
