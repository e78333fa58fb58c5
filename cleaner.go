package eqsql

import (
	"context"
	"errors"
	"time"

	"github.com/emews/EQ-SQL/task"
)

var (
	// ErrBadStatus indicates that a non-terminal status was supplied to
	// Cleaner.PurgeTerminal.
	//
	// PurgeTerminal restricts deletion to terminal states (Complete or
	// Canceled). Supplying Queued, Running, or Requeued results in
	// ErrBadStatus.
	ErrBadStatus = errors.New("eqsql: bad task status")
)

// Cleaner provides administrative removal of tasks from storage.
//
// Cleaner is intended for retention management and for the explicit
// administrative reset the spec calls clear_queues; it does not
// participate in normal task processing. PurgeTerminal never touches
// non-terminal tasks; ClearQueues cancels the tasks it clears.
type Cleaner interface {

	// PurgeTerminal deletes tasks matching status (Complete or Canceled)
	// whose UpdatedAt is at or before before. A nil before applies no time
	// filter. There is no "either" value: the zero Status is Queued and is
	// rejected like any other non-terminal status.
	//
	// PurgeTerminal returns the number of deleted tasks. It must reject a
	// non-terminal status with ErrBadStatus and must never delete a
	// Queued, Running, or Requeued task.
	PurgeTerminal(ctx context.Context, status task.Status, before *time.Time) (int64, error)

	// ClearQueues marks every task belonging to expId that still has an
	// entry in emews_queue_out or emews_queue_in as Canceled, then
	// removes those queue-table entries. It is a cold-reset convenience
	// for returning an experiment's queues to a coherent empty state and
	// must never be used to cancel an individual task; CancelTasks is
	// the correct operation for that. ClearQueues does not touch
	// eq_tasks rows that hold no queue-table entry (Running, Canceled,
	// Requeued, or Complete with its result already read); a Complete
	// task whose result is still unread is marked Canceled.
	ClearQueues(ctx context.Context, expId string) (int64, error)
}
