package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/emews/EQ-SQL"
	"github.com/emews/EQ-SQL/task"
)

// Observer implements eqsql.Observer using PostgreSQL.
//
// Observer provides read-only access to task state and never transitions
// a task's status.
type Observer struct {
	db *bun.DB
}

// NewObserver creates a new Postgres-backed Observer. db must already be
// migrated.
func NewObserver(db *bun.DB) *Observer {
	return &Observer{db: db}
}

// QueryStatus returns the current snapshot of the task identified by id
// together with a short human-readable status description.
func (o *Observer) QueryStatus(ctx context.Context, id int64) (*task.Task, string, error) {
	tm, expId, tag, err := fetchTaskRow(ctx, o.db, id)
	if err != nil {
		return nil, "", err
	}
	t := tm.toTask(expId, tag)
	return t, t.Status.String(), nil
}

// QueryResult pops the reported result for a Complete task: the
// emews_queue_in row exists only while its result is unread, so a
// successful QueryResult deletes it in the same transaction that reads
// it. The durable copy on eq_tasks.json_in is left untouched, so a
// second call (or a caller that purged emews_queue_in separately) still
// recovers the same payload.
//
// QueryResult returns eqsql.ErrQueueEmpty if the task has not yet reached
// Complete, and eqsql.ErrTaskLost if the task does not exist.
func (o *Observer) QueryResult(ctx context.Context, id int64) (string, error) {
	tm, _, _, err := fetchTaskRow(ctx, o.db, id)
	if err != nil {
		return "", err
	}
	if task.Status(tm.Status) != task.Complete {
		return "", eqsql.ErrQueueEmpty
	}

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var popped queueInModel
	err = tx.NewDelete().
		Model(&popped).
		Where("eq_task_id = ?", id).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		// Already popped by an earlier call, or emews_queue_in was
		// purged separately: fall back to the durable copy.
		if tm.Result == nil {
			return "", eqsql.ErrTaskLost
		}
		if err := tx.Commit(); err != nil {
			return "", err
		}
		return *tm.Result, nil
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return popped.Payload, nil
}

// QueryWorkerPool returns the worker pool currently (or most recently)
// assigned to the task identified by id.
func (o *Observer) QueryWorkerPool(ctx context.Context, id int64) (string, error) {
	var tm taskModel
	err := o.db.NewSelect().
		Model(&tm).
		Column("eq_worker_pool").
		Where("eq_task_id = ?", id).
		Scan(ctx)
	if err != nil {
		return "", err
	}
	return tm.WorkerPool, nil
}

// QueryPriorities returns the current priority of each task named by ids,
// in the same order.
func (o *Observer) QueryPriorities(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []taskModel
	if err := o.db.NewSelect().
		Model(&rows).
		Column("eq_task_id", "eq_priority").
		Where("eq_task_id IN (?)", bun.In(ids)).
		Scan(ctx); err != nil {
		return nil, err
	}

	byId := make(map[int64]int64, len(rows))
	for i := range rows {
		byId[rows[i].Id] = rows[i].Priority
	}

	priorities := make([]int64, len(ids))
	var errs []error
	for i, id := range ids {
		p, ok := byId[id]
		if !ok {
			errs = append(errs, fmt.Errorf("task %d: %w", id, eqsql.ErrTaskLost))
			continue
		}
		priorities[i] = p
	}
	return priorities, errors.Join(errs...)
}

// InFlightTasks returns the ids of all Running tasks currently assigned
// to workerPool. It backs controller.InFlightLister, letting a
// controller.PoolMonitor discover what to requeue when a pool is
// canceled or fails.
func (o *Observer) InFlightTasks(ctx context.Context, workerPool string) ([]int64, error) {
	var ids []int64
	err := o.db.NewSelect().
		Model((*taskModel)(nil)).
		Column("eq_task_id").
		Where("eq_worker_pool = ?", workerPool).
		Where("eq_status = ?", int32(task.Running)).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// AreQueuesEmpty reports whether no Queued or Running tasks of taskType
// remain for expId.
func (o *Observer) AreQueuesEmpty(ctx context.Context, expId, taskType string) (bool, error) {
	var count int
	err := o.db.NewRaw(`
		SELECT count(*)
		FROM eq_tasks t
		JOIN eq_exp_id_tasks e ON e.eq_task_id = t.eq_task_id
		WHERE e.eq_exp_id = ?
		  AND t.eq_task_type = ?
		  AND t.eq_status IN (?, ?)
	`, expId, taskType, int32(task.Queued), int32(task.Running)).Scan(ctx, &count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
