package postgres

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/emews/EQ-SQL"
	"github.com/emews/EQ-SQL/task"
)

// Cleaner implements eqsql.Cleaner using PostgreSQL.
//
// Cleaner covers two distinct administrative operations: PurgeTerminal
// permanently removes old terminal tasks from eq_tasks, cascading to
// eq_exp_id_tasks and eq_task_tags via foreign key; ClearQueues cold-resets
// an experiment's queues without deleting task history. Neither
// coordinates with in-flight claims.
type Cleaner struct {
	db *bun.DB
}

// NewCleaner creates a new Postgres-backed Cleaner. db must already be
// migrated.
func NewCleaner(db *bun.DB) *Cleaner {
	return &Cleaner{db: db}
}

// PurgeTerminal deletes tasks matching status and, if before is non-nil,
// whose updated_at is at or before *before. Only the terminal statuses
// task.Complete and task.Canceled are accepted; any other status returns
// eqsql.ErrBadStatus.
func (c *Cleaner) PurgeTerminal(ctx context.Context, status task.Status, before *time.Time) (int64, error) {
	if status != task.Complete && status != task.Canceled {
		return 0, eqsql.ErrBadStatus
	}
	query := c.db.NewDelete().
		Model((*taskModel)(nil)).
		Where("eq_status = ?", int32(status))
	if before != nil {
		query = query.Where("updated_at <= ?", *before)
	}
	res, err := query.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return getAffected(res), nil
}

// ClearQueues cancels every task submitted under expId that still holds
// an emews_queue_out or emews_queue_in entry, then truncates those
// entries. This includes a Complete task whose result is still unread in
// emews_queue_in. A task absent from both queue tables (Running,
// Canceled, Requeued, or Complete with its result already read) is left
// untouched.
func (c *Cleaner) ClearQueues(ctx context.Context, expId string) (int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.NewRaw(`
		UPDATE eq_tasks
		SET eq_status = ?, updated_at = now()
		WHERE eq_task_id IN (
			SELECT eq_task_id FROM eq_exp_id_tasks WHERE eq_exp_id = ?
		)
		AND eq_task_id IN (
			SELECT eq_task_id FROM emews_queue_out
			UNION
			SELECT eq_task_id FROM emews_queue_in
		)
	`, int32(task.Canceled), expId).Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected := getAffected(res)

	if _, err := tx.NewRaw(`
		DELETE FROM emews_queue_out
		WHERE eq_task_id IN (SELECT eq_task_id FROM eq_exp_id_tasks WHERE eq_exp_id = ?)
	`, expId).Exec(ctx); err != nil {
		return 0, err
	}
	if _, err := tx.NewRaw(`
		DELETE FROM emews_queue_in
		WHERE eq_task_id IN (SELECT eq_task_id FROM eq_exp_id_tasks WHERE eq_exp_id = ?)
	`, expId).Exec(ctx); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return affected, nil
}
