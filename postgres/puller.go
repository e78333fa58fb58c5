package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/emews/EQ-SQL"
	"github.com/emews/EQ-SQL/task"
)

// Puller implements eqsql.Puller using PostgreSQL.
//
// Puller claims tasks with a single SELECT ... FOR UPDATE SKIP LOCKED
// statement so that concurrent worker pools never observe or claim the
// same task twice, reports results using two separate transactions so
// a crash between them leaves the task durably Complete rather than
// silently losing the computed result, and cancels tasks by deleting
// from emews_queue_out with RETURNING so a cancel can never race a claim
// into canceling a task that was already picked up.
type Puller struct {
	db *bun.DB
}

// NewPuller creates a new Postgres-backed Puller. db must already be
// migrated.
func NewPuller(db *bun.DB) *Puller {
	return &Puller{db: db}
}

// ClaimTask selects and claims the single highest-priority eligible task
// of taskType, ordered priority descending then task id ascending, and
// records workerPool as its owner.
func (p *Puller) ClaimTask(ctx context.Context, taskType, workerPool string) (*task.Task, error) {
	claimed, err := p.ClaimTasks(ctx, taskType, workerPool, 1)
	if err != nil {
		return nil, err
	}
	if len(claimed) == 0 {
		return nil, eqsql.ErrQueueEmpty
	}
	return claimed[0], nil
}

// ClaimTasks selects and claims up to n of the highest-priority eligible
// tasks of taskType, ordered priority descending then task id ascending,
// and records workerPool as their owner. ClaimTasks returns an empty,
// non-error slice when no eligible task exists, and fewer than n tasks
// when fewer are available — callers build batch_size/threshold
// accounting (query_more_tasks) on top of this.
func (p *Puller) ClaimTasks(ctx context.Context, taskType, workerPool string, n int) ([]*task.Task, error) {
	if n <= 0 {
		return nil, nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var rows []queueOutModel
	err = tx.NewRaw(`
		SELECT eq_task_id, eq_task_type, eq_priority
		FROM emews_queue_out
		WHERE eq_task_type = ?
		ORDER BY eq_priority DESC, eq_task_id ASC
		FOR UPDATE SKIP LOCKED
		LIMIT ?
	`, taskType, n).Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.TaskId
	}

	if _, err := tx.NewDelete().
		Model((*queueOutModel)(nil)).
		Where("eq_task_id IN (?)", bun.In(ids)).
		Exec(ctx); err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := tx.NewUpdate().
		Model((*taskModel)(nil)).
		Set("eq_status = ?", int32(task.Running)).
		Set("eq_worker_pool = ?", workerPool).
		Set("updated_at = ?", now).
		Set("time_start = ?", now).
		Where("eq_task_id IN (?)", bun.In(ids)).
		Exec(ctx); err != nil {
		return nil, err
	}

	claimed := make([]*task.Task, 0, len(ids))
	for _, id := range ids {
		tm, expId, tag, err := fetchTaskRow(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, tm.toTask(expId, tag))
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return claimed, nil
}

func fetchTaskRow(ctx context.Context, db bun.IDB, taskId int64) (*taskModel, string, *string, error) {
	var tm taskModel
	if err := db.NewSelect().Model(&tm).Where("eq_task_id = ?", taskId).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", nil, eqsql.ErrTaskLost
		}
		return nil, "", nil, err
	}

	var expRow expIdTaskModel
	expId := ""
	if err := db.NewSelect().Model(&expRow).Where("eq_task_id = ?", taskId).Scan(ctx); err == nil {
		expId = expRow.ExpId
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil, err
	}

	var tagRow taskTagModel
	var tag *string
	if err := db.NewSelect().Model(&tagRow).Where("eq_task_id = ?", taskId).Scan(ctx); err == nil {
		tag = &tagRow.Tag
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil, err
	}

	return &tm, expId, tag, nil
}

// ReportTask records result for a Running task claimed by workerPool and
// transitions it to Complete.
//
// The update to eq_tasks and the insert into emews_queue_in run as two
// separate transactions deliberately: the result is durable the instant
// eq_tasks says Complete, even if the process crashes before the second
// transaction inserts the payload row.
func (p *Puller) ReportTask(ctx context.Context, id int64, workerPool string, result string) error {
	now := time.Now()
	res, err := p.db.NewUpdate().
		Model((*taskModel)(nil)).
		Set("eq_status = ?", int32(task.Complete)).
		Set("json_in = ?", result).
		Set("updated_at = ?", now).
		Set("time_stop = ?", now).
		Where("eq_task_id = ?", id).
		Where("eq_worker_pool = ?", workerPool).
		Where("eq_status = ?", int32(task.Running)).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		var exists int
		checkErr := p.db.NewSelect().Model((*taskModel)(nil)).Where("eq_task_id = ?", id).ColumnExpr("1").Scan(ctx, &exists)
		if errors.Is(checkErr, sql.ErrNoRows) {
			return eqsql.ErrTaskLost
		}
		return eqsql.ErrAlreadyClaimed
	}

	_, err = p.db.NewInsert().
		Model(&queueInModel{TaskId: id, Payload: result}).
		Exec(ctx)
	return err
}

// CancelTasks cancels the given tasks and returns the ones actually
// canceled.
//
// A task can only be canceled while it is still sitting unclaimed in
// emews_queue_out: CancelTasks deletes from emews_queue_out with
// RETURNING and treats exactly the returned ids as the set to cancel,
// rather than trusting eq_tasks' own status column. This makes the
// operation race-safe against a concurrent ClaimTask: whichever of the
// two locks the row first wins, so a task can never be both claimed and
// canceled. A task already Running, Complete, Canceled, or Requeued is
// therefore silently left alone — a pool shutdown requeues its in-flight
// (Running) work directly via RequeueTask instead of going through
// CancelTasks.
func (p *Puller) CancelTasks(ctx context.Context, ids []int64) ([]*task.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var deletedIds []int64
	if err := tx.NewDelete().
		Model((*queueOutModel)(nil)).
		Where("eq_task_id IN (?)", bun.In(ids)).
		Returning("eq_task_id").
		Scan(ctx, &deletedIds); err != nil {
		return nil, err
	}
	if len(deletedIds) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var canceled []taskModel
	if err := tx.NewUpdate().
		Model((*taskModel)(nil)).
		Set("eq_status = ?", int32(task.Canceled)).
		Set("updated_at = ?", time.Now()).
		Where("eq_task_id IN (?)", bun.In(deletedIds)).
		Returning("*").
		Scan(ctx, &canceled); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	ret := make([]*task.Task, 0, len(canceled))
	for i := range canceled {
		ret = append(ret, canceled[i].toTask("", nil))
	}
	return ret, nil
}

// RequeueTask marks the task identified by id Requeued and submits a
// fresh Queued task carrying the same submission fields, returning the
// new task.
func (p *Puller) RequeueTask(ctx context.Context, id int64) (*task.Task, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	tm, expId, tag, err := fetchTaskRow(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if tm.Status != int32(task.Canceled) && tm.Status != int32(task.Running) {
		return nil, eqsql.ErrAlreadyClaimed
	}

	if _, err := tx.NewUpdate().
		Model((*taskModel)(nil)).
		Set("eq_status = ?", int32(task.Requeued)).
		Set("updated_at = ?", time.Now()).
		Where("eq_task_id = ?", id).
		Exec(ctx); err != nil {
		return nil, err
	}

	fresh, err := insertTask(ctx, tx, expId, tm.Type, tm.Priority, tm.Payload, tag)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return fresh, nil
}

// UpdatePriorities updates each task named by ids to the corresponding
// value in priorities.
func (p *Puller) UpdatePriorities(ctx context.Context, ids []int64, priorities []int64) error {
	if len(ids) != len(priorities) {
		return errors.New("postgres: ids and priorities must be the same length")
	}
	for _, pr := range priorities {
		if pr == -1 {
			return errors.New("postgres: priority -1 is reserved for the stop-worker-pool sentinel")
		}
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i, id := range ids {
		if _, err := tx.NewUpdate().
			Model((*taskModel)(nil)).
			Set("eq_priority = ?", priorities[i]).
			Set("updated_at = ?", time.Now()).
			Where("eq_task_id = ?", id).
			Where("eq_status NOT IN (?)", bun.In([]int32{int32(task.Complete), int32(task.Canceled)})).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewUpdate().
			Model((*queueOutModel)(nil)).
			Set("eq_priority = ?", priorities[i]).
			Where("eq_task_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// StopWorkerPool submits the priority -1 stop sentinel for taskType. It
// sorts after every pending task of that type, so it is claimed once that
// work is drained; workerPool is not recorded on the sentinel, and
// whichever pool claims it receives it.
func (p *Puller) StopWorkerPool(ctx context.Context, taskType, workerPool string) error {
	_, err := insertTask(ctx, p.db, "", taskType, -1, eqsql.ResultStop, nil)
	return err
}
