package postgres

import (
	"context"
	"errors"

	"github.com/uptrace/bun"

	"github.com/emews/EQ-SQL/submission"
	"github.com/emews/EQ-SQL/task"
)

// Pusher implements eqsql.Pusher using PostgreSQL.
type Pusher struct {
	db *bun.DB
}

// NewPusher creates a new Postgres-backed Pusher. db must already be
// migrated.
func NewPusher(db *bun.DB) *Pusher {
	return &Pusher{db: db}
}

// Submit inserts s as a new Queued task and makes it eligible for claim.
func (p *Pusher) Submit(ctx context.Context, s submission.Submission) (*task.Task, error) {
	if s.Priority == -1 {
		return nil, errors.New("postgres: priority -1 is reserved for the stop-worker-pool sentinel")
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	t, err := insertTask(ctx, tx, s.ExpId, s.Type, s.Priority, s.Payload, s.Tag)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

// SubmitBatch inserts every submission in batch as a new Queued task
// within a single transaction, returning the resulting tasks in the same
// order as batch.
func (p *Pusher) SubmitBatch(ctx context.Context, batch []submission.Submission) ([]*task.Task, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	tasks := make([]*task.Task, 0, len(batch))
	for _, s := range batch {
		if s.Priority == -1 {
			return nil, errors.New("postgres: priority -1 is reserved for the stop-worker-pool sentinel")
		}
		t, err := insertTask(ctx, tx, s.ExpId, s.Type, s.Priority, s.Payload, s.Tag)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// insertTask allocates a fresh id from emews_id_generator and inserts the
// eq_tasks, eq_exp_id_tasks, optional eq_task_tags and emews_queue_out
// rows that together make up a newly Queued task. Callers with
// priority == -1 (the stop-worker-pool sentinel) pass an empty expId.
func insertTask(ctx context.Context, db bun.IDB, expId, taskType string, priority int64, payload string, tag *string) (*task.Task, error) {
	var id int64
	if err := db.NewRaw("SELECT nextval('emews_id_generator')").Scan(ctx, &id); err != nil {
		return nil, err
	}

	tm := &taskModel{
		Id:         id,
		Type:       taskType,
		Priority:   priority,
		Status:     int32(task.Queued),
		WorkerPool: "",
		Payload:    payload,
	}
	if _, err := db.NewInsert().Model(tm).Exec(ctx); err != nil {
		return nil, err
	}

	if expId != "" {
		if _, err := db.NewInsert().
			Model(&expIdTaskModel{ExpId: expId, TaskId: id}).
			Exec(ctx); err != nil {
			return nil, err
		}
	}

	if tag != nil {
		if _, err := db.NewInsert().
			Model(&taskTagModel{TaskId: id, Tag: *tag}).
			Exec(ctx); err != nil {
			return nil, err
		}
	}

	if _, err := db.NewInsert().
		Model(&queueOutModel{TaskId: id, Type: taskType, Priority: priority}).
		Exec(ctx); err != nil {
		return nil, err
	}

	// Re-select to pick up the default timestamps applied by the schema.
	var stored taskModel
	if err := db.NewSelect().Model(&stored).Where("eq_task_id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return stored.toTask(expId, tag), nil
}
