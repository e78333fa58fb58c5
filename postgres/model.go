package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/emews/EQ-SQL/submission"
	"github.com/emews/EQ-SQL/task"
)

// taskModel mirrors the eq_tasks table: the authoritative row for a task's
// lifecycle state. The submission fields it carries (type, priority,
// payload) are duplicated from the row that created it rather than joined
// from emews_queue_out, because a claimed or reported task has already
// left that queue table.
type taskModel struct {
	bun.BaseModel `bun:"table:eq_tasks"`

	Id         int64      `bun:"eq_task_id,pk"`
	Type       string     `bun:"eq_task_type,notnull"`
	Priority   int64      `bun:"eq_priority,notnull"`
	Status     int32      `bun:"eq_status,notnull"`
	WorkerPool string     `bun:"eq_worker_pool,notnull"`
	Payload    string     `bun:"eq_payload,notnull"`
	Result     *string    `bun:"json_in"`
	CreatedAt  time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	StartedAt  *time.Time `bun:"time_start"`
	StoppedAt  *time.Time `bun:"time_stop"`
}

// expIdTaskModel mirrors eq_exp_id_tasks, scoping a task to the experiment
// that submitted it.
type expIdTaskModel struct {
	bun.BaseModel `bun:"table:eq_exp_id_tasks"`

	ExpId  string `bun:"eq_exp_id,pk"`
	TaskId int64  `bun:"eq_task_id,pk"`
}

// taskTagModel mirrors eq_task_tags, the optional caller-supplied grouping
// label carried through requeue.
type taskTagModel struct {
	bun.BaseModel `bun:"table:eq_task_tags"`

	TaskId int64  `bun:"eq_task_id,pk"`
	Tag    string `bun:"eq_tag,notnull"`
}

// queueOutModel mirrors emews_queue_out, the set of tasks eligible to be
// claimed. A row here exists only while its task is Queued; ClaimTask
// deletes it in the same transaction that marks eq_tasks Running.
type queueOutModel struct {
	bun.BaseModel `bun:"table:emews_queue_out"`

	TaskId   int64  `bun:"eq_task_id,pk"`
	Type     string `bun:"eq_task_type,notnull"`
	Priority int64  `bun:"eq_priority,notnull"`
}

// queueInModel mirrors emews_queue_in, the landing spot for a reported
// result. A row is inserted once, by ReportTask, after eq_tasks has
// already been marked Complete.
type queueInModel struct {
	bun.BaseModel `bun:"table:emews_queue_in"`

	TaskId  int64  `bun:"eq_task_id,pk"`
	Payload string `bun:"eq_payload,notnull"`
}

func (tm *taskModel) toTask(expId string, tag *string) *task.Task {
	return &task.Task{
		Submission: submission.Submission{
			ExpId:    expId,
			Type:     tm.Type,
			Priority: tm.Priority,
			Payload:  tm.Payload,
			Tag:      tag,
		},
		Id:         tm.Id,
		CreatedAt:  tm.CreatedAt,
		UpdatedAt:  tm.UpdatedAt,
		StartedAt:  tm.StartedAt,
		StoppedAt:  tm.StoppedAt,
		Status:     task.Status(tm.Status),
		WorkerPool: tm.WorkerPool,
		Result:     tm.Result,
	}
}
