package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/emews/EQ-SQL"
	"github.com/emews/EQ-SQL/postgres"
	"github.com/emews/EQ-SQL/submission"
	"github.com/emews/EQ-SQL/task"
)

func TestClaimReportLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	pusher := postgres.NewPusher(db)
	puller := postgres.NewPuller(db)

	submitted, err := pusher.Submit(ctx, *submission.New("exp1", "add", "1,2"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if submitted.Status != task.Queued {
		t.Fatalf("expected Queued, got %v", submitted.Status)
	}

	if _, err := puller.ClaimTask(ctx, "multiply", "poolA"); !errors.Is(err, eqsql.ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty for unrelated type, got %v", err)
	}

	claimed, err := puller.ClaimTask(ctx, "add", "poolA")
	if err != nil {
		t.Fatalf("ClaimTask: %v", err)
	}
	if claimed.Id != submitted.Id || claimed.Status != task.Running || claimed.WorkerPool != "poolA" {
		t.Fatalf("unexpected claimed task: %+v", claimed)
	}

	if _, err := puller.ClaimTask(ctx, "add", "poolB"); !errors.Is(err, eqsql.ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty on second claim, got %v", err)
	}

	if err := puller.ReportTask(ctx, claimed.Id, "poolB", "3"); !errors.Is(err, eqsql.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed when reporting under wrong pool, got %v", err)
	}

	if err := puller.ReportTask(ctx, claimed.Id, "poolA", "3"); err != nil {
		t.Fatalf("ReportTask: %v", err)
	}
}

func TestClaimTasksBatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	pusher := postgres.NewPusher(db)
	puller := postgres.NewPuller(db)

	var ids []int64
	for i := 0; i < 3; i++ {
		submitted, err := pusher.Submit(ctx, *submission.New("exp1", "add", "1,2"))
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, submitted.Id)
	}

	claimed, err := puller.ClaimTasks(ctx, "add", "poolA", 2)
	if err != nil {
		t.Fatalf("ClaimTasks: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("expected 2 claimed tasks, got %d", len(claimed))
	}
	seen := make(map[int64]bool)
	for _, c := range claimed {
		if c.Status != task.Running || c.WorkerPool != "poolA" {
			t.Fatalf("unexpected claimed task: %+v", c)
		}
		seen[c.Id] = true
	}

	rest, err := puller.ClaimTasks(ctx, "add", "poolB", 10)
	if err != nil {
		t.Fatalf("ClaimTasks (remainder): %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("expected 1 remaining task, got %d", len(rest))
	}
	if seen[rest[0].Id] {
		t.Fatalf("remainder task %d was already claimed by the first batch", rest[0].Id)
	}

	if none, err := puller.ClaimTasks(ctx, "add", "poolC", 1); err != nil || len(none) != 0 {
		t.Fatalf("expected an empty, non-error result once the type is exhausted, got %v, %v", none, err)
	}
}

func TestCancelQueuedTask(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	pusher := postgres.NewPusher(db)
	puller := postgres.NewPuller(db)

	submitted, err := pusher.Submit(ctx, *submission.New("exp1", "add", "1,2"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	canceled, err := puller.CancelTasks(ctx, []int64{submitted.Id})
	if err != nil {
		t.Fatalf("CancelTasks: %v", err)
	}
	if len(canceled) != 1 || canceled[0].Status != task.Canceled {
		t.Fatalf("expected one canceled task, got %+v", canceled)
	}

	if _, err := puller.ClaimTask(ctx, "add", "poolA"); !errors.Is(err, eqsql.ErrQueueEmpty) {
		t.Fatalf("expected a canceled task to no longer be claimable, got %v", err)
	}
}

func TestCancelTasksLeavesRunningTaskUntouched(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	pusher := postgres.NewPusher(db)
	puller := postgres.NewPuller(db)

	submitted, err := pusher.Submit(ctx, *submission.New("exp1", "add", "1,2"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	claimed, err := puller.ClaimTask(ctx, "add", "poolA")
	if err != nil {
		t.Fatalf("ClaimTask: %v", err)
	}
	if claimed.Id != submitted.Id {
		t.Fatalf("expected to claim submitted task")
	}

	canceled, err := puller.CancelTasks(ctx, []int64{claimed.Id})
	if err != nil {
		t.Fatalf("CancelTasks: %v", err)
	}
	if len(canceled) != 0 {
		t.Fatalf("expected a Running task to not be canceled, got %+v", canceled)
	}

	fresh, err := puller.RequeueTask(ctx, claimed.Id)
	if err != nil {
		t.Fatalf("RequeueTask: %v", err)
	}
	if fresh.Id == claimed.Id {
		t.Fatalf("requeued task must get a fresh id")
	}
	if fresh.Status != task.Queued || fresh.Payload != claimed.Payload {
		t.Fatalf("unexpected requeued task: %+v", fresh)
	}
}

func TestUpdatePrioritiesRejectsSentinel(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	puller := postgres.NewPuller(db)

	if err := puller.UpdatePriorities(ctx, []int64{1}, []int64{-1}); err == nil {
		t.Fatal("expected an error updating priority to the -1 sentinel")
	}
}
