package postgres_test

import (
	"context"
	"testing"

	"github.com/emews/EQ-SQL/postgres"
	"github.com/emews/EQ-SQL/submission"
	"github.com/emews/EQ-SQL/task"
)

func TestSubmitRejectsStopSentinel(t *testing.T) {
	db := newTestDB(t)
	pusher := postgres.NewPusher(db)

	s := submission.New("exp1", "add", "1,2").WithPriority(-1)
	if _, err := pusher.Submit(context.Background(), s); err == nil {
		t.Fatal("expected an error submitting with priority -1")
	}
}

func TestSubmitBatch(t *testing.T) {
	db := newTestDB(t)
	pusher := postgres.NewPusher(db)
	ctx := context.Background()

	tag := "batch-one"
	batch := []submission.Submission{
		*submission.New("exp1", "add", "1,2"),
		submission.New("exp1", "add", "3,4").WithTag(tag),
	}

	tasks, err := pusher.SubmitBatch(ctx, batch)
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].Status != task.Queued || tasks[1].Status != task.Queued {
		t.Fatalf("expected both tasks Queued, got %+v", tasks)
	}
	if tasks[1].Tag == nil || *tasks[1].Tag != tag {
		t.Fatalf("expected second task to carry tag %q, got %+v", tag, tasks[1].Tag)
	}
	if tasks[0].Id == tasks[1].Id {
		t.Fatalf("expected distinct task ids")
	}
}
