package eqsql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emews/EQ-SQL"
	"github.com/emews/EQ-SQL/task"
)

type mockObserver struct {
	t      *task.Task
	status string
	result string
	err    error
}

func (m *mockObserver) QueryStatus(ctx context.Context, id int64) (*task.Task, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return m.t, m.status, nil
}

func (m *mockObserver) QueryResult(ctx context.Context, id int64) (string, error) {
	if m.t.Status != task.Complete {
		return "", eqsql.ErrQueueEmpty
	}
	return m.result, nil
}

func (m *mockObserver) QueryWorkerPool(ctx context.Context, id int64) (string, error) {
	return m.t.WorkerPool, nil
}

func (m *mockObserver) QueryPriorities(ctx context.Context, ids []int64) ([]int64, error) {
	return nil, nil
}

func (m *mockObserver) AreQueuesEmpty(ctx context.Context, expId, taskType string) (bool, error) {
	return false, nil
}

func TestFutureResultFetchesPayloadNotStatus(t *testing.T) {
	obs := &mockObserver{
		t:      &task.Task{Id: 1, Status: task.Complete},
		status: task.Complete.String(),
		result: "ok",
	}
	f := eqsql.NewFuture(obs, 1)

	result, err := f.Result(context.Background(), eqsql.BackoffConfig{Initial: time.Millisecond, Step: time.Millisecond, Max: time.Millisecond})
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected result %q (the reported payload), got %q (looks like the status string leaked through)", "ok", result)
	}
}

func TestFutureResultCachesPayload(t *testing.T) {
	obs := &mockObserver{
		t:      &task.Task{Id: 1, Status: task.Complete},
		status: task.Complete.String(),
		result: "ok",
	}
	f := eqsql.NewFuture(obs, 1)
	cfg := eqsql.BackoffConfig{Initial: time.Millisecond, Step: time.Millisecond, Max: time.Millisecond}

	if _, err := f.Result(context.Background(), cfg); err != nil {
		t.Fatalf("Result: %v", err)
	}

	obs.result = "should never be observed again"
	result, err := f.Result(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected cached result %q, got %q", "ok", result)
	}
}

func TestFutureResultAborted(t *testing.T) {
	obs := &mockObserver{
		t:      &task.Task{Id: 1, Status: task.Complete},
		status: task.Complete.String(),
		result: eqsql.ResultAbort,
	}
	f := eqsql.NewFuture(obs, 1)

	_, err := f.Result(context.Background(), eqsql.BackoffConfig{Initial: time.Millisecond, Step: time.Millisecond, Max: time.Millisecond})
	if !errors.Is(err, eqsql.ErrResultAborted) {
		t.Fatalf("expected ErrResultAborted, got %v", err)
	}
}

func TestFutureResultCanceledNeverFetchesPayload(t *testing.T) {
	obs := &mockObserver{
		t:      &task.Task{Id: 1, Status: task.Canceled},
		status: task.Canceled.String(),
		result: "must not surface",
	}
	f := eqsql.NewFuture(obs, 1)

	_, err := f.Result(context.Background(), eqsql.BackoffConfig{Initial: time.Millisecond, Step: time.Millisecond, Max: time.Millisecond})
	if !errors.Is(err, eqsql.ErrTaskLost) {
		t.Fatalf("expected ErrTaskLost for a Canceled task, got %v", err)
	}
}

func TestFutureResultTimesOut(t *testing.T) {
	obs := &mockObserver{t: &task.Task{Id: 1, Status: task.Running}, status: task.Running.String()}
	f := eqsql.NewFuture(obs, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Result(ctx, eqsql.BackoffConfig{Initial: time.Millisecond, Step: time.Millisecond, Max: 5 * time.Millisecond})
	if !errors.Is(err, eqsql.ErrResultTimeout) {
		t.Fatalf("expected ErrResultTimeout, got %v", err)
	}
}
