package gateway_test

import (
	"context"
	"errors"
	"sync"

	"github.com/emews/EQ-SQL"
	"github.com/emews/EQ-SQL/submission"
	"github.com/emews/EQ-SQL/task"
)

// fakeBackend implements eqsql.Pusher, eqsql.Puller and eqsql.Observer
// in memory, for exercising the gateway's HTTP surface without a
// database.
type fakeBackend struct {
	mu     sync.Mutex
	nextId int64
	tasks  map[int64]*task.Task
	result map[int64]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		tasks:  make(map[int64]*task.Task),
		result: make(map[int64]string),
	}
}

func (f *fakeBackend) Submit(ctx context.Context, s submission.Submission) (*task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextId++
	t := &task.Task{Submission: s, Id: f.nextId, Status: task.Queued}
	f.tasks[t.Id] = t
	return t, nil
}

func (f *fakeBackend) SubmitBatch(ctx context.Context, batch []submission.Submission) ([]*task.Task, error) {
	tasks := make([]*task.Task, 0, len(batch))
	for _, s := range batch {
		t, _ := f.Submit(ctx, s)
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (f *fakeBackend) ClaimTask(ctx context.Context, taskType, workerPool string) (*task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.Type == taskType && t.Status == task.Queued {
			t.Status = task.Running
			t.WorkerPool = workerPool
			return t, nil
		}
	}
	return nil, eqsql.ErrQueueEmpty
}

func (f *fakeBackend) ClaimTasks(ctx context.Context, taskType, workerPool string, n int) ([]*task.Task, error) {
	claimed := make([]*task.Task, 0, n)
	for len(claimed) < n {
		t, err := f.ClaimTask(ctx, taskType, workerPool)
		if err != nil {
			if errors.Is(err, eqsql.ErrQueueEmpty) {
				break
			}
			return nil, err
		}
		claimed = append(claimed, t)
	}
	return claimed, nil
}

func (f *fakeBackend) ReportTask(ctx context.Context, id int64, workerPool string, result string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return eqsql.ErrTaskLost
	}
	t.Status = task.Complete
	f.result[id] = result
	return nil
}

func (f *fakeBackend) CancelTasks(ctx context.Context, ids []int64) ([]*task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	canceled := make([]*task.Task, 0, len(ids))
	for _, id := range ids {
		t, ok := f.tasks[id]
		if !ok {
			continue
		}
		t.Status = task.Canceled
		canceled = append(canceled, t)
	}
	return canceled, nil
}

func (f *fakeBackend) RequeueTask(ctx context.Context, id int64) (*task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	original, ok := f.tasks[id]
	if !ok {
		return nil, eqsql.ErrTaskLost
	}
	f.nextId++
	fresh := &task.Task{Submission: original.Submission, Id: f.nextId, Status: task.Queued}
	f.tasks[fresh.Id] = fresh
	return fresh, nil
}

func (f *fakeBackend) UpdatePriorities(ctx context.Context, ids []int64, priorities []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range ids {
		if t, ok := f.tasks[id]; ok {
			t.Priority = priorities[i]
		}
	}
	return nil
}

func (f *fakeBackend) StopWorkerPool(ctx context.Context, taskType, workerPool string) error {
	return nil
}

func (f *fakeBackend) QueryStatus(ctx context.Context, id int64) (*task.Task, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, "", eqsql.ErrTaskLost
	}
	return t, t.Status.String(), nil
}

func (f *fakeBackend) QueryResult(ctx context.Context, id int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result[id], nil
}

func (f *fakeBackend) QueryWorkerPool(ctx context.Context, id int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return "", eqsql.ErrTaskLost
	}
	return t.WorkerPool, nil
}

func (f *fakeBackend) QueryPriorities(ctx context.Context, ids []int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	priorities := make([]int64, len(ids))
	for i, id := range ids {
		priorities[i] = f.tasks[id].Priority
	}
	return priorities, nil
}

func (f *fakeBackend) AreQueuesEmpty(ctx context.Context, expId, taskType string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ExpId == expId && t.Type == taskType && !t.Status.Terminal() {
			return false, nil
		}
	}
	return true, nil
}
