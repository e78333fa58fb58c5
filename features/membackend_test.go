package features

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/emews/EQ-SQL"
	"github.com/emews/EQ-SQL/submission"
	"github.com/emews/EQ-SQL/task"
)

var errReservedPriority = errors.New("features: priority -1 is reserved")

// memBackend is an in-memory implementation of eqsql.Pusher, eqsql.Puller,
// eqsql.Observer, and eqsql.Cleaner, used to exercise task-lifecycle
// scenarios without a database.
type memBackend struct {
	mu      sync.Mutex
	nextId  int64
	tasks   map[int64]*task.Task
	results map[int64]string
	queued  map[int64]bool
}

func newMemBackend() *memBackend {
	return &memBackend{
		tasks:   make(map[int64]*task.Task),
		results: make(map[int64]string),
		queued:  make(map[int64]bool),
	}
}

func (b *memBackend) Submit(ctx context.Context, s submission.Submission) (*task.Task, error) {
	if s.Priority == -1 {
		return nil, errReservedPriority
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextId++
	t := &task.Task{Submission: s, Id: b.nextId, Status: task.Queued}
	b.tasks[t.Id] = t
	b.queued[t.Id] = true
	return t, nil
}

func (b *memBackend) SubmitBatch(ctx context.Context, batch []submission.Submission) ([]*task.Task, error) {
	tasks := make([]*task.Task, 0, len(batch))
	for _, s := range batch {
		t, err := b.Submit(ctx, s)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (b *memBackend) ClaimTask(ctx context.Context, taskType, workerPool string) (*task.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var best *task.Task
	for id := range b.queued {
		t := b.tasks[id]
		if t.Type != taskType {
			continue
		}
		if best == nil || t.Priority > best.Priority || (t.Priority == best.Priority && t.Id < best.Id) {
			best = t
		}
	}
	if best == nil {
		return nil, eqsql.ErrQueueEmpty
	}
	best.Status = task.Running
	best.WorkerPool = workerPool
	delete(b.queued, best.Id)
	return best, nil
}

func (b *memBackend) ClaimTasks(ctx context.Context, taskType, workerPool string, n int) ([]*task.Task, error) {
	claimed := make([]*task.Task, 0, n)
	for len(claimed) < n {
		t, err := b.ClaimTask(ctx, taskType, workerPool)
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

func (b *memBackend) ReportTask(ctx context.Context, id int64, workerPool string, result string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		return eqsql.ErrTaskLost
	}
	if t.Status != task.Running || t.WorkerPool != workerPool {
		return eqsql.ErrAlreadyClaimed
	}
	t.Status = task.Complete
	b.results[id] = result
	return nil
}

func (b *memBackend) CancelTasks(ctx context.Context, ids []int64) ([]*task.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	canceled := make([]*task.Task, 0, len(ids))
	for _, id := range ids {
		t, ok := b.tasks[id]
		if !ok || t.Status != task.Queued {
			continue
		}
		t.Status = task.Canceled
		delete(b.queued, id)
		canceled = append(canceled, t)
	}
	return canceled, nil
}

func (b *memBackend) RequeueTask(ctx context.Context, id int64) (*task.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	original, ok := b.tasks[id]
	if !ok || (original.Status != task.Canceled && original.Status != task.Running) {
		return nil, eqsql.ErrAlreadyClaimed
	}
	original.Status = task.Requeued
	b.nextId++
	fresh := &task.Task{Submission: original.Submission, Id: b.nextId, Status: task.Queued}
	b.tasks[fresh.Id] = fresh
	b.queued[fresh.Id] = true
	return fresh, nil
}

func (b *memBackend) UpdatePriorities(ctx context.Context, ids []int64, priorities []int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, id := range ids {
		if priorities[i] == -1 {
			return errReservedPriority
		}
		if t, ok := b.tasks[id]; ok {
			t.Priority = priorities[i]
		}
	}
	return nil
}

func (b *memBackend) StopWorkerPool(ctx context.Context, taskType, workerPool string) error {
	return nil
}

func (b *memBackend) QueryStatus(ctx context.Context, id int64) (*task.Task, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		return nil, "", eqsql.ErrTaskLost
	}
	return t, t.Status.String(), nil
}

func (b *memBackend) QueryResult(ctx context.Context, id int64) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.results[id], nil
}

func (b *memBackend) QueryWorkerPool(ctx context.Context, id int64) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		return "", eqsql.ErrTaskLost
	}
	return t.WorkerPool, nil
}

func (b *memBackend) QueryPriorities(ctx context.Context, ids []int64) ([]int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	priorities := make([]int64, len(ids))
	for i, id := range ids {
		priorities[i] = b.tasks[id].Priority
	}
	return priorities, nil
}

func (b *memBackend) AreQueuesEmpty(ctx context.Context, expId, taskType string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.tasks {
		if t.ExpId == expId && t.Type == taskType && !t.Status.Terminal() {
			return false, nil
		}
	}
	return true, nil
}

func (b *memBackend) PurgeTerminal(ctx context.Context, status task.Status, before *time.Time) (int64, error) {
	return 0, nil
}

// ClearQueues cancels every still-queued task belonging to expId,
// mirroring the Postgres backend's cold-reset semantics.
func (b *memBackend) ClearQueues(ctx context.Context, expId string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var affected int64
	for id, t := range b.tasks {
		if t.ExpId != expId {
			continue
		}
		if t.Status != task.Queued {
			continue
		}
		t.Status = task.Canceled
		delete(b.queued, id)
		affected++
	}
	return affected, nil
}
