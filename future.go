package eqsql

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/emews/EQ-SQL/task"
)

const (
	// ResultAbort is the payload value a worker pool reports when a task
	// could not be executed and is not worth retrying automatically.
	ResultAbort = "EQ_ABORT"

	// ResultStop is the sentinel payload type used by StopWorkerPool; it
	// is never produced by ReportTask.
	ResultStop = "EQ_STOP"
)

var (
	// ErrResultTimeout is returned by Future.Result when the supplied
	// context is done before the task reaches a terminal status. It is
	// never cached on the Future: the task may still complete later, so
	// the next call to Result starts polling fresh instead of replaying
	// a stale timeout.
	ErrResultTimeout = errors.New("eqsql: result wait timed out")

	// ErrResultAborted is returned by Future.Result when the task's
	// reported result equals ResultAbort.
	ErrResultAborted = errors.New("eqsql: task aborted")
)

// Future is a client-side handle for a submitted task that caches terminal
// outcomes so repeated polling does not re-query storage once a result is
// known.
//
// A Future is safe for concurrent use: Result, Status, and Cancel may be
// called from multiple goroutines, though in practice a Future is normally
// owned by a single polling loop.
type Future struct {
	obs        Observer
	id         int64
	mu         sync.Mutex
	cachedDone bool
	haveResult bool
	status     task.Status
	result     string
}

// NewFuture wraps the task id returned by Pusher.Submit with polling
// behavior backed by obs.
func NewFuture(obs Observer, id int64) *Future {
	return &Future{obs: obs, id: id}
}

// Id returns the task id this Future refers to.
func (f *Future) Id() int64 {
	return f.id
}

// Status returns the task's current status, consulting storage unless a
// terminal status has already been cached.
func (f *Future) Status(ctx context.Context) (task.Status, error) {
	f.mu.Lock()
	if f.cachedDone {
		st := f.status
		f.mu.Unlock()
		return st, nil
	}
	f.mu.Unlock()

	t, _, err := f.obs.QueryStatus(ctx, f.id)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if t.Status.Terminal() {
		f.cachedDone = true
		f.status = t.Status
	}
	return t.Status, nil
}

// Done reports whether the task has reached a terminal status.
func (f *Future) Done(ctx context.Context) (bool, error) {
	st, err := f.Status(ctx)
	if err != nil {
		return false, err
	}
	return st.Terminal(), nil
}

// WorkerPool returns the worker pool currently or most recently assigned
// to this task.
func (f *Future) WorkerPool(ctx context.Context) (string, error) {
	return f.obs.QueryWorkerPool(ctx, f.id)
}

// Cancel cancels the underlying task via puller. Cancel does not affect
// any cached terminal status already observed by this Future: a task that
// already completed cannot be canceled.
func (f *Future) Cancel(ctx context.Context, puller Puller) error {
	f.mu.Lock()
	done := f.cachedDone
	f.mu.Unlock()
	if done {
		return nil
	}
	_, err := puller.CancelTasks(ctx, []int64{f.id})
	return err
}

// Result blocks, polling with the given backoff, until the task reaches
// Complete or Canceled, or ctx is done.
//
// On Complete, Result fetches the reported payload via Observer.QueryResult
// and returns it, or ("", ErrResultAborted) if the payload equals
// ResultAbort. On Canceled, Result returns ("", ErrTaskLost): a Canceled
// task was never given the chance to report a result. On ctx expiring
// first, Result returns ErrResultTimeout; this outcome is never cached, so
// a subsequent call to Result re-polls from scratch rather than replaying
// the timeout.
func (f *Future) Result(ctx context.Context, cfg BackoffConfig) (string, error) {
	f.mu.Lock()
	if f.haveResult {
		status, result := f.status, f.result
		f.mu.Unlock()
		return resultFor(status, result)
	}
	f.mu.Unlock()

	bc := newBackoffCounter(cfg)
	for {
		t, _, err := f.obs.QueryStatus(ctx, f.id)
		if err != nil {
			return "", err
		}
		if t.Status.Terminal() {
			var result string
			if t.Status == task.Complete {
				result, err = f.obs.QueryResult(ctx, f.id)
				if err != nil {
					return "", err
				}
			}
			f.mu.Lock()
			f.cachedDone = true
			f.haveResult = true
			f.status = t.Status
			f.result = result
			f.mu.Unlock()
			return resultFor(t.Status, result)
		}
		delay := bc.next()
		select {
		case <-ctx.Done():
			return "", ErrResultTimeout
		case <-time.After(delay):
		}
	}
}

func resultFor(status task.Status, result string) (string, error) {
	switch status {
	case task.Complete:
		if result == ResultAbort {
			return "", ErrResultAborted
		}
		return result, nil
	case task.Canceled:
		return "", ErrTaskLost
	default:
		return "", ErrResultTimeout
	}
}

// completedIter drives AsCompleted/PopCompleted over a working copy of a
// Future slice, so the caller's own slice is left untouched until it
// chooses to remove entries itself.
type completedIter struct {
	pending []*Future
	backoff backoffCounter
}

// AsCompleted returns an iterator over futures that yields the subset that
// became newly terminal on each round, long-polling with cfg's backoff
// between empty rounds. The iterator operates over a private copy of
// futures; the slice passed in is never mutated.
func AsCompleted(futures []*Future, cfg BackoffConfig) *completedIter {
	pending := make([]*Future, len(futures))
	copy(pending, futures)
	return &completedIter{pending: pending, backoff: newBackoffCounter(cfg)}
}

// Next blocks until at least one pending Future becomes terminal, or ctx is
// done. It returns the newly-completed batch and whether any Futures
// remain pending for a subsequent call. When no Futures remain, Next
// returns (nil, false, nil) immediately.
func (it *completedIter) Next(ctx context.Context) ([]*Future, bool, error) {
	for {
		if len(it.pending) == 0 {
			return nil, false, nil
		}
		var done, still []*Future
		for _, f := range it.pending {
			ok, err := f.Done(ctx)
			if err != nil {
				return nil, false, err
			}
			if ok {
				done = append(done, f)
			} else {
				still = append(still, f)
			}
		}
		it.pending = still
		if len(done) > 0 {
			it.backoff.reset()
			return done, len(it.pending) > 0, nil
		}
		delay := it.backoff.next()
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// PopCompleted removes and returns the first Future in *futures that has
// become terminal, blocking with cfg's backoff until one does or ctx is
// done. *futures is mutated in place to drop the returned entry.
func PopCompleted(ctx context.Context, futures *[]*Future, cfg BackoffConfig) (*Future, error) {
	bc := newBackoffCounter(cfg)
	for {
		for i, f := range *futures {
			ok, err := f.Done(ctx)
			if err != nil {
				return nil, err
			}
			if ok {
				ret := f
				*futures = append((*futures)[:i], (*futures)[i+1:]...)
				return ret, nil
			}
		}
		delay := bc.next()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}
