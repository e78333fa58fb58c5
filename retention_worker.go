package eqsql

import (
	"context"
	"log/slog"
	"time"

	"github.com/emews/EQ-SQL/internal"
	"github.com/emews/EQ-SQL/task"
)

// RetentionConfig defines the scheduling and filtering parameters for a
// RetentionWorker.
//
// Status specifies which terminal task state should be targeted for
// deletion (task.Complete or task.Canceled). The zero value is task.Queued,
// which PurgeTerminal rejects with ErrBadStatus.
//
// Interval defines how often the worker runs.
//
// If Before is true, deletion is restricted to tasks whose UpdatedAt
// timestamp is older than now - Delta.
type RetentionConfig struct {
	Status   task.Status
	Interval time.Duration
	Before   bool
	Delta    time.Duration
}

// RetentionWorker periodically invokes a Cleaner's PurgeTerminal according
// to the provided configuration.
//
// RetentionWorker implements the out-of-band retention path: terminal
// tasks are otherwise kept forever, so a long-running deployment needs
// something to age them out. It does not participate in task processing
// and never touches non-terminal tasks.
//
// RetentionWorker has a strict lifecycle:
//   - Start may only be called once.
//   - Stop must be called to terminate the worker.
//   - Stop waits for the internal task to finish or until the timeout
//     expires.
type RetentionWorker struct {
	lcBase
	cleaner  Cleaner
	task     internal.TimerTask
	log      *slog.Logger
	status   task.Status
	interval time.Duration
	before   bool
	delta    time.Duration
}

// NewRetentionWorker creates a new RetentionWorker using the provided
// Cleaner implementation and configuration.
//
// The worker is not started automatically. Call Start to begin periodic
// purging.
func NewRetentionWorker(cleaner Cleaner, config *RetentionConfig, log *slog.Logger) *RetentionWorker {
	return &RetentionWorker{
		cleaner:  cleaner,
		log:      log,
		status:   config.Status,
		interval: config.Interval,
		before:   config.Before,
		delta:    config.Delta,
	}
}

func (rw *RetentionWorker) beforeStamp() *time.Time {
	if !rw.before {
		return nil
	}
	ret := time.Now()
	if rw.delta != 0 {
		ret = ret.Add(-rw.delta)
	}
	return &ret
}

func (rw *RetentionWorker) purge(ctx context.Context) {
	before := rw.beforeStamp()
	count, err := rw.cleaner.PurgeTerminal(ctx, rw.status, before)
	if err != nil {
		rw.log.Error("error while purging terminal tasks", "error", err)
		return
	}
	rw.log.Info("purged terminal tasks", "count", count)
}

// Start begins periodic execution of the purge task.
//
// Start returns ErrDoubleStarted if the worker has already been started.
func (rw *RetentionWorker) Start(ctx context.Context) error {
	if err := rw.tryStart(); err != nil {
		return err
	}
	rw.task.Start(ctx, rw.purge, rw.interval)
	return nil
}

// Stop terminates the background purge task.
//
// Stop waits until the task finishes or the specified timeout expires. If
// shutdown does not complete within the timeout, ErrStopTimeout is
// returned.
//
// Stop returns ErrDoubleStopped if the worker is not running.
func (rw *RetentionWorker) Stop(timeout time.Duration) error {
	return rw.tryStop(timeout, rw.task.Stop)
}
