package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/emews/EQ-SQL"
	"github.com/emews/EQ-SQL/internal"
)

// InFlightLister supplies the task ids currently Running under a worker
// pool, so PoolMonitor knows what to requeue when that pool is canceled or
// fails. In practice this is backed by an eqsql.Observer query scoped to
// the pool's name.
type InFlightLister func(ctx context.Context, workerPool string) ([]int64, error)

// PoolMonitorConfig configures a PoolMonitor.
type PoolMonitorConfig struct {
	// WorkerPool is the name recorded against claimed tasks; it must
	// match what the pool's workers pass to Puller.ClaimTask.
	WorkerPool string

	// PollInterval controls how often the pool's Status is checked.
	PollInterval time.Duration

	// Concurrency bounds how many tasks are requeued at once when a
	// pool's work needs to be redistributed.
	Concurrency int

	// RequeueRetry controls the retry backoff applied to a single
	// task's requeue round trip when it fails transiently.
	RequeueRetry eqsql.BackoffConfig
}

// PoolMonitor watches a controller.Pool's lifecycle and, when the pool is
// canceled or fails, requeues whatever tasks were left Running under its
// name so another pool can pick them up.
//
// The requeue algorithm, run once per terminal transition:
//
//  1. Ask InFlightLister for the Running task ids owned by this pool.
//  2. Resubmit each directly as a fresh Queued task via Puller.RequeueTask,
//     which transitions the original Running row straight to Requeued
//     (Running never passes through Canceled on this path).
//  3. Log each replacement task's new id next to the id it replaces, so an
//     operator can correlate the replacement tasks with the canceled pool.
//
// PoolMonitor reuses the same concurrency skeleton the rest of this module
// uses for background loops (a TimerTask driving a bounded WorkerPool), but
// it polls pool status and fans out requeue work rather than pulling tasks
// and dispatching to a user handler.
type PoolMonitor struct {
	lcBase
	pool     Pool
	puller   eqsql.Puller
	inFlight InFlightLister
	log      *slog.Logger
	cfg      PoolMonitorConfig

	pollTask internal.TimerTask
	workers  *internal.WorkerPool[int64]

	mu       sync.Mutex
	requeued bool
}

// NewPoolMonitor creates a PoolMonitor for pool, using puller to perform
// cancellation/requeue and inFlight to discover in-flight task ids. The
// monitor is not started automatically.
func NewPoolMonitor(pool Pool, puller eqsql.Puller, inFlight InFlightLister, cfg PoolMonitorConfig, log *slog.Logger) *PoolMonitor {
	return &PoolMonitor{
		pool:     pool,
		puller:   puller,
		inFlight: inFlight,
		log:      log,
		cfg:     cfg,
		workers: internal.NewWorkerPool[int64](cfg.Concurrency, cfg.Concurrency, log),
	}
}

func (pm *PoolMonitor) requeueOne(ctx context.Context, id int64) {
	bc := pm.cfg.RequeueRetry
	delay := bc.Initial
	for attempt := 0; ; attempt++ {
		fresh, err := pm.puller.RequeueTask(ctx, id)
		if err == nil {
			pm.log.Info("requeued in-flight task", "old_id", id, "new_id", fresh.Id)
			return
		}
		delay += bc.Step
		if delay > bc.Max {
			delay = bc.Max
		}
		pm.log.Warn("requeue failed, retrying", "id", id, "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			pm.log.Error("giving up requeuing task", "id", id, "err", ctx.Err())
			return
		case <-time.After(delay):
		}
	}
}

func (pm *PoolMonitor) requeueInFlight(ctx context.Context) {
	pm.mu.Lock()
	if pm.requeued {
		pm.mu.Unlock()
		return
	}
	pm.requeued = true
	pm.mu.Unlock()

	ids, err := pm.inFlight(ctx, pm.cfg.WorkerPool)
	if err != nil {
		pm.log.Error("cannot list in-flight tasks", "worker_pool", pm.cfg.WorkerPool, "err", err)
		return
	}
	for _, id := range ids {
		if !pm.workers.Push(id) {
			return
		}
	}
}

func (pm *PoolMonitor) poll(ctx context.Context) {
	status, err := pm.pool.Status(ctx)
	if err != nil {
		pm.log.Error("cannot read pool status", "err", err)
		return
	}
	if status == StatusCanceled || status == StatusFailed {
		pm.requeueInFlight(ctx)
	}
}

// Start begins periodic status polling. Start returns ErrDoubleStarted if
// the monitor has already been started.
func (pm *PoolMonitor) Start(ctx context.Context) error {
	if err := pm.tryStart(); err != nil {
		return err
	}
	pm.workers.Start(ctx, func(ctx context.Context, id int64) { pm.requeueOne(ctx, id) })
	pm.pollTask.Start(ctx, pm.poll, pm.cfg.PollInterval)
	return nil
}

func (pm *PoolMonitor) doStop() internal.DoneChan {
	first := pm.pollTask.Stop()
	second := pm.workers.Stop()
	return internal.Combine(first, second)
}

// Stop terminates polling and waits for any in-flight requeue work to
// finish, subject to timeout. Stop returns ErrDoubleStopped if the monitor
// is not running.
func (pm *PoolMonitor) Stop(timeout time.Duration) error {
	return pm.tryStop(timeout, pm.doStop)
}
