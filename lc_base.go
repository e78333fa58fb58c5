package eqsql

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/emews/EQ-SQL/internal"
)

const (
	stopped = iota
	started
)

var (
	// ErrDoubleStarted is returned when Start is called on a component
	// that has already been started.
	ErrDoubleStarted = errors.New("eqsql: double start")

	// ErrDoubleStopped is returned when Stop is called on a component
	// that is not currently running.
	ErrDoubleStopped = errors.New("eqsql: double stop")

	// ErrStopTimeout is returned when a component fails to shut down
	// within the provided timeout during Stop.
	//
	// In this case, the component may still be terminating in the
	// background.
	ErrStopTimeout = errors.New("eqsql: stop timeout")
)

// lcBase is a reusable start/stop-once lifecycle primitive used by
// RetentionWorker. The controller package keeps its own copy for
// PoolMonitor.
type lcBase struct {
	state atomic.Int32
}

func (lb *lcBase) tryStart() error {
	if !lb.state.CompareAndSwap(stopped, started) {
		return ErrDoubleStarted
	}
	return nil
}

func (lb *lcBase) tryStop(timeout time.Duration, df internal.DoneFunc) error {
	if !lb.state.CompareAndSwap(started, stopped) {
		return ErrDoubleStopped
	}
	done := df()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}
