package controller

import (
	"context"
	"os/exec"
	"sync"
)

// LocalPool launches a worker pool as a local subprocess.
//
// The launch script is invoked as `script expId cfgFile`, matching the
// positional-argument contract worker-pool launch scripts are expected to
// honor: the experiment id first, the path to a pool-specific
// configuration file second. LocalPool does not interpret the script's
// stdout/stderr; it only tracks process exit status.
type LocalPool struct {
	expId   string
	token   PoolToken
	cmd     *exec.Cmd
	mu      sync.Mutex
	status  Status
	waitErr error
	waited  bool
}

// StartLocalPool launches script with (expId, cfgFile) as positional
// arguments and begins tracking it. The returned pool carries a freshly
// generated PoolToken distinguishing this launch from any other pool
// registered under the same base worker-pool name.
func StartLocalPool(ctx context.Context, script, expId, cfgFile string) (*LocalPool, error) {
	cmd := exec.CommandContext(ctx, script, expId, cfgFile)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	lp := &LocalPool{expId: expId, token: NewPoolToken(), cmd: cmd, status: StatusRunning}
	go lp.wait()
	return lp, nil
}

// Token returns the PoolToken identifying this launch.
func (lp *LocalPool) Token() PoolToken {
	return lp.token
}

func (lp *LocalPool) wait() {
	err := lp.cmd.Wait()
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.waited = true
	lp.waitErr = err
	if lp.status == StatusCanceled {
		return
	}
	if err != nil {
		lp.status = StatusFailed
		return
	}
	lp.status = StatusDone
}

// ExpId returns the experiment id this pool was launched for.
func (lp *LocalPool) ExpId() string {
	return lp.expId
}

// Status reports whether the subprocess is still running, exited cleanly,
// exited with an error, or was canceled.
func (lp *LocalPool) Status(ctx context.Context) (Status, error) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.status, nil
}

// Cancel terminates the subprocess if it is still running. Canceling an
// already-terminal pool is a no-op.
func (lp *LocalPool) Cancel(ctx context.Context) error {
	lp.mu.Lock()
	if lp.status.Terminal() {
		lp.mu.Unlock()
		return nil
	}
	lp.status = StatusCanceled
	proc := lp.cmd.Process
	lp.mu.Unlock()
	if proc == nil {
		return nil
	}
	return proc.Kill()
}
