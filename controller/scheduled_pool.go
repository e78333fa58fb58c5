package controller

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
)

var jobIdPattern = regexp.MustCompile(`(?m)^JOB_ID=(\d+)$`)

// Scheduler abstracts the batch scheduler a ScheduledPool submits to (for
// example PBS, Slurm, or Cobalt). It is the seam PSIJ-style job-management
// libraries plug into: nothing in this module assumes a specific
// scheduler's CLI beyond the JOB_ID=<digits> stdout convention parsed by
// CLIScheduler.
type Scheduler interface {
	// JobStatus reports the current state of a previously submitted job.
	JobStatus(ctx context.Context, jobId string) (Status, error)

	// CancelJob terminates a previously submitted job. Canceling an
	// already-terminal job must be a no-op.
	CancelJob(ctx context.Context, jobId string) error
}

// CLIScheduler is a Scheduler implementation that shells out to scheduler
// CLI commands. StatusCmd and CancelCmd are format strings with a single
// %s verb for the job id.
type CLIScheduler struct {
	StatusCmd string
	CancelCmd string
}

func (c *CLIScheduler) run(ctx context.Context, commandLine string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", commandLine)
	out, err := cmd.Output()
	return string(out), err
}

// JobStatus runs StatusCmd and interprets its exit status: zero means
// running, non-zero means the job is no longer active. CLIScheduler cannot
// by itself distinguish a clean finish from a failure once the job has
// left the scheduler's queue; callers needing that distinction should
// implement Scheduler directly against their scheduler's accounting API.
func (c *CLIScheduler) JobStatus(ctx context.Context, jobId string) (Status, error) {
	_, err := c.run(ctx, fmt.Sprintf(c.StatusCmd, jobId))
	if err != nil {
		return StatusDone, nil
	}
	return StatusRunning, nil
}

// CancelJob runs CancelCmd for jobId.
func (c *CLIScheduler) CancelJob(ctx context.Context, jobId string) error {
	_, err := c.run(ctx, fmt.Sprintf(c.CancelCmd, jobId))
	return err
}

// ScheduledPool launches a worker pool by submitting it to a batch
// scheduler rather than running it as a direct subprocess.
//
// The submit script is expected to print a line of the exact form
// "JOB_ID=<digits>" to stdout once the scheduler accepts the submission;
// StartScheduledPool extracts that id and hands subsequent status/cancel
// calls to the Scheduler.
type ScheduledPool struct {
	expId     string
	token     PoolToken
	jobId     string
	scheduler Scheduler
	status    Status
}

// StartScheduledPool runs `script expId cfgFile`, expecting it to submit a
// job to a scheduler and print JOB_ID=<digits> on a line of stdout. The
// returned pool carries a freshly generated PoolToken distinguishing this
// launch from any other pool registered under the same base worker-pool
// name.
func StartScheduledPool(ctx context.Context, scheduler Scheduler, script, expId, cfgFile string) (*ScheduledPool, error) {
	cmd := exec.CommandContext(ctx, script, expId, cfgFile)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	jobId, scanErr := scanJobId(stdout)
	waitErr := cmd.Wait()
	if scanErr != nil {
		return nil, scanErr
	}
	if waitErr != nil {
		return nil, fmt.Errorf("submit script exited with error: %w", waitErr)
	}

	return &ScheduledPool{
		expId:     expId,
		token:     NewPoolToken(),
		jobId:     jobId,
		scheduler: scheduler,
		status:    StatusRunning,
	}, nil
}

// Token returns the PoolToken identifying this launch.
func (sp *ScheduledPool) Token() PoolToken {
	return sp.token
}

func scanJobId(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	jobId := ""
	for scanner.Scan() {
		if jobId == "" {
			if m := jobIdPattern.FindStringSubmatch(scanner.Text()); m != nil {
				jobId = m[1]
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if jobId == "" {
		return "", fmt.Errorf("submit script did not print a JOB_ID line")
	}
	return jobId, nil
}

// ExpId returns the experiment id this pool was launched for.
func (sp *ScheduledPool) ExpId() string {
	return sp.expId
}

// JobId returns the scheduler-assigned job id captured at submission time.
func (sp *ScheduledPool) JobId() string {
	return sp.jobId
}

// Status consults the Scheduler for the job's current state, caching a
// terminal result once observed.
func (sp *ScheduledPool) Status(ctx context.Context) (Status, error) {
	if sp.status.Terminal() {
		return sp.status, nil
	}
	st, err := sp.scheduler.JobStatus(ctx, sp.jobId)
	if err != nil {
		return StatusUnknown, err
	}
	sp.status = st
	return st, nil
}

// Cancel asks the Scheduler to cancel the underlying job.
func (sp *ScheduledPool) Cancel(ctx context.Context) error {
	if sp.status.Terminal() {
		return nil
	}
	if err := sp.scheduler.CancelJob(ctx, sp.jobId); err != nil {
		return err
	}
	sp.status = StatusCanceled
	return nil
}
