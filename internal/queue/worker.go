// Package queue implements the worker execution loop and its
// supervising process: claim, run, report, repeat, with graceful
// shutdown and orphaned-job reconciliation. The loop shape is claim,
// heartbeat goroutine, execute with panic recovery, report outcome.
// Concurrency control and signal handling follow a per-worker
// cancellation and supervisor-owned signal design: each worker owns
// its own context instead of a shared atomic flag, and signal.Notify
// lives in the Supervisor, not the worker loop.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vishnusrinivas00/queuectl/internal/clock"
	"github.com/vishnusrinivas00/queuectl/internal/domain"
	"github.com/vishnusrinivas00/queuectl/internal/metrics"
	"github.com/vishnusrinivas00/queuectl/internal/runner"
)

// errorTruncateLen bounds the error text attached to a job attempt
// before it reaches the store (which truncates independently to 500).
const errorTruncateLen = 300

// Storer is the subset of sqlstore.Store the worker loop depends on.
// Defined here so JobWorker can be tested against a fake without
// pulling in the real database.
type Storer interface {
	ClaimNextJob(ctx context.Context, workerID int) (*domain.Job, error)
	UpdateJobSuccess(ctx context.Context, id string) error
	UpdateJobFailure(ctx context.Context, id string, currentAttempts, maxRetries, backoffBase int, errMsg string) (string, error)
	GetConfig(ctx context.Context, key string) (string, bool, error)
	WorkersRegister(ctx context.Context, workerID int) error
	WorkersHeartbeat(ctx context.Context, workerID int) error
}

// WorkerConfig configures a JobWorker, trimmed to what this queue's
// claim protocol needs. Idle and inter-job intervals are kept distinct
// so a busy queue keeps draining quickly while an idle one backs off:
// IdleInterval applies only after an empty claim, InterJobInterval only
// after a job (success or failure) was handled.
type WorkerConfig struct {
	ID                int
	IdleInterval      time.Duration // default 500ms; sleep after an empty claim
	InterJobInterval  time.Duration // default 100ms; sleep after handling a job
	HeartbeatInterval time.Duration // default 30s
	JobTimeout        time.Duration // optional; 0 disables per-job timeout
	Clock             clock.Clock   // defaults to clock.Real{}
	Metrics           *metrics.Registry
}

// JobWorker runs the claim-execute-report loop for a single worker
// slot until its context is cancelled.
type JobWorker struct {
	cfg    WorkerConfig
	store  Storer
	runner runner.Runner
}

// NewJobWorker builds a JobWorker bound to store and runner.
func NewJobWorker(store Storer, run runner.Runner, cfg WorkerConfig) *JobWorker {
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = 500 * time.Millisecond
	}
	if cfg.InterJobInterval <= 0 {
		cfg.InterJobInterval = 100 * time.Millisecond
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	return &JobWorker{cfg: cfg, store: store, runner: run}
}

// Run registers the worker and loops until ctx is cancelled. A job
// already in flight is allowed to finish before the next cancellation
// check, so Run never abandons a claimed job mid-execution: once
// processOnce has claimed a job, its execution and outcome report run
// on a context detached from ctx's cancellation (see processOnce), so
// a shutdown signal never kills the in-flight command or drops its
// result on the floor.
func (w *JobWorker) Run(ctx context.Context) error {
	if err := w.store.WorkersRegister(ctx, w.cfg.ID); err != nil {
		return fmt.Errorf("register worker %d: %w", w.cfg.ID, err)
	}

	heartbeatCtx, cancelHeartbeat := context.WithCancel(ctx)
	defer cancelHeartbeat()
	go w.runHeartbeat(heartbeatCtx)

	slog.InfoContext(ctx, "worker started", "worker_id", w.cfg.ID)

	for {
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "worker stopping", "worker_id", w.cfg.ID)
			return nil
		}

		claimed, err := w.processOnce(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "process cycle failed", "worker_id", w.cfg.ID, "error", err)
		}

		wait := w.cfg.IdleInterval
		if claimed {
			wait = w.cfg.InterJobInterval
		}

		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "worker stopping", "worker_id", w.cfg.ID)
			return nil
		case <-time.After(wait):
		}
	}
}

func (w *JobWorker) runHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.WorkersHeartbeat(ctx, w.cfg.ID); err != nil {
				slog.WarnContext(ctx, "heartbeat failed", "worker_id", w.cfg.ID, "error", err)
			}
		}
	}
}

// processOnce claims at most one job and, if one was claimed, runs it
// to completion and reports its outcome. The returned bool reports
// whether a job was claimed, so Run can pick the idle or inter-job
// sleep. Once a job is claimed, execution and the outcome report run
// on jobCtx, a copy of ctx with its cancellation stripped
// (context.WithoutCancel): a shutdown signal must never kill the
// in-flight command or be raced against its result being persisted.
// Only the claim itself observes ctx's cancellation, so an idle worker
// still stops promptly.
func (w *JobWorker) processOnce(ctx context.Context) (bool, error) {
	claimStart := w.cfg.Clock.Now()
	job, err := w.store.ClaimNextJob(ctx, w.cfg.ID)
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.ClaimLatency.Observe(w.cfg.Clock.Now().Sub(claimStart).Seconds())
	}
	if err != nil {
		return false, fmt.Errorf("claim: %w", err)
	}
	if job == nil {
		return false, nil
	}
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.JobsClaimed.Inc()
	}

	jobCtx := context.WithoutCancel(ctx)

	attemptID := uuid.NewString()
	log := slog.With("worker_id", w.cfg.ID, "job_id", job.ID, "attempt_id", attemptID)
	log.InfoContext(jobCtx, "running job", "command", job.Command)

	execStart := w.cfg.Clock.Now()
	res := w.execute(jobCtx, job.Command)
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.ExecutionLatency.Observe(w.cfg.Clock.Now().Sub(execStart).Seconds())
	}

	if res.ExitCode == 0 && res.HostError == "" {
		if err := w.store.UpdateJobSuccess(jobCtx, job.ID); err != nil {
			return true, fmt.Errorf("update success: %w", err)
		}
		if w.cfg.Metrics != nil {
			w.cfg.Metrics.JobsCompleted.Inc()
		}
		log.InfoContext(jobCtx, "job completed")
		return true, nil
	}

	errMsg := failureMessage(res)
	backoffBase := w.readBackoffBase(jobCtx)

	outcome, err := w.store.UpdateJobFailure(jobCtx, job.ID, job.Attempts, job.MaxRetries, backoffBase, errMsg)
	if err != nil {
		return true, fmt.Errorf("update failure: %w", err)
	}

	switch outcome {
	case "dead":
		if w.cfg.Metrics != nil {
			w.cfg.Metrics.JobsDeadLettered.Inc()
		}
		log.WarnContext(jobCtx, "job dead-lettered", "error", errMsg)
	default:
		if w.cfg.Metrics != nil {
			w.cfg.Metrics.JobsFailed.Inc()
		}
		log.WarnContext(jobCtx, "job failed, retry scheduled", "error", errMsg)
	}
	return true, nil
}

// execute recovers from a panicking runner (a custom Runner
// implementation misbehaving) and converts it into a host error rather
// than crashing the worker goroutine. ctx is expected to already be
// detached from the worker's shutdown cancellation (see processOnce);
// a JobTimeout, if configured, is the only deadline execute imposes.
func (w *JobWorker) execute(ctx context.Context, command string) (res runner.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = runner.Result{
				ExitCode:  -1,
				HostError: fmt.Sprintf("panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()

	if w.cfg.JobTimeout > 0 {
		return runner.RunWithTimeout(ctx, w.runner, command, w.cfg.JobTimeout)
	}
	return w.runner.Run(ctx, command)
}

// failureMessage derives the diagnostic recorded against a failed
// attempt: the first non-empty of stderr, stdout, or a bare exit-code
// marker, unless the runner itself could not invoke the command at
// all, in which case its host error takes precedence.
func failureMessage(res runner.Result) string {
	msg := res.HostError
	if msg == "" {
		switch {
		case res.Stderr != "":
			msg = res.Stderr
		case res.Stdout != "":
			msg = res.Stdout
		default:
			msg = fmt.Sprintf("exit=%d", res.ExitCode)
		}
	}
	if len(msg) > errorTruncateLen {
		msg = msg[:errorTruncateLen]
	}
	return msg
}

func (w *JobWorker) readBackoffBase(ctx context.Context) int {
	raw, ok, err := w.store.GetConfig(ctx, domain.ConfigBackoffBase)
	if err != nil || !ok {
		n, _ := strconv.Atoi(domain.DefaultBackoffBase)
		return n
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		n, _ = strconv.Atoi(domain.DefaultBackoffBase)
	}
	return n
}
