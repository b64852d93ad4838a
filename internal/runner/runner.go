// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package runner executes a CommandPlan as a supervised ffmpeg process.
//
// Each run gets its own goroutines: a supervisor, a progress reader and a
// waiter. All of them have exited by the time Done is closed.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/adsplice/internal/log"
	"github.com/ManuGH/adsplice/internal/metrics"
	"github.com/ManuGH/adsplice/internal/procgroup"
	"github.com/ManuGH/adsplice/internal/synth"
)

const (
	defaultKillTimeout    = 5 * time.Second
	defaultProgressBuffer = 16
)

// Config tunes process supervision. Zero values take defaults.
type Config struct {
	KillTimeout    time.Duration // SIGTERM to SIGKILL grace
	ProgressBuffer int
	StderrLines    int
}

// Runner launches plans. It keeps no per-run state.
type Runner struct {
	cfg    Config
	logger zerolog.Logger
}

// New creates a Runner.
func New(cfg Config) *Runner {
	if cfg.KillTimeout <= 0 {
		cfg.KillTimeout = defaultKillTimeout
	}
	if cfg.ProgressBuffer <= 0 {
		cfg.ProgressBuffer = defaultProgressBuffer
	}
	if cfg.StderrLines <= 0 {
		cfg.StderrLines = defaultRingLines
	}
	return &Runner{cfg: cfg, logger: log.WithComponent("runner")}
}

// Run is the handle of one execution.
type Run struct {
	id       string
	jobID    string
	progress chan ProgressEvent
	done     chan struct{}

	cancelOnce sync.Once
	cancelCh   chan struct{}

	outcome Outcome // written once before done is closed
}

// ID identifies this execution in logs.
func (r *Run) ID() string { return r.id }

// JobID returns the job the run belongs to.
func (r *Run) JobID() string { return r.jobID }

// Progress delivers parsed progress in arrival order and is closed when
// ffmpeg's output ends. The buffer is small: a reader that falls behind
// stalls ffmpeg rather than losing events, so callers must drain it.
func (r *Run) Progress() <-chan ProgressEvent { return r.progress }

// Done is closed once the outcome is final and artifacts are released.
func (r *Run) Done() <-chan struct{} { return r.done }

// Cancel requests termination. It is idempotent and safe at any time,
// including before the process has started.
func (r *Run) Cancel() {
	r.cancelOnce.Do(func() { close(r.cancelCh) })
}

// Wait blocks until the run ends or ctx is done.
func (r *Run) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-r.done:
		return r.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Start launches plan on a new goroutine and returns immediately. Cancelling
// ctx cancels the run. release, if not nil, is called exactly once after the
// outcome is determined, whatever it is. When Start returns an error nothing
// was launched and release is not called.
func (r *Runner) Start(ctx context.Context, plan *synth.CommandPlan, release func()) (*Run, error) {
	if plan == nil || plan.Binary == "" {
		return nil, errors.New("runner: plan has no binary")
	}
	run := &Run{
		id:       uuid.NewString(),
		jobID:    plan.JobID,
		progress: make(chan ProgressEvent, r.cfg.ProgressBuffer),
		done:     make(chan struct{}),
		cancelCh: make(chan struct{}),
	}
	ctx = log.ContextWithRunID(log.ContextWithJobID(ctx, plan.JobID), run.id)
	go r.supervise(ctx, plan, run, release)
	return run, nil
}

func (r *Runner) supervise(ctx context.Context, plan *synth.CommandPlan, run *Run, release func()) {
	logger := log.WithContext(ctx, r.logger)
	start := time.Now()

	out := r.execute(ctx, logger, plan, run)
	out.Elapsed = time.Since(start)
	if release != nil {
		release()
	}
	run.outcome = out
	metrics.RecordOutcome(string(out.State))

	ev := logger.Info()
	if out.State == StateFailed {
		ev = logger.Error().Err(out.Err)
		var pe *ProcessError
		if errors.As(out.Err, &pe) {
			ev = ev.Int(log.FieldExitCode, pe.ExitCode).Strs("stderr", pe.LastErrorLines)
		}
	}
	ev.Str(log.FieldOutcome, string(out.State)).
		Dur("elapsed", out.Elapsed).
		Float64(log.FieldDuration, out.Last.Processed.Seconds()).
		Msg("ffmpeg run finished")
	close(run.done)
}

func (r *Runner) execute(ctx context.Context, logger zerolog.Logger, plan *synth.CommandPlan, run *Run) Outcome {
	select {
	case <-run.cancelCh:
		close(run.progress)
		return Outcome{State: StateCancelled, Err: ErrCancelled}
	case <-ctx.Done():
		close(run.progress)
		return Outcome{State: StateCancelled, Err: ErrCancelled}
	default:
	}

	ring := NewLineRing(r.cfg.StderrLines)
	cmd := exec.Command(plan.Binary, plan.Args...) // #nosec G204 -- argv built by synth, no shell
	procgroup.Set(cmd)
	cmd.Stderr = ring
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		close(run.progress)
		return failed(-1, nil, fmt.Errorf("runner: stdout pipe: %w", err))
	}

	logger.Info().Str(log.FieldCommand, plan.String()).Msg("starting ffmpeg process")
	if err := cmd.Start(); err != nil {
		metrics.RecordStart(false)
		close(run.progress)
		return failed(-1, nil, fmt.Errorf("runner: start %s: %w", plan.Binary, err))
	}
	metrics.RecordStart(true)

	var last ProgressEvent
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer close(run.progress)
		parseProgress(stdout, func(ev ProgressEvent) bool {
			select {
			case run.progress <- ev:
				last = ev
				return true
			case <-run.cancelCh:
				return false
			}
		})
		// keep the pipe drained so a cancelled ffmpeg can exit
		_, _ = io.Copy(io.Discard, stdout)
	}()

	waitCh := make(chan error, 1)
	go func() {
		<-readerDone
		waitCh <- cmd.Wait()
	}()

	var waitErr error
	cancelled := false
	select {
	case waitErr = <-waitCh:
	case <-run.cancelCh:
		cancelled = true
	case <-ctx.Done():
		run.Cancel()
		cancelled = true
	}
	if cancelled {
		logger.Info().Msg("cancelling ffmpeg process")
		_ = procgroup.Terminate(cmd, waitCh, r.cfg.KillTimeout)
		return Outcome{State: StateCancelled, Err: ErrCancelled, Last: last}
	}

	out := r.settle(ctx, run, waitErr, ring)
	out.Last = last
	return out
}

// settle classifies an exited process. A cancel requested by the time the
// exit is observed wins over the exit status.
func (r *Runner) settle(ctx context.Context, run *Run, waitErr error, ring *LineRing) Outcome {
	select {
	case <-run.cancelCh:
		return Outcome{State: StateCancelled, Err: ErrCancelled}
	case <-ctx.Done():
		run.Cancel()
		return Outcome{State: StateCancelled, Err: ErrCancelled}
	default:
	}
	if waitErr == nil {
		return Outcome{State: StateCompleted}
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code = exitErr.ExitCode()
	}
	return failed(code, ring.LastN(r.cfg.StderrLines), waitErr)
}

func failed(code int, lines []string, err error) Outcome {
	return Outcome{State: StateFailed, Err: &ProcessError{ExitCode: code, LastErrorLines: lines, Err: err}}
}
