// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/adsplice/internal/artifact"
	"github.com/ManuGH/adsplice/internal/synth"
	"github.com/ManuGH/adsplice/internal/testutil"
)

func fakePlan(script string) *synth.CommandPlan {
	return testutil.ScriptPlan("job-1", script)
}

func drain(run *Run) []ProgressEvent {
	var evs []ProgressEvent
	for ev := range run.Progress() {
		evs = append(evs, ev)
	}
	return evs
}

func waitOutcome(t *testing.T, run *Run, limit time.Duration) Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), limit)
	defer cancel()
	out, err := run.Wait(ctx)
	require.NoError(t, err, "run did not finish within %s", limit)
	return out
}

const progressScript = `
printf 'frame=25\nfps=25\nout_time_us=1000000\nspeed=1.0x\nprogress=continue\n'
printf 'frame=50\nfps=25\nout_time_us=2000000\nspeed=1.2x\nprogress=end\n'
exit 0
`

func TestRun_Completed(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var released atomic.Int32
	run, err := New(Config{}).Start(context.Background(), fakePlan(progressScript), func() { released.Add(1) })
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID())
	assert.Equal(t, "job-1", run.JobID())

	evs := drain(run)
	out := waitOutcome(t, run, 5*time.Second)

	assert.Equal(t, StateCompleted, out.State)
	assert.True(t, out.Succeeded())
	assert.NoError(t, out.Err)
	require.Len(t, evs, 2)
	assert.Equal(t, time.Second, evs[0].Processed)
	assert.Equal(t, 2*time.Second, evs[1].Processed)
	assert.True(t, evs[1].Final)
	assert.Equal(t, evs[1], out.Last)
	assert.Equal(t, int32(1), released.Load())
}

func TestRun_FailedCarriesStderrTail(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	script := `echo "input.mp4: No such file or directory" >&2; echo "Error opening input files" >&2; exit 1`
	run, err := New(Config{StderrLines: 5}).Start(context.Background(), fakePlan(script), nil)
	require.NoError(t, err)

	drain(run)
	out := waitOutcome(t, run, 5*time.Second)

	assert.Equal(t, StateFailed, out.State)
	var pe *ProcessError
	require.True(t, errors.As(out.Err, &pe))
	assert.Equal(t, 1, pe.ExitCode)
	assert.Equal(t, []string{"input.mp4: No such file or directory", "Error opening input files"}, pe.LastErrorLines)
	assert.Contains(t, pe.Error(), "code 1: Error opening input files")
}

func TestRun_MissingBinaryFails(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	plan := &synth.CommandPlan{JobID: "job-1", Binary: filepath.Join(t.TempDir(), "no-ffmpeg")}
	var released atomic.Int32
	run, err := New(Config{}).Start(context.Background(), plan, func() { released.Add(1) })
	require.NoError(t, err)

	drain(run)
	out := waitOutcome(t, run, 5*time.Second)
	assert.Equal(t, StateFailed, out.State)
	var pe *ProcessError
	require.True(t, errors.As(out.Err, &pe))
	assert.Equal(t, -1, pe.ExitCode)
	assert.Equal(t, int32(1), released.Load())
}

func TestStart_RejectsEmptyPlan(t *testing.T) {
	_, err := New(Config{}).Start(context.Background(), nil, nil)
	assert.Error(t, err)
	_, err = New(Config{}).Start(context.Background(), &synth.CommandPlan{}, nil)
	assert.Error(t, err)
}

func TestRun_CancelBeforeProgressReleasesArtifacts(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mgr, err := artifact.NewManager(t.TempDir())
	require.NoError(t, err)
	scope := mgr.Scope("job-1")
	a, err := scope.Allocate(artifact.KindConcatList, ".ffconcat")
	require.NoError(t, err)
	require.NoError(t, scope.WriteFile(a, []byte("ffconcat version 1.0\n")))

	run, err := New(Config{KillTimeout: time.Second}).Start(context.Background(), fakePlan("sleep 30"), scope.Release)
	require.NoError(t, err)
	run.Cancel()

	out := waitOutcome(t, run, 3*time.Second)
	assert.Equal(t, StateCancelled, out.State)
	assert.ErrorIs(t, out.Err, ErrCancelled)
	assert.Empty(t, drain(run))

	_, statErr := os.Stat(a.Path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "artifact should be removed")
	assert.Empty(t, mgr.Live("job-1"))
}

func TestRun_CancelIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var released atomic.Int32
	run, err := New(Config{KillTimeout: time.Second}).Start(context.Background(), fakePlan("sleep 30"), func() { released.Add(1) })
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run.Cancel()
		}()
	}
	wg.Wait()

	out := waitOutcome(t, run, 3*time.Second)
	assert.Equal(t, StateCancelled, out.State)
	run.Cancel()
	<-run.Done()
	assert.Equal(t, int32(1), released.Load())
}

func TestRun_CancelEscalatesToKill(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	script := `trap '' TERM; printf 'progress=continue\n'; while :; do sleep 0.05; done`
	run, err := New(Config{KillTimeout: 200 * time.Millisecond}).Start(context.Background(), fakePlan(script), nil)
	require.NoError(t, err)

	select {
	case ev, ok := <-run.Progress():
		require.True(t, ok)
		assert.False(t, ev.Final)
	case <-time.After(3 * time.Second):
		t.Fatal("no progress from fake ffmpeg")
	}

	start := time.Now()
	run.Cancel()
	out := waitOutcome(t, run, 3*time.Second)
	assert.Equal(t, StateCancelled, out.State)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestRun_ContextCancelStopsRun(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	run, err := New(Config{KillTimeout: time.Second}).Start(ctx, fakePlan("sleep 30"), nil)
	require.NoError(t, err)

	cancel()
	out := waitOutcome(t, run, 3*time.Second)
	assert.Equal(t, StateCancelled, out.State)
}

func TestRun_SlowConsumerKeepsOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	script := `for i in 1 2 3 4 5 6; do printf "frame=$i\nprogress=continue\n"; done; printf 'progress=end\n'`
	run, err := New(Config{ProgressBuffer: 1}).Start(context.Background(), fakePlan(script), nil)
	require.NoError(t, err)

	var frames []int64
	for ev := range run.Progress() {
		time.Sleep(10 * time.Millisecond)
		frames = append(frames, ev.Frame)
	}
	out := waitOutcome(t, run, 5*time.Second)

	assert.Equal(t, StateCompleted, out.State)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 6}, frames)
}

func TestWait_ContextExpires(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	run, err := New(Config{KillTimeout: time.Second}).Start(context.Background(), fakePlan("sleep 30"), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = run.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	run.Cancel()
	<-run.Done()
}
