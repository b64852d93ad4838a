// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRun() *Run {
	return &Run{cancelCh: make(chan struct{})}
}

func TestSettle_CancelWinsOverCleanExit(t *testing.T) {
	r := New(Config{})
	run := newTestRun()
	run.Cancel()

	// repeat: a select between two ready channels would pick either
	for range 50 {
		out := r.settle(context.Background(), run, nil, NewLineRing(4))
		require.Equal(t, StateCancelled, out.State)
		assert.ErrorIs(t, out.Err, ErrCancelled)
	}
}

func TestSettle_ContextEndWinsOverFailure(t *testing.T) {
	r := New(Config{})
	run := newTestRun()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := r.settle(ctx, run, errors.New("signal: terminated"), NewLineRing(4))
	assert.Equal(t, StateCancelled, out.State)
	select {
	case <-run.cancelCh:
	default:
		t.Fatal("context end must mark the run cancelled")
	}
}

func TestSettle_ExitStatus(t *testing.T) {
	r := New(Config{})

	out := r.settle(context.Background(), newTestRun(), nil, NewLineRing(4))
	assert.Equal(t, StateCompleted, out.State)
	assert.NoError(t, out.Err)

	ring := NewLineRing(4)
	_, _ = ring.Write([]byte("Conversion failed!\n"))
	out = r.settle(context.Background(), newTestRun(), errors.New("wait failed"), ring)
	assert.Equal(t, StateFailed, out.State)
	var perr *ProcessError
	require.ErrorAs(t, out.Err, &perr)
	assert.Equal(t, -1, perr.ExitCode)
	assert.Equal(t, []string{"Conversion failed!"}, perr.LastErrorLines)
}
