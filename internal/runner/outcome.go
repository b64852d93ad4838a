// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package runner

import (
	"errors"
	"fmt"
	"time"
)

// ErrCancelled marks a run stopped on request. It is a terminal state, not a failure.
var ErrCancelled = errors.New("run cancelled")

// State is the terminal state of a run.
type State string

const (
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// ProcessError reports a nonzero ffmpeg exit with the tail of its stderr.
type ProcessError struct {
	ExitCode       int // -1 when killed by a signal or never started
	LastErrorLines []string
	Err            error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with code %d", e.ExitCode)
	if n := len(e.LastErrorLines); n > 0 {
		msg += ": " + e.LastErrorLines[n-1]
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

// Outcome is how a run ended.
type Outcome struct {
	State   State
	Err     error // nil, ErrCancelled, or a *ProcessError
	Elapsed time.Duration
	Last    ProgressEvent // last progress block seen
}

// Succeeded reports whether the run completed.
func (o Outcome) Succeeded() bool { return o.State == StateCompleted }
