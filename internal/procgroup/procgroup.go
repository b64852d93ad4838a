// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts ffmpeg in its own process group and stops the
// whole group, so helper processes do not outlive a cancelled run.
package procgroup

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/adsplice/internal/log"
	"github.com/ManuGH/adsplice/internal/metrics"
)

// Terminate stops the group of cmd gracefully. It sends SIGTERM and waits up
// to grace for waitCh; after that it sends SIGKILL and waits again.
// It consumes waitCh and returns the wait error. Nil commands are a no-op.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	logger := log.WithComponent("procgroup")

	signal(logger, cmd, syscall.SIGTERM)
	select {
	case err := <-waitCh:
		return err
	case <-time.After(grace):
	}

	logger.Warn().
		Int("pid", cmd.Process.Pid).
		Dur("grace", grace).
		Msg("SIGTERM grace period exceeded, sending SIGKILL to process group")
	signal(logger, cmd, syscall.SIGKILL)
	return <-waitCh
}

func signal(logger zerolog.Logger, cmd *exec.Cmd, sig syscall.Signal) {
	name := "SIGTERM"
	if sig == syscall.SIGKILL {
		name = "SIGKILL"
	}
	switch err := Kill(cmd, sig); {
	case err == nil:
		metrics.IncProcTerminate(name, "sent")
	case isGone(err):
		metrics.IncProcTerminate(name, "esrch")
	default:
		metrics.IncProcTerminate(name, "error")
		logger.Debug().Err(err).Str("signal", name).Msg("signal failed")
	}
}
