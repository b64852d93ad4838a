// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startGroup(t *testing.T, script string) (*exec.Cmd, chan error) {
	t.Helper()
	cmd := exec.Command("sh", "-c", script)
	Set(cmd)
	require.NoError(t, cmd.Start())

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()
	return cmd, waitCh
}

func TestSet_MakesGroupLeader(t *testing.T) {
	cmd, waitCh := startGroup(t, "sleep 10")
	defer func() {
		_ = Kill(cmd, syscall.SIGKILL)
		<-waitCh
	}()

	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	require.NoError(t, err)
	assert.Equal(t, cmd.Process.Pid, pgid)
}

func TestTerminate_GracefulExit(t *testing.T) {
	cmd, waitCh := startGroup(t, "sleep 10 & sleep 10")
	time.Sleep(50 * time.Millisecond)
	pgid := cmd.Process.Pid

	start := time.Now()
	err := Terminate(cmd, waitCh, 2*time.Second)
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "expected signal exit, got %v", err)
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	assert.Equal(t, syscall.SIGTERM, status.Signal(), "leader must end on SIGTERM, not the SIGKILL escalation")
	assert.Less(t, time.Since(start), 2*time.Second)

	// the orphaned sleep may linger as a zombie where init does not reap it,
	// so only a live member of the group counts as a failure
	require.Eventually(t, func() bool { return groupGoneOrZombie(pgid) }, 2*time.Second, 20*time.Millisecond)
}

func TestTerminate_EscalatesToKill(t *testing.T) {
	// the shell ignores SIGTERM, so only SIGKILL ends it
	cmd, waitCh := startGroup(t, "trap '' TERM; while :; do sleep 0.05; done")
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	err := Terminate(cmd, waitCh, 200*time.Millisecond)
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	assert.Equal(t, syscall.SIGKILL, status.Signal())
}

func TestTerminate_NilCommand(t *testing.T) {
	assert.NoError(t, Terminate(nil, nil, time.Millisecond))
	assert.NoError(t, Terminate(&exec.Cmd{}, nil, time.Millisecond))
}

func TestKill_AfterExit(t *testing.T) {
	cmd, waitCh := startGroup(t, "exit 0")
	require.NoError(t, <-waitCh)

	err := Kill(cmd, syscall.SIGTERM)
	if err != nil {
		assert.True(t, isGone(err), "unexpected error %v", err)
	}
}

// groupGoneOrZombie reports whether no process in group pgid is still running.
// Exited but unreaped members (state Z in /proc) do not count as running.
func groupGoneOrZombie(pgid int) bool {
	if err := syscall.Kill(-pgid, syscall.Signal(0)); errors.Is(err, syscall.ESRCH) {
		return true
	}
	entries, err := os.ReadDir("/proc")
	if err != nil {
		// no procfs to tell zombies apart; the group still answers signals
		return false
	}
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		if g, err := syscall.Getpgid(pid); err != nil || g != pgid {
			continue
		}
		stat, err := os.ReadFile(filepath.Join("/proc", e.Name(), "stat"))
		if err != nil {
			continue
		}
		// state follows the parenthesised command name
		if i := strings.LastIndexByte(string(stat), ')'); i >= 0 && i+2 < len(stat) && stat[i+2] != 'Z' {
			return false
		}
	}
	return true
}
